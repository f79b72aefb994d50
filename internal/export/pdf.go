package export

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const pdfTimeout = 30 * time.Second

// A4 in inches with an even margin.
const (
	paperWidth  = 8.27
	paperHeight = 11.69
	paperMargin = 0.6
)

var (
	chromeBinaries = []string{"chromium-browser", "chromium", "google-chrome"}
	pandocBinaries = []string{"pandoc"}
)

// locate returns the first binary found on PATH, or missing.
func locate(missing error, names []string) (string, error) {
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: none of %v on PATH", missing, names)
}

// renderPDF prints the document with headless Chrome.
func renderPDF(ctx context.Context, html, title string) (*Result, error) {
	chrome, err := locate(ErrPDFDependencyMissing, chromeBinaries)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, pdfTimeout)
	defer cancel()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chrome),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var out []byte
	printPage := chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		out, _, err = page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(paperWidth).
			WithPaperHeight(paperHeight).
			WithMarginTop(paperMargin).
			WithMarginBottom(paperMargin).
			WithMarginLeft(paperMargin).
			WithMarginRight(paperMargin).
			Do(ctx)
		return err
	})
	// data URLs need %20 rather than +, hence PathEscape
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate("data:text/html;charset=utf-8,"+url.PathEscape(html)),
		chromedp.WaitReady("body"),
		printPage,
	); err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return &Result{Data: out, Filename: Filename(title, FormatPDF), MimeType: FormatPDF.MimeType()}, nil
}
