package export

import (
	"context"
	"fmt"

	"inkwell/api/internal/tree"
)

// Renderer turns a full HTML document into a binary format.
type Renderer func(ctx context.Context, html, title string) (*Result, error)

type Service struct {
	pdf  Renderer
	docx Renderer
}

// NewService returns a service backed by headless Chrome and pandoc.
func NewService() *Service {
	return &Service{pdf: renderPDF, docx: renderDOCX}
}

// WithRenderers swaps the binary renderers; nil keeps the current one.
func (s *Service) WithRenderers(pdf, docx Renderer) *Service {
	out := *s
	if pdf != nil {
		out.pdf = pdf
	}
	if docx != nil {
		out.docx = docx
	}
	return &out
}

// Export renders the page in the requested format. breadcrumb holds the
// titles of the page's ancestors, root first.
func (s *Service) Export(ctx context.Context, page tree.Page, breadcrumb []string, format Format) (*Result, error) {
	if format == FormatMarkdown {
		data, err := ToMarkdown(page)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Filename: Filename(page.Title, format), MimeType: format.MimeType()}, nil
	}

	html, err := documentFor(page, breadcrumb).HTML()
	if err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}

	switch format {
	case FormatHTML:
		return &Result{Data: []byte(html), Filename: Filename(page.Title, format), MimeType: format.MimeType()}, nil
	case FormatPDF:
		return s.pdf(ctx, html, page.Title)
	case FormatDOCX:
		return s.docx(ctx, html, page.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
