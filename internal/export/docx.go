package export

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// renderDOCX pipes the document through pandoc.
func renderDOCX(ctx context.Context, html, title string) (*Result, error) {
	pandoc, err := locate(ErrDOCXDependencyMissing, pandocBinaries)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, pandoc,
		"--from=html", "--to=docx",
		"--metadata", "title="+title,
		"--output=-",
	)
	cmd.Stdin = strings.NewReader(html)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("pandoc: %s", msg)
		}
		return nil, fmt.Errorf("pandoc: %w", err)
	}
	return &Result{Data: stdout.Bytes(), Filename: Filename(title, FormatDOCX), MimeType: FormatDOCX.MimeType()}, nil
}
