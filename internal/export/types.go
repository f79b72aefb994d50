// Package export renders pages to HTML, Markdown, PDF and DOCX.
package export

import (
	"errors"
	"strings"
	"unicode"
)

type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
)

// ParseFormat accepts the common spellings of each format.
func ParseFormat(raw string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "html", "htm":
		return FormatHTML, true
	case "md", "markdown":
		return FormatMarkdown, true
	case "pdf":
		return FormatPDF, true
	case "docx", "word":
		return FormatDOCX, true
	}
	return "", false
}

func (f Format) MimeType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/octet-stream"
}

const maxFilenameRunes = 50

// Filename turns a page title into a download name. Letters and digits are
// kept, runs of spaces become one dash, everything else is dropped.
func Filename(title string, format Format) string {
	var name []rune
	dash := false
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			if dash {
				name = append(name, '-')
				dash = false
			}
			name = append(name, r)
		case unicode.IsSpace(r):
			dash = len(name) > 0
		}
	}
	if len(name) > maxFilenameRunes {
		name = name[:maxFilenameRunes]
	}
	if len(name) == 0 {
		return "page." + string(format)
	}
	return string(name) + "." + string(format)
}

type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	ErrUnsupportedFormat     = errors.New("export format unsupported")
	ErrPDFDependencyMissing  = errors.New("export pdf dependency missing")
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
