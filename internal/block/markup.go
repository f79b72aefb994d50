package block

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy    = bluemonday.StrictPolicy()
	sanitizePolicy = bluemonday.UGCPolicy()
)

// PlainText strips every tag from markup and decodes entities.
func PlainText(markup string) string {
	if markup == "" {
		return ""
	}
	stripped := stripPolicy.Sanitize(markup)
	return html.UnescapeString(stripped)
}

// Sanitize drops unsafe markup while keeping inline formatting tags.
func Sanitize(markup string) string {
	return sanitizePolicy.Sanitize(markup)
}

// EscapeText turns plain text into markup that renders as the same text.
func EscapeText(text string) string {
	return html.EscapeString(text)
}

// IsBlank reports whether markup has no visible text.
func IsBlank(markup string) bool {
	return strings.TrimSpace(PlainText(markup)) == ""
}

// PlainDocument joins the plain text of every text-bearing block.
func PlainDocument(blocks []Block) string {
	var b strings.Builder
	for _, blk := range blocks {
		if !blk.Kind.HasText() && !blk.Kind.IsPageRef() {
			if blk.Caption != "" {
				b.WriteString(blk.Caption)
				b.WriteByte('\n')
			}
			continue
		}
		text := PlainText(blk.Content)
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
