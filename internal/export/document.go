package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"

	"inkwell/api/internal/tree"
)

//go:embed templates/document.html
var documentFS embed.FS

var documentTemplate = template.Must(template.New("document.html").Funcs(template.FuncMap{
	"edited": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"trail": func(titles []string) string { return strings.Join(titles, " / ") },
}).ParseFS(documentFS, "templates/document.html"))

// Document is a page laid out as a standalone HTML file, the common input
// of every non-Markdown format.
type Document struct {
	Title  string
	Icon   string
	Cover  string
	Trail  []string
	Edited time.Time
	Body   template.HTML
}

func documentFor(page tree.Page, breadcrumb []string) Document {
	return Document{
		Title:  page.Title,
		Icon:   page.Icon,
		Cover:  page.CoverImage,
		Trail:  breadcrumb,
		Edited: page.UpdatedAt,
		Body:   template.HTML(BlocksToHTML(page.Blocks)),
	}
}

func (d Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
