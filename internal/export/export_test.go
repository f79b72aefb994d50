package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"inkwell/api/internal/block"
	"inkwell/api/internal/tree"
)

func TestBlocksToHTML(t *testing.T) {
	tests := []struct {
		name     string
		blocks   []block.Block
		contains []string
		absent   []string
	}{
		{
			name:     "heading and paragraph",
			blocks:   []block.Block{{Kind: block.KindHeading2, Content: "Plan"}, {Kind: block.KindText, Content: "Hello <b>world</b>"}},
			contains: []string{"<h2>Plan</h2>", "<p>Hello <b>world</b></p>"},
		},
		{
			name: "bullets share one list",
			blocks: []block.Block{
				{Kind: block.KindBullet, Content: "a"},
				{Kind: block.KindBullet, Content: "b"},
				{Kind: block.KindText, Content: "c"},
				{Kind: block.KindNumber, Content: "d"},
			},
			contains: []string{"<ul>\n<li>a</li>\n<li>b</li>\n</ul>\n<p>c</p>\n<ol>\n<li>d</li>\n</ol>\n"},
		},
		{
			name:     "todo checked state",
			blocks:   []block.Block{{Kind: block.KindTodo, Content: "buy", Checked: true}},
			contains: []string{`<ul class="todo">`, "disabled checked> buy"},
		},
		{
			name:     "script is stripped",
			blocks:   []block.Block{{Kind: block.KindText, Content: `hi<script>alert(1)</script>`}},
			contains: []string{"<p>hi</p>"},
			absent:   []string{"script"},
		},
		{
			name:     "code is escaped verbatim",
			blocks:   []block.Block{{Kind: block.KindCode, Content: "if a &lt; b {}", CodeLanguage: "go"}},
			contains: []string{`<pre><code class="language-go">if a &lt; b {}</code></pre>`},
		},
		{
			name:     "page link",
			blocks:   []block.Block{{Kind: block.KindPageLink, Content: "Travel", LinkedPageID: "pg_1"}},
			contains: []string{`<a href="#pg_1">Travel</a>`},
		},
		{
			name:     "image without url is skipped",
			blocks:   []block.Block{{Kind: block.KindImage}, {Kind: block.KindDivider}},
			contains: []string{"<hr>"},
			absent:   []string{"<img"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BlocksToHTML(tt.blocks)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("BlocksToHTML() = %q, want substring %q", got, want)
				}
			}
			for _, bad := range tt.absent {
				if strings.Contains(got, bad) {
					t.Errorf("BlocksToHTML() = %q, should not contain %q", got, bad)
				}
			}
		})
	}
}

func TestBlocksToMarkdown(t *testing.T) {
	got := BlocksToMarkdown([]block.Block{
		{Kind: block.KindHeading1, Content: "<b>Groceries</b>"},
		{Kind: block.KindNumber, Content: "milk"},
		{Kind: block.KindNumber, Content: "eggs"},
		{Kind: block.KindTodo, Content: "bread", Checked: true},
		{Kind: block.KindCode, Content: "x := 1", CodeLanguage: "go"},
	})
	want := "# Groceries\n\n1. milk\n2. eggs\n\n- [x] bread\n\n```go\nx := 1\n```\n"
	if got != want {
		t.Fatalf("BlocksToMarkdown() = %q, want %q", got, want)
	}
}

func TestToMarkdownFrontMatter(t *testing.T) {
	page := tree.Page{
		ID:        "pg_1",
		Title:     "Groceries",
		Icon:      "🛒",
		Blocks:    []block.Block{{Kind: block.KindHeading1, Content: "Groceries"}},
		UpdatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := ToMarkdown(page)
	if err != nil {
		t.Fatalf("ToMarkdown() error = %v", err)
	}
	out := string(data)
	if !strings.HasPrefix(out, "---\nid: pg_1\ntitle: Groceries\n") {
		t.Fatalf("unexpected front matter: %q", out)
	}
	if !strings.Contains(out, "---\n\n# Groceries\n") {
		t.Fatalf("body missing: %q", out)
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Weekly Plan", "Weekly-Plan.pdf"},
		{"  ", "page.pdf"},
		{"Q1/Q2 review (v2)!", "Q1Q2-review-v2.pdf"},
		{"Café   notes", "Café-notes.pdf"},
		{strings.Repeat("a", 80), strings.Repeat("a", 50) + ".pdf"},
	}
	for _, tt := range tests {
		if got := Filename(tt.title, FormatPDF); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestExportFormats(t *testing.T) {
	page := tree.Page{
		ID:    "pg_1",
		Title: "Travel",
		Blocks: []block.Block{
			{Kind: block.KindHeading1, Content: "Travel"},
			{Kind: block.KindText, Content: "passport"},
		},
		UpdatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	var gotHTML string
	svc := NewService().WithRenderers(func(_ context.Context, html, title string) (*Result, error) {
		gotHTML = html
		return &Result{Data: []byte("%PDF"), Filename: Filename(title, FormatPDF), MimeType: "application/pdf"}, nil
	}, nil)

	res, err := svc.Export(context.Background(), page, []string{"Home"}, FormatHTML)
	if err != nil {
		t.Fatalf("Export(html) error = %v", err)
	}
	body := string(res.Data)
	for _, want := range []string{"<title>Travel</title>", "<h1>Travel</h1>", "<p>passport</p>", "Home", "Mar 1, 2024"} {
		if !strings.Contains(body, want) {
			t.Errorf("html export missing %q", want)
		}
	}
	if res.Filename != "Travel.html" {
		t.Errorf("unexpected filename %q", res.Filename)
	}

	res, err = svc.Export(context.Background(), page, nil, FormatPDF)
	if err != nil {
		t.Fatalf("Export(pdf) error = %v", err)
	}
	if string(res.Data) != "%PDF" || !strings.Contains(gotHTML, "<h1>Travel</h1>") {
		t.Fatalf("pdf renderer not fed the page html")
	}

	res, err = svc.Export(context.Background(), page, nil, FormatMarkdown)
	if err != nil {
		t.Fatalf("Export(md) error = %v", err)
	}
	if res.Filename != "Travel.md" {
		t.Errorf("unexpected filename %q", res.Filename)
	}

	if _, err := svc.Export(context.Background(), page, nil, Format("rtf")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	if f, ok := ParseFormat("markdown"); !ok || f != FormatMarkdown {
		t.Fatalf("ParseFormat(markdown) = %q, %v", f, ok)
	}
	if _, ok := ParseFormat("rtf"); ok {
		t.Fatal("rtf should not parse")
	}
}
