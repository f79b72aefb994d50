// Package importer turns Markdown documents into page blocks.
package importer

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"inkwell/api/internal/block"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Document is a parsed Markdown file ready to become a page.
type Document struct {
	Title      string
	Icon       string
	CoverImage string
	Blocks     []block.Block
}

type frontMatter struct {
	Title      string `yaml:"title"`
	Icon       string `yaml:"icon"`
	CoverImage string `yaml:"cover"`
}

// Parse converts Markdown into blocks. A leading YAML front matter block is
// read for title, icon and cover. When the document does not open with a
// level-one heading, one is inserted carrying the front matter title, or
// fallbackTitle.
func Parse(source []byte, fallbackTitle string) (Document, error) {
	meta, body, err := splitFrontMatter(source)
	if err != nil {
		return Document{}, err
	}

	doc := md.Parser().Parse(text.NewReader(body))
	c := converter{source: body}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if err := c.block(n); err != nil {
			return Document{}, err
		}
	}

	blocks := c.blocks
	if len(blocks) == 0 || blocks[0].Kind != block.KindHeading1 {
		title := meta.Title
		if title == "" {
			title = fallbackTitle
		}
		head := block.New(block.KindHeading1)
		head.Content = block.EscapeText(title)
		blocks = append([]block.Block{head}, blocks...)
	}
	if len(blocks) == 1 {
		blocks = append(blocks, block.New(block.KindText))
	}

	return Document{
		Title:      block.PlainText(blocks[0].Content),
		Icon:       meta.Icon,
		CoverImage: meta.CoverImage,
		Blocks:     blocks,
	}, nil
}

func splitFrontMatter(source []byte) (frontMatter, []byte, error) {
	var meta frontMatter
	normalized := bytes.ReplaceAll(source, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return meta, normalized, nil
	}
	rest := normalized[len("---\n"):]
	end := bytes.Index(rest, []byte("\n---\n"))
	if end < 0 {
		return meta, normalized, nil
	}
	if err := yaml.Unmarshal(rest[:end], &meta); err != nil {
		return meta, nil, fmt.Errorf("parse front matter: %w", err)
	}
	return meta, rest[end+len("\n---\n"):], nil
}

type converter struct {
	source []byte
	blocks []block.Block
}

func (c *converter) add(kind block.Kind, content string) *block.Block {
	b := block.New(kind)
	b.Content = content
	c.blocks = append(c.blocks, b)
	return &c.blocks[len(c.blocks)-1]
}

func (c *converter) block(n ast.Node) error {
	switch node := n.(type) {
	case *ast.Heading:
		content, err := c.inline(node)
		if err != nil {
			return err
		}
		c.add(block.Heading(node.Level), content)
	case *ast.Paragraph:
		if img, ok := soleImage(node); ok {
			b := c.add(block.KindImage, "")
			b.MediaURL = string(img.Destination)
			b.Caption = c.plain(img)
			return nil
		}
		content, err := c.inline(node)
		if err != nil {
			return err
		}
		c.add(block.KindText, content)
	case *ast.List:
		return c.list(node)
	case *ast.Blockquote:
		var parts []string
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			content, err := c.inline(child)
			if err != nil {
				return err
			}
			parts = append(parts, content)
		}
		c.add(block.KindQuote, strings.Join(parts, "<br>"))
	case *ast.FencedCodeBlock:
		b := c.add(block.KindCode, html.EscapeString(c.lines(node)))
		if lang := string(node.Language(c.source)); lang != "" {
			b.CodeLanguage = lang
		}
	case *ast.CodeBlock:
		c.add(block.KindCode, html.EscapeString(c.lines(node)))
	case *ast.ThematicBreak:
		c.add(block.KindDivider, "")
	case *ast.HTMLBlock:
		if content := block.Sanitize(c.lines(node)); strings.TrimSpace(content) != "" {
			c.add(block.KindText, strings.TrimSpace(content))
		}
	case *extast.Table:
		for row := node.FirstChild(); row != nil; row = row.NextSibling() {
			var cells []string
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				content, err := c.inline(cell)
				if err != nil {
					return err
				}
				cells = append(cells, content)
			}
			c.add(block.KindText, strings.Join(cells, " | "))
		}
	}
	return nil
}

// list flattens nested lists; the block model has no indentation.
func (c *converter) list(list *ast.List) error {
	kind := block.KindBullet
	if list.IsOrdered() {
		kind = block.KindNumber
	}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var nested []*ast.List
		var parts []string
		itemKind, checked := kind, false
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			if sub, ok := child.(*ast.List); ok {
				nested = append(nested, sub)
				continue
			}
			if box, ok := child.FirstChild().(*extast.TaskCheckBox); ok {
				itemKind, checked = block.KindTodo, box.IsChecked
				child.RemoveChild(child, box)
			}
			content, err := c.inline(child)
			if err != nil {
				return err
			}
			parts = append(parts, content)
		}
		b := c.add(itemKind, strings.TrimSpace(strings.Join(parts, "<br>")))
		b.Checked = checked
		for _, sub := range nested {
			if err := c.list(sub); err != nil {
				return err
			}
		}
	}
	return nil
}

// inline renders the inline children of n and sanitizes the result to the
// markup a block may carry.
func (c *converter) inline(n ast.Node) (string, error) {
	var buf bytes.Buffer
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if err := md.Renderer().Render(&buf, c.source, child); err != nil {
			return "", fmt.Errorf("render inline: %w", err)
		}
	}
	return block.Sanitize(strings.TrimSpace(buf.String())), nil
}

func (c *converter) plain(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := node.(*ast.Text); ok && entering {
			b.Write(t.Segment.Value(c.source))
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func (c *converter) lines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.source))
	}
	return strings.TrimRight(b.String(), "\n")
}

func soleImage(p *ast.Paragraph) (*ast.Image, bool) {
	if p.ChildCount() != 1 {
		return nil, false
	}
	img, ok := p.FirstChild().(*ast.Image)
	return img, ok
}
