package export

import (
	"fmt"
	"html"
	"strings"

	"inkwell/api/internal/block"
)

// BlocksToHTML renders a block list as an HTML fragment. Consecutive list
// items of the same kind share one list element. Inline markup is sanitized.
func BlocksToHTML(blocks []block.Block) string {
	var b strings.Builder
	var open block.Kind

	closeList := func() {
		switch open {
		case block.KindBullet, block.KindTodo:
			b.WriteString("</ul>\n")
		case block.KindNumber:
			b.WriteString("</ol>\n")
		}
		open = ""
	}

	for _, blk := range blocks {
		if blk.Kind != open {
			closeList()
			switch blk.Kind {
			case block.KindBullet:
				b.WriteString("<ul>\n")
				open = blk.Kind
			case block.KindTodo:
				b.WriteString("<ul class=\"todo\">\n")
				open = blk.Kind
			case block.KindNumber:
				b.WriteString("<ol>\n")
				open = blk.Kind
			}
		}
		b.WriteString(renderBlock(blk))
	}
	closeList()
	return b.String()
}

func renderBlock(blk block.Block) string {
	content := block.Sanitize(blk.Content)

	if level := blk.Kind.HeadingLevel(); level > 0 {
		return fmt.Sprintf("<h%d>%s</h%d>\n", level, content, level)
	}

	switch blk.Kind {
	case block.KindText:
		if content == "" {
			return "<p><br></p>\n"
		}
		return fmt.Sprintf("<p>%s</p>\n", content)
	case block.KindBullet, block.KindNumber:
		return fmt.Sprintf("<li>%s</li>\n", content)
	case block.KindTodo:
		checked := ""
		if blk.Checked {
			checked = " checked"
		}
		return fmt.Sprintf("<li><input type=\"checkbox\" disabled%s> %s</li>\n", checked, content)
	case block.KindQuote:
		return fmt.Sprintf("<blockquote>%s</blockquote>\n", content)
	case block.KindDivider:
		return "<hr>\n"
	case block.KindToggle:
		attr := ""
		if blk.Open {
			attr = " open"
		}
		return fmt.Sprintf("<details%s><summary>%s</summary></details>\n", attr, content)
	case block.KindCode:
		lang := blk.CodeLanguage
		if lang == "" {
			lang = block.DefaultCodeLanguage
		}
		// Code is stored as markup; render its text verbatim.
		return fmt.Sprintf("<pre><code class=\"language-%s\">%s</code></pre>\n",
			html.EscapeString(lang), html.EscapeString(block.PlainText(blk.Content)))
	case block.KindCallout:
		return fmt.Sprintf("<div class=\"callout\">%s</div>\n", content)
	case block.KindImage:
		if blk.MediaURL == "" {
			return ""
		}
		caption := ""
		if blk.Caption != "" {
			caption = fmt.Sprintf("<figcaption>%s</figcaption>", html.EscapeString(blk.Caption))
		}
		return fmt.Sprintf("<figure><img src=\"%s\" alt=\"%s\">%s</figure>\n",
			html.EscapeString(blk.MediaURL), html.EscapeString(blk.Caption), caption)
	case block.KindFile:
		if blk.MediaURL == "" {
			return ""
		}
		name := blk.Caption
		if name == "" {
			name = blk.MediaURL
		}
		return fmt.Sprintf("<p class=\"file\"><a href=\"%s\">%s</a></p>\n",
			html.EscapeString(blk.MediaURL), html.EscapeString(name))
	case block.KindPageEmbed, block.KindPageLink:
		return fmt.Sprintf("<p class=\"%s\"><a href=\"#%s\">%s</a></p>\n",
			blk.Kind.Style(), html.EscapeString(blk.LinkedPageID), content)
	default:
		return ""
	}
}
