package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"inkwell/api/internal/block"
	"inkwell/api/internal/tree"
)

// FrontMatter is the YAML header written above an exported Markdown page.
type FrontMatter struct {
	ID         string    `yaml:"id"`
	Title      string    `yaml:"title"`
	Icon       string    `yaml:"icon,omitempty"`
	CoverImage string    `yaml:"cover,omitempty"`
	Updated    time.Time `yaml:"updated"`
}

// ToMarkdown renders the page as Markdown with a YAML front matter block.
func ToMarkdown(page tree.Page) ([]byte, error) {
	meta, err := yaml.Marshal(FrontMatter{
		ID:         page.ID,
		Title:      page.Title,
		Icon:       page.Icon,
		CoverImage: page.CoverImage,
		Updated:    page.UpdatedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n\n")
	buf.WriteString(BlocksToMarkdown(page.Blocks))
	return buf.Bytes(), nil
}

// BlocksToMarkdown renders blocks as Markdown. List items stay on adjacent
// lines; every other block is separated by a blank line.
func BlocksToMarkdown(blocks []block.Block) string {
	var b strings.Builder
	number := 0
	for i, blk := range blocks {
		if blk.Kind == block.KindNumber {
			number++
		} else {
			number = 0
		}
		if i > 0 {
			if isMarkdownListItem(blk.Kind) && blk.Kind == blocks[i-1].Kind {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		b.WriteString(markdownLine(blk, number))
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func isMarkdownListItem(k block.Kind) bool {
	return k == block.KindBullet || k == block.KindNumber || k == block.KindTodo
}

func markdownLine(blk block.Block, number int) string {
	text := block.PlainText(blk.Content)
	if level := blk.Kind.HeadingLevel(); level > 0 {
		return strings.Repeat("#", level) + " " + text
	}
	switch blk.Kind {
	case block.KindBullet, block.KindToggle:
		return "- " + text
	case block.KindNumber:
		return strconv.Itoa(number) + ". " + text
	case block.KindTodo:
		if blk.Checked {
			return "- [x] " + text
		}
		return "- [ ] " + text
	case block.KindQuote, block.KindCallout:
		return "> " + strings.ReplaceAll(text, "\n", "\n> ")
	case block.KindDivider:
		return "---"
	case block.KindCode:
		lang := blk.CodeLanguage
		if lang == block.DefaultCodeLanguage {
			lang = ""
		}
		return "```" + lang + "\n" + text + "\n```"
	case block.KindImage:
		return fmt.Sprintf("![%s](%s)", blk.Caption, blk.MediaURL)
	case block.KindFile:
		name := blk.Caption
		if name == "" {
			name = blk.MediaURL
		}
		return fmt.Sprintf("[%s](%s)", name, blk.MediaURL)
	case block.KindPageEmbed, block.KindPageLink:
		return fmt.Sprintf("[%s](#%s)", text, blk.LinkedPageID)
	default:
		return text
	}
}
