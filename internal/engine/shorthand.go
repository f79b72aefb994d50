package engine

import (
	"strings"

	"inkwell/api/internal/block"
)

const nbsp = "\u00a0"

// MatchTrigger reports the kind a shorthand token converts to. The plain text
// must end in a space and hold nothing but the token.
func MatchTrigger(content string) (block.Kind, bool) {
	plain := block.PlainText(content)
	if !strings.HasSuffix(plain, " ") && !strings.HasSuffix(plain, nbsp) {
		return "", false
	}
	token := strings.TrimSpace(strings.ReplaceAll(plain, nbsp, " "))
	if token == "" {
		return "", false
	}
	for _, trigger := range block.Triggers() {
		if trigger.Token == token {
			return trigger.Kind, true
		}
	}
	return "", false
}

// ApplyShorthand converts the block in place when its content is a trigger.
// Only text and heading blocks convert, and never the page title.
func ApplyShorthand(blocks []block.Block, id string) ([]block.Block, bool) {
	i := IndexOf(blocks, id)
	if i < 0 {
		return blocks, false
	}
	b := blocks[i]
	if block.IsTitle(b, i) {
		return blocks, false
	}
	if b.Kind != block.KindText && !b.Kind.IsHeading() {
		return blocks, false
	}
	kind, ok := MatchTrigger(b.Content)
	if !ok {
		return blocks, false
	}
	b.Content = ""
	return replaceAt(blocks, i, block.Convert(b, kind)), true
}
