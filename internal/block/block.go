package block

import "inkwell/api/internal/util"

// DefaultCodeLanguage is applied to code blocks that have no language set.
const DefaultCodeLanguage = "plaintext"

// Block is one unit of page content. Content holds inline markup; the other
// fields only carry meaning for the kinds that use them.
type Block struct {
	ID           string `json:"id"`
	Kind         Kind   `json:"type"`
	Content      string `json:"content"`
	Checked      bool   `json:"checked,omitempty"`
	Open         bool   `json:"open,omitempty"`
	CodeLanguage string `json:"codeLanguage,omitempty"`
	MediaURL     string `json:"mediaUrl,omitempty"`
	Caption      string `json:"caption,omitempty"`
	LinkedPageID string `json:"linkedPageId,omitempty"`
}

func NewID() string {
	return util.NewID("blk")
}

// New returns an empty block of the given kind with a fresh id.
func New(kind Kind) Block {
	return Convert(Block{ID: NewID(), Kind: KindText}, kind)
}

func NewText(content string) Block {
	return Block{ID: NewID(), Kind: KindText, Content: content}
}

// Convert changes b to kind, keeping id and content and dropping fields the
// target kind does not use.
func Convert(b Block, kind Kind) Block {
	if !kind.Valid() {
		return b
	}
	out := Block{ID: b.ID, Kind: kind}
	if kind.HasText() || kind.IsPageRef() {
		out.Content = b.Content
	}
	switch kind {
	case KindTodo:
		out.Checked = b.Checked
	case KindToggle:
		out.Open = b.Open
	case KindCode:
		out.CodeLanguage = b.CodeLanguage
		if out.CodeLanguage == "" {
			out.CodeLanguage = DefaultCodeLanguage
		}
	case KindImage, KindFile:
		out.MediaURL = b.MediaURL
		out.Caption = b.Caption
	case KindPageEmbed, KindPageLink:
		out.LinkedPageID = b.LinkedPageID
	}
	return out
}

// IsTitle reports whether b at position index is the protected page-title block.
func IsTitle(b Block, index int) bool {
	return index == 0 && b.Kind == KindHeading1
}

// References reports whether b points at pageID.
func (b Block) References(pageID string) bool {
	return b.Kind.IsPageRef() && b.LinkedPageID != "" && b.LinkedPageID == pageID
}

// Clone returns a copy of blocks that shares nothing with the input.
func Clone(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	copy(out, blocks)
	return out
}
