package engine

import "inkwell/api/internal/block"

func update(blocks []block.Block, id string, fn func(block.Block) (block.Block, bool)) []block.Block {
	i := IndexOf(blocks, id)
	if i < 0 {
		return blocks
	}
	next, ok := fn(blocks[i])
	if !ok || next == blocks[i] {
		return blocks
	}
	return replaceAt(blocks, i, next)
}

func SetContent(blocks []block.Block, id, content string) []block.Block {
	return update(blocks, id, func(b block.Block) (block.Block, bool) {
		if !b.Kind.HasText() {
			return b, false
		}
		b.Content = content
		return b, true
	})
}

// SetKind converts a block from the command menu. The title block keeps its kind.
func SetKind(blocks []block.Block, id string, kind block.Kind) []block.Block {
	i := IndexOf(blocks, id)
	if i < 0 || !kind.Valid() || block.IsTitle(blocks[i], i) {
		return blocks
	}
	return update(blocks, id, func(b block.Block) (block.Block, bool) {
		return block.Convert(b, kind), true
	})
}

func ToggleChecked(blocks []block.Block, id string) []block.Block {
	return update(blocks, id, func(b block.Block) (block.Block, bool) {
		if b.Kind != block.KindTodo {
			return b, false
		}
		b.Checked = !b.Checked
		return b, true
	})
}

func ToggleOpen(blocks []block.Block, id string) []block.Block {
	return update(blocks, id, func(b block.Block) (block.Block, bool) {
		if b.Kind != block.KindToggle {
			return b, false
		}
		b.Open = !b.Open
		return b, true
	})
}

func SetCodeLanguage(blocks []block.Block, id, language string) []block.Block {
	return update(blocks, id, func(b block.Block) (block.Block, bool) {
		if b.Kind != block.KindCode {
			return b, false
		}
		if language == "" {
			language = block.DefaultCodeLanguage
		}
		b.CodeLanguage = language
		return b, true
	})
}

func SetMedia(blocks []block.Block, id, url, caption string) []block.Block {
	return update(blocks, id, func(b block.Block) (block.Block, bool) {
		if b.Kind != block.KindImage && b.Kind != block.KindFile {
			return b, false
		}
		b.MediaURL = url
		b.Caption = caption
		return b, true
	})
}

// LinkPage turns the block into a reference to pageID showing title.
func LinkPage(blocks []block.Block, id string, kind block.Kind, pageID, title string) []block.Block {
	if !kind.IsPageRef() || pageID == "" {
		return blocks
	}
	i := IndexOf(blocks, id)
	if i < 0 || block.IsTitle(blocks[i], i) {
		return blocks
	}
	return update(blocks, id, func(b block.Block) (block.Block, bool) {
		b = block.Convert(b, kind)
		b.LinkedPageID = pageID
		b.Content = block.EscapeText(title)
		return b, true
	})
}

// Delete removes a block. The title block is cleared instead and the last
// remaining block is replaced by an empty text block.
func Delete(blocks []block.Block, id string) []block.Block {
	i := IndexOf(blocks, id)
	if i < 0 {
		return blocks
	}
	if block.IsTitle(blocks[i], i) {
		return SetContent(blocks, id, "")
	}
	return ensureNonEmpty(removeAt(blocks, i))
}

// Move relocates a block to index in the resulting list. The title block
// stays first.
func Move(blocks []block.Block, id string, index int) []block.Block {
	i := IndexOf(blocks, id)
	if i < 0 || index < 0 || index >= len(blocks) || i == index {
		return blocks
	}
	if block.IsTitle(blocks[i], i) {
		return blocks
	}
	if index == 0 && block.IsTitle(blocks[0], 0) {
		return blocks
	}
	moved := blocks[i]
	out := removeAt(blocks, i)
	return insertAt(out, index, moved)
}

// StripReferences drops every page-ref block pointing at a page in ids.
func StripReferences(blocks []block.Block, ids map[string]bool) ([]block.Block, bool) {
	var out []block.Block
	changed := false
	for i, b := range blocks {
		if b.Kind.IsPageRef() && ids[b.LinkedPageID] {
			if !changed {
				out = make([]block.Block, 0, len(blocks))
				out = append(out, blocks[:i]...)
				changed = true
			}
			continue
		}
		if changed {
			out = append(out, b)
		}
	}
	if !changed {
		return blocks, false
	}
	return ensureNonEmpty(out), true
}

// RetitleReferences rewrites the content of every reference to pageID.
func RetitleReferences(blocks []block.Block, pageID, title string) ([]block.Block, bool) {
	content := block.EscapeText(title)
	var out []block.Block
	for i, b := range blocks {
		if !b.References(pageID) || b.Content == content {
			continue
		}
		if out == nil {
			out = block.Clone(blocks)
		}
		out[i].Content = content
	}
	if out == nil {
		return blocks, false
	}
	return out, true
}
