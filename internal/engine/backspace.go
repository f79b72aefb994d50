package engine

import "inkwell/api/internal/block"

type BackspaceResult struct {
	Blocks []block.Block
	// Focus is the block that should take the caret afterwards.
	Focus string
	Caret int
	// DeletedPage is set when an embedded page lost its embed block.
	DeletedPage string
	Changed     bool
}

// Backspace handles backspace with the caret at the start of a block.
func Backspace(blocks []block.Block, id string) BackspaceResult {
	i := IndexOf(blocks, id)
	if i < 0 {
		return BackspaceResult{Blocks: blocks, Focus: id}
	}
	b := blocks[i]

	switch {
	case b.Kind.IsPageRef():
		res := removeBlock(blocks, i)
		if b.Kind == block.KindPageEmbed {
			res.DeletedPage = b.LinkedPageID
		}
		return res
	case block.IsTitle(b, i):
		return BackspaceResult{Blocks: blocks, Focus: b.ID}
	case b.Kind != block.KindText:
		demoted := block.Convert(b, block.KindText)
		return BackspaceResult{Blocks: replaceAt(blocks, i, demoted), Focus: b.ID, Changed: true}
	case block.IsBlank(b.Content):
		if len(blocks) == 1 {
			return BackspaceResult{Blocks: blocks, Focus: b.ID}
		}
		return removeBlock(blocks, i)
	default:
		return mergeBackward(blocks, i)
	}
}

func removeBlock(blocks []block.Block, i int) BackspaceResult {
	out := ensureNonEmpty(removeAt(blocks, i))
	res := BackspaceResult{Blocks: out, Changed: true}
	switch {
	case i > 0:
		prev := out[i-1]
		res.Focus = prev.ID
		res.Caret = plainLen(prev.Content)
	default:
		res.Focus = out[0].ID
	}
	return res
}

func mergeBackward(blocks []block.Block, i int) BackspaceResult {
	cur := blocks[i]
	target := -1
	for j := i - 1; j >= 0; j-- {
		if blocks[j].Kind.HasText() {
			target = j
			break
		}
	}
	if target < 0 {
		return BackspaceResult{Blocks: blocks, Focus: cur.ID}
	}
	prev := blocks[target]
	caret := plainLen(prev.Content)
	prev.Content += cur.Content

	out := replaceAt(blocks, target, prev)
	out = removeAt(out, i)
	return BackspaceResult{Blocks: out, Focus: prev.ID, Caret: caret, Changed: true}
}
