package engine

import "inkwell/api/internal/block"

type SplitResult struct {
	Blocks   []block.Block
	Created  block.Block
	Capacity Capacity
}

// Split keeps head in the block and moves tail into a new block after it.
// List-like kinds continue as the same kind; everything else continues as text.
// Blocks without editable text keep their content and start an empty block.
func Split(blocks []block.Block, id, head, tail string, limits Limits) SplitResult {
	i := IndexOf(blocks, id)
	if i < 0 {
		return SplitResult{Blocks: blocks}
	}
	capacity, ok := limits.canGrow(len(blocks))
	if !ok {
		return SplitResult{Blocks: blocks, Capacity: capacity}
	}

	current := blocks[i]
	if current.Kind.HasText() {
		current.Content = head
	} else {
		tail = ""
	}

	kind := block.KindText
	if current.Kind.ListLike() {
		kind = current.Kind
	}
	created := block.New(kind)
	created.Content = tail

	out := replaceAt(blocks, i, current)
	out = insertAt(out, i+1, created)
	return SplitResult{Blocks: out, Created: created, Capacity: capacity}
}
