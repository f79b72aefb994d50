package engine

import "inkwell/api/internal/block"

// Visibility returns, per block, whether it is shown given the set of
// collapsed heading ids. A collapsed heading at level L hides every following
// block until a heading of level L or higher.
func Visibility(blocks []block.Block, collapsed map[string]bool) []bool {
	visible := make([]bool, len(blocks))
	hiding := 0
	for i, b := range blocks {
		level := b.Kind.HeadingLevel()
		if hiding > 0 {
			if level == 0 || level > hiding {
				continue
			}
			hiding = 0
		}
		visible[i] = true
		if level > 0 && collapsed[b.ID] {
			hiding = level
		}
	}
	return visible
}

// Numbers assigns list numbers to NumberItem blocks. Visible blocks of any
// other kind reset the counter; hidden blocks are skipped entirely. A nil
// visible slice means every block is shown.
func Numbers(blocks []block.Block, visible []bool) []int {
	numbers := make([]int, len(blocks))
	counter := 0
	for i, b := range blocks {
		if visible != nil && i < len(visible) && !visible[i] {
			continue
		}
		if b.Kind != block.KindNumber {
			counter = 0
			continue
		}
		counter++
		numbers[i] = counter
	}
	return numbers
}

// HasChildren reports whether a heading at index i would hide anything when
// collapsed.
func HasChildren(blocks []block.Block, i int) bool {
	if i < 0 || i >= len(blocks)-1 {
		return false
	}
	level := blocks[i].Kind.HeadingLevel()
	if level == 0 {
		return false
	}
	next := blocks[i+1].Kind.HeadingLevel()
	return next == 0 || next > level
}
