package engine

import "inkwell/api/internal/block"

type InsertResult struct {
	Blocks   []block.Block
	Inserted block.Block
	Capacity Capacity
}

// Insert places a new empty block of kind directly after index. Index -1
// inserts at the front.
func Insert(blocks []block.Block, index int, kind block.Kind, limits Limits) InsertResult {
	return InsertBlock(blocks, index, block.New(kind), limits)
}

// InsertBlock places b directly after index. When the page is full the input
// comes back unchanged with CapacityExceeded.
func InsertBlock(blocks []block.Block, index int, b block.Block, limits Limits) InsertResult {
	if index < -1 || index >= len(blocks) {
		return InsertResult{Blocks: blocks}
	}
	capacity, ok := limits.canGrow(len(blocks))
	if !ok {
		return InsertResult{Blocks: blocks, Capacity: capacity}
	}
	return InsertResult{
		Blocks:   insertAt(blocks, index+1, b),
		Inserted: b,
		Capacity: capacity,
	}
}

// Duplicate inserts a copy of the block with a fresh id right after it.
func Duplicate(blocks []block.Block, id string, limits Limits) InsertResult {
	i := IndexOf(blocks, id)
	if i < 0 {
		return InsertResult{Blocks: blocks}
	}
	dup := blocks[i]
	dup.ID = block.NewID()
	return InsertBlock(blocks, i, dup, limits)
}
