// Package engine holds the pure block-list transformations behind every
// editor action. Functions never mutate their input; an unknown block id or
// an out-of-range index returns the input unchanged.
package engine

import "inkwell/api/internal/block"

const (
	DefaultMaxBlocks  = 1800
	DefaultWarnBlocks = 1500
)

// Limits bounds the number of blocks on one page.
type Limits struct {
	Max  int
	Warn int
}

func DefaultLimits() Limits {
	return Limits{Max: DefaultMaxBlocks, Warn: DefaultWarnBlocks}
}

func (l Limits) normalized() Limits {
	if l.Max <= 0 {
		l.Max = DefaultMaxBlocks
	}
	if l.Warn <= 0 || l.Warn > l.Max {
		l.Warn = l.Max
	}
	return l
}

// Capacity is the signal attached to every insertion.
type Capacity int

const (
	CapacityOK Capacity = iota
	CapacityWarning
	CapacityExceeded
)

func (c Capacity) String() string {
	switch c {
	case CapacityWarning:
		return "warning"
	case CapacityExceeded:
		return "exceeded"
	default:
		return "ok"
	}
}

// canGrow reports whether one more block fits and what signal the grown list carries.
func (l Limits) canGrow(current int) (Capacity, bool) {
	l = l.normalized()
	if current >= l.Max {
		return CapacityExceeded, false
	}
	if current+1 >= l.Warn {
		return CapacityWarning, true
	}
	return CapacityOK, true
}

// IndexOf returns the position of id in blocks or -1.
func IndexOf(blocks []block.Block, id string) int {
	if id == "" {
		return -1
	}
	for i, b := range blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func replaceAt(blocks []block.Block, i int, b block.Block) []block.Block {
	out := block.Clone(blocks)
	out[i] = b
	return out
}

func insertAt(blocks []block.Block, i int, b block.Block) []block.Block {
	out := make([]block.Block, 0, len(blocks)+1)
	out = append(out, blocks[:i]...)
	out = append(out, b)
	out = append(out, blocks[i:]...)
	return out
}

func removeAt(blocks []block.Block, i int) []block.Block {
	out := make([]block.Block, 0, len(blocks)-1)
	out = append(out, blocks[:i]...)
	out = append(out, blocks[i+1:]...)
	return out
}

// ensureNonEmpty keeps the sequence from ever being empty.
func ensureNonEmpty(blocks []block.Block) []block.Block {
	if len(blocks) > 0 {
		return blocks
	}
	return []block.Block{block.NewText("")}
}

func plainLen(markup string) int {
	return len([]rune(block.PlainText(markup)))
}
