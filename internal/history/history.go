// Package history keeps bounded undo and redo stacks of immutable snapshots.
package history

import "sync"

const DefaultLimit = 50

// History is safe for concurrent use. Snapshots must be treated as immutable
// once recorded.
type History[T any] struct {
	mu    sync.Mutex
	limit int
	equal func(a, b T) bool
	undo  []T
	redo  []T
}

// New returns a history holding at most limit snapshots per stack. equal
// decides whether a transition changed anything worth recording.
func New[T any](limit int, equal func(a, b T) bool) *History[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History[T]{limit: limit, equal: equal}
}

// Record pushes prev when next differs from it and clears the redo stack.
func (h *History[T]) Record(prev, next T) bool {
	if h.equal != nil && h.equal(prev, next) {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = push(h.undo, prev, h.limit)
	h.redo = nil
	return true
}

// Undo returns the snapshot to restore given the current state.
func (h *History[T]) Undo(current T) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var zero T
	if len(h.undo) == 0 {
		return zero, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = push(h.redo, current, h.limit)
	return prev, true
}

func (h *History[T]) Redo(current T) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var zero T
	if len(h.redo) == 0 {
		return zero, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = push(h.undo, current, h.limit)
	return next, true
}

func (h *History[T]) Depth() (undo, redo int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo), len(h.redo)
}

func (h *History[T]) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = nil
	h.redo = nil
}

func push[T any](stack []T, v T, limit int) []T {
	stack = append(stack, v)
	if len(stack) > limit {
		stack = append(stack[:0:0], stack[len(stack)-limit:]...)
	}
	return stack
}
