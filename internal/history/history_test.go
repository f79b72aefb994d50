package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intEqual(a, b int) bool { return a == b }

func TestRecordUndoRedo(t *testing.T) {
	h := New(10, intEqual)
	require.True(t, h.Record(1, 2))
	require.True(t, h.Record(2, 3))

	prev, ok := h.Undo(3)
	require.True(t, ok)
	assert.Equal(t, 2, prev)

	prev, ok = h.Undo(2)
	require.True(t, ok)
	assert.Equal(t, 1, prev)

	_, ok = h.Undo(1)
	assert.False(t, ok)

	next, ok := h.Redo(1)
	require.True(t, ok)
	assert.Equal(t, 2, next)
}

func TestRecordSkipsUnchangedState(t *testing.T) {
	h := New(10, intEqual)
	assert.False(t, h.Record(4, 4))
	u, r := h.Depth()
	assert.Zero(t, u)
	assert.Zero(t, r)
}

func TestRecordClearsRedo(t *testing.T) {
	h := New(10, intEqual)
	h.Record(1, 2)
	_, _ = h.Undo(2)
	h.Record(1, 5)
	_, r := h.Depth()
	assert.Zero(t, r)
	_, ok := h.Redo(5)
	assert.False(t, ok)
}

func TestStacksAreBounded(t *testing.T) {
	h := New(3, intEqual)
	for i := 0; i < 10; i++ {
		h.Record(i, i+1)
	}
	u, _ := h.Depth()
	assert.Equal(t, 3, u)

	prev, _ := h.Undo(10)
	assert.Equal(t, 9, prev)
	prev, _ = h.Undo(9)
	assert.Equal(t, 8, prev)
	prev, _ = h.Undo(8)
	assert.Equal(t, 7, prev)
	_, ok := h.Undo(7)
	assert.False(t, ok)
}

func TestDefaultLimit(t *testing.T) {
	h := New[int](0, nil)
	for i := 0; i < DefaultLimit+5; i++ {
		h.Record(i, i+1)
	}
	u, _ := h.Depth()
	assert.Equal(t, DefaultLimit, u)
	h.Reset()
	u, _ = h.Depth()
	assert.Zero(t, u)
}
