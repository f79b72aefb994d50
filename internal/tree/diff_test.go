package tree

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/api/internal/block"
)

func TestDiffCreatedUpdatedDeleted(t *testing.T) {
	f := New("ws")
	f, a := f.AddPage("", KindPage, t0)
	f, b := f.AddPage("", KindPage, t0)

	next, c := f.AddPage(a, KindPage, t0.Add(time.Second))
	next, _ = next.DeletePage(b, t0.Add(time.Second))

	changes := Diff(f, next)
	require.Len(t, changes, 3)

	assert.Equal(t, OpUpdated, changes[0].Op)
	assert.Equal(t, a, changes[0].PageID)
	assert.True(t, changes[0].Fields.Has(FieldChildren))
	assert.True(t, changes[0].Structural())

	assert.Equal(t, OpCreated, changes[1].Op)
	assert.Equal(t, c, changes[1].PageID)
	assert.Equal(t, FieldsAll, changes[1].Fields)

	assert.Equal(t, OpDeleted, changes[2].Op)
	assert.Equal(t, b, changes[2].PageID)
}

func TestDiffContentEditIsNotStructural(t *testing.T) {
	f := New("ws")
	f, a := f.AddPage("", KindPage, t0)
	pa, _ := f.Page(a)
	blocks := block.Clone(pa.Blocks)
	blocks[1].Content = "hello"

	changes := Diff(f, f.SetBlocks(a, blocks, t0.Add(time.Second)))
	require.Len(t, changes, 1)
	assert.Equal(t, FieldBlocks|FieldUpdatedAt, changes[0].Fields)
	assert.False(t, changes[0].Structural())
	assert.False(t, IsStructural(changes))
}

func TestDiffOfIdenticalSnapshotsIsEmpty(t *testing.T) {
	f := New("ws")
	f, _ = f.AddPage("", KindPage, t0)
	assert.Empty(t, Diff(f, f))
	assert.True(t, Equal(f, f))
}

func TestFieldsNamesAndApply(t *testing.T) {
	f := FieldTitle | FieldFavorite
	assert.Equal(t, []string{"title", "isFavorite"}, f.Names())
	assert.False(t, f.IsContent())
	assert.True(t, (FieldTitle | FieldBlocks).IsContent())

	dst := Page{ID: "p", Title: "Old", Icon: "x"}
	src := Page{ID: "p", Title: "New", Icon: "y", IsFavorite: true}
	out := ApplyFields(dst, src, f)
	assert.Equal(t, "New", out.Title)
	assert.Equal(t, "x", out.Icon)
	assert.True(t, out.IsFavorite)
}
