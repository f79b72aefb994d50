package tree

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/api/internal/block"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func titles(pages []Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Title
	}
	return out
}

func pageIDs(pages []Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.ID
	}
	return out
}

func mustAdd(t *testing.T, f Forest, parent, title string) (Forest, string) {
	t.Helper()
	f, id := f.AddPage(parent, KindPage, t0)
	require.NotEmpty(t, id)
	return f.RenamePage(id, title, t0), id
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "Groceries", DeriveTitle([]block.Block{{Kind: block.KindHeading1, Content: "<b>Groceries</b>"}}))
	assert.Equal(t, Untitled, DeriveTitle([]block.Block{{Kind: block.KindHeading1, Content: "  "}}))
	assert.Equal(t, Untitled, DeriveTitle([]block.Block{{Kind: block.KindText, Content: "Body"}}))
	assert.Equal(t, Untitled, DeriveTitle(nil))
}

func TestAddPageLinksParentAndChild(t *testing.T) {
	f := New("ws1")
	f, parent := f.AddPage("", KindPage, t0)
	f, child := f.AddPage(parent, KindPage, t0)

	p, _ := f.Page(parent)
	c, _ := f.Page(child)
	assert.Equal(t, []string{child}, p.ChildIDs)
	assert.True(t, p.IsExpanded)
	assert.Equal(t, parent, c.ParentID)
	assert.Equal(t, "ws1", c.WorkspaceID)
	assert.Equal(t, Untitled, c.Title)
	assert.Len(t, c.Blocks, 2)

	same, id := f.AddPage("missing", KindPage, t0)
	assert.Empty(t, id)
	assert.Equal(t, f.Len(), same.Len())
}

func TestChildrenAndAncestors(t *testing.T) {
	f := New("ws")
	f, root := mustAdd(t, f, "", "Root")
	f, a := mustAdd(t, f, root, "A")
	f, b := mustAdd(t, f, root, "B")
	f, g := mustAdd(t, f, a, "G")
	f, _ = mustAdd(t, f, "", "Other")

	assert.Equal(t, []string{"Root", "Other"}, titles(f.ChildrenOf("")))
	assert.Equal(t, []string{a, b}, pageIDs(f.ChildrenOf(root)))
	assert.Equal(t, []string{"Root", "A", "G"}, titles(f.AncestorChain(g)))
	assert.Empty(t, f.ChildrenOf("nope"))
}

func TestAncestorChainSurvivesCycle(t *testing.T) {
	f := New("ws",
		Page{ID: "a", ParentID: "b", CreatedAt: t0},
		Page{ID: "b", ParentID: "a", CreatedAt: t0.Add(time.Second)},
	)
	chain := f.AncestorChain("a")
	assert.Len(t, chain, 2)
}

func TestDeleteCascadeStripsReferences(t *testing.T) {
	f := New("ws")
	f, p := mustAdd(t, f, "", "P")
	f, c1 := mustAdd(t, f, p, "C1")
	f, c2 := mustAdd(t, f, p, "C2")
	f, g1 := mustAdd(t, f, c1, "G1")
	f, other := mustAdd(t, f, "", "Other")

	link := block.Block{ID: "lnk", Kind: block.KindPageLink, LinkedPageID: g1, Content: "G1"}
	op, _ := f.Page(other)
	f = f.SetBlocks(other, append(block.Clone(op.Blocks), link), t0)

	before := f
	next, removed := f.DeletePage(p, t0.Add(time.Minute))
	assert.ElementsMatch(t, []string{p, c1, c2, g1}, removed)
	for _, id := range removed {
		assert.False(t, next.Has(id))
	}
	o, _ := next.Page(other)
	for _, b := range o.Blocks {
		assert.NotEqual(t, g1, b.LinkedPageID)
	}
	assert.Equal(t, 5, before.Len(), "old snapshot must be untouched")
	assert.Empty(t, next.Validate())
}

func TestDeleteChildUpdatesParent(t *testing.T) {
	f := New("ws")
	f, p := mustAdd(t, f, "", "P")
	f, c := mustAdd(t, f, p, "C")
	f, _ = f.DeletePage(c, t0)
	parent, _ := f.Page(p)
	assert.Empty(t, parent.ChildIDs)
}

func TestDeleteNeverLeavesPageEmpty(t *testing.T) {
	f := New("ws")
	f, a := mustAdd(t, f, "", "A")
	f, b := mustAdd(t, f, "", "B")
	f = f.SetBlocks(b, []block.Block{{ID: "e", Kind: block.KindPageEmbed, LinkedPageID: a}}, t0)
	f, _ = f.DeletePage(a, t0)
	pb, _ := f.Page(b)
	require.Len(t, pb.Blocks, 1)
	assert.Equal(t, block.KindText, pb.Blocks[0].Kind)
}

func TestRenameSyncsHeadingAndReferences(t *testing.T) {
	f := New("ws")
	f, a := mustAdd(t, f, "", "A")
	f, b := mustAdd(t, f, "", "B")
	f = f.UpdateBlocks(b, t0, func(blocks []block.Block) []block.Block {
		return append(block.Clone(blocks), block.Block{ID: "ref", Kind: block.KindPageLink, LinkedPageID: a, Content: "A"})
	})

	f = f.RenamePage(a, "Fish & Chips", t0)
	pa, _ := f.Page(a)
	assert.Equal(t, "Fish & Chips", pa.Title)
	assert.Equal(t, "Fish &amp; Chips", pa.Blocks[0].Content)

	pb, _ := f.Page(b)
	assert.Equal(t, "Fish &amp; Chips", pb.Blocks[len(pb.Blocks)-1].Content)
}

func TestRenameInsertsHeadingWhenMissing(t *testing.T) {
	f := New("ws")
	f, a := f.AddPage("", KindPage, t0)
	f = f.SetBlocks(a, []block.Block{{ID: "x", Kind: block.KindText, Content: "body"}}, t0)
	f = f.RenamePage(a, "Notes", t0)
	pa, _ := f.Page(a)
	require.Len(t, pa.Blocks, 2)
	assert.Equal(t, block.KindHeading1, pa.Blocks[0].Kind)
	assert.Equal(t, "Notes", pa.Title)
}

func TestSetBlocksDerivesTitle(t *testing.T) {
	f := New("ws")
	f, a := f.AddPage("", KindPage, t0)
	f = f.SetBlocks(a, []block.Block{{ID: "h", Kind: block.KindHeading1, Content: "<b>Groceries</b>"}}, t0)
	pa, _ := f.Page(a)
	assert.Equal(t, "Groceries", pa.Title)

	f = f.SetBlocks(a, nil, t0)
	pa, _ = f.Page(a)
	assert.Len(t, pa.Blocks, 1)
	assert.Equal(t, Untitled, pa.Title)
}

func TestSetBlocksDropsReferencesToMissingPages(t *testing.T) {
	f := New("ws")
	f, a := mustAdd(t, f, "", "A")
	f, b := mustAdd(t, f, "", "B")
	pa, _ := f.Page(a)

	blocks := append(block.Clone(pa.Blocks),
		block.Block{ID: "keep", Kind: block.KindPageLink, LinkedPageID: b, Content: "B"},
		block.Block{ID: "self", Kind: block.KindPageLink, LinkedPageID: a, Content: "A"},
		block.Block{ID: "gone", Kind: block.KindPageEmbed, LinkedPageID: "pg_deleted", Content: "Old"},
	)
	f = f.SetBlocks(a, blocks, t0)
	pa, _ = f.Page(a)
	var ids []string
	for _, blk := range pa.Blocks {
		ids = append(ids, blk.ID)
	}
	assert.NotContains(t, ids, "gone")
	assert.Contains(t, ids, "keep")
	assert.Contains(t, ids, "self")
	assert.Empty(t, f.Validate())

	// a body holding nothing but a dangling reference still keeps one block
	f = f.SetBlocks(b, []block.Block{{ID: "only", Kind: block.KindPageLink, LinkedPageID: "pg_deleted"}}, t0)
	pb, _ := f.Page(b)
	require.Len(t, pb.Blocks, 1)
	assert.False(t, pb.Blocks[0].Kind.IsPageRef())
	assert.Empty(t, f.Validate())
}

func TestInsertPageDropsReferencesToMissingPages(t *testing.T) {
	f := New("ws")
	f, a := mustAdd(t, f, "", "A")
	p := NewPage("ws", "", KindPage, t0)
	p.Blocks = []block.Block{
		{ID: "h", Kind: block.KindHeading1, Content: "Imported"},
		{ID: "ok", Kind: block.KindPageLink, LinkedPageID: a, Content: "A"},
		{ID: "bad", Kind: block.KindPageLink, LinkedPageID: "pg_elsewhere", Content: "X"},
	}
	f, id := f.InsertPage(p, t0)
	require.NotEmpty(t, id)
	got, _ := f.Page(id)
	require.Len(t, got.Blocks, 2)
	assert.Equal(t, "ok", got.Blocks[1].ID)
	assert.Empty(t, f.Validate())
}

func TestMovePageRefusesCycles(t *testing.T) {
	f := New("ws")
	f, a := mustAdd(t, f, "", "A")
	f, b := mustAdd(t, f, a, "B")
	f, c := mustAdd(t, f, "", "C")

	assert.True(t, Equal(f, f.MovePage(a, b, 0, t0)))
	assert.True(t, Equal(f, f.MovePage(a, a, 0, t0)))

	moved := f.MovePage(b, c, 0, t0)
	pa, _ := moved.Page(a)
	pc, _ := moved.Page(c)
	pb, _ := moved.Page(b)
	assert.Empty(t, pa.ChildIDs)
	assert.Equal(t, []string{b}, pc.ChildIDs)
	assert.Equal(t, c, pb.ParentID)

	root := moved.MovePage(b, "", 0, t0)
	assert.Len(t, root.ChildrenOf(""), 3)
	assert.Empty(t, root.Validate())
}

func TestMetadataOperations(t *testing.T) {
	f := New("ws")
	f, a := mustAdd(t, f, "", "A")
	f, b := mustAdd(t, f, "", "B")

	f = f.SetFavorite(b, true, t0)
	assert.Equal(t, []string{b}, pageIDs(f.Favorites()))

	f = f.MarkOpened(a, t0.Add(time.Hour))
	f = f.MarkOpened(b, t0.Add(2*time.Hour))
	assert.Equal(t, []string{b, a}, pageIDs(f.Recent(5)))
	assert.Equal(t, []string{b}, pageIDs(f.Recent(1)))

	f = f.SetIcon(a, "📄", t0)
	f = f.SetCover(a, "https://img/cover.png", t0)
	f = f.SetExpanded(a, true)
	pa, _ := f.Page(a)
	assert.Equal(t, "📄", pa.Icon)
	assert.Equal(t, "https://img/cover.png", pa.CoverImage)
	assert.True(t, pa.IsExpanded)
}

func TestValidateAndRepair(t *testing.T) {
	f := New("ws",
		Page{ID: "a", ChildIDs: []string{"ghost"}, Blocks: []block.Block{{ID: "1", Kind: block.KindText}}, Title: Untitled, CreatedAt: t0},
		Page{ID: "b", ParentID: "a", Blocks: []block.Block{{ID: "2", Kind: block.KindPageLink, LinkedPageID: "gone"}}, Title: Untitled, CreatedAt: t0.Add(time.Second)},
		Page{ID: "c", ParentID: "missing", Title: "Stale", CreatedAt: t0.Add(2 * time.Second)},
	)
	problems := f.Validate()
	kinds := map[ProblemKind]bool{}
	for _, p := range problems {
		kinds[p.Kind] = true
	}
	assert.True(t, kinds[ProblemChildMismatch])
	assert.True(t, kinds[ProblemMissingParent])
	assert.True(t, kinds[ProblemDanglingRef])
	assert.True(t, kinds[ProblemEmptyBlocks])

	repaired := f.Repair()
	assert.Empty(t, repaired.Validate())
	pa, _ := repaired.Page("a")
	assert.Equal(t, []string{"b"}, pa.ChildIDs)
	pc, _ := repaired.Page("c")
	assert.True(t, pc.IsRoot())
	assert.Len(t, pc.Blocks, 1)
	assert.Equal(t, Untitled, pc.Title)
}

func TestRepairBreaksCycle(t *testing.T) {
	f := New("ws",
		Page{ID: "a", ParentID: "b", ChildIDs: []string{"b"}, Blocks: []block.Block{{ID: "1"}}, Title: Untitled, CreatedAt: t0},
		Page{ID: "b", ParentID: "a", ChildIDs: []string{"a"}, Blocks: []block.Block{{ID: "2"}}, Title: Untitled, CreatedAt: t0.Add(time.Second)},
	)
	require.NotEmpty(t, f.Validate())
	repaired := f.Repair()
	assert.Empty(t, repaired.Validate())
	assert.Len(t, repaired.ChildrenOf(""), 1)
}
