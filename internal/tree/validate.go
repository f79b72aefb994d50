package tree

import (
	"fmt"
	"slices"

	"inkwell/api/internal/block"
	"inkwell/api/internal/engine"
)

type ProblemKind string

const (
	ProblemMissingParent  ProblemKind = "missing_parent"
	ProblemChildMismatch  ProblemKind = "child_mismatch"
	ProblemCycle          ProblemKind = "cycle"
	ProblemDanglingRef    ProblemKind = "dangling_reference"
	ProblemEmptyBlocks    ProblemKind = "empty_blocks"
	ProblemDuplicateBlock ProblemKind = "duplicate_block"
	ProblemStaleTitle     ProblemKind = "stale_title"
)

type Problem struct {
	Kind   ProblemKind
	PageID string
	Detail string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: page %s: %s", p.Kind, p.PageID, p.Detail)
}

// Validate lists every broken invariant in the forest.
func (f Forest) Validate() []Problem {
	var problems []Problem
	add := func(kind ProblemKind, pageID, format string, args ...any) {
		problems = append(problems, Problem{Kind: kind, PageID: pageID, Detail: fmt.Sprintf(format, args...)})
	}

	for _, id := range f.order {
		p := f.pages[id]
		if p.ParentID != "" {
			parent, ok := f.pages[p.ParentID]
			switch {
			case !ok:
				add(ProblemMissingParent, id, "parent %s does not exist", p.ParentID)
			case !slices.Contains(parent.ChildIDs, id):
				add(ProblemChildMismatch, id, "parent %s does not list it", p.ParentID)
			}
		}
		for _, childID := range p.ChildIDs {
			child, ok := f.pages[childID]
			if !ok || child.ParentID != id {
				add(ProblemChildMismatch, id, "child %s does not point back", childID)
			}
		}
		if f.inCycle(id) {
			add(ProblemCycle, id, "parent chain loops")
		}
		if len(p.Blocks) == 0 {
			add(ProblemEmptyBlocks, id, "page has no blocks")
		}
		seen := map[string]bool{}
		for _, b := range p.Blocks {
			if seen[b.ID] {
				add(ProblemDuplicateBlock, id, "block %s appears twice", b.ID)
			}
			seen[b.ID] = true
			if b.Kind.IsPageRef() && !f.Has(b.LinkedPageID) {
				add(ProblemDanglingRef, id, "block %s references missing page %s", b.ID, b.LinkedPageID)
			}
		}
		if want := DeriveTitle(p.Blocks); len(p.Blocks) > 0 && p.Title != want {
			add(ProblemStaleTitle, id, "title %q should be %q", p.Title, want)
		}
	}
	return problems
}

func (f Forest) inCycle(id string) bool {
	seen := map[string]bool{}
	for cur := id; cur != ""; cur = f.pages[cur].ParentID {
		if seen[cur] {
			return cur == id
		}
		if !f.Has(cur) {
			return false
		}
		seen[cur] = true
	}
	return false
}

// Repair restores every invariant Validate checks. Pages with a missing
// parent or caught in a cycle become roots; child lists are rebuilt from the
// children's parent pointers, keeping the existing order where possible.
func (f Forest) Repair() Forest {
	if len(f.Validate()) == 0 {
		return f
	}
	next := f.clone()

	for _, id := range next.order {
		p := next.pages[id]
		if p.ParentID != "" && (!next.Has(p.ParentID) || next.inCycle(id)) {
			p.ParentID = ""
			next.pages[id] = p
		}
	}

	children := map[string][]string{}
	for _, id := range next.order {
		if parent := next.pages[id].ParentID; parent != "" {
			children[parent] = append(children[parent], id)
		}
	}
	for _, id := range next.order {
		p := next.pages[id]
		want := children[id]
		var rebuilt []string
		for _, childID := range p.ChildIDs {
			if slices.Contains(want, childID) && !slices.Contains(rebuilt, childID) {
				rebuilt = append(rebuilt, childID)
			}
		}
		for _, childID := range want {
			if !slices.Contains(rebuilt, childID) {
				rebuilt = append(rebuilt, childID)
			}
		}
		if rebuilt == nil {
			rebuilt = []string{}
		}
		if !slices.Equal(rebuilt, p.ChildIDs) {
			p.ChildIDs = rebuilt
		}

		p.Blocks = repairBlocks(p.Blocks, next)
		p.Title = DeriveTitle(p.Blocks)
		next.pages[id] = p
	}
	return next
}

func repairBlocks(blocks []block.Block, f Forest) []block.Block {
	dangling := map[string]bool{}
	seen := map[string]bool{}
	var dup bool
	for _, b := range blocks {
		if b.Kind.IsPageRef() && !f.Has(b.LinkedPageID) {
			dangling[b.LinkedPageID] = true
		}
		if seen[b.ID] {
			dup = true
		}
		seen[b.ID] = true
	}
	out := blocks
	if len(dangling) > 0 {
		out, _ = engine.StripReferences(out, dangling)
	}
	if dup {
		out = block.Clone(out)
		ids := map[string]bool{}
		for i := range out {
			if ids[out[i].ID] {
				out[i].ID = block.NewID()
			}
			ids[out[i].ID] = true
		}
	}
	if len(out) == 0 {
		out = []block.Block{block.New(block.KindText)}
	}
	return out
}
