package tree

import (
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"inkwell/api/internal/block"
	"inkwell/api/internal/engine"
)

// Forest is an immutable snapshot of one workspace's pages. Mutating methods
// return a new Forest and leave the receiver untouched.
type Forest struct {
	workspaceID string
	pages       map[string]Page
	// order is creation order; it orders root pages.
	order []string
}

// New builds a forest from loaded pages, ordered by creation time.
func New(workspaceID string, pages ...Page) Forest {
	f := Forest{workspaceID: workspaceID, pages: make(map[string]Page, len(pages))}
	sorted := slices.Clone(pages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	for _, p := range sorted {
		if p.ID == "" {
			continue
		}
		if _, dup := f.pages[p.ID]; dup {
			continue
		}
		if p.WorkspaceID == "" {
			p.WorkspaceID = workspaceID
		}
		f.pages[p.ID] = p
		f.order = append(f.order, p.ID)
	}
	return f
}

func (f Forest) WorkspaceID() string { return f.workspaceID }

func (f Forest) Len() int { return len(f.pages) }

func (f Forest) Page(id string) (Page, bool) {
	p, ok := f.pages[id]
	return p, ok
}

func (f Forest) Has(id string) bool {
	_, ok := f.pages[id]
	return ok
}

// Pages returns every page in creation order.
func (f Forest) Pages() []Page {
	out := make([]Page, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.pages[id])
	}
	return out
}

// ChildrenOf returns the children of pageID in the parent's child order. An
// empty pageID returns the root pages in creation order.
func (f Forest) ChildrenOf(pageID string) []Page {
	if pageID == "" {
		var out []Page
		for _, id := range f.order {
			if p := f.pages[id]; p.IsRoot() {
				out = append(out, p)
			}
		}
		return out
	}
	parent, ok := f.pages[pageID]
	if !ok {
		return nil
	}
	out := make([]Page, 0, len(parent.ChildIDs))
	for _, id := range parent.ChildIDs {
		if child, ok := f.pages[id]; ok {
			out = append(out, child)
		}
	}
	return out
}

// AncestorChain returns the path from the root down to pageID. A dangling
// parent truncates the chain; a cycle stops the walk.
func (f Forest) AncestorChain(pageID string) []Page {
	var chain []Page
	seen := map[string]bool{}
	id := pageID
	for id != "" && !seen[id] {
		p, ok := f.pages[id]
		if !ok {
			break
		}
		seen[id] = true
		chain = append(chain, p)
		id = p.ParentID
	}
	slices.Reverse(chain)
	return chain
}

// Descendants returns pageID and everything below it, depth first.
func (f Forest) Descendants(pageID string) []string {
	if !f.Has(pageID) {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	var walk func(id string)
	walk = func(id string) {
		if seen[id] {
			return
		}
		p, ok := f.pages[id]
		if !ok {
			return
		}
		seen[id] = true
		out = append(out, id)
		for _, child := range p.ChildIDs {
			walk(child)
		}
	}
	walk(pageID)
	for _, id := range f.order {
		if !seen[id] && f.isUnder(id, seen) {
			walk(id)
		}
	}
	return out
}

// isUnder reports whether id's parent chain reaches a page in set.
func (f Forest) isUnder(id string, set map[string]bool) bool {
	visited := map[string]bool{}
	for cur := f.pages[id].ParentID; cur != "" && !visited[cur]; cur = f.pages[cur].ParentID {
		if set[cur] {
			return true
		}
		visited[cur] = true
	}
	return false
}

// Favorites returns favorite pages in creation order.
func (f Forest) Favorites() []Page {
	var out []Page
	for _, id := range f.order {
		if p := f.pages[id]; p.IsFavorite {
			out = append(out, p)
		}
	}
	return out
}

// Recent returns up to n opened pages, most recently opened first.
func (f Forest) Recent(n int) []Page {
	var out []Page
	for _, id := range f.order {
		if p := f.pages[id]; !p.LastOpenedAt.IsZero() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastOpenedAt.After(out[j].LastOpenedAt)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func (f Forest) clone() Forest {
	return Forest{
		workspaceID: f.workspaceID,
		pages:       maps.Clone(f.pages),
		order:       slices.Clone(f.order),
	}
}

func (f Forest) ensureInit() Forest {
	if f.pages == nil {
		f.pages = map[string]Page{}
	}
	return f
}

// AddPage creates an empty page under parentID (root when empty) and marks
// the parent expanded. An unknown parent is a no-op returning "".
func (f Forest) AddPage(parentID string, kind Kind, now time.Time) (Forest, string) {
	return f.InsertPage(NewPage(f.workspaceID, parentID, kind, now), now)
}

// InsertPage attaches a fully built page under its ParentID.
func (f Forest) InsertPage(p Page, now time.Time) (Forest, string) {
	if p.ID == "" || f.Has(p.ID) {
		return f, ""
	}
	if p.ParentID != "" && !f.Has(p.ParentID) {
		return f, ""
	}
	next := f.ensureInit().clone()
	p.WorkspaceID = f.workspaceID
	if len(p.Blocks) == 0 {
		p.Blocks = []block.Block{block.New(block.KindText)}
	}
	p.Blocks = f.dropDangling(p.ID, p.Blocks)
	p.Title = DeriveTitle(p.Blocks)
	if p.ChildIDs == nil {
		p.ChildIDs = []string{}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	if p.ParentID != "" {
		parent := next.pages[p.ParentID]
		parent.ChildIDs = append(slices.Clone(parent.ChildIDs), p.ID)
		parent.IsExpanded = true
		parent.UpdatedAt = now
		next.pages[parent.ID] = parent
	}
	next.pages[p.ID] = p
	next.order = append(next.order, p.ID)
	return next, p.ID
}

// DeletePage removes the page with its descendants and strips every
// reference block pointing at a removed page. It returns the removed ids.
func (f Forest) DeletePage(pageID string, now time.Time) (Forest, []string) {
	target, ok := f.pages[pageID]
	if !ok {
		return f, nil
	}
	removed := f.Descendants(pageID)
	gone := make(map[string]bool, len(removed))
	for _, id := range removed {
		gone[id] = true
	}

	next := f.clone()
	for _, id := range removed {
		delete(next.pages, id)
	}
	next.order = slices.DeleteFunc(next.order, func(id string) bool { return gone[id] })

	if parent, ok := next.pages[target.ParentID]; ok {
		parent.ChildIDs = slices.DeleteFunc(slices.Clone(parent.ChildIDs), func(id string) bool { return id == pageID })
		parent.UpdatedAt = now
		next.pages[parent.ID] = parent
	}
	for _, id := range next.order {
		p := next.pages[id]
		blocks, changed := engine.StripReferences(p.Blocks, gone)
		if !changed {
			continue
		}
		p.Blocks = blocks
		p.Title = DeriveTitle(blocks)
		p.UpdatedAt = now
		next.pages[id] = p
	}
	return next, removed
}

// RenamePage sets the title, writes it into the leading Heading1 (inserting
// one when missing), and retitles every reference to the page.
func (f Forest) RenamePage(pageID, title string, now time.Time) Forest {
	p, ok := f.pages[pageID]
	if !ok {
		return f
	}
	title = strings.TrimSpace(title)
	content := block.EscapeText(title)

	blocks := block.Clone(p.Blocks)
	if len(blocks) > 0 && blocks[0].Kind == block.KindHeading1 {
		blocks[0].Content = content
	} else {
		heading := block.New(block.KindHeading1)
		heading.Content = content
		blocks = append([]block.Block{heading}, blocks...)
	}
	return f.SetBlocks(pageID, blocks, now)
}

// SetBlocks replaces the page body, re-derives its title and, when the title
// changed, retitles every reference to the page.
func (f Forest) SetBlocks(pageID string, blocks []block.Block, now time.Time) Forest {
	p, ok := f.pages[pageID]
	if !ok {
		return f
	}
	if len(blocks) == 0 {
		blocks = []block.Block{block.New(block.KindText)}
	}
	blocks = f.dropDangling(pageID, blocks)
	if sameBlocks(p.Blocks, blocks) {
		return f
	}
	next := f.clone()
	oldTitle := p.Title
	p.Blocks = blocks
	p.Title = DeriveTitle(blocks)
	p.UpdatedAt = now
	next.pages[pageID] = p
	if p.Title != oldTitle {
		next.retitleReferences(pageID, p.Title, now)
	}
	return next
}

// dropDangling removes references to pages the forest does not hold. A page
// may reference itself.
func (f Forest) dropDangling(selfID string, blocks []block.Block) []block.Block {
	var missing map[string]bool
	for _, b := range blocks {
		if !b.Kind.IsPageRef() || b.LinkedPageID == selfID && selfID != "" {
			continue
		}
		if _, ok := f.pages[b.LinkedPageID]; ok {
			continue
		}
		if missing == nil {
			missing = map[string]bool{}
		}
		missing[b.LinkedPageID] = true
	}
	if missing == nil {
		return blocks
	}
	out, _ := engine.StripReferences(blocks, missing)
	return out
}

func (f Forest) retitleReferences(pageID, title string, now time.Time) {
	for _, id := range f.order {
		p := f.pages[id]
		blocks, changed := engine.RetitleReferences(p.Blocks, pageID, title)
		if !changed {
			continue
		}
		p.Blocks = blocks
		p.UpdatedAt = now
		f.pages[id] = p
	}
}

// UpdateBlocks applies fn to the page body.
func (f Forest) UpdateBlocks(pageID string, now time.Time, fn func([]block.Block) []block.Block) Forest {
	p, ok := f.pages[pageID]
	if !ok {
		return f
	}
	return f.SetBlocks(pageID, fn(p.Blocks), now)
}

// MovePage reparents pageID under newParentID at index within the new
// parent's children (-1 appends). Moving under itself or a descendant is
// refused. Root pages keep creation order, so index is ignored for roots.
func (f Forest) MovePage(pageID, newParentID string, index int, now time.Time) Forest {
	p, ok := f.pages[pageID]
	if !ok || pageID == newParentID {
		return f
	}
	if newParentID != "" {
		if !f.Has(newParentID) {
			return f
		}
		for _, ancestor := range f.AncestorChain(newParentID) {
			if ancestor.ID == pageID {
				return f
			}
		}
	}

	next := f.clone()
	if old, ok := next.pages[p.ParentID]; ok {
		old.ChildIDs = slices.DeleteFunc(slices.Clone(old.ChildIDs), func(id string) bool { return id == pageID })
		old.UpdatedAt = now
		next.pages[old.ID] = old
	}
	if newParentID != "" {
		parent := next.pages[newParentID]
		children := slices.Clone(parent.ChildIDs)
		if index < 0 || index > len(children) {
			index = len(children)
		}
		parent.ChildIDs = slices.Insert(children, index, pageID)
		parent.IsExpanded = true
		parent.UpdatedAt = now
		next.pages[newParentID] = parent
	}
	p = next.pages[pageID]
	p.ParentID = newParentID
	p.UpdatedAt = now
	next.pages[pageID] = p
	return next
}

func (f Forest) updateMeta(pageID string, fn func(*Page) bool) Forest {
	p, ok := f.pages[pageID]
	if !ok {
		return f
	}
	if !fn(&p) {
		return f
	}
	next := f.clone()
	next.pages[pageID] = p
	return next
}

func (f Forest) SetFavorite(pageID string, favorite bool, now time.Time) Forest {
	return f.updateMeta(pageID, func(p *Page) bool {
		if p.IsFavorite == favorite {
			return false
		}
		p.IsFavorite = favorite
		p.UpdatedAt = now
		return true
	})
}

func (f Forest) SetExpanded(pageID string, expanded bool) Forest {
	return f.updateMeta(pageID, func(p *Page) bool {
		if p.IsExpanded == expanded {
			return false
		}
		p.IsExpanded = expanded
		return true
	})
}

func (f Forest) SetIcon(pageID, icon string, now time.Time) Forest {
	return f.updateMeta(pageID, func(p *Page) bool {
		if p.Icon == icon {
			return false
		}
		p.Icon = icon
		p.UpdatedAt = now
		return true
	})
}

func (f Forest) SetCover(pageID, cover string, now time.Time) Forest {
	return f.updateMeta(pageID, func(p *Page) bool {
		if p.CoverImage == cover {
			return false
		}
		p.CoverImage = cover
		p.UpdatedAt = now
		return true
	})
}

// MarkOpened stamps the page as opened without touching UpdatedAt.
func (f Forest) MarkOpened(pageID string, now time.Time) Forest {
	return f.updateMeta(pageID, func(p *Page) bool {
		p.LastOpenedAt = now
		return true
	})
}

// Equal reports whether two snapshots hold the same pages.
func Equal(a, b Forest) bool {
	if len(a.pages) != len(b.pages) || !slices.Equal(a.order, b.order) {
		return false
	}
	for id, pa := range a.pages {
		pb, ok := b.pages[id]
		if !ok || Changed(pa, pb) != 0 {
			return false
		}
	}
	return true
}
