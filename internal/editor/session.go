// Package editor holds the per-page editing session: focus, collapsed
// headings, the command menu and page picker, the formatting toolbar and
// pending text suggestions. It turns key intents into engine calls and
// hands every new block list to a single change callback.
package editor

import (
	"context"
	"sync"

	"inkwell/api/internal/block"
	"inkwell/api/internal/engine"
	"inkwell/api/internal/suggest"
)

// CollapseStore persists the collapsed heading set of a page.
type CollapseStore interface {
	LoadCollapsed(ctx context.Context, pageID string) (map[string]bool, error)
	SaveCollapsed(ctx context.Context, pageID string, set map[string]bool) error
}

// PageOption is an entry of the page picker.
type PageOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Icon  string `json:"icon,omitempty"`
}

// Pages gives the session access to the rest of the workspace.
type Pages interface {
	List() []PageOption
	CreateChild(parentID string) (PageOption, error)
	Delete(pageID string)
}

// Focus is where the caret should be placed after an edit. Caret counts
// plain-text characters.
type Focus struct {
	BlockID string `json:"blockId"`
	Caret   int    `json:"caret"`
}

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Toolbar is the floating formatting toolbar anchored to a selection.
type Toolbar struct {
	BlockID string  `json:"blockId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// toolbarOffset lifts the toolbar above the selection.
const toolbarOffset = 44

type Suggestion struct {
	BlockID string `json:"blockId"`
	Text    string `json:"text"`
}

// Change is one committed block list. Seq grows with every commit and every
// Sync, so a host can tell a late delivery from the latest state.
type Change struct {
	Seq    uint64
	Blocks []block.Block
}

type Options struct {
	Limits   engine.Limits
	Collapse CollapseStore
	Pages    Pages
	Suggest  suggest.Provider
	// OnChange runs after the session lock is released. Concurrent edits may
	// deliver out of order; apply a Change only while Current(c.Seq) holds.
	OnChange func(Change)
}

type Session struct {
	mu sync.Mutex

	pageID    string
	blocks    []block.Block
	seq       uint64
	limits    engine.Limits
	collapsed map[string]bool

	focus      Focus
	menu       menuState
	picker     pickerState
	toolbar    *Toolbar
	suggestion *Suggestion
	capacity   engine.Capacity

	collapse CollapseStore
	pages    Pages
	suggest  suggest.Provider
	onChange func(Change)
}

// Open starts a session for a page and loads its collapsed headings. A
// failing collapse store leaves every heading expanded.
func Open(ctx context.Context, pageID string, blocks []block.Block, opts Options) *Session {
	s := &Session{
		pageID:    pageID,
		blocks:    blocks,
		limits:    opts.Limits,
		collapsed: map[string]bool{},
		collapse:  opts.Collapse,
		pages:     opts.Pages,
		suggest:   opts.Suggest,
		onChange:  opts.OnChange,
	}
	if s.suggest == nil {
		s.suggest = suggest.None
	}
	if s.collapse != nil {
		if set, err := s.collapse.LoadCollapsed(ctx, pageID); err == nil && set != nil {
			s.collapsed = set
		}
	}
	if len(blocks) > 0 {
		s.focus = Focus{BlockID: blocks[0].ID}
	}
	return s
}

func (s *Session) PageID() string { return s.pageID }

func (s *Session) Blocks() []block.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocks
}

// Sync replaces the block list after a change made outside the session,
// such as undo or a rename. Focus falls back to the first block when its
// block is gone.
func (s *Session) Sync(blocks []block.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncLocked(blocks)
}

// Amend replaces the blocks of change seq with the list the host stored for
// it. Nothing happens once a later commit or Sync has moved the session on.
func (s *Session) Amend(seq uint64, blocks []block.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != seq {
		return
	}
	s.syncLocked(blocks)
}

func (s *Session) syncLocked(blocks []block.Block) {
	s.blocks = blocks
	s.seq++
	if engine.IndexOf(blocks, s.focus.BlockID) < 0 && len(blocks) > 0 {
		s.focus = Focus{BlockID: blocks[0].ID}
	}
	if s.menu.open && engine.IndexOf(blocks, s.menu.anchor) < 0 {
		s.menu = menuState{}
	}
	if s.picker.open && engine.IndexOf(blocks, s.picker.anchor) < 0 {
		s.picker = pickerState{}
	}
}

// commit stores next and returns the callback to run once the lock is
// released. Unchanged lists produce no callback.
func (s *Session) commit(next []block.Block) func() {
	if sameList(s.blocks, next) {
		return func() {}
	}
	s.blocks = next
	s.seq++
	if s.suggestion != nil && engine.IndexOf(next, s.suggestion.BlockID) < 0 {
		s.suggestion = nil
	}
	fn := s.onChange
	if fn == nil {
		return func() {}
	}
	change := Change{Seq: s.seq, Blocks: next}
	return func() { fn(change) }
}

// Current reports whether seq is still the session's latest state. A
// Change that is no longer current has been superseded by a newer commit,
// whose own delivery follows, or by a Sync from the host.
func (s *Session) Current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq == seq
}

func sameList(a, b []block.Block) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) > 0 && &a[0] == &b[0] {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Input records new content typed into a block and applies shorthand
// triggers. Typing dismisses a pending suggestion for that block.
func (s *Session) Input(blockID, content string, caret int) {
	s.mu.Lock()
	i := engine.IndexOf(s.blocks, blockID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	if s.suggestion != nil && s.suggestion.BlockID == blockID {
		s.suggestion = nil
	}
	next := engine.SetContent(s.blocks, blockID, content)
	s.focus = Focus{BlockID: blockID, Caret: caret}
	if converted, ok := engine.ApplyShorthand(next, blockID); ok {
		next = converted
		s.focus.Caret = 0
	}
	emit := s.commit(next)
	s.mu.Unlock()
	emit()
}

// InsertAfter adds an empty block of kind after index, refusing when the
// page is full.
func (s *Session) InsertAfter(index int, kind block.Kind) engine.Capacity {
	s.mu.Lock()
	res := engine.Insert(s.blocks, index, kind, s.limits)
	s.capacity = res.Capacity
	if res.Inserted.ID != "" {
		s.focus = Focus{BlockID: res.Inserted.ID}
	}
	emit := s.commit(res.Blocks)
	s.mu.Unlock()
	emit()
	return res.Capacity
}

func (s *Session) Duplicate(blockID string) engine.Capacity {
	s.mu.Lock()
	res := engine.Duplicate(s.blocks, blockID, s.limits)
	s.capacity = res.Capacity
	if res.Inserted.ID != "" {
		s.focus = Focus{BlockID: res.Inserted.ID}
	}
	emit := s.commit(res.Blocks)
	s.mu.Unlock()
	emit()
	return res.Capacity
}

// apply runs a plain engine transformation and emits its result.
func (s *Session) apply(fn func([]block.Block) []block.Block) {
	s.mu.Lock()
	emit := s.commit(fn(s.blocks))
	s.mu.Unlock()
	emit()
}

func (s *Session) SetKind(blockID string, kind block.Kind) {
	s.apply(func(b []block.Block) []block.Block { return engine.SetKind(b, blockID, kind) })
}

func (s *Session) ToggleChecked(blockID string) {
	s.apply(func(b []block.Block) []block.Block { return engine.ToggleChecked(b, blockID) })
}

func (s *Session) ToggleOpen(blockID string) {
	s.apply(func(b []block.Block) []block.Block { return engine.ToggleOpen(b, blockID) })
}

func (s *Session) SetCodeLanguage(blockID, language string) {
	s.apply(func(b []block.Block) []block.Block { return engine.SetCodeLanguage(b, blockID, language) })
}

func (s *Session) SetMedia(blockID, url, caption string) {
	s.apply(func(b []block.Block) []block.Block { return engine.SetMedia(b, blockID, url, caption) })
}

func (s *Session) Delete(blockID string) {
	s.apply(func(b []block.Block) []block.Block { return engine.Delete(b, blockID) })
}

func (s *Session) Move(blockID string, index int) {
	s.apply(func(b []block.Block) []block.Block { return engine.Move(b, blockID, index) })
}

// ToggleCollapse flips a heading between collapsed and expanded and
// persists the set. Non-heading blocks are ignored.
func (s *Session) ToggleCollapse(ctx context.Context, blockID string) error {
	s.mu.Lock()
	i := engine.IndexOf(s.blocks, blockID)
	if i < 0 || !s.blocks[i].Kind.IsHeading() {
		s.mu.Unlock()
		return nil
	}
	next := make(map[string]bool, len(s.collapsed)+1)
	for id := range s.collapsed {
		if engine.IndexOf(s.blocks, id) >= 0 {
			next[id] = true
		}
	}
	if next[blockID] {
		delete(next, blockID)
	} else {
		next[blockID] = true
	}
	s.collapsed = next
	store := s.collapse
	s.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.SaveCollapsed(ctx, s.pageID, next)
}

// Collapsed reports whether a heading is collapsed.
func (s *Session) Collapsed(blockID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collapsed[blockID]
}

// Select positions the formatting toolbar above a non-empty selection.
func (s *Session) Select(blockID string, rect Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if engine.IndexOf(s.blocks, blockID) < 0 || rect.Width <= 0 {
		s.toolbar = nil
		return
	}
	s.toolbar = &Toolbar{
		BlockID: blockID,
		X:       rect.X + rect.Width/2,
		Y:       max(rect.Y-toolbarOffset, 0),
	}
}

func (s *Session) ClearSelection() {
	s.mu.Lock()
	s.toolbar = nil
	s.mu.Unlock()
}

// DismissWarning clears the capacity warning once the host has shown it.
func (s *Session) DismissWarning() {
	s.mu.Lock()
	s.capacity = engine.CapacityOK
	s.mu.Unlock()
}
