package editor

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"inkwell/api/internal/block"
	"inkwell/api/internal/engine"
)

type Action string

const (
	ActionConvert   Action = "convert"
	ActionNewPage   Action = "new_page"
	ActionLinkPage  Action = "link_page"
	ActionEmbedPage Action = "embed_page"
)

// Command is one row of the slash command menu.
type Command struct {
	Label  string     `json:"label"`
	Action Action     `json:"action"`
	Kind   block.Kind `json:"kind,omitempty"`
}

var commands = buildCommands()

func buildCommands() []Command {
	var out []Command
	for _, kind := range block.Kinds() {
		switch kind {
		case block.KindPageEmbed:
			out = append(out,
				Command{Label: kind.Label(), Action: ActionNewPage},
				Command{Label: "Embed page", Action: ActionEmbedPage},
			)
		case block.KindPageLink:
			out = append(out, Command{Label: kind.Label(), Action: ActionLinkPage})
		default:
			out = append(out, Command{Label: kind.Label(), Action: ActionConvert, Kind: kind})
		}
	}
	return out
}

// Commands returns the full menu in display order.
func Commands() []Command {
	out := make([]Command, len(commands))
	copy(out, commands)
	return out
}

// FilterCommands keeps the commands whose label contains filter, ignoring case.
func FilterCommands(filter string) []Command {
	needle := strings.ToLower(strings.TrimSpace(filter))
	if needle == "" {
		return Commands()
	}
	var out []Command
	for _, c := range commands {
		if strings.Contains(strings.ToLower(c.Label), needle) {
			out = append(out, c)
		}
	}
	return out
}

// RankPages orders picker entries by fuzzy match against filter. An empty
// filter keeps the given order.
func RankPages(pages []PageOption, filter string) []PageOption {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return pages
	}
	titles := make([]string, len(pages))
	for i, p := range pages {
		titles[i] = p.Title
	}
	matches := fuzzy.Find(filter, titles)
	out := make([]PageOption, 0, len(matches))
	for _, m := range matches {
		out = append(out, pages[m.Index])
	}
	return out
}

type menuState struct {
	open      bool
	anchor    string
	x, y      float64
	filter    string
	highlight int
}

type pickerState struct {
	open      bool
	mode      block.Kind
	anchor    string
	filter    string
	highlight int
	pages     []PageOption
}

func (p pickerState) items(exclude string) []PageOption {
	var candidates []PageOption
	for _, opt := range p.pages {
		if opt.ID != exclude {
			candidates = append(candidates, opt)
		}
	}
	return RankPages(candidates, p.filter)
}

// OpenMenu opens the command menu anchored at a block. The page picker
// closes, since only one of them can be open.
func (s *Session) OpenMenu(blockID string, x, y float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openMenuLocked(blockID, x, y)
}

func (s *Session) openMenuLocked(blockID string, x, y float64) bool {
	i := engine.IndexOf(s.blocks, blockID)
	if i < 0 {
		return false
	}
	s.picker = pickerState{}
	s.menu = menuState{open: true, anchor: blockID, x: x, y: y}
	return true
}

// CloseMenus closes the menu and the picker, e.g. on a click outside.
func (s *Session) CloseMenus() {
	s.mu.Lock()
	s.menu = menuState{}
	s.picker = pickerState{}
	s.mu.Unlock()
}

// SetMenuFilter replaces the menu or picker filter text.
func (s *Session) SetMenuFilter(filter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.picker.open:
		s.picker.filter = filter
		s.picker.highlight = 0
	case s.menu.open:
		s.menu.filter = filter
		s.menu.highlight = 0
	}
}

// ChooseCommand runs the i-th command of the filtered menu.
func (s *Session) ChooseCommand(i int) {
	s.mu.Lock()
	if !s.menu.open {
		s.mu.Unlock()
		return
	}
	items := FilterCommands(s.menu.filter)
	if i < 0 || i >= len(items) {
		s.mu.Unlock()
		return
	}
	cmd := items[i]
	if cmd.Action == ActionNewPage {
		anchor := s.menu.anchor
		s.menu = menuState{}
		s.mu.Unlock()
		s.embedNewPage(anchor)
		return
	}
	emit := s.runCommandLocked(cmd)
	loadPages := s.picker.open && s.pages != nil
	s.mu.Unlock()
	emit()

	if loadPages {
		list := s.pages.List()
		s.mu.Lock()
		if s.picker.open {
			s.picker.pages = list
		}
		s.mu.Unlock()
	}
}

// embedNewPage creates a child page and embeds it at anchor. The page
// collaborator is called without holding the session lock.
func (s *Session) embedNewPage(anchor string) {
	if s.pages == nil {
		return
	}
	child, err := s.pages.CreateChild(s.pageID)
	if err != nil || child.ID == "" {
		return
	}
	s.mu.Lock()
	emit := s.placeReferenceLocked(anchor, block.KindPageEmbed, child)
	s.mu.Unlock()
	emit()
}

// ChoosePage links the i-th picker entry at the picker's anchor.
func (s *Session) ChoosePage(i int) {
	s.mu.Lock()
	if !s.picker.open {
		s.mu.Unlock()
		return
	}
	items := s.picker.items(s.pageID)
	if i < 0 || i >= len(items) {
		s.mu.Unlock()
		return
	}
	picker := s.picker
	s.picker = pickerState{}
	emit := s.placeReferenceLocked(picker.anchor, picker.mode, items[i])
	s.mu.Unlock()
	emit()
}

func (s *Session) runCommandLocked(cmd Command) func() {
	anchor := s.menu.anchor
	s.menu = menuState{}

	switch cmd.Action {
	case ActionConvert:
		next := engine.SetKind(s.blocks, anchor, cmd.Kind)
		s.focus = Focus{BlockID: anchor}
		return s.commit(next)
	case ActionLinkPage, ActionEmbedPage:
		mode := block.KindPageLink
		if cmd.Action == ActionEmbedPage {
			mode = block.KindPageEmbed
		}
		s.picker = pickerState{open: true, mode: mode, anchor: anchor}
		return func() {}
	}
	return func() {}
}

// placeReferenceLocked turns a blank anchor into the reference, or inserts
// the reference after the anchor when it already holds content.
func (s *Session) placeReferenceLocked(anchor string, kind block.Kind, page PageOption) func() {
	i := engine.IndexOf(s.blocks, anchor)
	if i < 0 {
		return func() {}
	}
	target := s.blocks[i]
	if target.Kind == block.KindText && block.IsBlank(target.Content) && !block.IsTitle(target, i) {
		s.focus = Focus{BlockID: anchor}
		return s.commit(engine.LinkPage(s.blocks, anchor, kind, page.ID, page.Title))
	}
	res := engine.Insert(s.blocks, i, block.KindText, s.limits)
	s.capacity = res.Capacity
	if res.Inserted.ID == "" {
		return func() {}
	}
	s.focus = Focus{BlockID: res.Inserted.ID}
	return s.commit(engine.LinkPage(res.Blocks, res.Inserted.ID, kind, page.ID, page.Title))
}
