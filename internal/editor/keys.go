package editor

import (
	"context"
	"strings"

	"inkwell/api/internal/block"
	"inkwell/api/internal/engine"
)

type Key string

const (
	KeyArrowUp    Key = "ArrowUp"
	KeyArrowDown  Key = "ArrowDown"
	KeySlash      Key = "/"
	KeyTab        Key = "Tab"
	KeyEnter      Key = "Enter"
	KeyShiftEnter Key = "Shift+Enter"
	KeyBackspace  Key = "Backspace"
	KeyEscape     Key = "Escape"
	// KeyChar carries typed text while the menu or picker is open.
	KeyChar Key = "Char"
)

// KeyEvent is a keyboard intent from the host. Head and Tail hold the
// block content on either side of the caret for Enter; Caret is the plain
// text offset; X and Y locate the caret on screen for the slash menu.
type KeyEvent struct {
	Key     Key     `json:"key"`
	BlockID string  `json:"blockId"`
	Text    string  `json:"text,omitempty"`
	Head    string  `json:"head,omitempty"`
	Tail    string  `json:"tail,omitempty"`
	Caret   int     `json:"caret"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
}

// HandleKey dispatches a key intent. It reports false when the host should
// apply the key's default text behaviour itself. While the menu or picker
// is open every key goes to it.
func (s *Session) HandleKey(ctx context.Context, ev KeyEvent) bool {
	s.mu.Lock()
	switch {
	case s.picker.open:
		return s.pickerKey(ev)
	case s.menu.open:
		return s.menuKey(ev)
	}

	switch ev.Key {
	case KeySlash:
		defer s.mu.Unlock()
		i := engine.IndexOf(s.blocks, ev.BlockID)
		if i < 0 || !s.blocks[i].Kind.HasText() || s.blocks[i].Kind == block.KindCode {
			return false
		}
		return s.openMenuLocked(ev.BlockID, ev.X, ev.Y)
	case KeyArrowUp, KeyArrowDown:
		defer s.mu.Unlock()
		return s.moveFocusLocked(ev)
	case KeyEnter:
		res := engine.Split(s.blocks, ev.BlockID, ev.Head, ev.Tail, s.limits)
		s.capacity = res.Capacity
		if res.Created.ID == "" {
			s.mu.Unlock()
			return res.Capacity == engine.CapacityExceeded
		}
		s.focus = Focus{BlockID: res.Created.ID}
		emit := s.commit(res.Blocks)
		s.mu.Unlock()
		emit()
		return true
	case KeyShiftEnter:
		i := engine.IndexOf(s.blocks, ev.BlockID)
		if i < 0 || !s.blocks[i].Kind.HasText() {
			s.mu.Unlock()
			return false
		}
		lineBreak := "<br>"
		if s.blocks[i].Kind == block.KindCode {
			lineBreak = "\n"
		}
		s.focus = Focus{BlockID: ev.BlockID, Caret: ev.Caret + 1}
		emit := s.commit(engine.SetContent(s.blocks, ev.BlockID, ev.Head+lineBreak+ev.Tail))
		s.mu.Unlock()
		emit()
		return true
	case KeyBackspace:
		if ev.Caret > 0 {
			s.mu.Unlock()
			return false
		}
		res := engine.Backspace(s.blocks, ev.BlockID)
		if !res.Changed {
			s.mu.Unlock()
			return engine.IndexOf(s.blocks, ev.BlockID) >= 0
		}
		if res.Focus != "" {
			s.focus = Focus{BlockID: res.Focus, Caret: res.Caret}
		}
		emit := s.commit(res.Blocks)
		pages := s.pages
		s.mu.Unlock()
		emit()
		if res.DeletedPage != "" && pages != nil {
			pages.Delete(res.DeletedPage)
		}
		return true
	case KeyTab:
		s.mu.Unlock()
		return s.tab(ctx, ev.BlockID)
	case KeyEscape:
		defer s.mu.Unlock()
		s.suggestion = nil
		s.toolbar = nil
		return true
	}
	s.mu.Unlock()
	return false
}

// menuKey handles keys while the menu is open. Called with s.mu held.
func (s *Session) menuKey(ev KeyEvent) bool {
	items := FilterCommands(s.menu.filter)
	switch ev.Key {
	case KeyEscape:
		s.menu = menuState{}
	case KeyArrowDown:
		s.menu.highlight = wrap(s.menu.highlight+1, len(items))
	case KeyArrowUp:
		s.menu.highlight = wrap(s.menu.highlight-1, len(items))
	case KeyBackspace:
		if s.menu.filter == "" {
			s.menu = menuState{}
		} else {
			s.menu.filter = dropLastRune(s.menu.filter)
			s.menu.highlight = 0
		}
	case KeyChar, KeySlash:
		text := ev.Text
		if ev.Key == KeySlash {
			text = "/"
		}
		s.menu.filter += text
		s.menu.highlight = 0
	case KeyEnter:
		highlight := s.menu.highlight
		s.mu.Unlock()
		s.ChooseCommand(highlight)
		return true
	}
	s.mu.Unlock()
	return true
}

// pickerKey handles keys while the page picker is open. Called with s.mu held.
func (s *Session) pickerKey(ev KeyEvent) bool {
	items := s.picker.items(s.pageID)
	switch ev.Key {
	case KeyEscape:
		s.picker = pickerState{}
	case KeyArrowDown:
		s.picker.highlight = wrap(s.picker.highlight+1, len(items))
	case KeyArrowUp:
		s.picker.highlight = wrap(s.picker.highlight-1, len(items))
	case KeyBackspace:
		if s.picker.filter == "" {
			s.picker = pickerState{}
		} else {
			s.picker.filter = dropLastRune(s.picker.filter)
			s.picker.highlight = 0
		}
	case KeyChar:
		s.picker.filter += ev.Text
		s.picker.highlight = 0
	case KeyEnter:
		highlight := s.picker.highlight
		s.mu.Unlock()
		s.ChoosePage(highlight)
		return true
	}
	s.mu.Unlock()
	return true
}

// moveFocusLocked moves the caret to the previous or next visible block.
func (s *Session) moveFocusLocked(ev KeyEvent) bool {
	i := engine.IndexOf(s.blocks, ev.BlockID)
	if i < 0 {
		return false
	}
	visible := engine.Visibility(s.blocks, s.collapsed)
	step := 1
	if ev.Key == KeyArrowUp {
		step = -1
	}
	for j := i + step; j >= 0 && j < len(s.blocks); j += step {
		if !visible[j] {
			continue
		}
		caret := 0
		if step < 0 {
			caret = len([]rune(block.PlainText(s.blocks[j].Content)))
		}
		s.focus = Focus{BlockID: s.blocks[j].ID, Caret: caret}
		return true
	}
	return false
}

// tab accepts the pending suggestion for a block, or asks the provider for
// one. The provider runs without the session lock.
func (s *Session) tab(ctx context.Context, blockID string) bool {
	s.mu.Lock()
	i := engine.IndexOf(s.blocks, blockID)
	if i < 0 || !s.blocks[i].Kind.HasText() {
		s.mu.Unlock()
		return false
	}
	if s.suggestion != nil && s.suggestion.BlockID == blockID {
		accepted := s.suggestion.Text
		s.suggestion = nil
		content := s.blocks[i].Content + block.EscapeText(accepted)
		s.focus = Focus{BlockID: blockID, Caret: len([]rune(block.PlainText(content)))}
		emit := s.commit(engine.SetContent(s.blocks, blockID, content))
		s.mu.Unlock()
		emit()
		return true
	}
	before := s.blocks[i].Content
	// the provider continues the document, so it sees everything up to the caret block
	prompt := block.PlainDocument(s.blocks[:i+1])
	provider := s.suggest
	s.mu.Unlock()

	text := provider.Suggest(ctx, prompt)
	if strings.TrimSpace(text) == "" {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Drop the suggestion if the block changed while it was fetched.
	if j := engine.IndexOf(s.blocks, blockID); j >= 0 && s.blocks[j].Content == before {
		s.suggestion = &Suggestion{BlockID: blockID, Text: text}
	}
	return true
}

func wrap(i, n int) int {
	if n == 0 {
		return 0
	}
	return ((i % n) + n) % n
}

func dropLastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}
