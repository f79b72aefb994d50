package editor

import (
	"inkwell/api/internal/block"
	"inkwell/api/internal/engine"
)

const titlePlaceholder = "Untitled"

// BlockView is a block plus everything the host needs to draw it.
type BlockView struct {
	block.Block
	Visible     bool   `json:"visible"`
	Number      int    `json:"number,omitempty"`
	Collapsible bool   `json:"collapsible,omitempty"`
	Collapsed   bool   `json:"collapsed,omitempty"`
	Style       string `json:"style"`
	Placeholder string `json:"placeholder,omitempty"`
	IsTitle     bool   `json:"isTitle,omitempty"`
}

type MenuView struct {
	BlockID   string    `json:"blockId"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Filter    string    `json:"filter"`
	Highlight int       `json:"highlight"`
	Items     []Command `json:"items"`
}

type PickerView struct {
	BlockID   string       `json:"blockId"`
	Mode      block.Kind   `json:"mode"`
	Filter    string       `json:"filter"`
	Highlight int          `json:"highlight"`
	Items     []PageOption `json:"items"`
}

// View is a snapshot of the session for rendering.
type View struct {
	PageID     string      `json:"pageId"`
	Blocks     []BlockView `json:"blocks"`
	Focus      Focus       `json:"focus"`
	Menu       *MenuView   `json:"menu,omitempty"`
	Picker     *PickerView `json:"picker,omitempty"`
	Toolbar    *Toolbar    `json:"toolbar,omitempty"`
	Suggestion *Suggestion `json:"suggestion,omitempty"`
	Capacity   string      `json:"capacity"`
}

func (s *Session) Render() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := engine.Visibility(s.blocks, s.collapsed)
	numbers := engine.Numbers(s.blocks, visible)
	views := make([]BlockView, len(s.blocks))
	for i, b := range s.blocks {
		v := BlockView{
			Block:       b,
			Visible:     visible[i],
			Number:      numbers[i],
			Style:       b.Kind.Style(),
			Placeholder: b.Kind.Placeholder(),
			IsTitle:     block.IsTitle(b, i),
		}
		if b.Kind.IsHeading() {
			v.Collapsible = engine.HasChildren(s.blocks, i)
			v.Collapsed = s.collapsed[b.ID]
		}
		if v.IsTitle {
			v.Placeholder = titlePlaceholder
		}
		views[i] = v
	}

	out := View{
		PageID:   s.pageID,
		Blocks:   views,
		Focus:    s.focus,
		Capacity: s.capacity.String(),
	}
	if s.menu.open {
		out.Menu = &MenuView{
			BlockID:   s.menu.anchor,
			X:         s.menu.x,
			Y:         s.menu.y,
			Filter:    s.menu.filter,
			Highlight: s.menu.highlight,
			Items:     FilterCommands(s.menu.filter),
		}
	}
	if s.picker.open {
		out.Picker = &PickerView{
			BlockID:   s.picker.anchor,
			Mode:      s.picker.mode,
			Filter:    s.picker.filter,
			Highlight: s.picker.highlight,
			Items:     s.picker.items(s.pageID),
		}
	}
	if s.toolbar != nil {
		t := *s.toolbar
		out.Toolbar = &t
	}
	if s.suggestion != nil {
		sg := *s.suggestion
		out.Suggestion = &sg
	}
	return out
}
