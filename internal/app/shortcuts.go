package app

import (
	"context"
	"strings"
)

// Shortcut is a workspace-level keyboard command.
type Shortcut string

const (
	ShortcutToggleSearch Shortcut = "toggle_search"
	ShortcutUndo         Shortcut = "undo"
	ShortcutRedo         Shortcut = "redo"
)

// ResolveShortcut maps a key combination such as "Ctrl+Shift+Z" to a
// shortcut. ctrl, cmd and meta all count as the platform modifier.
func ResolveShortcut(combo string) (Shortcut, bool) {
	var mod, shift bool
	var key string
	for _, part := range strings.Split(strings.ToLower(combo), "+") {
		switch part = strings.TrimSpace(part); part {
		case "mod", "ctrl", "control", "cmd", "meta":
			mod = true
		case "shift":
			shift = true
		case "":
		default:
			if key != "" {
				return "", false
			}
			key = part
		}
	}
	if !mod {
		return "", false
	}
	switch {
	case key == "k" && !shift:
		return ShortcutToggleSearch, true
	case key == "z" && !shift:
		return ShortcutUndo, true
	case key == "z" && shift, key == "y" && !shift:
		return ShortcutRedo, true
	}
	return "", false
}

// ShortcutResult tells the host what a shortcut did.
type ShortcutResult struct {
	Shortcut Shortcut `json:"shortcut"`
	Applied  bool     `json:"applied"`
}

// HandleShortcut runs undo and redo. Toggling search is left to the host
// and reported as applied.
func (s *Service) HandleShortcut(ctx context.Context, workspaceID, combo string) (ShortcutResult, error) {
	sc, ok := ResolveShortcut(combo)
	if !ok {
		return ShortcutResult{}, errValidation("unknown shortcut")
	}
	res := ShortcutResult{Shortcut: sc, Applied: true}
	var err error
	switch sc {
	case ShortcutUndo:
		res.Applied, err = s.Undo(ctx, workspaceID)
	case ShortcutRedo:
		res.Applied, err = s.Redo(ctx, workspaceID)
	}
	if err != nil {
		return ShortcutResult{}, err
	}
	return res, nil
}
