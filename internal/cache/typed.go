package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"inkwell/api/internal/tree"
)

// PageMirror keeps the last known page list of each workspace.
type PageMirror struct {
	store Store
}

func NewPageMirror(store Store) *PageMirror {
	return &PageMirror{store: store}
}

func pagesKey(workspaceID string) string {
	return "ws:" + workspaceID + ":pages"
}

func (m *PageMirror) Save(ctx context.Context, workspaceID string, pages []tree.Page) error {
	raw, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("marshal page mirror: %w", err)
	}
	return m.store.Set(ctx, pagesKey(workspaceID), string(raw), 0)
}

// Load returns the mirrored pages; a missing mirror returns ErrMiss.
func (m *PageMirror) Load(ctx context.Context, workspaceID string) ([]tree.Page, error) {
	raw, err := m.store.Get(ctx, pagesKey(workspaceID))
	if err != nil {
		return nil, err
	}
	var pages []tree.Page
	if err := json.Unmarshal([]byte(raw), &pages); err != nil {
		return nil, fmt.Errorf("unmarshal page mirror: %w", err)
	}
	return pages, nil
}

func (m *PageMirror) Clear(ctx context.Context, workspaceID string) error {
	return m.store.Delete(ctx, pagesKey(workspaceID))
}

// CollapseStore persists the set of collapsed heading ids per page.
type CollapseStore struct {
	store Store
}

func NewCollapseStore(store Store) *CollapseStore {
	return &CollapseStore{store: store}
}

func collapsedKey(pageID string) string {
	return "collapsed:" + pageID
}

// LoadCollapsed returns an empty set when nothing was saved.
func (c *CollapseStore) LoadCollapsed(ctx context.Context, pageID string) (map[string]bool, error) {
	raw, err := c.store.Get(ctx, collapsedKey(pageID))
	if errors.Is(err, ErrMiss) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal collapsed set: %w", err)
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (c *CollapseStore) SaveCollapsed(ctx context.Context, pageID string, set map[string]bool) error {
	ids := make([]string, 0, len(set))
	for id, on := range set {
		if on {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return c.store.Delete(ctx, collapsedKey(pageID))
	}
	sort.Strings(ids)
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal collapsed set: %w", err)
	}
	return c.store.Set(ctx, collapsedKey(pageID), string(raw), 0)
}
