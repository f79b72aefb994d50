package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"inkwell/api/internal/tree"
)

type pageKey struct {
	workspaceID string
	pageID      string
}

type membership struct {
	workspaceID string
	role        string
}

// MemoryStore is a DocumentStore kept in process memory. It backs tests and
// runs without a database URL.
type MemoryStore struct {
	mu         sync.RWMutex
	pages      map[pageKey]tree.Page
	workspaces map[string]Workspace
	members    map[string][]membership
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pages:      map[pageKey]tree.Page{},
		workspaces: map[string]Workspace{},
		members:    map[string][]membership{},
	}
}

func (m *MemoryStore) ListPages(_ context.Context, workspaceID string) ([]tree.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []tree.Page
	for key, page := range m.pages {
		if key.workspaceID == workspaceID {
			out = append(out, page)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) UpsertPage(_ context.Context, page tree.Page, fields tree.Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pageKey{page.WorkspaceID, page.ID}
	existing, ok := m.pages[key]
	if !ok {
		existing = tree.Page{ID: page.ID, WorkspaceID: page.WorkspaceID, Kind: tree.KindPage, Title: tree.Untitled, ChildIDs: []string{}}
	}
	m.pages[key] = tree.ApplyFields(existing, page, fields)
	return nil
}

func (m *MemoryStore) DeletePage(_ context.Context, workspaceID, pageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, pageKey{workspaceID, pageID})
	return nil
}

func (m *MemoryStore) PageExists(_ context.Context, workspaceID, pageID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.pages[pageKey{workspaceID, pageID}]
	return ok, nil
}

func (m *MemoryStore) GetWorkspace(_ context.Context, workspaceID string) (Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, ok := m.workspaces[workspaceID]
	if !ok {
		return Workspace{}, ErrNotFound
	}
	return ws, nil
}

func (m *MemoryStore) GetWorkspaceByInviteCode(_ context.Context, code string) (Workspace, error) {
	code = strings.TrimSpace(code)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if code == "" {
		return Workspace{}, ErrNotFound
	}
	for _, ws := range m.workspaces {
		if ws.Kind == WorkspacePublic && ws.InviteCode == code {
			return ws, nil
		}
	}
	return Workspace{}, ErrNotFound
}

func (m *MemoryStore) CreateWorkspace(_ context.Context, ws Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws.Role = ""
	m.workspaces[ws.ID] = ws
	return nil
}

func (m *MemoryStore) AppendUserWorkspace(_ context.Context, userID, workspaceID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.members[userID] {
		if existing.workspaceID == workspaceID {
			return nil
		}
	}
	m.members[userID] = append(m.members[userID], membership{workspaceID: workspaceID, role: role})
	return nil
}

func (m *MemoryStore) ListUserWorkspaces(_ context.Context, userID string) ([]Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Workspace
	for _, member := range m.members[userID] {
		ws, ok := m.workspaces[member.workspaceID]
		if !ok {
			continue
		}
		ws.Role = member.role
		out = append(out, ws)
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
