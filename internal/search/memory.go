package search

import (
	"context"
	"sort"
	"strings"
	"sync"
)

const snippetRadius = 40

// Memory is an in-process substring index used when neither Meilisearch nor
// PostgreSQL is configured.
type Memory struct {
	mu    sync.RWMutex
	pages map[string]PageRecord
}

func NewMemory() *Memory {
	return &Memory{pages: map[string]PageRecord{}}
}

func (m *Memory) Healthy() bool { return true }

func (m *Memory) IndexPages(_ context.Context, pages []PageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pages {
		m.pages[p.ID] = p
	}
	return nil
}

func (m *Memory) DeletePages(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.pages, id)
	}
	return nil
}

// Search ranks title matches above body matches, then newer pages first.
func (m *Memory) Search(_ context.Context, q Query) ([]Result, int, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" {
		return nil, 0, nil
	}

	type scored struct {
		rec   PageRecord
		score int
		at    int
	}
	var hits []scored

	m.mu.RLock()
	for _, p := range m.pages {
		if p.WorkspaceID != q.WorkspaceID {
			continue
		}
		if strings.Contains(strings.ToLower(p.Title), needle) {
			hits = append(hits, scored{rec: p, score: 2, at: -1})
			continue
		}
		if at := strings.Index(strings.ToLower(p.Body), needle); at >= 0 {
			hits = append(hits, scored{rec: p, score: 1, at: at})
		}
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if hits[i].rec.UpdatedAt != hits[j].rec.UpdatedAt {
			return hits[i].rec.UpdatedAt > hits[j].rec.UpdatedAt
		}
		return hits[i].rec.ID < hits[j].rec.ID
	})

	total := len(hits)
	start := min(q.offset(), total)
	end := min(start+q.limit(), total)

	results := make([]Result, 0, end-start)
	for _, h := range hits[start:end] {
		results = append(results, Result{
			ID:          h.rec.ID,
			WorkspaceID: h.rec.WorkspaceID,
			Title:       h.rec.Title,
			Snippet:     snippet(h.rec.Body, h.at, len(needle)),
			Icon:        h.rec.Icon,
		})
	}
	return results, total, nil
}

func snippet(body string, at, n int) string {
	if at < 0 {
		runes := []rune(body)
		if len(runes) > 2*snippetRadius {
			return string(runes[:2*snippetRadius]) + "…"
		}
		return body
	}
	start := max(at-snippetRadius, 0)
	end := min(at+n+snippetRadius, len(body))
	for start > 0 && !isRuneStart(body[start]) {
		start--
	}
	for end < len(body) && !isRuneStart(body[end]) {
		end++
	}
	out := body[start:end]
	if start > 0 {
		out = "…" + out
	}
	if end < len(body) {
		out += "…"
	}
	return out
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
