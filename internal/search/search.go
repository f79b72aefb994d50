package search

import (
	"context"

	"inkwell/api/internal/tree"
)

const defaultLimit = 20

// Result is a single search hit returned to the caller.
type Result struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Icon        string `json:"icon,omitempty"`
}

// Query describes a search request. Searches never cross workspaces.
type Query struct {
	WorkspaceID string
	Text        string
	Limit       int
	Offset      int
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return defaultLimit
	}
	return q.Limit
}

func (q Query) offset() int {
	if q.Offset < 0 {
		return 0
	}
	return q.Offset
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push pages into a search index.
type Indexer interface {
	IndexPages(ctx context.Context, pages []PageRecord) error
	DeletePages(ctx context.Context, ids []string) error
}

// PageRecord is the data we index for a page.
type PageRecord struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Icon        string `json:"icon"`
	UpdatedAt   int64  `json:"updatedAt"`
}

func RecordFromPage(p tree.Page) PageRecord {
	return PageRecord{
		ID:          p.ID,
		WorkspaceID: p.WorkspaceID,
		Title:       p.Title,
		Body:        p.PlainText(),
		Icon:        p.Icon,
		UpdatedAt:   p.UpdatedAt.Unix(),
	}
}
