package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher over the pages table's generated tsvector.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; the pages live in the same database.
func (p *PgFTS) Healthy() bool {
	return true
}

func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, workspace_id, title,
			ts_headline('simple', plain_text, query, 'MaxFragments=1,MaxWords=30,StartSel=<mark>,StopSel=</mark>') AS snippet,
			icon,
			COUNT(*) OVER () AS total
		FROM pages, plainto_tsquery('simple', $2) AS query
		WHERE workspace_id = $1 AND fts @@ query
		ORDER BY ts_rank(fts, query) DESC, updated_at DESC
		LIMIT $3 OFFSET $4
	`, q.WorkspaceID, q.Text, q.limit(), q.offset())
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var (
		results []Result
		total   int
	)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.WorkspaceID, &r.Title, &r.Snippet, &r.Icon, &total); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadRecords returns every page of every workspace for a full reindex.
func (p *PgFTS) LoadRecords(ctx context.Context) ([]PageRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, workspace_id, title, plain_text, icon, EXTRACT(EPOCH FROM updated_at)::bigint
		FROM pages
	`)
	if err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}
	defer rows.Close()

	records := make([]PageRecord, 0)
	for rows.Next() {
		var r PageRecord
		if err := rows.Scan(&r.ID, &r.WorkspaceID, &r.Title, &r.Body, &r.Icon, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return records, nil
}
