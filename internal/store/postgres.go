package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"inkwell/api/internal/block"
	"inkwell/api/internal/tree"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const pageColumns = `id, workspace_id, kind, title, icon, cover_image, blocks, parent_id, child_ids,
	is_favorite, is_expanded, last_opened_at, created_at, updated_at`

func (s *PostgresStore) ListPages(ctx context.Context, workspaceID string) ([]tree.Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pageColumns+`
		FROM pages
		WHERE workspace_id = $1
		ORDER BY created_at ASC, id ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []tree.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return pages, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (tree.Page, error) {
	var (
		page       tree.Page
		kind       string
		blocksRaw  []byte
		childRaw   []byte
		parentID   sql.NullString
		lastOpened sql.NullTime
	)
	if err := row.Scan(&page.ID, &page.WorkspaceID, &kind, &page.Title, &page.Icon, &page.CoverImage,
		&blocksRaw, &parentID, &childRaw, &page.IsFavorite, &page.IsExpanded, &lastOpened,
		&page.CreatedAt, &page.UpdatedAt); err != nil {
		return tree.Page{}, fmt.Errorf("scan page: %w", err)
	}
	page.Kind = tree.Kind(kind)
	page.ParentID = parentID.String
	if lastOpened.Valid {
		page.LastOpenedAt = lastOpened.Time
	}
	if err := json.Unmarshal(blocksRaw, &page.Blocks); err != nil {
		return tree.Page{}, fmt.Errorf("decode blocks for page %s: %w", page.ID, err)
	}
	if err := json.Unmarshal(childRaw, &page.ChildIDs); err != nil {
		return tree.Page{}, fmt.Errorf("decode child ids for page %s: %w", page.ID, err)
	}
	return page, nil
}

func (s *PostgresStore) UpsertPage(ctx context.Context, page tree.Page, fields tree.Fields) error {
	query, args, err := buildPageUpsert(page, fields)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert page %s: %w", page.ID, err)
	}
	return nil
}

type pageColumn struct {
	field tree.Fields
	name  string
	value func(tree.Page) (any, error)
}

var pageColumnMap = []pageColumn{
	{tree.FieldKind, "kind", func(p tree.Page) (any, error) { return string(p.Kind), nil }},
	{tree.FieldTitle, "title", func(p tree.Page) (any, error) { return p.Title, nil }},
	{tree.FieldIcon, "icon", func(p tree.Page) (any, error) { return p.Icon, nil }},
	{tree.FieldCover, "cover_image", func(p tree.Page) (any, error) { return p.CoverImage, nil }},
	{tree.FieldBlocks, "blocks", func(p tree.Page) (any, error) { return marshalJSON(p.Blocks, []block.Block{}) }},
	{tree.FieldBlocks, "plain_text", func(p tree.Page) (any, error) { return p.PlainText(), nil }},
	{tree.FieldParent, "parent_id", func(p tree.Page) (any, error) { return nullString(p.ParentID), nil }},
	{tree.FieldChildren, "child_ids", func(p tree.Page) (any, error) { return marshalJSON(p.ChildIDs, []string{}) }},
	{tree.FieldFavorite, "is_favorite", func(p tree.Page) (any, error) { return p.IsFavorite, nil }},
	{tree.FieldExpanded, "is_expanded", func(p tree.Page) (any, error) { return p.IsExpanded, nil }},
	{tree.FieldLastOpened, "last_opened_at", func(p tree.Page) (any, error) { return nullTime(p.LastOpenedAt), nil }},
	{tree.FieldCreatedAt, "created_at", func(p tree.Page) (any, error) { return p.CreatedAt, nil }},
	{tree.FieldUpdatedAt, "updated_at", func(p tree.Page) (any, error) { return p.UpdatedAt, nil }},
}

// buildPageUpsert renders an INSERT ... ON CONFLICT that only touches the
// columns selected by fields.
func buildPageUpsert(page tree.Page, fields tree.Fields) (string, []any, error) {
	columns := []string{"workspace_id", "id"}
	args := []any{page.WorkspaceID, page.ID}
	var updates []string

	for _, col := range pageColumnMap {
		if !fields.Has(col.field) {
			continue
		}
		value, err := col.value(page)
		if err != nil {
			return "", nil, err
		}
		columns = append(columns, col.name)
		args = append(args, value)
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col.name, col.name))
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	conflict := "DO NOTHING"
	if len(updates) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(updates, ", ")
	}
	query := fmt.Sprintf(
		"INSERT INTO pages (%s) VALUES (%s) ON CONFLICT (workspace_id, id) %s",
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		conflict,
	)
	return query, args, nil
}

func marshalJSON[T any](v []T, empty []T) (any, error) {
	if v == nil {
		v = empty
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return string(raw), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func (s *PostgresStore) DeletePage(ctx context.Context, workspaceID, pageID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE workspace_id = $1 AND id = $2`, workspaceID, pageID); err != nil {
		return fmt.Errorf("delete page %s: %w", pageID, err)
	}
	return nil
}

func (s *PostgresStore) PageExists(ctx context.Context, workspaceID, pageID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM pages WHERE workspace_id = $1 AND id = $2)`, workspaceID, pageID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check page %s: %w", pageID, err)
	}
	return exists, nil
}

const workspaceColumns = `id, name, kind, owner_id, COALESCE(invite_code, ''), created_at`

func scanWorkspace(row rowScanner, extra ...any) (Workspace, error) {
	var ws Workspace
	dest := append([]any{&ws.ID, &ws.Name, &ws.Kind, &ws.OwnerID, &ws.InviteCode, &ws.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Workspace{}, ErrNotFound
		}
		return Workspace{}, fmt.Errorf("scan workspace: %w", err)
	}
	return ws, nil
}

func (s *PostgresStore) GetWorkspace(ctx context.Context, workspaceID string) (Workspace, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = $1`, workspaceID)
	return scanWorkspace(row)
}

func (s *PostgresStore) GetWorkspaceByInviteCode(ctx context.Context, code string) (Workspace, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Workspace{}, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+workspaceColumns+`
		FROM workspaces
		WHERE invite_code = $1 AND kind = 'public'
	`, code)
	return scanWorkspace(row)
}

func (s *PostgresStore) CreateWorkspace(ctx context.Context, ws Workspace) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, kind, owner_id, invite_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ws.ID, ws.Name, ws.Kind, ws.OwnerID, nullString(ws.InviteCode), ws.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendUserWorkspace(ctx context.Context, userID, workspaceID, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (workspace_id, user_id) DO NOTHING
	`, workspaceID, userID, role)
	if err != nil {
		return fmt.Errorf("append user workspace: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListUserWorkspaces(ctx context.Context, userID string) ([]Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.name, w.kind, w.owner_id, COALESCE(w.invite_code, ''), w.created_at, m.role
		FROM workspace_members m
		JOIN workspaces w ON w.id = m.workspace_id
		WHERE m.user_id = $1
		ORDER BY m.joined_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user workspaces: %w", err)
	}
	defer rows.Close()

	var out []Workspace
	for rows.Next() {
		var role string
		ws, err := scanWorkspace(rows, &role)
		if err != nil {
			return nil, err
		}
		ws.Role = role
		out = append(out, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user workspaces: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
