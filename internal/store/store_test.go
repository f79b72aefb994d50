package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/api/internal/block"
	"inkwell/api/internal/tree"
)

func TestBuildPageUpsertOnlyTouchesMaskedColumns(t *testing.T) {
	page := tree.Page{ID: "pg1", WorkspaceID: "ws1", Title: "Hello", IsFavorite: true}

	query, args, err := buildPageUpsert(page, tree.FieldTitle|tree.FieldFavorite)
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO pages (workspace_id, id, title, is_favorite) VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (workspace_id, id) DO UPDATE SET title = EXCLUDED.title, is_favorite = EXCLUDED.is_favorite",
		query)
	assert.Equal(t, []any{"ws1", "pg1", "Hello", true}, args)
}

func TestBuildPageUpsertBlocksCarryPlainText(t *testing.T) {
	page := tree.Page{
		ID: "pg1", WorkspaceID: "ws1",
		Blocks: []block.Block{{ID: "b", Kind: block.KindText, Content: "<b>hi</b>"}},
	}
	query, args, err := buildPageUpsert(page, tree.FieldBlocks)
	require.NoError(t, err)
	assert.Contains(t, query, "blocks, plain_text")
	require.Len(t, args, 4)
	assert.JSONEq(t, `[{"id":"b","type":"text","content":"<b>hi</b>"}]`, args[2].(string))
	assert.Equal(t, "hi", args[3])
}

func TestBuildPageUpsertNullables(t *testing.T) {
	_, args, err := buildPageUpsert(tree.Page{ID: "p", WorkspaceID: "w"}, tree.FieldParent|tree.FieldLastOpened|tree.FieldChildren)
	require.NoError(t, err)
	assert.Equal(t, sql.NullString{}, args[2])
	assert.Equal(t, "[]", args[3])
	assert.Equal(t, sql.NullTime{}, args[4])
}

func TestBuildPageUpsertWithoutFieldsDoesNothing(t *testing.T) {
	query, _, err := buildPageUpsert(tree.Page{ID: "p", WorkspaceID: "w"}, 0)
	require.NoError(t, err)
	assert.Contains(t, query, "DO NOTHING")
}

func TestMemoryStoreMergeWrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	page := tree.Page{ID: "p1", WorkspaceID: "ws", Title: "A", Icon: "x", CreatedAt: now}
	require.NoError(t, s.UpsertPage(ctx, page, tree.FieldsAll))

	page.Title = "B"
	page.Icon = "y"
	require.NoError(t, s.UpsertPage(ctx, page, tree.FieldIcon))

	pages, err := s.ListPages(ctx, "ws")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "A", pages[0].Title)
	assert.Equal(t, "y", pages[0].Icon)

	exists, _ := s.PageExists(ctx, "ws", "p1")
	assert.True(t, exists)
	require.NoError(t, s.DeletePage(ctx, "ws", "p1"))
	exists, _ = s.PageExists(ctx, "ws", "p1")
	assert.False(t, exists)
}

func TestMemoryStoreWorkspaces(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateWorkspace(ctx, Workspace{ID: "w1", Name: "Team", Kind: WorkspacePublic, OwnerID: "u1", InviteCode: "ABC123"}))
	require.NoError(t, s.CreateWorkspace(ctx, Workspace{ID: "w2", Name: "Me", Kind: WorkspacePrivate, OwnerID: "u1", InviteCode: "PRIV"}))

	ws, err := s.GetWorkspaceByInviteCode(ctx, " ABC123 ")
	require.NoError(t, err)
	assert.Equal(t, "w1", ws.ID)

	_, err = s.GetWorkspaceByInviteCode(ctx, "PRIV")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetWorkspace(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.AppendUserWorkspace(ctx, "u2", "w1", "editor"))
	require.NoError(t, s.AppendUserWorkspace(ctx, "u2", "w1", "viewer"))
	list, err := s.ListUserWorkspaces(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "editor", list[0].Role)
}
