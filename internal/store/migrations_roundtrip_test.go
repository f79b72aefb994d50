package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/api/internal/block"
	"inkwell/api/internal/tree"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("INKWELL_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("INKWELL_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`)
	require.NoError(t, err)
	return db
}

func TestMigrationsRoundTripPostgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	migrationsDir := filepath.Join("..", "..", "db", "migrations")

	pending, err := PendingMigrations(ctx, db, migrationsDir)
	require.NoError(t, err)
	assert.Contains(t, pending, "0001_init")

	require.NoError(t, ApplyMigrations(ctx, db, migrationsDir))
	pending, err = PendingMigrations(ctx, db, migrationsDir)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, RevertMigrations(ctx, db, migrationsDir))
	require.NoError(t, ApplyMigrations(ctx, db, migrationsDir))
}

func TestPostgresStoreMergeWrite(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")))

	s := NewPostgresStore(db)
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateWorkspace(ctx, Workspace{ID: "ws1", Name: "Home", Kind: WorkspacePrivate, OwnerID: "u1", CreatedAt: now}))

	page := tree.Page{
		ID: "pg1", WorkspaceID: "ws1", Kind: tree.KindPage, Title: "Groceries",
		Blocks:   []block.Block{{ID: "b1", Kind: block.KindHeading1, Content: "Groceries"}},
		ChildIDs: []string{}, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.UpsertPage(ctx, page, tree.FieldsAll))

	page.Title = "Ignored"
	page.IsFavorite = true
	require.NoError(t, s.UpsertPage(ctx, page, tree.FieldFavorite))

	pages, err := s.ListPages(ctx, "ws1")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Groceries", pages[0].Title)
	assert.True(t, pages[0].IsFavorite)
	assert.Equal(t, block.KindHeading1, pages[0].Blocks[0].Kind)

	exists, err := s.PageExists(ctx, "ws1", "pg1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.DeletePage(ctx, "ws1", "pg1"))
	exists, err = s.PageExists(ctx, "ws1", "pg1")
	require.NoError(t, err)
	assert.False(t, exists)
}
