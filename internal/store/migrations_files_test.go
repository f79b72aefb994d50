package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippedMigrationsArePaired(t *testing.T) {
	migrations, err := LoadMigrations(filepath.Join("..", "..", "db", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "0001_init", migrations[0].Version)
	for _, m := range migrations {
		assert.NotEmpty(t, m.Down, "migration %s has no down script", m.Version)
	}
}

func TestLoadMigrationsOrdersAndPairs(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("0002_tags.up.sql", "CREATE TABLE tags();")
	write("0001_init.up.sql", "CREATE TABLE pages();")
	write("0001_init.down.sql", "DROP TABLE pages;")
	write("README.md", "ignored")

	migrations, err := LoadMigrations(dir)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, Migration{Version: "0001_init", Up: "CREATE TABLE pages();", Down: "DROP TABLE pages;"}, migrations[0])
	assert.Equal(t, "0002_tags", migrations[1].Version)
	assert.Empty(t, migrations[1].Down)
}

func TestLoadMigrationsRejectsDownWithoutUp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0003_orphan.down.sql"), []byte("DROP TABLE x;"), 0o644))
	_, err := LoadMigrations(dir)
	require.Error(t, err)
}
