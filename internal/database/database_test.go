package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableNames(t *testing.T, path string) []string {
	t.Helper()
	db, err := New(path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'inventory') ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestMigrate_CreatesTablesIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.db")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		db, err := New(path)
		require.NoError(t, err)
		require.NoError(t, Migrate(ctx, db))
		require.NoError(t, db.Close())
	}

	assert.Equal(t, []string{"inventory", "users"}, tableNames(t, path))
}

func TestNew_ForeignKeysEnabled(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "fk.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(context.Background(), db))

	var on int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&on))
	assert.Equal(t, 1, on)

	_, err = db.Exec(`INSERT INTO inventory (user_id, name, quantity, price, category) VALUES (999, 'x', 1, 1, 'c')`)
	assert.Error(t, err, "orphan item must violate the users foreign key")
}

func TestNew_BadPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing-dir", "x.db"))
	assert.Error(t, err)
}
