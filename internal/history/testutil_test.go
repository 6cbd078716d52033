package history

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmunix/fetcharr/internal/migrations"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	require.NoError(t, migrations.Apply(context.Background(), db))
	return db
}

func insertTestItem(t *testing.T, db *sql.DB, title string) int64 {
	t.Helper()
	result, err := db.Exec(`INSERT INTO items (title, year, quality_profile) VALUES (?, 2024, 'hd')`, title)
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}
