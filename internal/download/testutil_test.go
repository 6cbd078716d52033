package download

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
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

// insertTestItem inserts a library item row and returns its ID.
// This is needed because downloads reference items via foreign key.
func insertTestItem(t *testing.T, db *sql.DB, title string) int64 {
	t.Helper()
	result, err := db.Exec(`INSERT INTO items (title, year, quality_profile) VALUES (?, 2024, 'hd')`, title)
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

// writeJSON is a helper that writes a JSON response, failing the test on error.
func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode JSON response: %v", err)
	}
}
