package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vmunix/fetcharr/internal/quality"
)

// querier abstracts *sql.DB and *sql.Tx for shared query logic.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store provides access to library items.
type Store struct {
	db *sql.DB
}

// NewStore creates a new library store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx wraps a database transaction with the same methods as Store.
type Tx struct {
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// mapSQLiteError converts SQLite errors to package errors.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	// modernc.org/sqlite wraps errors; check the message for constraint violations
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "PRIMARY KEY constraint failed") {
		return ErrDuplicate
	}
	if strings.Contains(errStr, "FOREIGN KEY constraint failed") ||
		strings.Contains(errStr, "CHECK constraint failed") {
		return ErrConstraint
	}
	return err
}

const itemColumns = "id, title, year, quality_profile, file_quality, file_version, file_real, file_formats, added_at, updated_at"

// fileColumns flattens an optional File into column values.
func fileColumns(f *File) (any, int, int, string, error) {
	if f == nil {
		return nil, 1, 0, "[]", nil
	}
	formats := f.CustomFormats
	if formats == nil {
		formats = []string{}
	}
	b, err := json.Marshal(formats)
	if err != nil {
		return nil, 0, 0, "", fmt.Errorf("encode custom formats: %w", err)
	}
	return f.Quality.Quality.Name, f.Quality.Revision.Version, f.Quality.Revision.Real, string(b), nil
}

func addItem(ctx context.Context, q querier, item *Item) error {
	fq, fv, fr, ff, err := fileColumns(item.File)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, `
		INSERT INTO items (title, year, quality_profile, file_quality, file_version, file_real, file_formats, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Title, item.Year, item.QualityProfile, fq, fv, fr, ff, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	item.ID = id
	item.AddedAt = now
	item.UpdatedAt = now
	return nil
}

// Add inserts a new item. Sets ID, AddedAt, and UpdatedAt on the struct.
func (s *Store) Add(ctx context.Context, item *Item) error { return addItem(ctx, s.db, item) }

// Add inserts a new item within a transaction.
func (t *Tx) Add(ctx context.Context, item *Item) error { return addItem(ctx, t.tx, item) }

func getItem(ctx context.Context, q querier, id int64) (*Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, mapSQLiteError(err))
	}
	return item, nil
}

// Get retrieves an item by ID.
// Returns ErrNotFound if the item does not exist.
func (s *Store) Get(ctx context.Context, id int64) (*Item, error) { return getItem(ctx, s.db, id) }

// Get retrieves an item by ID within a transaction.
func (t *Tx) Get(ctx context.Context, id int64) (*Item, error) { return getItem(ctx, t.tx, id) }

func listItems(ctx context.Context, q querier, f Filter) ([]*Item, int, error) {
	var conditions []string
	var args []any

	if f.QualityProfile != nil {
		conditions = append(conditions, "quality_profile = ?")
		args = append(args, *f.QualityProfile)
	}
	if f.Title != nil {
		conditions = append(conditions, "title = ?")
		args = append(args, *f.Title)
	}
	if f.Year != nil {
		conditions = append(conditions, "year = ?")
		args = append(args, *f.Year)
	}
	if f.Missing {
		conditions = append(conditions, "file_quality IS NULL")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM items "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	query := "SELECT " + itemColumns + " FROM items " + whereClause + " ORDER BY id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan item: %w", err)
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate items: %w", err)
	}
	return results, total, nil
}

// List returns items matching the filter with pagination.
// Returns (results, totalCount, error).
func (s *Store) List(ctx context.Context, f Filter) ([]*Item, int, error) {
	return listItems(ctx, s.db, f)
}

// List returns items matching the filter within a transaction.
func (t *Tx) List(ctx context.Context, f Filter) ([]*Item, int, error) {
	return listItems(ctx, t.tx, f)
}

func updateItem(ctx context.Context, q querier, item *Item) error {
	fq, fv, fr, ff, err := fileColumns(item.File)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, `
		UPDATE items SET title = ?, year = ?, quality_profile = ?, file_quality = ?, file_version = ?,
			file_real = ?, file_formats = ?, updated_at = ?
		WHERE id = ?`,
		item.Title, item.Year, item.QualityProfile, fq, fv, fr, ff, now, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item %d: %w", item.ID, mapSQLiteError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update item %d: %w", item.ID, ErrNotFound)
	}
	item.UpdatedAt = now
	return nil
}

// Update updates an existing item, including its file quality.
// Returns ErrNotFound if the item does not exist.
func (s *Store) Update(ctx context.Context, item *Item) error { return updateItem(ctx, s.db, item) }

// Update updates an existing item within a transaction.
func (t *Tx) Update(ctx context.Context, item *Item) error { return updateItem(ctx, t.tx, item) }

// Delete removes an item by ID. Deleting a missing item is not an error.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete item %d: %w", id, mapSQLiteError(err))
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (*Item, error) {
	item := &Item{}
	var fileQuality sql.NullString
	var version, realCount int
	var formats string
	if err := sc.Scan(&item.ID, &item.Title, &item.Year, &item.QualityProfile,
		&fileQuality, &version, &realCount, &formats, &item.AddedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	if fileQuality.Valid {
		q, _ := quality.FindByName(fileQuality.String)
		item.File = &File{Quality: quality.Model{Quality: q, Revision: quality.Revision{Version: version, Real: realCount}}}
		if err := json.Unmarshal([]byte(formats), &item.File.CustomFormats); err != nil {
			return nil, fmt.Errorf("decode custom formats: %w", err)
		}
	}
	return item, nil
}
