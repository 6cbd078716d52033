package history

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

// Store persists history records in sqlite.
type Store struct {
	db *sql.DB
}

// NewStore creates a history store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `SELECT id, item_id, event, date, source_title, quality, version, real,
	custom_formats, download_client, download_id, indexer FROM history `

// Add appends a record. A zero Date is set to now. Sets ID on the struct.
func (s *Store) Add(ctx context.Context, r *Record) error {
	if r.ItemID == 0 || r.EventType == "" {
		return fmt.Errorf("%w: item %d event %q", ErrInvalidRecord, r.ItemID, r.EventType)
	}
	if r.Date.IsZero() {
		r.Date = time.Now()
	}
	r.Date = r.Date.UTC()

	formats, err := json.Marshal(nonNil(r.CustomFormats))
	if err != nil {
		return fmt.Errorf("encode custom formats: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO history (item_id, event, date, source_title, quality, version, real,
			custom_formats, download_client, download_id, indexer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ItemID, r.EventType, r.Date, r.SourceTitle, r.Quality.Quality.Name,
		r.Quality.Revision.Version, r.Quality.Revision.Real, string(formats),
		r.DownloadClient, r.DownloadID, r.Indexer,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	r.ID = id
	return nil
}

// MostRecentForItem returns the newest grabbed, imported or failed record for
// an item. Returns nil, nil if the item was never grabbed.
func (s *Store) MostRecentForItem(ctx context.Context, itemID int64) (*Record, error) {
	placeholders := make([]string, len(grabEvents))
	args := []any{itemID}
	for i, e := range grabEvents {
		placeholders[i] = "?"
		args = append(args, e)
	}

	row := s.db.QueryRowContext(ctx, selectColumns+
		"WHERE item_id = ? AND event IN ("+strings.Join(placeholders, ", ")+") ORDER BY date DESC, id DESC LIMIT 1",
		args...)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("most recent history for item %d: %w", itemID, err)
	}
	return r, nil
}

// List returns records matching the filter, most recent first.
func (s *Store) List(ctx context.Context, f Filter) ([]*Record, error) {
	var conditions []string
	var args []any

	if f.ItemID != nil {
		conditions = append(conditions, "item_id = ?")
		args = append(args, *f.ItemID)
	}
	if f.EventType != nil {
		conditions = append(conditions, "event = ?")
		args = append(args, *f.EventType)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := selectColumns + whereClause + " ORDER BY date DESC, id DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return results, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	r := &Record{}
	var qualityName, formats string
	if err := sc.Scan(&r.ID, &r.ItemID, &r.EventType, &r.Date, &r.SourceTitle, &qualityName,
		&r.Quality.Revision.Version, &r.Quality.Revision.Real, &formats,
		&r.DownloadClient, &r.DownloadID, &r.Indexer); err != nil {
		return nil, err
	}
	r.Quality.Quality, _ = quality.FindByName(qualityName)
	if err := json.Unmarshal([]byte(formats), &r.CustomFormats); err != nil {
		return nil, fmt.Errorf("decode custom formats: %w", err)
	}
	return r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
