package download

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vmunix/fetcharr/internal/quality"
)

// Store persists download records.
type Store struct {
	db *sql.DB

	mu       sync.RWMutex
	handlers []TransitionHandler
}

// NewStore creates a download store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// OnTransition registers a handler to be called on state transitions.
func (s *Store) OnTransition(h TransitionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

const downloadColumns = `id, item_id, client, client_id, status, release_name, indexer, quality, version, real,
	custom_formats, output_path, added_at, completed_at, last_transition_at`

// Add records a new download.
// This method is idempotent: if a download with the same item, client and
// client id already exists, the existing record is loaded into d instead.
func (s *Store) Add(ctx context.Context, d *Download) error {
	existing, err := scanDownload(s.db.QueryRowContext(ctx,
		"SELECT "+downloadColumns+" FROM downloads WHERE item_id = ? AND client = ? AND client_id = ?",
		d.ItemID, d.Client, d.ClientID))
	if err == nil {
		*d = *existing
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check existing download: %w", err)
	}

	if d.Status == "" {
		d.Status = StatusQueued
	}
	formats, err := encodeFormats(d.CustomFormats)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO downloads (item_id, client, client_id, status, release_name, indexer, quality, version, real,
			custom_formats, output_path, added_at, completed_at, last_transition_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ItemID, d.Client, d.ClientID, d.Status, d.ReleaseName, d.Indexer, d.Quality.Quality.Name,
		d.Quality.Revision.Version, d.Quality.Revision.Real, formats, d.OutputPath, now, d.CompletedAt, now,
	)
	if err != nil {
		return fmt.Errorf("insert download: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	d.ID = id
	d.AddedAt = now
	d.LastTransitionAt = now
	return nil
}

// Get retrieves a download by ID.
// Returns ErrNotFound if the download does not exist.
func (s *Store) Get(ctx context.Context, id int64) (*Download, error) {
	d, err := scanDownload(s.db.QueryRowContext(ctx, "SELECT "+downloadColumns+" FROM downloads WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get download %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get download %d: %w", id, err)
	}
	return d, nil
}

// Transition changes a download's status with validation and event emission.
func (s *Store) Transition(ctx context.Context, d *Download, to Status) error {
	if !d.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, to)
	}

	from := d.Status
	now := time.Now().UTC()
	completedAt := d.CompletedAt
	if to.IsTerminal() {
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE downloads SET status = ?, output_path = ?, completed_at = ?, last_transition_at = ?
		WHERE id = ? AND status = ?`,
		to, d.OutputPath, completedAt, now, d.ID, from,
	)
	if err != nil {
		return fmt.Errorf("update download %d: %w", d.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transition download %d from %s: %w", d.ID, from, ErrNotFound)
	}

	d.Status = to
	d.CompletedAt = completedAt
	d.LastTransitionAt = now

	event := TransitionEvent{
		DownloadID: d.ID,
		ItemID:     d.ItemID,
		From:       from,
		To:         to,
		At:         now,
		Download:   *d,
	}
	s.mu.RLock()
	handlers := s.handlers
	s.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, event)
	}

	return nil
}

// List returns downloads matching the specified filter, oldest first.
func (s *Store) List(ctx context.Context, f Filter) ([]*Download, error) {
	var conditions []string
	var args []any

	if f.ItemID != nil {
		conditions = append(conditions, "item_id = ?")
		args = append(args, *f.ItemID)
	}
	if f.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *f.Status)
	}
	if f.Client != nil {
		conditions = append(conditions, "client = ?")
		args = append(args, *f.Client)
	}
	if f.ClientID != nil {
		conditions = append(conditions, "client_id = ?")
		args = append(args, *f.ClientID)
	}
	if f.Active {
		placeholders := make([]string, len(terminalStatuses))
		for i, st := range terminalStatuses {
			placeholders[i] = "?"
			args = append(args, st)
		}
		conditions = append(conditions, "status NOT IN ("+strings.Join(placeholders, ", ")+")")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+downloadColumns+" FROM downloads "+whereClause+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		results = append(results, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate downloads: %w", err)
	}

	return results, nil
}

// ActiveForItem returns the non-terminal downloads tracked for an item.
func (s *Store) ActiveForItem(ctx context.Context, itemID int64) ([]*Download, error) {
	return s.List(ctx, Filter{ItemID: &itemID, Active: true})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDownload(sc scanner) (*Download, error) {
	d := &Download{}
	var qualityName, formats string
	if err := sc.Scan(&d.ID, &d.ItemID, &d.Client, &d.ClientID, &d.Status, &d.ReleaseName, &d.Indexer,
		&qualityName, &d.Quality.Revision.Version, &d.Quality.Revision.Real, &formats, &d.OutputPath,
		&d.AddedAt, &d.CompletedAt, &d.LastTransitionAt); err != nil {
		return nil, err
	}
	d.Quality.Quality, _ = quality.FindByName(qualityName)
	if err := json.Unmarshal([]byte(formats), &d.CustomFormats); err != nil {
		return nil, fmt.Errorf("decode custom formats: %w", err)
	}
	return d, nil
}

func encodeFormats(formats []string) (string, error) {
	if formats == nil {
		formats = []string{}
	}
	b, err := json.Marshal(formats)
	if err != nil {
		return "", fmt.Errorf("encode custom formats: %w", err)
	}
	return string(b), nil
}
