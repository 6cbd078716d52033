package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/fetcharr/internal/quality"
)

// DefaultTimeout bounds every call into a client.
const DefaultTimeout = 30 * time.Second

// Request is a release to send to a client on behalf of one or more items.
type Request struct {
	ItemIDs       []int64
	Submission    Submission
	Indexer       string
	Quality       quality.Model
	CustomFormats []string
}

// Grab is the result of a successful submission.
type Grab struct {
	Client    string
	ClientID  string
	Downloads []*Download
}

// QueueEntry combines a tracked download with the client's live view of it.
type QueueEntry struct {
	Download *Download
	Live     *Item // nil when the client did not report the job
}

// Manager routes submissions to clients and keeps tracked downloads in sync
// with what the clients report. It does not retry failed calls.
type Manager struct {
	registry *Registry
	store    *Store
	timeout  time.Duration
	log      *slog.Logger
}

// NewManager creates a new download manager. A zero timeout uses DefaultTimeout.
func NewManager(registry *Registry, store *Store, timeout time.Duration, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		registry: registry,
		store:    store,
		timeout:  timeout,
		log:      log.With("component", "download"),
	}
}

// Registry returns the configured clients.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Submit sends a release to the preferred client able to take it and records
// a tracked download per item.
func (m *Manager) Submit(ctx context.Context, req *Request) (*Grab, error) {
	client, err := m.registry.ForSubmission(&req.Submission)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	clientID, err := client.Submit(callCtx, &req.Submission)
	if err != nil {
		m.log.Error("submit failed", "client", client.Name(), "release", req.Submission.Title, "error", err)
		return nil, fmt.Errorf("submit to %s: %w", client.Name(), err)
	}

	grab := &Grab{Client: client.Name(), ClientID: clientID}
	for _, itemID := range req.ItemIDs {
		d := &Download{
			ItemID:        itemID,
			Client:        client.Name(),
			ClientID:      clientID,
			Status:        StatusQueued,
			ReleaseName:   req.Submission.Title,
			Indexer:       req.Indexer,
			Quality:       req.Quality,
			CustomFormats: req.CustomFormats,
		}
		if err := m.store.Add(ctx, d); err != nil {
			// The job is already in the client; surface the error so the caller can remove it.
			return grab, fmt.Errorf("save download: %w", err)
		}
		grab.Downloads = append(grab.Downloads, d)
	}

	m.log.Info("grab sent", "client", client.Name(), "client_id", clientID, "release", req.Submission.Title,
		"items", len(req.ItemIDs), "duration_ms", time.Since(start).Milliseconds())
	return grab, nil
}

// Refresh polls every client with active downloads concurrently and applies
// the status changes they report. A failing client does not stop the others;
// all errors are returned joined.
func (m *Manager) Refresh(ctx context.Context) error {
	downloads, err := m.store.List(ctx, Filter{Active: true})
	if err != nil {
		return fmt.Errorf("list active: %w", err)
	}

	m.log.Debug("refresh started", "active_downloads", len(downloads))

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for name, tracked := range groupByClient(downloads) {
		client, ok := m.registry.Get(name)
		if !ok {
			m.log.Warn("tracked downloads for unconfigured client", "client", name, "count", len(tracked))
			continue
		}
		g.Go(func() error {
			items, err := m.poll(ctx, client)
			if err != nil {
				m.log.Error("refresh error", "client", name, "error", err)
				record(fmt.Errorf("poll %s: %w", name, err))
				return nil
			}
			for _, err := range m.reconcile(ctx, tracked, items) {
				record(err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (m *Manager) poll(ctx context.Context, client Client) ([]*Item, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return client.Items(callCtx)
}

// reconcile applies reported statuses to tracked downloads. Jobs the client
// no longer reports are left alone.
func (m *Manager) reconcile(ctx context.Context, tracked []*Download, items []*Item) []error {
	var errs []error
	for _, d := range tracked {
		item := matchItem(d, items)
		if item == nil || item.Status == d.Status {
			continue
		}
		if !d.Status.CanTransitionTo(item.Status) {
			m.log.Debug("ignoring reported status", "download_id", d.ID, "status", item.Status, "prev", d.Status)
			continue
		}
		if item.OutputPath != "" {
			d.OutputPath = item.OutputPath
		}
		prev := d.Status
		if err := m.store.Transition(ctx, d, item.Status); err != nil {
			m.log.Error("refresh update failed", "download_id", d.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		m.log.Info("download status changed", "download_id", d.ID, "item_id", d.ItemID, "status", d.Status, "prev", prev)
	}
	return errs
}

// matchItem finds the client's job for a tracked download, by id first and by
// file name for drop folders whose output no longer carries the id.
func matchItem(d *Download, items []*Item) *Item {
	for _, item := range items {
		if item.ID == d.ClientID {
			return item
		}
	}
	name := CleanFileName(d.ReleaseName)
	for _, item := range items {
		if item.Title == name {
			return item
		}
	}
	return nil
}

// Remove removes a tracked download from its client and marks it removed.
// Clients that cannot remove jobs return a *CapabilityError, which is passed
// through and leaves the tracked download unchanged.
func (m *Manager) Remove(ctx context.Context, downloadID int64, deleteData bool) error {
	d, err := m.store.Get(ctx, downloadID)
	if err != nil {
		return fmt.Errorf("get download: %w", err)
	}

	client, ok := m.registry.Get(d.Client)
	if !ok {
		return fmt.Errorf("download client %q is not configured", d.Client)
	}

	item := &Item{ID: d.ClientID, Title: d.ReleaseName, Client: d.Client, Status: d.Status, OutputPath: d.OutputPath}
	if client.Capabilities().Remove {
		if items, err := m.poll(ctx, client); err == nil {
			if live := matchItem(d, items); live != nil {
				item = live
			}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := client.RemoveItem(callCtx, item, deleteData); err != nil {
		return fmt.Errorf("remove from %s: %w", client.Name(), err)
	}

	// Every item sharing the job goes with it.
	clientName, clientID := d.Client, d.ClientID
	siblings, err := m.store.List(ctx, Filter{Client: &clientName, ClientID: &clientID, Active: true})
	if err != nil {
		return fmt.Errorf("list downloads for job: %w", err)
	}
	for _, s := range siblings {
		if err := m.store.Transition(ctx, s, StatusRemoved); err != nil {
			return fmt.Errorf("mark removed: %w", err)
		}
	}

	m.log.Info("download removed", "download_id", downloadID, "client", d.Client, "delete_data", deleteData)
	return nil
}

// Queue returns active downloads with the live status their clients report.
// Clients that cannot be reached leave Live unset.
func (m *Manager) Queue(ctx context.Context) ([]*QueueEntry, error) {
	downloads, err := m.store.List(ctx, Filter{Active: true})
	if err != nil {
		return nil, fmt.Errorf("list active: %w", err)
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		live = make(map[string][]*Item)
	)
	for name := range groupByClient(downloads) {
		client, ok := m.registry.Get(name)
		if !ok {
			continue
		}
		g.Go(func() error {
			items, err := m.poll(ctx, client)
			if err != nil {
				m.log.Warn("queue poll failed", "client", name, "error", err)
				return nil
			}
			mu.Lock()
			live[name] = items
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	entries := make([]*QueueEntry, 0, len(downloads))
	for _, d := range downloads {
		entries = append(entries, &QueueEntry{Download: d, Live: matchItem(d, live[d.Client])})
	}
	return entries, nil
}

func groupByClient(downloads []*Download) map[string][]*Download {
	grouped := make(map[string][]*Download)
	for _, d := range downloads {
		grouped[d.Client] = append(grouped[d.Client], d)
	}
	return grouped
}
