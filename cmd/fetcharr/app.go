package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/vmunix/fetcharr/internal/config"
	"github.com/vmunix/fetcharr/internal/decision"
	"github.com/vmunix/fetcharr/internal/download"
	"github.com/vmunix/fetcharr/internal/grab"
	"github.com/vmunix/fetcharr/internal/history"
	"github.com/vmunix/fetcharr/internal/library"
	"github.com/vmunix/fetcharr/internal/migrations"
	"github.com/vmunix/fetcharr/internal/quality"
	"github.com/vmunix/fetcharr/internal/search"
)

// app holds everything a command needs, built from one config.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	db       *sql.DB
	library  *library.Store
	history  *history.Store
	store    *download.Store
	manager  *download.Manager
	pipeline *decision.Pipeline
	grabber  *grab.Service
	searcher *search.Searcher
	profiles map[string]*quality.Profile
	formats  []quality.CustomFormat
}

func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger(cmd, cfg)
	log.Debug("config loaded", "path", path)

	profiles, err := cfg.BuildProfiles()
	if err != nil {
		return nil, fmt.Errorf("quality profiles: %w", err)
	}
	formats, err := cfg.BuildCustomFormats()
	if err != nil {
		return nil, err
	}
	registry, err := cfg.BuildRegistry(log)
	if err != nil {
		return nil, err
	}

	db, err := openDB(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		library:  library.NewStore(db),
		history:  history.NewStore(db),
		store:    download.NewStore(db),
		profiles: profiles,
		formats:  formats,
	}
	a.manager = download.NewManager(registry, a.store, download.DefaultTimeout, log)
	a.pipeline = decision.NewPipeline(decision.DefaultSpecifications(decision.Dependencies{
		History: a.history,
		Queue:   a.store,
		Clients: registry,
		Log:     log,
	}), cfg.Decision.Parallelism, log)
	a.grabber = grab.NewService(a.pipeline, a.manager, a.history, log)
	a.store.OnTransition(a.grabber.HandleTransition)

	var indexers []search.Indexer
	for _, idx := range cfg.BuildIndexers(log) {
		indexers = append(indexers, idx)
	}
	a.searcher = search.NewSearcher(indexers, a.pipeline, formats, log)
	return a, nil
}

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrations.Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// profileFor returns the item's profile, falling back to the default one.
func (a *app) profileFor(item *library.Item) (*quality.Profile, error) {
	name := item.QualityProfile
	if name == "" {
		name = a.cfg.Quality.Default
	}
	p, ok := a.profiles[name]
	if !ok {
		return nil, fmt.Errorf("item %d: unknown quality profile %q", item.ID, name)
	}
	return p, nil
}
