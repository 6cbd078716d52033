// Package grab turns accepted candidates into downloads and keeps history in
// step with what the download clients report.
package grab

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/fetcharr/internal/decision"
	"github.com/vmunix/fetcharr/internal/download"
	"github.com/vmunix/fetcharr/internal/history"
	"github.com/vmunix/fetcharr/internal/quality"
)

// Result is the outcome of processing one candidate. Grab is nil unless the
// candidate was accepted and submitted.
type Result struct {
	Decision decision.Decision
	Grab     *download.Grab
}

// Service runs the decision pipeline and submits accepted releases.
type Service struct {
	pipeline  *decision.Pipeline
	downloads *download.Manager
	history   *history.Store
	log       *slog.Logger
}

// NewService creates a new grab service.
func NewService(pipeline *decision.Pipeline, downloads *download.Manager, hist *history.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pipeline:  pipeline,
		downloads: downloads,
		history:   hist,
		log:       log.With("component", "grab"),
	}
}

// Process evaluates a candidate and, if accepted, submits it and records a
// grabbed event per item. Rejections are returned in the result, not as
// errors. Submission failures are returned unchanged for the caller to retry.
func (s *Service) Process(ctx context.Context, cfg *decision.Config, c *decision.Candidate, search *decision.SearchContext) (*Result, error) {
	d, err := s.pipeline.Run(ctx, cfg, c, search)
	if err != nil {
		return nil, err
	}
	result := &Result{Decision: d}
	if !d.Accepted {
		s.log.Info("release rejected", "release", c.Release.Title, "rule", d.Rule, "type", d.Type, "reason", d.Reason)
		return result, nil
	}

	formats := quality.FormatNames(c.CustomFormats)
	grab, err := s.downloads.Submit(ctx, &download.Request{
		ItemIDs: c.ItemIDs(),
		Submission: download.Submission{
			Title:       c.Release.Title,
			DownloadURL: c.Release.DownloadURL,
			Protocol:    c.Release.Protocol,
			Discography: c.Discography,
		},
		Indexer:       c.Release.Indexer,
		Quality:       c.Quality,
		CustomFormats: formats,
	})
	if err != nil {
		return result, err
	}
	result.Grab = grab

	var date time.Time
	if cfg != nil {
		date = cfg.Now
	}
	for _, itemID := range c.ItemIDs() {
		rec := &history.Record{
			ItemID:         itemID,
			EventType:      history.EventGrabbed,
			Date:           date,
			SourceTitle:    c.Release.Title,
			Quality:        c.Quality,
			CustomFormats:  formats,
			DownloadClient: grab.Client,
			DownloadID:     grab.ClientID,
			Indexer:        c.Release.Indexer,
		}
		if err := s.history.Add(ctx, rec); err != nil {
			return result, fmt.Errorf("record grab for item %d: %w", itemID, err)
		}
	}

	s.log.Info("release grabbed", "release", c.Release.Title, "client", grab.Client,
		"client_id", grab.ClientID, "quality", c.Quality)
	return result, nil
}

// HandleTransition records a failed event when a client reports a download
// as failed. Register it with download.Store.OnTransition.
func (s *Service) HandleTransition(ctx context.Context, e download.TransitionEvent) {
	if e.To != download.StatusFailed {
		return
	}
	d := e.Download
	rec := &history.Record{
		ItemID:         e.ItemID,
		EventType:      history.EventFailed,
		Date:           e.At,
		SourceTitle:    d.ReleaseName,
		Quality:        d.Quality,
		CustomFormats:  d.CustomFormats,
		DownloadClient: d.Client,
		DownloadID:     d.ClientID,
		Indexer:        d.Indexer,
	}
	if err := s.history.Add(ctx, rec); err != nil {
		s.log.Error("failed to record download failure", "download_id", e.DownloadID, "item_id", e.ItemID, "error", err)
		return
	}
	s.log.Warn("download failed", "download_id", e.DownloadID, "item_id", e.ItemID, "release", d.ReleaseName)
}
