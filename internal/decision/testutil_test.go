package decision_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vmunix/fetcharr/internal/decision"
	"github.com/vmunix/fetcharr/internal/library"
	"github.com/vmunix/fetcharr/internal/quality"
	"github.com/vmunix/fetcharr/pkg/release"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

// testLogger returns a discard logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// hdProfile wants WEBDL-1080p and accepts anything from SDTV up to Bluray-1080p.
func hdProfile() *quality.Profile {
	return &quality.Profile{
		Name: "hd",
		Items: []quality.ProfileItem{
			{Quality: quality.DVD, Allowed: false},
			{Quality: quality.SDTV, Allowed: true},
			{Quality: quality.HDTV720p, Allowed: true},
			{Quality: quality.WEBDL720p, Allowed: true},
			{Quality: quality.WEBDL1080p, Allowed: true},
			{Quality: quality.Bluray1080p, Allowed: true},
		},
		Cutoff:         quality.WEBDL1080p,
		UpgradeAllowed: true,
		FormatItems: []quality.FormatItem{
			{Format: "x265", Score: 10},
			{Format: "bad-group", Score: -100},
		},
	}
}

func testFormats(t *testing.T) []quality.CustomFormat {
	t.Helper()
	x265, err := quality.NewCustomFormat("x265", `\bx265\b`, `\bhevc\b`)
	require.NoError(t, err)
	bad, err := quality.NewCustomFormat("bad-group", `-BADGRP$`)
	require.NoError(t, err)
	return []quality.CustomFormat{x265, bad}
}

func dune() *library.Item {
	return &library.Item{ID: 1, Title: "Dune", Year: 2021, QualityProfile: "hd"}
}

// newCandidate builds a usenet candidate for title against the given items.
func newCandidate(t *testing.T, title string, items ...*library.Item) *decision.Candidate {
	t.Helper()
	if len(items) == 0 {
		items = []*library.Item{dune()}
	}
	r := decision.Release{
		Title:       title,
		DownloadURL: "http://indexer/get/1",
		Indexer:     "nzbgeek",
		Protocol:    release.ProtocolUsenet,
		Size:        4 << 30,
		PublishDate: testNow.Add(-2 * time.Hour),
	}
	return decision.NewCandidate(r, items, hdProfile(), testFormats(t))
}

func testConfig() *decision.Config {
	return &decision.Config{Now: testNow, EnableCompletedDownloadHandling: true}
}
