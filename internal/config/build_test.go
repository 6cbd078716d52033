package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmunix/fetcharr/internal/download"
	"github.com/vmunix/fetcharr/internal/quality"
	"github.com/vmunix/fetcharr/pkg/release"
)

func TestSnapshot(t *testing.T) {
	cfg := &Config{Decision: DecisionConfig{
		EnableCompletedDownloadHandling: true,
		MaximumSizeMB:                   4096,
		MinimumAgeMinutes:               30,
		RetentionDays:                   1500,
	}}
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	snap := cfg.Snapshot(now)
	assert.Equal(t, now, snap.Now)
	assert.True(t, snap.EnableCompletedDownloadHandling)
	assert.Equal(t, int64(4096), snap.MaximumSizeMB)
	assert.Equal(t, 30, snap.MinimumAgeMinutes)
	assert.Equal(t, 1500, snap.RetentionDays)

	cfg.Decision.EnableCompletedDownloadHandling = false
	assert.True(t, snap.EnableCompletedDownloadHandling, "snapshots do not follow later changes")
}

func TestBuildProfiles(t *testing.T) {
	noUpgrades := false
	cfg := &Config{Quality: QualityConfig{Profiles: map[string]QualityProfile{
		"hd": {
			Qualities:         []string{"hdtv-720p", "WEBDL-1080p", "Bluray-1080p"},
			Cutoff:            "webdl-1080p",
			Formats:           map[string]int{"x265": 10, "hdr": 5},
			MinFormatScore:    -10,
			CutoffFormatScore: 10,
		},
		"frozen": {Qualities: []string{"DVD"}, Cutoff: "DVD", UpgradeAllowed: &noUpgrades},
	}}}

	profiles, err := cfg.BuildProfiles()
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	hd := profiles["hd"]
	assert.Equal(t, "hd", hd.Name)
	assert.Equal(t, quality.WEBDL1080p, hd.Cutoff)
	assert.True(t, hd.UpgradeAllowed)
	assert.Equal(t, 0, hd.Index(quality.HDTV720p))
	assert.Equal(t, 2, hd.Index(quality.Bluray1080p))
	assert.Equal(t, []quality.FormatItem{{Format: "hdr", Score: 5}, {Format: "x265", Score: 10}}, hd.FormatItems)
	assert.Equal(t, -10, hd.MinFormatScore)
	assert.Equal(t, 10, hd.CutoffFormatScore)

	assert.False(t, profiles["frozen"].UpgradeAllowed)
}

func TestBuildProfiles_Invalid(t *testing.T) {
	cfg := &Config{Quality: QualityConfig{Profiles: map[string]QualityProfile{
		"hd": {Qualities: []string{"WEBDL-1080p"}, Cutoff: "Bluray-1080p"},
	}}}
	_, err := cfg.BuildProfiles()
	assert.ErrorContains(t, err, "cutoff")
}

func TestBuildCustomFormats(t *testing.T) {
	cfg := &Config{CustomFormats: []CustomFormatConfig{
		{Name: "x265", Patterns: []string{`\bx265\b`, `\bhevc\b`}},
	}}
	formats, err := cfg.BuildCustomFormats()
	require.NoError(t, err)
	require.Len(t, formats, 1)
	assert.True(t, formats[0].Matches("Dune.2021.1080p.BluRay.HEVC-GRP"))

	cfg.CustomFormats[0].Patterns = []string{"(broken"}
	_, err = cfg.BuildCustomFormats()
	assert.Error(t, err)
}

func TestBuildRegistry(t *testing.T) {
	disabled := false
	cfg := &Config{Downloaders: map[string]DownloaderConfig{
		"sab":  {Type: TypeSABnzbd, URL: "http://localhost:8085", APIKey: "key", Priority: 2},
		"drop": {Type: TypeNZBDrop, NZBFolder: t.TempDir(), StrmFolder: t.TempDir(), Priority: 1},
		"hole": {Type: TypeTorrentBlackhole, TorrentFolder: t.TempDir(), WatchFolder: t.TempDir()},
		"qbit": {Type: TypeQBittorrent, URL: "http://localhost:8080", Enabled: &disabled},
	}}

	registry, err := cfg.BuildRegistry(nil)
	require.NoError(t, err)
	assert.Len(t, registry.Clients(), 3)

	_, ok := registry.Get("qbit")
	assert.False(t, ok, "disabled downloaders are not registered")

	c, err := registry.ForProtocol(release.ProtocolUsenet)
	require.NoError(t, err)
	assert.Equal(t, "drop", c.Name(), "lower priority value is preferred")
	assert.Equal(t, download.KindFileDrop, c.Kind())

	c, err = registry.ForProtocol(release.ProtocolTorrent)
	require.NoError(t, err)
	assert.Equal(t, "hole", c.Name())
}

func TestBuildRegistry_BadFolder(t *testing.T) {
	cfg := &Config{Downloaders: map[string]DownloaderConfig{
		"drop": {Type: TypeNZBDrop, NZBFolder: "/nonexistent/nzb", StrmFolder: t.TempDir()},
	}}
	_, err := cfg.BuildRegistry(nil)
	require.ErrorIs(t, err, download.ErrInvalidSettings)
	assert.Contains(t, err.Error(), "downloaders.drop")
}

func TestBuildIndexers(t *testing.T) {
	disabled := false
	cfg := &Config{Indexers: map[string]IndexerConfig{
		"nzbgeek": {Type: TypeNewznab, URL: "https://api.nzbgeek.info", APIKey: "key", Categories: []int{2000}},
		"jackett": {Type: TypeTorznab, URL: "http://localhost:9117"},
		"old":     {Type: TypeNewznab, URL: "http://old", Enabled: &disabled},
	}}

	indexers := cfg.BuildIndexers(nil)
	require.Len(t, indexers, 2)
	assert.Equal(t, "jackett", indexers[0].Name())
	assert.Equal(t, release.ProtocolTorrent, indexers[0].Protocol())
	assert.Equal(t, "nzbgeek", indexers[1].Name())
	assert.Equal(t, release.ProtocolUsenet, indexers[1].Protocol())
}
