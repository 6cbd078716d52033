package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vmunix/fetcharr/internal/decision"
	"github.com/vmunix/fetcharr/internal/download"
	"github.com/vmunix/fetcharr/internal/quality"
	"github.com/vmunix/fetcharr/pkg/newznab"
	"github.com/vmunix/fetcharr/pkg/release"
)

// Snapshot returns the decision configuration for one run at now.
func (c *Config) Snapshot(now time.Time) *decision.Config {
	return &decision.Config{
		Now:                             now,
		EnableCompletedDownloadHandling: c.Decision.EnableCompletedDownloadHandling,
		MaximumSizeMB:                   c.Decision.MaximumSizeMB,
		MinimumAgeMinutes:               c.Decision.MinimumAgeMinutes,
		RetentionDays:                   c.Decision.RetentionDays,
	}
}

// BuildCustomFormats compiles the configured custom formats.
func (c *Config) BuildCustomFormats() ([]quality.CustomFormat, error) {
	formats := make([]quality.CustomFormat, 0, len(c.CustomFormats))
	for _, f := range c.CustomFormats {
		cf, err := quality.NewCustomFormat(f.Name, f.Patterns...)
		if err != nil {
			return nil, err
		}
		formats = append(formats, cf)
	}
	return formats, nil
}

// BuildProfiles turns the configured quality profiles into quality.Profiles
// keyed by name.
func (c *Config) BuildProfiles() (map[string]*quality.Profile, error) {
	profiles := make(map[string]*quality.Profile, len(c.Quality.Profiles))
	for _, name := range sortedKeys(c.Quality.Profiles) {
		pc := c.Quality.Profiles[name]
		p := &quality.Profile{
			Name:              name,
			UpgradeAllowed:    pc.UpgradeAllowed == nil || *pc.UpgradeAllowed,
			MinFormatScore:    pc.MinFormatScore,
			CutoffFormatScore: pc.CutoffFormatScore,
		}
		for _, qn := range pc.Qualities {
			q, ok := quality.FindByName(qn)
			if !ok {
				return nil, fmt.Errorf("profile %q: unknown quality %q", name, qn)
			}
			p.Items = append(p.Items, quality.ProfileItem{Quality: q, Allowed: true})
			if strings.EqualFold(qn, pc.Cutoff) {
				p.Cutoff = q
			}
		}
		for _, f := range sortedKeys(pc.Formats) {
			p.FormatItems = append(p.FormatItems, quality.FormatItem{Format: f, Score: pc.Formats[f]})
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		profiles[name] = p
	}
	return profiles, nil
}

// BuildRegistry creates a client for every enabled downloader. Constructors
// check folders and endpoints, so a bad setting fails here rather than on
// first use.
func (c *Config) BuildRegistry(log *slog.Logger) (*download.Registry, error) {
	registry := download.NewRegistry()
	for _, name := range sortedKeys(c.Downloaders) {
		d := c.Downloaders[name]
		if !d.IsEnabled() {
			continue
		}
		client, err := newClient(name, d, log)
		if err != nil {
			return nil, fmt.Errorf("downloaders.%s: %w", name, err)
		}
		if err := registry.Register(client, d.Priority); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// BuildIndexers creates a client for every enabled indexer.
func (c *Config) BuildIndexers(log *slog.Logger) []*newznab.Client {
	var indexers []*newznab.Client
	for _, name := range sortedKeys(c.Indexers) {
		idx := c.Indexers[name]
		if !idx.IsEnabled() {
			continue
		}
		protocol := release.ProtocolUsenet
		if idx.Type == TypeTorznab {
			protocol = release.ProtocolTorrent
		}
		indexers = append(indexers, newznab.NewClient(newznab.Settings{
			Name:       name,
			URL:        idx.URL,
			APIKey:     idx.APIKey,
			Protocol:   protocol,
			Categories: idx.Categories,
			Timeout:    idx.Timeout,
		}, log))
	}
	return indexers
}

func newClient(name string, d DownloaderConfig, log *slog.Logger) (download.Client, error) {
	switch d.Type {
	case TypeSABnzbd:
		return download.NewSABnzbdClient(download.SABnzbdSettings{
			Name: name, URL: d.URL, APIKey: d.APIKey, Category: d.Category, Timeout: d.Timeout,
		}, log)
	case TypeQBittorrent:
		return download.NewQBittorrentClient(download.QBittorrentSettings{
			Name: name, URL: d.URL, Username: d.Username, Password: d.Password, Category: d.Category, Timeout: d.Timeout,
		}, log)
	case TypeNZBDrop:
		return download.NewNZBDropClient(download.NZBDropSettings{
			Name: name, NZBFolder: d.NZBFolder, StrmFolder: d.StrmFolder, Timeout: d.Timeout,
		}, log)
	case TypeTorrentBlackhole:
		return download.NewTorrentBlackholeClient(download.TorrentBlackholeSettings{
			Name: name, TorrentFolder: d.TorrentFolder, WatchFolder: d.WatchFolder, Timeout: d.Timeout,
		}, log)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", download.ErrInvalidSettings, d.Type)
	}
}
