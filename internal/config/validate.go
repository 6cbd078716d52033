package config

import (
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/vmunix/fetcharr/internal/quality"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}
	if c.Server.PollInterval < 0 {
		errs = append(errs, fmt.Sprintf("server.poll_interval: must not be negative, got %s", c.Server.PollInterval))
	}

	d := c.Decision
	if d.MaximumSizeMB < 0 {
		errs = append(errs, "decision.maximum_size_mb: must not be negative")
	}
	if d.MinimumAgeMinutes < 0 {
		errs = append(errs, "decision.minimum_age_minutes: must not be negative")
	}
	if d.RetentionDays < 0 {
		errs = append(errs, "decision.retention_days: must not be negative")
	}
	if d.Parallelism < 0 {
		errs = append(errs, "decision.parallelism: must not be negative")
	}

	errs = append(errs, c.validateQuality()...)
	errs = append(errs, c.validateDownloaders()...)
	errs = append(errs, c.validateIndexers()...)
	return errs
}

func (c *Config) validateQuality() []string {
	var errs []string

	formats := make(map[string]bool)
	for i, f := range c.CustomFormats {
		if f.Name == "" {
			errs = append(errs, fmt.Sprintf("custom_formats[%d].name: required", i))
			continue
		}
		if formats[f.Name] {
			errs = append(errs, fmt.Sprintf("custom_formats.%s: defined more than once", f.Name))
		}
		formats[f.Name] = true
		if len(f.Patterns) == 0 {
			errs = append(errs, fmt.Sprintf("custom_formats.%s.patterns: at least one pattern required", f.Name))
		}
		for _, p := range f.Patterns {
			if _, err := regexp.Compile(p); err != nil {
				errs = append(errs, fmt.Sprintf("custom_formats.%s.patterns: invalid pattern %q: %v", f.Name, p, err))
			}
		}
	}

	if len(c.Quality.Profiles) == 0 {
		errs = append(errs, "quality.profiles: at least one profile must be configured")
	}
	if c.Quality.Default != "" {
		if _, ok := c.Quality.Profiles[c.Quality.Default]; !ok {
			errs = append(errs, fmt.Sprintf("quality.default: profile %q not defined", c.Quality.Default))
		}
	}

	for _, name := range sortedKeys(c.Quality.Profiles) {
		p := c.Quality.Profiles[name]
		prefix := "quality.profiles." + name
		if len(p.Qualities) == 0 {
			errs = append(errs, prefix+".qualities: at least one quality required")
		}
		for _, q := range p.Qualities {
			if _, ok := quality.FindByName(q); !ok {
				errs = append(errs, fmt.Sprintf("%s.qualities: unknown quality %q", prefix, q))
			}
		}
		switch {
		case p.Cutoff == "":
			errs = append(errs, prefix+".cutoff: required")
		case !slices.ContainsFunc(p.Qualities, func(q string) bool { return strings.EqualFold(q, p.Cutoff) }):
			errs = append(errs, fmt.Sprintf("%s.cutoff: %q is not one of the profile's qualities", prefix, p.Cutoff))
		}
		for _, f := range sortedKeys(p.Formats) {
			if !formats[f] {
				errs = append(errs, fmt.Sprintf("%s.formats: custom format %q not defined", prefix, f))
			}
		}
	}
	return errs
}

func (c *Config) validateDownloaders() []string {
	var errs []string

	enabled := 0
	for _, name := range sortedKeys(c.Downloaders) {
		d := c.Downloaders[name]
		prefix := "downloaders." + name
		if !slices.Contains(downloaderTypes, d.Type) {
			errs = append(errs, fmt.Sprintf("%s.type: must be one of %s; got %q", prefix, strings.Join(downloaderTypes, ", "), d.Type))
			continue
		}
		if !d.IsEnabled() {
			continue
		}
		enabled++
		if d.Timeout < 0 {
			errs = append(errs, prefix+".timeout: must not be negative")
		}

		switch d.Type {
		case TypeSABnzbd:
			errs = appendRequired(errs, prefix, "url", d.URL)
			errs = appendRequired(errs, prefix, "api_key", d.APIKey)
		case TypeQBittorrent:
			errs = appendRequired(errs, prefix, "url", d.URL)
		case TypeNZBDrop:
			errs = appendFolder(errs, prefix, "nzb_folder", d.NZBFolder)
			errs = appendFolder(errs, prefix, "strm_folder", d.StrmFolder)
		case TypeTorrentBlackhole:
			errs = appendFolder(errs, prefix, "torrent_folder", d.TorrentFolder)
			errs = appendFolder(errs, prefix, "watch_folder", d.WatchFolder)
		}
	}
	if enabled == 0 {
		errs = append(errs, "downloaders: at least one enabled downloader must be configured")
	}
	return errs
}

// Indexers are optional; without any, only evaluate and grab work.
func (c *Config) validateIndexers() []string {
	var errs []string
	for _, name := range sortedKeys(c.Indexers) {
		idx := c.Indexers[name]
		prefix := "indexers." + name
		if idx.Type != TypeNewznab && idx.Type != TypeTorznab {
			errs = append(errs, fmt.Sprintf("%s.type: must be one of %s, %s; got %q", prefix, TypeNewznab, TypeTorznab, idx.Type))
			continue
		}
		if !idx.IsEnabled() {
			continue
		}
		errs = appendRequired(errs, prefix, "url", idx.URL)
		if idx.Timeout < 0 {
			errs = append(errs, prefix+".timeout: must not be negative")
		}
	}
	return errs
}

func appendRequired(errs []string, prefix, key, value string) []string {
	if value == "" {
		return append(errs, fmt.Sprintf("%s.%s: required", prefix, key))
	}
	return errs
}

func appendFolder(errs []string, prefix, key, path string) []string {
	if path == "" {
		return append(errs, fmt.Sprintf("%s.%s: required", prefix, key))
	}
	info, err := os.Stat(path)
	if err != nil {
		return append(errs, fmt.Sprintf("%s.%s: folder %q does not exist", prefix, key, path))
	}
	if !info.IsDir() {
		return append(errs, fmt.Sprintf("%s.%s: %q is not a folder", prefix, key, path))
	}
	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
