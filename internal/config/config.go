// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server        ServerConfig                `toml:"server"`
	Database      DatabaseConfig              `toml:"database"`
	Decision      DecisionConfig              `toml:"decision"`
	Quality       QualityConfig               `toml:"quality"`
	CustomFormats []CustomFormatConfig        `toml:"custom_formats"`
	Downloaders   map[string]DownloaderConfig `toml:"downloaders"`
	Indexers      map[string]IndexerConfig    `toml:"indexers"`
}

type ServerConfig struct {
	LogLevel     string        `toml:"log_level"`
	PollInterval time.Duration `toml:"poll_interval"`
	LockFile     string        `toml:"lock_file"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// DecisionConfig holds the values the decision rules read. A snapshot is
// taken per run, see Snapshot.
type DecisionConfig struct {
	EnableCompletedDownloadHandling bool  `toml:"enable_completed_download_handling"`
	MaximumSizeMB                   int64 `toml:"maximum_size_mb"`
	MinimumAgeMinutes               int   `toml:"minimum_age_minutes"`
	RetentionDays                   int   `toml:"retention_days"`
	Parallelism                     int   `toml:"parallelism"`
}

type QualityConfig struct {
	Default  string                    `toml:"default"`
	Profiles map[string]QualityProfile `toml:"profiles"`
}

// QualityProfile lists allowed qualities from least to most preferred.
type QualityProfile struct {
	Qualities         []string       `toml:"qualities"`
	Cutoff            string         `toml:"cutoff"`
	UpgradeAllowed    *bool          `toml:"upgrade_allowed"`
	Formats           map[string]int `toml:"formats"`
	MinFormatScore    int            `toml:"min_format_score"`
	CutoffFormatScore int            `toml:"cutoff_format_score"`
}

type CustomFormatConfig struct {
	Name     string   `toml:"name"`
	Patterns []string `toml:"patterns"`
}

// Downloader types.
const (
	TypeSABnzbd          = "sabnzbd"
	TypeQBittorrent      = "qbittorrent"
	TypeNZBDrop          = "nzbdrop"
	TypeTorrentBlackhole = "torrent_blackhole"
)

var downloaderTypes = []string{TypeSABnzbd, TypeQBittorrent, TypeNZBDrop, TypeTorrentBlackhole}

// DownloaderConfig configures one download client. Which fields apply depends
// on Type.
type DownloaderConfig struct {
	Type     string        `toml:"type"`
	Enabled  *bool         `toml:"enabled"`
	Priority int           `toml:"priority"`
	Timeout  time.Duration `toml:"timeout"`

	URL      string `toml:"url"`
	APIKey   string `toml:"api_key"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Category string `toml:"category"`

	NZBFolder     string `toml:"nzb_folder"`
	StrmFolder    string `toml:"strm_folder"`
	TorrentFolder string `toml:"torrent_folder"`
	WatchFolder   string `toml:"watch_folder"`
}

// IsEnabled reports whether the downloader is enabled. Downloaders are
// enabled unless switched off.
func (d DownloaderConfig) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// Indexer types.
const (
	TypeNewznab = "newznab"
	TypeTorznab = "torznab"
)

// IndexerConfig configures a Newznab or Torznab indexer.
type IndexerConfig struct {
	Type       string        `toml:"type"`
	Enabled    *bool         `toml:"enabled"`
	URL        string        `toml:"url"`
	APIKey     string        `toml:"api_key"`
	Categories []int         `toml:"categories"`
	Timeout    time.Duration `toml:"timeout"`
}

// IsEnabled reports whether the indexer is enabled.
func (i IndexerConfig) IsEnabled() bool {
	return i.Enabled == nil || *i.Enabled
}

// Load reads and parses the configuration file. Unresolved environment
// variables and validation failures are returned together as a *ConfigError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()

	cfgErr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.PollInterval == 0 {
		c.Server.PollInterval = time.Minute
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/fetcharr.db"
	}
	if c.Decision.Parallelism == 0 {
		c.Decision.Parallelism = 4
	}
	for name, p := range c.Quality.Profiles {
		if p.UpgradeAllowed == nil {
			allowed := true
			p.UpgradeAllowed = &allowed
			c.Quality.Profiles[name] = p
		}
	}
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
// Unset variables are left in place and reported.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1] // Strip ${ and }
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		if !slices.Contains(missing, varName) {
			missing = append(missing, varName)
		}
		return match
	})
	return out, missing
}
