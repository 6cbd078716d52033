package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/fetcharr/internal/config"
)

var version = "dev"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "fetcharr",
	Short: "Release decisions and download client tracking",
	Long: `fetcharr - release decisions and download client tracking

Evaluates releases against quality profiles, history and the download queue,
hands accepted releases to SABnzbd, qBittorrent or a watch folder, and keeps
their status in sync.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: discovered)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("fetcharr {{.Version}}\n")
}

// loadConfig loads the --config file, or the discovered one.
func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		found, err := config.Discover()
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, "", fmt.Errorf("%w; run 'fetcharr init' to create one", err)
		}
		if err != nil {
			return nil, "", err
		}
		path = found
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level := cfg.Server.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
