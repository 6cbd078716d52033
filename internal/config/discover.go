package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigPath names the environment variable that overrides discovery.
const EnvConfigPath = "FETCHARR_CONFIG"

// ErrConfigNotFound is returned by Discover when no candidate path exists.
var ErrConfigNotFound = errors.New("config not found")

// DefaultPath is where init writes and where Discover looks after the
// working directory: $XDG_CONFIG_HOME/fetcharr/config.toml, falling back to
// ~/.config.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "fetcharr", "config.toml")
}

// SearchPaths lists the locations Discover tries when FETCHARR_CONFIG is unset.
func SearchPaths() []string {
	return []string{"config.toml", DefaultPath(), "/etc/fetcharr/config.toml"}
}

// Discover returns the config file to load. FETCHARR_CONFIG wins and must
// name a regular file; otherwise the first existing entry of SearchPaths.
func Discover() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		if err := checkFile(p); err != nil {
			return "", fmt.Errorf("%s=%s: %w", EnvConfigPath, p, err)
		}
		return p, nil
	}

	paths := SearchPaths()
	for _, p := range paths {
		if checkFile(p) == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (tried %s)", ErrConfigNotFound, strings.Join(paths, ", "))
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
