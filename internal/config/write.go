package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed default_config.toml
var defaultConfig string

// ErrConfigExists is returned by WriteDefault when the file already exists.
var ErrConfigExists = errors.New("config file already exists")

// WriteDefault writes the example config to path, creating parent
// directories. An existing file is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfig), 0o644)
}
