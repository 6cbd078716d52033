package config

import (
	"fmt"
	"strings"
)

// ConfigError aggregates everything wrong with a config file so it can be
// fixed in one pass.
type ConfigError struct {
	Path    string   // Config file path
	Missing []string // Unresolved environment variables
	Errors  []string // Validation errors
}

func (e *ConfigError) Error() string {
	if !e.HasErrors() {
		return ""
	}

	parts := []string{fmt.Sprintf("invalid config %s:", e.Path)}
	if len(e.Missing) > 0 {
		parts = append(parts, "  missing environment variables: "+strings.Join(e.Missing, ", "))
	}
	for _, err := range e.Errors {
		parts = append(parts, "  - "+err)
	}
	return strings.Join(parts, "\n")
}

// HasErrors returns true if there are any errors.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}
