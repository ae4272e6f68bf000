package config

import (
	"fmt"

	"github.com/voltmesh/prodsim/core/store"
)

// StorageConfig selects the results store backend.
type StorageConfig struct {
	// Backend selects the store type: "memory", "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location for file-backed stores.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *StorageConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" && c.Backend != "memory" {
		c.Path = "results." + c.Backend
	}
}

// Validate checks mandatory fields.
func (c StorageConfig) Validate() error {
	switch c.Backend {
	case "memory":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("storage: path is required for backend %s", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("storage: unknown backend %s", c.Backend)
	}
}

// Open returns the configured results store.
func (c StorageConfig) Open() (store.Store, error) {
	switch c.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "jsonl":
		return store.NewJSONLStore(c.Path)
	case "sqlite":
		return store.NewSQLiteStore(c.Path)
	default:
		return nil, fmt.Errorf("storage: unknown backend %s", c.Backend)
	}
}

// APIConfig controls the optional results HTTP API.
type APIConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
	// Token, when set, is required as an Authorization bearer token.
	Token string `json:"token"`
}

// LoggingConfig controls process log output.
type LoggingConfig struct {
	// Level is a zerolog level name: debug, info, warn or error.
	Level string `json:"level"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging: unknown level %s", c.Level)
	}
}
