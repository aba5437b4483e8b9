// Package config loads engine-level settings from lockplane.toml and
// .env files, generalizing internal/config/config.go and
// internal/config/environment.go from CLI-project configuration
// (multi-phase migration defaults, per-environment postgres URLs) to
// the core engine's own settings: default dialect, default schema
// name, and a shadow-database URL.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const configFileName = "lockplane.toml"

// Config is the parsed shape of lockplane.toml.
type Config struct {
	DatabaseURL       string `toml:"database_url"`
	ShadowDatabaseURL string `toml:"shadow_database_url"`
	SchemaPath        string `toml:"schema_path"`
	DefaultDialect    string `toml:"default_dialect"`
	DefaultSchemaName string `toml:"default_schema_name"`

	path string
}

// Load walks up from the current directory looking for lockplane.toml,
// mirroring getConfigPath walk-to-project-root. Returns
// an empty Config, not an error, when none is found: the engine's
// callers are expected to fall back to explicit flags/env vars.
func Load() (*Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	for {
		path := filepath.Join(dir, configFileName)
		if _, statErr := os.Stat(path); statErr == nil {
			data, readErr := os.ReadFile(path)
			if readErr != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, readErr)
			}
			var cfg Config
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
			cfg.path = path
			return &cfg, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return &Config{}, nil
}

// Dir returns the directory lockplane.toml was loaded from, or "" for
// an empty (not-found) Config.
func (c *Config) Dir() string {
	if c == nil || c.path == "" {
		return ""
	}
	return filepath.Dir(c.path)
}

// LoadDotenv reads a .env file (if present) into the process
// environment without overriding variables already set, matching the
// teacher's use of godotenv.Read for per-environment dotenv files.
func LoadDotenv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	for k, v := range values {
		if _, already := os.LookupEnv(k); !already {
			os.Setenv(k, v)
		}
	}
	return nil
}

// ResolveDatabaseURL resolves the database URL with the priority
// explicit flag > env var > config file > fallback.
func (c *Config) ResolveDatabaseURL(explicit, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	if c != nil && c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fallback
}

// ResolveShadowURL resolves the shadow-database URL with the same
// priority as DatabaseURL.
func (c *Config) ResolveShadowURL(explicit, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv("SHADOW_DATABASE_URL"); v != "" {
		return v
	}
	if c != nil && c.ShadowDatabaseURL != "" {
		return c.ShadowDatabaseURL
	}
	return fallback
}

// SchemaDir resolves the declarative-model directory with priority
// explicit > config > default.
func (c *Config) SchemaDir(explicit, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if c != nil && c.SchemaPath != "" {
		return c.SchemaPath
	}
	return fallback
}
