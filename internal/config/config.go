// Package config handles configuration loading and the override chain:
// defaults -> config file -> environment variables -> CLI flags.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/contactrack/contactrack/internal/drive"
)

// Valid log levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Config is the on-disk TOML configuration.
type Config struct {
	// DataDir holds the contact database, token file, and sync state.
	DataDir string `toml:"data_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	Google   GoogleConfig   `toml:"google"`
	AutoSync AutoSyncConfig `toml:"autosync"`
}

// GoogleConfig identifies the registered OAuth2 client.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// AutoSyncConfig controls the background sync scheduler.
type AutoSyncConfig struct {
	Enabled bool `toml:"enabled"`

	// IntervalMinutes is the periodic sync cadence.
	IntervalMinutes int `toml:"interval_minutes"`

	// MinIntervalMinutes is the minimum gap since the last successful
	// sync before another attempt is made.
	MinIntervalMinutes int `toml:"min_interval_minutes"`
}

// Scheduler cadence defaults, matching the shipped behavior: a 30 minute
// periodic tick with at least 5 minutes between successful syncs.
const (
	DefaultSyncIntervalMinutes    = 30
	DefaultMinSyncIntervalMinutes = 5
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		DataDir:  DefaultDataDir(),
		LogLevel: "info",
		AutoSync: AutoSyncConfig{
			Enabled:            false,
			IntervalMinutes:    DefaultSyncIntervalMinutes,
			MinIntervalMinutes: DefaultMinSyncIntervalMinutes,
		},
	}
}

// Validate checks invariants on a loaded Config.
func Validate(cfg *Config) error {
	if cfg.LogLevel != "" && !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level %q (expected debug, info, warn, or error)", cfg.LogLevel)
	}

	if cfg.AutoSync.IntervalMinutes < 0 {
		return fmt.Errorf("autosync.interval_minutes must not be negative")
	}

	if cfg.AutoSync.MinIntervalMinutes < 0 {
		return fmt.Errorf("autosync.min_interval_minutes must not be negative")
	}

	return nil
}

// checkUnknownKeys treats unknown config keys as fatal. Silently ignoring a
// typo in a config file leads to hard-to-debug behavior.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}

	return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
}

// Credentials returns the OAuth2 client credentials from the config.
func (c *Config) Credentials() drive.Credentials {
	return drive.Credentials{
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
	}
}
