package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/contactrack/contactrack/internal/drive"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. This supports the zero-config
// first-run experience.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// CLIOverrides holds values from command-line flags, the highest layer of
// the override chain.
type CLIOverrides struct {
	ConfigPath string
	DataDir    string
}

// Resolved is the effective configuration after applying all override layers.
type Resolved struct {
	DataDir         string
	LogLevel        string
	Credentials     drive.Credentials
	AutoSyncEnabled bool
	SyncInterval    time.Duration
	MinSyncInterval time.Duration
}

// TokenPath returns the saved OAuth token file location.
func (r *Resolved) TokenPath() string {
	return filepath.Join(r.DataDir, "token.json")
}

// DBPath returns the contact database location.
func (r *Resolved) DBPath() string {
	return filepath.Join(r.DataDir, "contacts.db")
}

// AutoSyncStatePath returns the scheduler state file location.
func (r *Resolved) AutoSyncStatePath() string {
	return filepath.Join(r.DataDir, "autosync.json")
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
// The precedence order ensures CLI flags always win, matching user
// expectations for one-off overrides without editing the config file.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	resolved := &Resolved{
		DataDir:         cfg.DataDir,
		LogLevel:        cfg.LogLevel,
		Credentials:     cfg.Credentials(),
		AutoSyncEnabled: cfg.AutoSync.Enabled,
		SyncInterval:    time.Duration(cfg.AutoSync.IntervalMinutes) * time.Minute,
		MinSyncInterval: time.Duration(cfg.AutoSync.MinIntervalMinutes) * time.Minute,
	}

	// Env overrides.
	if env.DataDir != "" {
		resolved.DataDir = env.DataDir
	}

	if env.LogLevel != "" {
		resolved.LogLevel = env.LogLevel
	}

	if env.GoogleClientID != "" {
		resolved.Credentials.ClientID = env.GoogleClientID
	}

	if env.GoogleClientSecret != "" {
		resolved.Credentials.ClientSecret = env.GoogleClientSecret
	}

	// CLI overrides (highest priority).
	if cli.DataDir != "" {
		resolved.DataDir = cli.DataDir
	}

	if resolved.LogLevel != "" && !validLogLevels[resolved.LogLevel] {
		return nil, fmt.Errorf("invalid log level %q", resolved.LogLevel)
	}

	return resolved, nil
}
