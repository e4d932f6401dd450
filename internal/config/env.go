package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvOverrides holds values derived from environment variables. These sit
// between the config file and CLI flags in the override chain. The Google
// credential variables use the conventional unprefixed names so existing
// GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET exports keep working.
type EnvOverrides struct {
	ConfigPath         string `env:"CONTACTRACK_CONFIG"`
	DataDir            string `env:"CONTACTRACK_DATA_DIR"`
	LogLevel           string `env:"CONTACTRACK_LOG_LEVEL"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
}

// ReadEnvOverrides parses environment variables into an EnvOverrides.
// This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() (EnvOverrides, error) {
	var e EnvOverrides
	if err := env.Parse(&e); err != nil {
		return EnvOverrides{}, fmt.Errorf("parsing environment overrides: %w", err)
	}

	return e, nil
}
