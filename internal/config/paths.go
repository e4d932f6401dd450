package config

import (
	"os"
	"path/filepath"
)

// appDirName is the per-user directory under the OS config root.
const appDirName = "contactrack"

// configRoot returns the per-user application directory, falling back to a
// dotfile directory under $HOME when the OS config dir cannot be resolved.
func configRoot() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return "." + appDirName
		}

		return filepath.Join(home, "."+appDirName)
	}

	return filepath.Join(dir, appDirName)
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(configRoot(), "config.toml")
}

// DefaultDataDir returns the default location for the contact database,
// token file, and sync state.
func DefaultDataDir() string {
	return configRoot()
}
