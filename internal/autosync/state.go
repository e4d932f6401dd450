package autosync

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// State is the persisted scheduler state.
type State struct {
	Enabled bool `json:"enabled"`
}

const statePerms = 0o600

// stateFile persists scheduler state as JSON. Load and save are
// best-effort: a missing or unreadable file degrades to defaults, and a
// failed write is logged, never fatal — losing the toggle across restarts
// is an annoyance, not data loss.
type stateFile struct {
	path   string
	logger *slog.Logger
}

func newStateFile(path string, logger *slog.Logger) *stateFile {
	return &stateFile{path: path, logger: logger}
}

func (f *stateFile) load() State {
	if f.path == "" {
		return State{}
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("reading auto-sync state failed", slog.String("error", err.Error()))
		}

		return State{}
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		f.logger.Warn("decoding auto-sync state failed", slog.String("error", err.Error()))
		return State{}
	}

	return st
}

func (f *stateFile) save(st State) {
	if f.path == "" {
		return
	}

	data, err := json.Marshal(st)
	if err != nil {
		f.logger.Warn("encoding auto-sync state failed", slog.String("error", err.Error()))
		return
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		f.logger.Warn("creating state directory failed", slog.String("error", err.Error()))
		return
	}

	if err := os.WriteFile(f.path, data, statePerms); err != nil {
		f.logger.Warn("writing auto-sync state failed", slog.String("error", err.Error()))
	}
}
