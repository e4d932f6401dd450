package backup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/contactrack/contactrack/internal/drive"
)

// FolderLocator ensures the dedicated backup folder exists in the remote
// drive, idempotently. It never deletes or deduplicates folders: when
// duplicates exist (the accepted cross-process creation race), the first
// match wins and stays the target until the remote listing order changes.
type FolderLocator struct {
	api    DriveAPI
	logger *slog.Logger
}

// NewFolderLocator creates a locator over the given Drive API.
func NewFolderLocator(api DriveAPI, logger *slog.Logger) *FolderLocator {
	if logger == nil {
		logger = slog.Default()
	}

	return &FolderLocator{api: api, logger: logger}
}

// GetOrCreate returns the backup folder ID, creating the folder when no
// non-trashed folder with the reserved name exists. An error means sync is
// unavailable this attempt — callers must not treat it as fatal to the
// application, and no state has changed.
//
// Concurrent callers may both observe "not found" and both create a
// folder; the design accepts eventual duplicates rather than imposing a
// distributed lock.
func (l *FolderLocator) GetOrCreate(ctx context.Context) (string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false",
		FolderName, drive.FolderMimeType)

	files, err := l.api.ListFiles(ctx, query)
	if err != nil {
		return "", fmt.Errorf("backup: querying backup folder: %w", err)
	}

	if len(files) > 0 {
		l.logger.Debug("backup folder found",
			slog.String("folder_id", files[0].ID),
			slog.Int("matches", len(files)),
		)

		return files[0].ID, nil
	}

	folder, err := l.api.CreateFolder(ctx, FolderName)
	if err != nil {
		return "", fmt.Errorf("backup: creating backup folder: %w", err)
	}

	l.logger.Info("created backup folder", slog.String("folder_id", folder.ID))

	return folder.ID, nil
}
