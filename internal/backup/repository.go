package backup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/contactrack/contactrack/internal/contacts"
)

// SessionAPI is what the repository needs from the session. *Session
// satisfies it; tests substitute a fake.
type SessionAPI interface {
	SignIn(ctx context.Context) bool
	SignedIn() bool
	API() DriveAPI
}

// LocalStore is the local dataset collaborator. The engine only ever reads
// the whole dataset or replaces the whole dataset — never partial writes.
// *store.Store satisfies it.
type LocalStore interface {
	Load(ctx context.Context) ([]contacts.Person, error)
	Save(ctx context.Context, people []contacts.Person) error
}

// Descriptor is the remote-side listing metadata for a snapshot, without
// its payload — cheap to enumerate.
type Descriptor struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ModifiedTime time.Time `json:"modifiedTime"`
	Size         int64     `json:"size,omitempty"`
}

// Repository lists, uploads, and downloads versioned backup snapshots
// inside the remote backup folder.
type Repository struct {
	session SessionAPI
	local   LocalStore
	logger  *slog.Logger

	// now is the capture clock for snapshots. Tests pin it.
	now func() time.Time
}

// NewRepository creates a Repository over the given session and local store.
func NewRepository(session SessionAPI, local LocalStore, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}

	return &Repository{
		session: session,
		local:   local,
		logger:  logger,
		now:     time.Now,
	}
}

// locator builds a FolderLocator over the session's current API.
func (r *Repository) locator() *FolderLocator {
	return NewFolderLocator(r.session.API(), r.logger)
}

// ListBackups returns descriptors for all backup snapshots, newest first
// by the remote last-modified time. The ordering is applied client-side —
// the store's response order is never trusted. Returns an empty slice (not
// an error) when the session is unauthenticated.
func (r *Repository) ListBackups(ctx context.Context) ([]Descriptor, error) {
	if !r.session.SignedIn() {
		return []Descriptor{}, nil
	}

	folderID, err := r.locator().GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}

	files, err := r.session.API().ListFiles(ctx, listQuery(folderID))
	if err != nil {
		return nil, fmt.Errorf("backup: listing backups: %w", err)
	}

	descriptors := make([]Descriptor, 0, len(files))
	for i := range files {
		descriptors = append(descriptors, Descriptor{
			ID:           files[i].ID,
			Name:         files[i].Name,
			ModifiedTime: files[i].ModifiedTime,
			Size:         files[i].Size,
		})
	}

	sort.SliceStable(descriptors, func(i, j int) bool {
		return descriptors[i].ModifiedTime.After(descriptors[j].ModifiedTime)
	})

	return descriptors, nil
}

// UploadBackup captures the dataset into a new snapshot and transmits it.
// Triggers interactive sign-in when needed. The outcome message embeds the
// record count on success; failures carry a generic message with the cause
// logged, never surfaced.
func (r *Repository) UploadBackup(ctx context.Context, people []contacts.Person) Outcome {
	if !r.session.SignIn(ctx) {
		return failure("could not sign in to Google Drive")
	}

	folderID, err := r.locator().GetOrCreate(ctx)
	if err != nil {
		r.logger.Error("backup folder unavailable", slog.String("error", err.Error()))
		return failure("could not create the backup folder")
	}

	capturedAt := r.now()
	snap := NewSnapshot(people, capturedAt)

	content, err := snap.Encode()
	if err != nil {
		r.logger.Error("snapshot encoding failed", slog.String("error", err.Error()))
		return failure("backup failed")
	}

	name := FileName(capturedAt)
	description := fmt.Sprintf("ContacTrack backup created on %s", capturedAt.UTC().Format(time.RFC3339))

	file, err := r.session.API().UploadMultipart(ctx, name, folderID, description, "application/json", content)
	if err != nil {
		r.logger.Error("backup upload failed",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)

		return failure("uploading the backup failed")
	}

	r.logger.Info("backup uploaded",
		slog.String("file_id", file.ID),
		slog.String("name", name),
		slog.Int("contacts", len(people)),
	)

	return success(fmt.Sprintf("backup complete (%d contacts)", len(people)))
}

// DownloadBackup fetches a snapshot body by descriptor ID and parses it.
// A body that does not minimally satisfy the snapshot shape (no people
// array) yields (nil, nil) — a data-integrity guard against
// partially-written or foreign files, not an error. Network and API
// failures return an error.
func (r *Repository) DownloadBackup(ctx context.Context, descriptorID string) ([]contacts.Person, error) {
	body, err := r.session.API().Download(ctx, descriptorID)
	if err != nil {
		return nil, fmt.Errorf("backup: downloading snapshot %s: %w", descriptorID, err)
	}

	people := ParseSnapshot(body)
	if people == nil {
		r.logger.Warn("downloaded backup has invalid format",
			slog.String("file_id", descriptorID))

		return nil, nil
	}

	return people, nil
}

// RestoreFromBackup downloads a snapshot and replaces the entire local
// dataset with its contents (full overwrite, not a merge). On any download
// failure the local dataset is left untouched.
func (r *Repository) RestoreFromBackup(ctx context.Context, descriptorID string) Outcome {
	people, err := r.DownloadBackup(ctx, descriptorID)
	if err != nil {
		r.logger.Error("restore download failed",
			slog.String("file_id", descriptorID),
			slog.String("error", err.Error()),
		)

		return failure("could not read the backup data")
	}

	if people == nil {
		return failure("could not read the backup data")
	}

	if err := r.local.Save(ctx, people); err != nil {
		r.logger.Error("restore save failed", slog.String("error", err.Error()))
		return failure("saving restored contacts failed")
	}

	r.logger.Info("restored from backup",
		slog.String("file_id", descriptorID),
		slog.Int("contacts", len(people)),
	)

	return success(fmt.Sprintf("restore complete (%d contacts)", len(people)))
}
