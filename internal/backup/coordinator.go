package backup

import (
	"context"
	"log/slog"

	"github.com/contactrack/contactrack/internal/contacts"
)

// RepositoryAPI is what the coordinator needs from the backup repository.
// *Repository satisfies it; tests substitute a fake.
type RepositoryAPI interface {
	ListBackups(ctx context.Context) ([]Descriptor, error)
	UploadBackup(ctx context.Context, people []contacts.Person) Outcome
	DownloadBackup(ctx context.Context, descriptorID string) ([]contacts.Person, error)
	RestoreFromBackup(ctx context.Context, descriptorID string) Outcome
}

// Coordinator implements the sync decision procedure: given the local
// dataset and the remote backup store, push, pull, or fail — atomically
// from the caller's point of view (a resolution is never partially
// applied).
type Coordinator struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

// NewCoordinator creates a Coordinator over the given repository.
func NewCoordinator(repo RepositoryAPI, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{repo: repo, logger: logger}
}

// SyncWithLocal reconciles the local dataset against the newest remote
// snapshot using last-writer-wins at whole-dataset granularity:
//
//  1. No remote backups at all — first sync: upload unconditionally, no
//     resolution (nothing to reconcile against).
//  2. Newest snapshot's payload unreadable — fail. Never fall back to
//     uploading: that could silently overwrite a remote snapshot newer
//     than what a transient failure hid.
//  3. Compare max(UpdatedAt) over local contacts against the descriptor's
//     remote last-modified time. The store's own clock is authoritative —
//     snapshot-internal capture times are client-supplied and not trusted.
//  4. Local strictly newer: upload, kept-local. Otherwise (remote newer or
//     equal): restore, kept-remote. Ties resolve toward remote — equality
//     typically means "already in sync", and the remote side is the one
//     the user is least likely to be actively editing.
//
// An empty local dataset never wins the comparison.
func (c *Coordinator) SyncWithLocal(ctx context.Context, people []contacts.Person) Outcome {
	backups, err := c.repo.ListBackups(ctx)
	if err != nil {
		c.logger.Error("sync: listing backups failed", slog.String("error", err.Error()))
		return failure("could not reach Google Drive")
	}

	if len(backups) == 0 {
		c.logger.Info("sync: no remote backups, uploading local dataset",
			slog.Int("contacts", len(people)))

		return c.repo.UploadBackup(ctx, people)
	}

	latest := newestDescriptor(backups)

	remotePeople, err := c.repo.DownloadBackup(ctx, latest.ID)
	if err != nil || remotePeople == nil {
		if err != nil {
			c.logger.Error("sync: downloading newest backup failed",
				slog.String("file_id", latest.ID),
				slog.String("error", err.Error()),
			)
		}

		return failure("could not retrieve the remote backup")
	}

	localTS := contacts.MaxUpdatedAt(people)
	remoteTS := latest.ModifiedTime

	c.logger.Info("sync: comparing timestamps",
		slog.Time("local", localTS),
		slog.Time("remote", remoteTS),
		slog.Int("local_contacts", len(people)),
		slog.Int("remote_contacts", len(remotePeople)),
	)

	if localTS.After(remoteTS) {
		out := c.repo.UploadBackup(ctx, people)
		out.Resolution = KeptLocal

		return out
	}

	out := c.repo.RestoreFromBackup(ctx, latest.ID)
	out.Resolution = KeptRemote

	return out
}

// newestDescriptor picks the descriptor with the latest remote
// last-modified time. The repository already orders its listing, but the
// decision is re-derived here so conflict resolution never rests on a
// collaborator's ordering.
func newestDescriptor(backups []Descriptor) Descriptor {
	latest := backups[0]

	for _, d := range backups[1:] {
		if d.ModifiedTime.After(latest.ModifiedTime) {
			latest = d
		}
	}

	return latest
}
