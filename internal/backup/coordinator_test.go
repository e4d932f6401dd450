package backup

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactrack/contactrack/internal/contacts"
)

func TestSyncWithLocal_FirstSyncUploads(t *testing.T) {
	repo := &fakeRepo{uploadOutcome: success("backup complete (1 contacts)")}
	coord := NewCoordinator(repo, slog.Default())

	people := []contacts.Person{person("Tanaka", time.Now().UTC())}

	out := coord.SyncWithLocal(context.Background(), people)
	require.True(t, out.Succeeded)
	assert.Equal(t, ResolutionNone, out.Resolution, "first sync has nothing to reconcile")
	require.Len(t, repo.uploads, 1)
	assert.Empty(t, repo.restores)
}

func TestSyncWithLocal_FirstSyncEmptyDataset(t *testing.T) {
	repo := &fakeRepo{uploadOutcome: success("backup complete (0 contacts)")}
	coord := NewCoordinator(repo, slog.Default())

	out := coord.SyncWithLocal(context.Background(), nil)
	require.True(t, out.Succeeded)
	require.Len(t, repo.uploads, 1)
}

func TestSyncWithLocal_ListFailure(t *testing.T) {
	repo := &fakeRepo{listErr: errors.New("offline")}
	coord := NewCoordinator(repo, slog.Default())

	out := coord.SyncWithLocal(context.Background(), nil)
	assert.False(t, out.Succeeded)
	assert.Equal(t, "could not reach Google Drive", out.Message)
	assert.Empty(t, repo.uploads)
	assert.Empty(t, repo.restores)
}

func TestSyncWithLocal_LocalNewerUploads(t *testing.T) {
	remoteTS := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	localTS := remoteTS.Add(time.Hour)

	repo := &fakeRepo{
		backups:       []Descriptor{{ID: "b1", ModifiedTime: remoteTS}},
		payloads:      map[string][]contacts.Person{"b1": {person("Remote", remoteTS)}},
		uploadOutcome: success("backup complete (1 contacts)"),
	}
	coord := NewCoordinator(repo, slog.Default())

	people := []contacts.Person{person("Local", localTS)}

	out := coord.SyncWithLocal(context.Background(), people)
	require.True(t, out.Succeeded)
	assert.Equal(t, KeptLocal, out.Resolution)
	require.Len(t, repo.uploads, 1)
	assert.Empty(t, repo.restores)
}

func TestSyncWithLocal_RemoteNewerRestores(t *testing.T) {
	localTS := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	remoteTS := localTS.Add(time.Hour)

	repo := &fakeRepo{
		backups:        []Descriptor{{ID: "b1", ModifiedTime: remoteTS}},
		payloads:       map[string][]contacts.Person{"b1": {person("Remote", remoteTS)}},
		restoreOutcome: success("restore complete (1 contacts)"),
	}
	coord := NewCoordinator(repo, slog.Default())

	people := []contacts.Person{person("Local", localTS)}

	out := coord.SyncWithLocal(context.Background(), people)
	require.True(t, out.Succeeded)
	assert.Equal(t, KeptRemote, out.Resolution)
	require.Len(t, repo.restores, 1)
	assert.Equal(t, "b1", repo.restores[0])
	assert.Empty(t, repo.uploads)
}

func TestSyncWithLocal_TieKeepsRemote(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	repo := &fakeRepo{
		backups:        []Descriptor{{ID: "b1", ModifiedTime: ts}},
		payloads:       map[string][]contacts.Person{"b1": {person("Remote", ts)}},
		restoreOutcome: success("restore complete (1 contacts)"),
	}
	coord := NewCoordinator(repo, slog.Default())

	people := []contacts.Person{person("Local", ts)}

	out := coord.SyncWithLocal(context.Background(), people)
	require.True(t, out.Succeeded)
	assert.Equal(t, KeptRemote, out.Resolution, "equal timestamps resolve toward remote")
	assert.Empty(t, repo.uploads)
}

func TestSyncWithLocal_EmptyLocalNeverWins(t *testing.T) {
	remoteTS := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	repo := &fakeRepo{
		backups:        []Descriptor{{ID: "b1", ModifiedTime: remoteTS}},
		payloads:       map[string][]contacts.Person{"b1": {person("Remote", remoteTS)}},
		restoreOutcome: success("restore complete (1 contacts)"),
	}
	coord := NewCoordinator(repo, slog.Default())

	// Empty dataset has a zero max timestamp; the remote side wins even
	// though the backup is old.
	out := coord.SyncWithLocal(context.Background(), nil)
	require.True(t, out.Succeeded)
	assert.Equal(t, KeptRemote, out.Resolution)
	require.Len(t, repo.restores, 1)
	assert.Empty(t, repo.uploads)
}

func TestSyncWithLocal_DownloadFailureNeverFallsBackToUpload(t *testing.T) {
	remoteTS := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	repo := &fakeRepo{
		backups: []Descriptor{{ID: "b1", ModifiedTime: remoteTS}},
		dlErr:   errors.New("timeout"),
	}
	coord := NewCoordinator(repo, slog.Default())

	// Local is much newer, but a failed download must not turn into an
	// upload that could clobber a backup the failure was hiding.
	people := []contacts.Person{person("Local", remoteTS.Add(24 * time.Hour))}

	out := coord.SyncWithLocal(context.Background(), people)
	assert.False(t, out.Succeeded)
	assert.Equal(t, "could not retrieve the remote backup", out.Message)
	assert.Empty(t, out.Resolution)
	assert.Empty(t, repo.uploads, "no upload fallback on download failure")
	assert.Empty(t, repo.restores)
}

func TestSyncWithLocal_MalformedNewestBackupFails(t *testing.T) {
	remoteTS := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// DownloadBackup reports a malformed snapshot as (nil, nil).
	repo := &fakeRepo{
		backups:  []Descriptor{{ID: "b1", ModifiedTime: remoteTS}},
		payloads: map[string][]contacts.Person{},
	}
	coord := NewCoordinator(repo, slog.Default())

	out := coord.SyncWithLocal(context.Background(), nil)
	assert.False(t, out.Succeeded)
	assert.Equal(t, "could not retrieve the remote backup", out.Message)
	assert.Empty(t, repo.uploads)
}

func TestSyncWithLocal_PicksNewestAcrossUnorderedListing(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	t3 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	repo := &fakeRepo{
		// Deliberately unsorted: the coordinator re-derives the newest.
		backups: []Descriptor{
			{ID: "mid", ModifiedTime: t2},
			{ID: "new", ModifiedTime: t3},
			{ID: "old", ModifiedTime: t1},
		},
		payloads:       map[string][]contacts.Person{"new": {person("Remote", t3)}},
		restoreOutcome: success("restore complete (1 contacts)"),
	}
	coord := NewCoordinator(repo, slog.Default())

	out := coord.SyncWithLocal(context.Background(), nil)
	require.True(t, out.Succeeded)
	require.Len(t, repo.restores, 1)
	assert.Equal(t, "new", repo.restores[0])
}

func TestSyncWithLocal_ResolutionTaggedOnFailedUpload(t *testing.T) {
	remoteTS := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	repo := &fakeRepo{
		backups:       []Descriptor{{ID: "b1", ModifiedTime: remoteTS}},
		payloads:      map[string][]contacts.Person{"b1": {person("Remote", remoteTS)}},
		uploadOutcome: failure("uploading the backup failed"),
	}
	coord := NewCoordinator(repo, slog.Default())

	people := []contacts.Person{person("Local", remoteTS.Add(time.Hour))}

	// The resolution reflects the decision taken, not whether the action
	// it triggered succeeded.
	out := coord.SyncWithLocal(context.Background(), people)
	assert.False(t, out.Succeeded)
	assert.Equal(t, KeptLocal, out.Resolution)
}
