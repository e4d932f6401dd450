package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/contactrack/contactrack/internal/backup"
	"github.com/contactrack/contactrack/internal/drive"
	"github.com/contactrack/contactrack/internal/store"
)

// newSession wires a backup session from the resolved config. loginFn may
// be nil for commands that only consume an existing token.
func newSession(logger *slog.Logger, loginFn backup.LoginFunc) *backup.Session {
	return backup.NewSession(backup.SessionOptions{
		Credentials: resolvedCfg.Credentials,
		TokenPath:   resolvedCfg.TokenPath(),
		HTTPClient:  defaultHTTPClient(),
		Login:       loginFn,
		Logger:      logger,
	})
}

// interactiveLogin is the LoginFunc for commands allowed to open a browser.
func interactiveLogin(ctx context.Context, creds drive.Credentials, tokenPath string) (drive.TokenSource, error) {
	loginCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	return drive.Login(loginCtx, creds, tokenPath, openBrowser, slog.Default())
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize local contacts with the Google Drive backup",
		Long: `Compares the local dataset against the most recent Drive backup and
keeps the newer side: the local data is uploaded when it was modified
after the latest backup, otherwise the backup replaces the local data.
A first sync with no remote backups uploads the local data as-is.`,
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	st, err := store.Open(ctx, resolvedCfg.DBPath(), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	session := newSession(logger, interactiveLogin)
	if !session.Initialize() {
		return fmt.Errorf("google api credentials not configured — run 'contactrack login --help' for setup instructions")
	}

	// Sign in before the coordinator runs: a signed-out session lists no
	// remote backups, which would misread every run as a first sync and
	// upload over a newer remote snapshot.
	if !session.SignIn(ctx) {
		return fmt.Errorf("could not sign in to Google Drive — run 'contactrack login' first")
	}

	repo := backup.NewRepository(session, st, logger)
	coord := backup.NewCoordinator(repo, logger)

	people, err := st.Load(ctx)
	if err != nil {
		return err
	}

	outcome := coord.SyncWithLocal(ctx, people)
	if !outcome.Succeeded {
		return fmt.Errorf("sync failed: %s", outcome.Message)
	}

	switch outcome.Resolution {
	case backup.KeptLocal:
		statusf("Local data was newer — uploaded a fresh backup.\n")
	case backup.KeptRemote:
		statusf("Remote backup was newer — restored it locally.\n")
	default:
		statusf("%s\n", outcome.Message)
	}

	return nil
}
