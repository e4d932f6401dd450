package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/contactrack/contactrack/internal/autosync"
	"github.com/contactrack/contactrack/internal/backup"
	"github.com/contactrack/contactrack/internal/store"
)

func newWatchCmd() *cobra.Command {
	var toggle bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the auto-sync scheduler in the foreground",
		Long: `Keeps the local contacts and the Drive backup in sync: syncs on a
fixed interval, when the store file changes on disk, and when
connectivity returns after an outage. Requires an existing login —
the scheduler never opens a browser. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := store.Open(ctx, resolvedCfg.DBPath(), logger)
			if err != nil {
				return err
			}
			defer st.Close()

			// No LoginFunc: an expired or missing token surfaces as a
			// skipped sync, not a browser popup from a daemon.
			session := newSession(logger, nil)
			if !session.Initialize() {
				return fmt.Errorf("google api credentials not configured")
			}

			repo := backup.NewRepository(session, st, logger)
			coord := backup.NewCoordinator(repo, logger)

			scheduler := autosync.New(autosync.Options{
				Syncer:      coord,
				Session:     session,
				Loader:      st,
				Interval:    resolvedCfg.SyncInterval,
				MinInterval: resolvedCfg.MinSyncInterval,
				StatePath:   resolvedCfg.AutoSyncStatePath(),
				WatchPath:   resolvedCfg.DBPath(),
				Logger:      logger,
			})

			if toggle {
				enabled := scheduler.Toggle()
				if enabled {
					statusf("Auto-sync enabled.\n")
				} else {
					statusf("Auto-sync disabled.\n")
				}

				return nil
			}

			if !scheduler.Enabled() {
				statusf("Auto-sync is disabled — enable it with 'contactrack watch --toggle'.\n")
				return nil
			}

			if !session.SignIn(ctx) {
				return fmt.Errorf("not signed in — run 'contactrack login' first")
			}

			statusf("Watching for changes (interval %s). Ctrl-C to stop.\n", resolvedCfg.SyncInterval)

			return scheduler.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&toggle, "toggle", false, "flip the persisted auto-sync enabled flag and exit")

	return cmd
}
