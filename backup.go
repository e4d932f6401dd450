package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/contactrack/contactrack/internal/backup"
	"github.com/contactrack/contactrack/internal/store"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage Google Drive backups",
	}

	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupCreateCmd())
	cmd.AddCommand(newBackupRestoreCmd())

	return cmd
}

// openRepository builds the session/store/repository stack shared by the
// backup subcommands. Callers must Close the returned store.
func openRepository(cmd *cobra.Command, logger *slog.Logger) (*store.Store, *backup.Repository, error) {
	st, err := store.Open(cmd.Context(), resolvedCfg.DBPath(), logger)
	if err != nil {
		return nil, nil, err
	}

	session := newSession(logger, interactiveLogin)
	if !session.Initialize() {
		st.Close()
		return nil, nil, fmt.Errorf("google api credentials not configured")
	}

	// ListBackups is empty for a signed-out session, so list/restore would
	// report "no backups" to a logged-in user without this.
	if !session.SignIn(cmd.Context()) {
		st.Close()
		return nil, nil, fmt.Errorf("not signed in — run 'contactrack login' first")
	}

	return st, backup.NewRepository(session, st, logger), nil
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups in Google Drive, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()

			st, repo, err := openRepository(cmd, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			descriptors, err := repo.ListBackups(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing backups: %w", err)
			}

			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(descriptors)
			}

			if len(descriptors) == 0 {
				statusf("No backups found.\n")
				return nil
			}

			rows := make([][]string, 0, len(descriptors))
			for _, d := range descriptors {
				rows = append(rows, []string{d.ID, d.Name, formatTime(d.ModifiedTime), formatSize(d.Size)})
			}
			printTable(os.Stdout, []string{"ID", "NAME", "MODIFIED", "SIZE"}, rows)

			return nil
		},
	}
}

func newBackupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Upload a new backup of the local contacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()

			st, repo, err := openRepository(cmd, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			people, err := st.Load(cmd.Context())
			if err != nil {
				return err
			}

			outcome := repo.UploadBackup(cmd.Context(), people)
			if !outcome.Succeeded {
				return fmt.Errorf("%s", outcome.Message)
			}

			statusf("%s\n", outcome.Message)

			return nil
		},
	}
}

func newBackupRestoreCmd() *cobra.Command {
	var latest bool

	cmd := &cobra.Command{
		Use:   "restore [backup-id]",
		Short: "Replace the local contacts with a backup",
		Long: `Downloads the named backup and overwrites the local dataset with it.
With --latest the most recent backup is restored instead of a named one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()

			if latest == (len(args) == 1) {
				return fmt.Errorf("pass either a backup ID or --latest")
			}

			st, repo, err := openRepository(cmd, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			var id string
			if latest {
				descriptors, err := repo.ListBackups(cmd.Context())
				if err != nil {
					return fmt.Errorf("listing backups: %w", err)
				}
				if len(descriptors) == 0 {
					return fmt.Errorf("no backups found")
				}
				id = descriptors[0].ID
			} else {
				id = args[0]
			}

			outcome := repo.RestoreFromBackup(cmd.Context(), id)
			if !outcome.Succeeded {
				return fmt.Errorf("%s", outcome.Message)
			}

			statusf("%s\n", outcome.Message)

			return nil
		},
	}

	cmd.Flags().BoolVar(&latest, "latest", false, "restore the most recent backup")

	return cmd
}
