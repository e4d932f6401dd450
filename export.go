package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/contactrack/contactrack/internal/store"
)

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export contacts as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			st, err := store.Open(ctx, resolvedCfg.DBPath(), logger)
			if err != nil {
				return err
			}
			defer st.Close()

			people, err := st.Load(ctx)
			if err != nil {
				return err
			}

			data, err := store.ExportJSON(people)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = os.Stdout.Write(append(data, '\n'))
				return err
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}

			statusf("Exported %d contact(s) to %s\n", len(people), output)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func newImportCmd() *cobra.Command {
	var merge bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import contacts from a JSON file",
		Long: `Reads a JSON array of contacts and replaces the local dataset with it.
With --merge, imported contacts are appended instead; records whose ID
already exists locally are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			imported, err := store.ImportJSON(data)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			st, err := store.Open(ctx, resolvedCfg.DBPath(), logger)
			if err != nil {
				return err
			}
			defer st.Close()

			people := imported
			skipped := 0

			if merge {
				existing, err := st.Load(ctx)
				if err != nil {
					return err
				}

				seen := make(map[string]bool, len(existing))
				for i := range existing {
					seen[existing[i].ID] = true
				}

				people = existing
				for i := range imported {
					if seen[imported[i].ID] {
						skipped++
						continue
					}
					people = append(people, imported[i])
				}
			}

			if err := st.Save(ctx, people); err != nil {
				return err
			}

			statusf("Imported %d contact(s)", len(imported)-skipped)
			if skipped > 0 {
				statusf(" (%d duplicate(s) skipped)", skipped)
			}
			statusf("\n")

			return nil
		},
	}

	cmd.Flags().BoolVar(&merge, "merge", false, "append to the existing dataset instead of replacing it")

	return cmd
}
