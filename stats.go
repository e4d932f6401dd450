package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/contactrack/contactrack/internal/contacts"
	"github.com/contactrack/contactrack/internal/store"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show statistics about the contact dataset",
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, _ []string) error {
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

	report := contacts.BuildReport(people)

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(report)
	}

	fmt.Printf("Contacts: %d\n", report.Basic.TotalPeople)
	fmt.Printf("Most common relation: %s\n", report.Basic.MostCommonRelation)
	if report.Basic.AverageAge > 0 {
		fmt.Printf("Average age: %.1f (min %d, max %d)\n",
			report.Basic.AverageAge, report.Basic.MinAge, report.Basic.MaxAge)
	}

	if len(report.Relations) > 0 {
		fmt.Println("\nRelations:")
		for _, r := range report.Relations {
			fmt.Printf("  %-12s %4d  (%d%%)\n", r.Relation, r.Count, r.Percentage)
		}
	}

	if len(report.Ages) > 0 {
		fmt.Println("\nAge distribution:")
		for _, b := range report.Ages {
			fmt.Printf("  %-8s %4d\n", b.Range, b.Count)
		}
	}

	if len(report.Grades) > 0 {
		fmt.Println("\nGrades:")
		for _, g := range report.Grades {
			fmt.Printf("  %-8s %4d\n", g.Label, g.Count)
		}
	}

	if len(report.Tags) > 0 {
		fmt.Println("\nTop tags:")
		for _, t := range report.Tags {
			fmt.Printf("  %-12s %4d  (%.1f%%)\n", t.Tag, t.Count, t.Percentage)
		}
	}

	c := report.Completeness
	fmt.Printf("\nContact info: %d with email (%d%%), %d with phone (%d%%), %d with social (%d%%)\n",
		c.WithEmail, c.EmailPercentage, c.WithPhone, c.PhonePercentage, c.WithSocial, c.SocialPercentage)

	return nil
}
