package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/contactrack/contactrack/internal/contacts"
	"github.com/contactrack/contactrack/internal/store"
)

func newAddCmd() *cobra.Command {
	var (
		lastNameKana  string
		firstNameKana string
		age           int
		grade         int
		education     string
		memo          string
		meetDate      string
		tags          []string
		email         string
		phone         string
		social        string
	)

	cmd := &cobra.Command{
		Use:   "add <last-name> <first-name> <relation>",
		Short: "Add a contact",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			p := contacts.New(args[0], args[1], args[2])
			p.Memo = memo
			p.MeetDate = meetDate
			p.Tags = tags
			p.Education = contacts.Education(education)

			// Fill the kana reading from the name when not given
			// explicitly. Unmapped kanji produce an empty reading,
			// which is left unset.
			p.LastNameKana = lastNameKana
			if p.LastNameKana == "" {
				p.LastNameKana = contacts.ConvertToKana(args[0])
			}
			p.FirstNameKana = firstNameKana
			if p.FirstNameKana == "" {
				p.FirstNameKana = contacts.ConvertToKana(args[1])
			}

			if cmd.Flags().Changed("age") {
				p.Age = &age
			}
			if cmd.Flags().Changed("grade") {
				p.Grade = &grade
			}

			if email != "" || phone != "" || social != "" {
				p.ContactInfo = &contacts.ContactInfo{Email: email, Phone: phone, Social: social}
			}

			people = append(people, p)
			if err := st.Save(ctx, people); err != nil {
				return err
			}

			statusf("Added %s (%s)\n", p.Name, p.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&lastNameKana, "last-kana", "", "phonetic reading of the family name")
	cmd.Flags().StringVar(&firstNameKana, "first-kana", "", "phonetic reading of the given name")
	cmd.Flags().IntVar(&age, "age", 0, "age in years")
	cmd.Flags().IntVar(&grade, "grade", 0, "school year relative to self (+2 senior, -1 junior)")
	cmd.Flags().StringVar(&education, "education", "", "education level")
	cmd.Flags().StringVar(&memo, "memo", "", "free-form note")
	cmd.Flags().StringVar(&meetDate, "meet-date", "", "date first met (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag, repeatable")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&social, "social", "", "social media handle")

	return cmd
}

func newListCmd() *cobra.Command {
	var (
		relations []string
		tags      []string
		minAge    int
		maxAge    int
		sortField string
		sortDesc  bool
		byKana    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
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

			f := contacts.Filter{Relations: relations, Tags: tags}
			if cmd.Flags().Changed("min-age") || cmd.Flags().Changed("max-age") {
				ageRange := &contacts.Range{}
				if cmd.Flags().Changed("min-age") {
					ageRange.Min = &minAge
				}
				if cmd.Flags().Changed("max-age") {
					ageRange.Max = &maxAge
				}
				f.AgeRange = ageRange
			}
			people = f.Apply(people)

			order := contacts.Ascending
			if sortDesc {
				order = contacts.Descending
			}

			if byKana {
				people = contacts.SortByKanaName(people, order)
			} else {
				people = contacts.Sort(people, contacts.SortCriterion{
					Field: contacts.SortField(sortField),
					Order: order,
				})
			}

			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(people)
			}

			rows := make([][]string, 0, len(people))
			for i := range people {
				p := &people[i]
				age := "-"
				if p.Age != nil {
					age = fmt.Sprintf("%d", *p.Age)
				}
				rows = append(rows, []string{p.Name, p.Relation, age, strings.Join(p.Tags, ","), formatTime(p.UpdatedAt)})
			}
			printTable(os.Stdout, []string{"NAME", "RELATION", "AGE", "TAGS", "UPDATED"}, rows)

			statusf("\n%d contact(s)\n", len(people))

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&relations, "relation", nil, "filter by relation, repeatable")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "filter by tag (any match), repeatable")
	cmd.Flags().IntVar(&minAge, "min-age", 0, "filter by minimum age")
	cmd.Flags().IntVar(&maxAge, "max-age", 0, "filter by maximum age")
	cmd.Flags().StringVar(&sortField, "sort", "name", "sort field: name, age, grade, relation, createdAt, updatedAt")
	cmd.Flags().BoolVar(&sortDesc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&byKana, "kana", false, "sort by phonetic reading")

	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id-or-name>",
		Short: "Show a contact in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			p, err := findPerson(people, args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(p)
		},
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id-or-name>",
		Short: "Remove a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			p, err := findPerson(people, args[0])
			if err != nil {
				return err
			}

			kept := people[:0]
			for i := range people {
				if people[i].ID != p.ID {
					kept = append(kept, people[i])
				}
			}

			if err := st.Save(ctx, kept); err != nil {
				return err
			}

			statusf("Removed %s\n", p.Name)

			return nil
		},
	}
}

// findPerson matches by exact ID first, then by display name. A name
// matching more than one contact is an error — use the ID instead.
func findPerson(people []contacts.Person, key string) (*contacts.Person, error) {
	for i := range people {
		if people[i].ID == key {
			return &people[i], nil
		}
	}

	var matches []*contacts.Person
	for i := range people {
		if people[i].Name == key || contacts.DisplayName(people[i].LastName, people[i].FirstName) == key {
			matches = append(matches, &people[i])
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no contact matching %q", key)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%d contacts named %q — use the ID", len(matches), key)
	}
}
