package store

import (
	"encoding/json"
	"fmt"

	"github.com/contactrack/contactrack/internal/contacts"
)

// ExportJSON renders the dataset as indented JSON for manual backups.
func ExportJSON(people []contacts.Person) ([]byte, error) {
	data, err := json.MarshalIndent(people, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("store: exporting contacts: %w", err)
	}

	return data, nil
}

// ImportJSON parses a JSON array of contacts, dropping records that lack
// the structural minimum (id, name, relation). A non-array input is an
// error; structurally bad records inside an array are skipped, keeping an
// import usable even when individual entries were hand-edited badly.
func ImportJSON(data []byte) ([]contacts.Person, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("store: import data is not a JSON array: %w", err)
	}

	people := make([]contacts.Person, 0, len(raw))

	for _, msg := range raw {
		var p contacts.Person
		if err := json.Unmarshal(msg, &p); err != nil {
			continue
		}

		if p.ID == "" || p.Name == "" || p.Relation == "" {
			continue
		}

		people = append(people, p)
	}

	return people, nil
}
