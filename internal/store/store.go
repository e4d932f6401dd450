// Package store persists the local contact dataset in SQLite. The engine
// treats the dataset as a single unit: Load returns everything, Save
// replaces everything in one transaction. There are no partial writes —
// sync restore semantics depend on that.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/contactrack/contactrack/internal/contacts"
)

// dirPerms is used when creating the data directory.
const dirPerms = 0o700

// Store is the local contact database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the contact database at path and applies
// pending schema migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return nil, fmt.Errorf("store: creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}

	// Single writer: the dataset is replaced wholesale, never updated
	// concurrently from multiple connections.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("store opened", slog.String("path", path))

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the full dataset in stored order. An empty database yields
// an empty (non-nil) slice.
func (s *Store) Load(ctx context.Context) ([]contacts.Person, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM contacts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("store: querying contacts: %w", err)
	}
	defer rows.Close()

	people := make([]contacts.Person, 0)

	for rows.Next() {
		var data []byte

		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: scanning contact row: %w", err)
		}

		var p contacts.Person
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("store: decoding contact: %w", err)
		}

		people = append(people, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating contacts: %w", err)
	}

	s.logger.Debug("loaded contacts", slog.Int("count", len(people)))

	return people, nil
}

// Save replaces the entire dataset in a single transaction. Either every
// row is written or the previous dataset is left intact.
func (s *Store) Save(ctx context.Context, people []contacts.Person) error {
	if err := contacts.ValidateUnique(people); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM contacts`); err != nil {
		return fmt.Errorf("store: clearing contacts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO contacts (id, position, updated_at, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range people {
		data, jsonErr := json.Marshal(&people[i])
		if jsonErr != nil {
			return fmt.Errorf("store: encoding contact %s: %w", people[i].ID, jsonErr)
		}

		if _, err := stmt.ExecContext(ctx,
			people[i].ID, i, people[i].UpdatedAt.UnixMilli(), data); err != nil {
			return fmt.Errorf("store: inserting contact %s: %w", people[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit save: %w", err)
	}

	s.logger.Debug("saved contacts", slog.Int("count", len(people)))

	return nil
}

// Clear removes all contacts.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM contacts`); err != nil {
		return fmt.Errorf("store: clearing contacts: %w", err)
	}

	return nil
}
