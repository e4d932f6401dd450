package backup

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/contactrack/contactrack/internal/contacts"
)

// FormatVersion is the snapshot wire format version. Part of the durable
// compatibility surface — bump only with a migration story for old readers.
const FormatVersion = "1.0"

// FolderName is the reserved remote backup folder. Changing it orphans
// previously created backups.
const FolderName = "ContacTrack-Backups"

// filePrefix starts every backup artifact name; listing filters on it so
// foreign files dropped into the folder are never picked up as backups.
const filePrefix = "contactrack-backup-"

// Snapshot is the immutable, versioned backup artifact. Once uploaded it
// is never mutated — corrections are new snapshots. The JSON field names
// and the version constant are the durable wire format.
type Snapshot struct {
	Version    string            `json:"version"`
	Timestamp  time.Time         `json:"timestamp"`
	People     []contacts.Person `json:"people"`
	TotalCount int               `json:"totalCount"`
}

// NewSnapshot captures the dataset at the given instant.
func NewSnapshot(people []contacts.Person, capturedAt time.Time) Snapshot {
	return Snapshot{
		Version:    FormatVersion,
		Timestamp:  capturedAt.UTC(),
		People:     people,
		TotalCount: len(people),
	}
}

// Encode renders the snapshot as indented JSON for upload.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("backup: encoding snapshot: %w", err)
	}

	return data, nil
}

// ParseSnapshot decodes a downloaded body and validates the minimal
// snapshot shape: a body without a "people" array is not a usable backup
// (partially-written or foreign file) and yields nil contacts, not an
// error. An empty people array is a valid snapshot of an empty dataset.
func ParseSnapshot(body []byte) []contacts.Person {
	// Probe for the people field before full decoding so "people": null
	// and a missing key are both rejected, while [] is accepted.
	var probe struct {
		People *json.RawMessage `json:"people"`
	}

	if err := json.Unmarshal(body, &probe); err != nil {
		return nil
	}

	if probe.People == nil || string(*probe.People) == "null" {
		return nil
	}

	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil
	}

	if snap.People == nil {
		snap.People = []contacts.Person{}
	}

	return snap.People
}

// FileName builds the deterministic artifact name for a capture instant:
// <prefix><ISO date>-<millis since epoch>.json. The millisecond suffix
// keeps names unique and lexically sortable enough to cross-check against
// the store's modifiedTime, which remains the authoritative ordering.
func FileName(capturedAt time.Time) string {
	utc := capturedAt.UTC()

	return fmt.Sprintf("%s%s-%d.json", filePrefix, utc.Format("2006-01-02"), utc.UnixMilli())
}

// listQuery returns the Drive query matching backup artifacts inside the
// given folder.
func listQuery(folderID string) string {
	return fmt.Sprintf("'%s' in parents and name contains '%s' and trashed=false", folderID, filePrefix)
}
