// Package contacts defines the Person domain type and the pure
// transformations over contact datasets: filtering, sorting, statistics,
// and kana handling.
package contacts

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Education is the schooling level attached to a contact. Values are the
// Japanese labels used throughout the app and in the backup wire format.
type Education string

const (
	EducationVocational Education = "専門学校"
	EducationBachelor   Education = "学卒"
	EducationMaster     Education = "修士"
	EducationDoctor     Education = "ドクター"
	EducationUnknown    Education = "不明"
)

// ContactInfo holds the optional contact channels for a person.
type ContactInfo struct {
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Social string `json:"social,omitempty"`
}

// Person is a single contact. The JSON tags are the durable backup wire
// format — readers of old snapshots depend on these exact names.
//
// CreatedAt is immutable once set; UpdatedAt is bumped on every local
// mutation and drives sync conflict resolution.
type Person struct {
	ID            string       `json:"id"`
	LastName      string       `json:"lastName"`
	FirstName     string       `json:"firstName"`
	LastNameKana  string       `json:"lastNameKana,omitempty"`
	FirstNameKana string       `json:"firstNameKana,omitempty"`
	Name          string       `json:"name"` // display full name, kept for backward compatibility
	Age           *int         `json:"age,omitempty"`
	Grade         *int         `json:"grade,omitempty"` // years relative to self: +2 senior, 0 peer, -1 junior
	Education     Education    `json:"education,omitempty"`
	Relation      string       `json:"relation"`
	Memo          string       `json:"memo,omitempty"`
	MeetDate      string       `json:"meetDate,omitempty"`
	Tags          []string     `json:"tags,omitempty"`
	ContactInfo   *ContactInfo `json:"contactInfo,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// New creates a Person with a fresh ID and both timestamps set to now.
func New(lastName, firstName, relation string) Person {
	now := time.Now().UTC()

	return Person{
		ID:        uuid.NewString(),
		LastName:  lastName,
		FirstName: firstName,
		Name:      DisplayName(lastName, firstName),
		Relation:  relation,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DisplayName joins family and given name the Japanese way (no comma,
// family name first).
func DisplayName(lastName, firstName string) string {
	return strings.TrimSpace(lastName + " " + firstName)
}

// Touch bumps UpdatedAt to now. Call after every mutation.
func (p *Person) Touch() {
	p.UpdatedAt = time.Now().UTC()
}

// KanaName returns the phonetic reading of the full name, empty when no
// kana fields are set.
func (p *Person) KanaName() string {
	return p.LastNameKana + p.FirstNameKana
}

// MaxUpdatedAt returns the newest UpdatedAt across the dataset. An empty
// dataset returns the zero time, which never wins a timestamp comparison.
func MaxUpdatedAt(people []Person) time.Time {
	var max time.Time

	for i := range people {
		if people[i].UpdatedAt.After(max) {
			max = people[i].UpdatedAt
		}
	}

	return max
}

// ValidateUnique checks the dataset invariant that contact IDs are unique.
func ValidateUnique(people []Person) error {
	seen := make(map[string]bool, len(people))

	for i := range people {
		id := people[i].ID
		if seen[id] {
			return fmt.Errorf("contacts: duplicate id %q", id)
		}

		seen[id] = true
	}

	return nil
}
