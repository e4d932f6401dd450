package contacts

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortOrder controls sort direction.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// SortField names a sortable attribute.
type SortField string

const (
	SortByName      SortField = "name"
	SortByAge       SortField = "age"
	SortByGrade     SortField = "grade"
	SortByRelation  SortField = "relation"
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
)

// SortCriterion is one field/direction pair for multi-key sorting.
type SortCriterion struct {
	Field SortField
	Order SortOrder
}

// jaCollator compares strings with Japanese collation rules, matching the
// ordering users see elsewhere (kana before kanji codepoint ordering
// artifacts are avoided).
var jaCollator = collate.New(language.Japanese)

// Sort returns a sorted copy of people using the criteria in order: the
// first criterion is primary, later ones break ties. The input is never
// mutated. Unset numeric fields sort after set ones in ascending order.
func Sort(people []Person, criteria ...SortCriterion) []Person {
	out := make([]Person, len(people))
	copy(out, people)

	if len(criteria) == 0 {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		for _, c := range criteria {
			cmp := compareBy(&out[i], &out[j], c.Field)
			if cmp == 0 {
				continue
			}

			if c.Order == Descending {
				return cmp > 0
			}

			return cmp < 0
		}

		return false
	})

	return out
}

// SortByKanaName returns a copy sorted by phonetic reading, falling back to
// the display name for people without kana fields.
func SortByKanaName(people []Person, order SortOrder) []Person {
	out := make([]Person, len(people))
	copy(out, people)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := sortKanaKey(&out[i]), sortKanaKey(&out[j])

		cmp := jaCollator.CompareString(a, b)
		if order == Descending {
			return cmp > 0
		}

		return cmp < 0
	})

	return out
}

func sortKanaKey(p *Person) string {
	if k := p.KanaName(); k != "" {
		return k
	}

	return p.Name
}

// compareBy compares two people on one field: negative when a sorts before b.
func compareBy(a, b *Person, field SortField) int {
	switch field {
	case SortByName:
		return jaCollator.CompareString(a.Name, b.Name)
	case SortByRelation:
		return jaCollator.CompareString(a.Relation, b.Relation)
	case SortByAge:
		return compareOptionalInt(a.Age, b.Age)
	case SortByGrade:
		return compareOptionalInt(a.Grade, b.Grade)
	case SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return 0
	}
}

// compareOptionalInt orders set values numerically and pushes unset values
// to the end (of an ascending sort).
func compareOptionalInt(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return *a - *b
	}
}
