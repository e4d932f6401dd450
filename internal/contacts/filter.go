package contacts

import "slices"

// Range bounds a numeric filter. Nil ends are unbounded.
type Range struct {
	Min *int
	Max *int
}

// contains reports whether v falls inside the range. A person with the
// field unset never matches a range filter.
func (r Range) contains(v *int) bool {
	if v == nil {
		return false
	}

	if r.Min != nil && *v < *r.Min {
		return false
	}

	if r.Max != nil && *v > *r.Max {
		return false
	}

	return true
}

// FilterByRelation keeps people whose relation matches any of the given labels.
func FilterByRelation(people []Person, relations ...string) []Person {
	return filter(people, func(p *Person) bool {
		return slices.Contains(relations, p.Relation)
	})
}

// FilterByTags keeps people carrying at least one of the target tags (OR search).
func FilterByTags(people []Person, tags []string) []Person {
	return filter(people, func(p *Person) bool {
		for _, t := range p.Tags {
			if slices.Contains(tags, t) {
				return true
			}
		}

		return false
	})
}

// FilterByAgeRange keeps people whose age falls inside the range.
func FilterByAgeRange(people []Person, r Range) []Person {
	return filter(people, func(p *Person) bool { return r.contains(p.Age) })
}

// FilterByGradeRange keeps people whose grade falls inside the range.
func FilterByGradeRange(people []Person, r Range) []Person {
	return filter(people, func(p *Person) bool { return r.contains(p.Grade) })
}

// Filter combines multiple criteria. Zero-value fields are skipped, so an
// empty Filter passes everything through.
type Filter struct {
	Relations  []string
	Tags       []string
	AgeRange   *Range
	GradeRange *Range
}

// Apply runs all set criteria in sequence.
func (f Filter) Apply(people []Person) []Person {
	result := people

	if len(f.Relations) > 0 {
		result = FilterByRelation(result, f.Relations...)
	}

	if f.GradeRange != nil {
		result = FilterByGradeRange(result, *f.GradeRange)
	}

	if len(f.Tags) > 0 {
		result = FilterByTags(result, f.Tags)
	}

	if f.AgeRange != nil {
		result = FilterByAgeRange(result, *f.AgeRange)
	}

	return result
}

func filter(people []Person, keep func(*Person) bool) []Person {
	out := make([]Person, 0, len(people))

	for i := range people {
		if keep(&people[i]) {
			out = append(out, people[i])
		}
	}

	return out
}
