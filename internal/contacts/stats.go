package contacts

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// BasicStats summarizes a dataset at a glance.
type BasicStats struct {
	TotalPeople        int     `json:"totalPeople"`
	AverageAge         float64 `json:"averageAge"`
	MinAge             int     `json:"minAge"`
	MaxAge             int     `json:"maxAge"`
	MostCommonRelation string  `json:"mostCommonRelation"`
}

// AgeBucket is one bar of the age histogram.
type AgeBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// GradeCount is the number of contacts at one grade offset.
type GradeCount struct {
	Grade int    `json:"grade"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// RelationShare is one relation label with its share of the dataset.
type RelationShare struct {
	Relation   string `json:"relation"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// TagFrequency is how often a tag appears among tagged contacts.
type TagFrequency struct {
	Tag        string  `json:"tag"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Completeness reports how many contacts have each contact channel filled in.
type Completeness struct {
	TotalPeople        int `json:"totalPeople"`
	WithEmail          int `json:"withEmail"`
	WithPhone          int `json:"withPhone"`
	WithSocial         int `json:"withSocial"`
	WithAllContacts    int `json:"withAllContacts"`
	EmailPercentage    int `json:"emailPercentage"`
	PhonePercentage    int `json:"phonePercentage"`
	SocialPercentage   int `json:"socialPercentage"`
	CompletePercentage int `json:"completePercentage"`
}

// Report bundles every statistic for the stats command's JSON output.
type Report struct {
	Basic        BasicStats      `json:"basic"`
	Ages         []AgeBucket     `json:"ages"`
	Grades       []GradeCount    `json:"grades"`
	Relations    []RelationShare `json:"relations"`
	Tags         []TagFrequency  `json:"tags"`
	Completeness Completeness    `json:"completeness"`
	GeneratedAt  time.Time       `json:"generatedAt"`
}

// noRelation is the bucket for people without a relation label.
const noRelation = "その他"

// Basic computes headline statistics. Age figures cover only people with an
// age set; an empty dataset reports "なし" as the most common relation.
func Basic(people []Person) BasicStats {
	stats := BasicStats{
		TotalPeople:        len(people),
		MostCommonRelation: "なし",
	}

	if len(people) == 0 {
		return stats
	}

	var ageSum, ageCount int

	for i := range people {
		age := people[i].Age
		if age == nil {
			continue
		}

		if ageCount == 0 || *age < stats.MinAge {
			stats.MinAge = *age
		}

		if *age > stats.MaxAge {
			stats.MaxAge = *age
		}

		ageSum += *age
		ageCount++
	}

	if ageCount > 0 {
		stats.AverageAge = float64(ageSum) / float64(ageCount)
	}

	var maxCount int
	for relation, count := range relationCounts(people) {
		if count > maxCount {
			maxCount = count
			stats.MostCommonRelation = relation
		}
	}

	return stats
}

// Default age histogram bounds.
const (
	defaultAgeMin  = 20
	defaultAgeMax  = 44
	defaultAgeStep = 5
)

// AgeDistribution buckets ages into [min, max) in steps of step. Zero
// arguments select the defaults (20–44 in fives).
func AgeDistribution(people []Person, min, max, step int) []AgeBucket {
	if step <= 0 {
		min, max, step = defaultAgeMin, defaultAgeMax, defaultAgeStep
	}

	var buckets []AgeBucket

	for start := min; start < max; start += step {
		end := start + step - 1
		if end > max-1 {
			end = max - 1
		}

		var count int

		for i := range people {
			if age := people[i].Age; age != nil && *age >= start && *age <= end {
				count++
			}
		}

		buckets = append(buckets, AgeBucket{
			Range: fmt.Sprintf("%d-%d", start, end),
			Count: count,
		})
	}

	return buckets
}

// GradeDistribution counts contacts per grade offset, ordered by grade.
func GradeDistribution(people []Person) []GradeCount {
	counts := make(map[int]int)

	for i := range people {
		if g := people[i].Grade; g != nil {
			counts[*g]++
		}
	}

	out := make([]GradeCount, 0, len(counts))
	for grade, count := range counts {
		out = append(out, GradeCount{
			Grade: grade,
			Label: gradeLabel(grade),
			Count: count,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Grade < out[j].Grade })

	return out
}

// gradeLabel renders a grade offset: 0 is 同期 (peer), positive offsets are
// seniors (+N), negative are juniors.
func gradeLabel(grade int) string {
	switch {
	case grade == 0:
		return "同期"
	case grade > 0:
		return fmt.Sprintf("+%d", grade)
	default:
		return fmt.Sprint(grade)
	}
}

// RelationDistribution returns relation shares sorted by count descending.
func RelationDistribution(people []Person) []RelationShare {
	total := len(people)
	counts := relationCounts(people)

	out := make([]RelationShare, 0, len(counts))
	for relation, count := range counts {
		out = append(out, RelationShare{
			Relation:   relation,
			Count:      count,
			Percentage: roundPercent(count, total),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Relation < out[j].Relation
	})

	return out
}

// TagFrequencies counts tag occurrences, reporting each tag's share of
// people who have any tags at all. limit <= 0 means no limit.
func TagFrequencies(people []Person, limit int) []TagFrequency {
	counts := make(map[string]int)

	var tagged int

	for i := range people {
		if len(people[i].Tags) > 0 {
			tagged++
		}

		for _, tag := range people[i].Tags {
			if tag != "" {
				counts[tag]++
			}
		}
	}

	out := make([]TagFrequency, 0, len(counts))
	for tag, count := range counts {
		var pct float64
		if tagged > 0 {
			pct = math.Round(float64(count)/float64(tagged)*10000) / 100
		}

		out = append(out, TagFrequency{Tag: tag, Count: count, Percentage: pct})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Tag < out[j].Tag
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}

// ContactCompleteness reports per-channel coverage. Blank-only values do
// not count as filled in.
func ContactCompleteness(people []Person) Completeness {
	c := Completeness{TotalPeople: len(people)}

	if len(people) == 0 {
		return c
	}

	for i := range people {
		info := people[i].ContactInfo
		if info == nil {
			continue
		}

		hasEmail := strings.TrimSpace(info.Email) != ""
		hasPhone := strings.TrimSpace(info.Phone) != ""
		hasSocial := strings.TrimSpace(info.Social) != ""

		if hasEmail {
			c.WithEmail++
		}

		if hasPhone {
			c.WithPhone++
		}

		if hasSocial {
			c.WithSocial++
		}

		if hasEmail && hasPhone && hasSocial {
			c.WithAllContacts++
		}
	}

	c.EmailPercentage = roundPercent(c.WithEmail, c.TotalPeople)
	c.PhonePercentage = roundPercent(c.WithPhone, c.TotalPeople)
	c.SocialPercentage = roundPercent(c.WithSocial, c.TotalPeople)
	c.CompletePercentage = roundPercent(c.WithAllContacts, c.TotalPeople)

	return c
}

// BuildReport assembles the full statistics report.
func BuildReport(people []Person) Report {
	return Report{
		Basic:        Basic(people),
		Ages:         AgeDistribution(people, 0, 0, 0),
		Grades:       GradeDistribution(people),
		Relations:    RelationDistribution(people),
		Tags:         TagFrequencies(people, 0),
		Completeness: ContactCompleteness(people),
		GeneratedAt:  time.Now().UTC(),
	}
}

func relationCounts(people []Person) map[string]int {
	counts := make(map[string]int)

	for i := range people {
		relation := people[i].Relation
		if relation == "" {
			relation = noRelation
		}

		counts[relation]++
	}

	return counts
}

func roundPercent(count, total int) int {
	if total == 0 {
		return 0
	}

	return int(math.Round(float64(count) / float64(total) * 100))
}
