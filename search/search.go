// Package search ranks and relates projects. Every function here is a pure
// query over an already loaded candidate slice; callers preload Owner and
// Category so the name fields can be matched.
package search

import (
	"sort"
	"strings"

	"crowdfund/models"
)

// MinSuggestionLength is the shortest trimmed query the suggestion endpoint
// will run.
const MinSuggestionLength = 2

// Field is one searchable project attribute and the relevance it contributes
// when it is the highest-priority field matched.
type Field struct {
	Name   string
	Weight int
	Value  func(p *models.Project) string
}

// Fields are evaluated in priority order; Match returns the weight of the
// first one that matches.
var Fields = []Field{
	{Name: "title", Weight: 3, Value: func(p *models.Project) string { return p.Title }},
	{Name: "tags", Weight: 2, Value: func(p *models.Project) string { return p.Tags }},
	{Name: "details", Weight: 1, Value: func(p *models.Project) string { return p.Details }},
	{Name: "category", Weight: 0, Value: func(p *models.Project) string { return p.CategoryName() }},
	{Name: "owner_first_name", Weight: 0, Value: func(p *models.Project) string { return p.Owner.FirstName }},
	{Name: "owner_last_name", Weight: 0, Value: func(p *models.Project) string { return p.Owner.LastName }},
}

// Result is a matched project with its relevance.
type Result struct {
	Project *models.Project
	Score   int
}

func containsFold(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}

// Match reports whether the trimmed query occurs, ignoring case, in any
// searchable field of p, and the relevance score for that match.
func Match(p *models.Project, query string) (score int, ok bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0, false
	}
	return match(p, q)
}

func match(p *models.Project, lowerQuery string) (int, bool) {
	for _, f := range Fields {
		if containsFold(f.Value(p), lowerQuery) {
			return f.Weight, true
		}
	}
	return 0, false
}

// Filter returns the candidates matching query, in candidate order, each at
// most once. A blank query matches nothing.
func Filter(query string, candidates []models.Project) []Result {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	seen := make(map[uint]bool, len(candidates))
	var results []Result
	for i := range candidates {
		p := &candidates[i]
		if seen[p.ID] {
			continue
		}
		if score, ok := match(p, q); ok {
			seen[p.ID] = true
			results = append(results, Result{Project: p, Score: score})
		}
	}
	return results
}

// Search filters candidates by query and orders them by descending score,
// then by descending start time. A blank query returns candidates unchanged.
func Search(query string, candidates []models.Project) []models.Project {
	if strings.TrimSpace(query) == "" {
		return candidates
	}

	results := Filter(query, candidates)
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Project.StartTime.After(results[j].Project.StartTime)
	})

	out := make([]models.Project, len(results))
	for i, r := range results {
		out[i] = *r.Project
	}
	return out
}

// Suggest returns up to limit matching projects in candidate order, or
// nothing when the trimmed query is shorter than MinSuggestionLength.
func Suggest(query string, candidates []models.Project, limit int) []models.Project {
	if !SuggestionQueryValid(query) || limit <= 0 {
		return []models.Project{}
	}

	results := Filter(query, candidates)
	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]models.Project, len(results))
	for i, r := range results {
		out[i] = *r.Project
	}
	return out
}

// SuggestionQueryValid reports whether the trimmed query is long enough to run.
func SuggestionQueryValid(query string) bool {
	return len([]rune(strings.TrimSpace(query))) >= MinSuggestionLength
}
