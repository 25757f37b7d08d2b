package search

import (
	"sort"
	"strings"

	"crowdfund/models"
)

// DefaultSimilarLimit is how many related projects the detail page shows.
const DefaultSimilarLimit = 4

// NormalizeTags splits a tag string on whitespace, lowercases it and drops
// repeats, keeping first-occurrence order.
func NormalizeTags(tags string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range strings.Fields(tags) {
		t = strings.ToLower(t)
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Similar returns up to limit active projects related to p, never p itself.
// Projects sharing one of p's tags come first, tag by tag in p's tag order,
// then projects from p's category. With an empty tag string, same-category
// projects are returned newest first; whitespace-only tags match nothing.
// Candidates are scanned in the order given.
func Similar(p *models.Project, candidates []models.Project, limit int) []models.Project {
	if p == nil || limit <= 0 {
		return []models.Project{}
	}

	pool := make([]*models.Project, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if c.ID == p.ID || !c.IsActive() {
			continue
		}
		pool = append(pool, c)
	}

	if p.Tags == "" {
		return sameCategoryNewestFirst(p, pool, limit)
	}
	// Tags made only of whitespace name no tag to match on.
	tags := NormalizeTags(p.Tags)
	if len(tags) == 0 {
		return []models.Project{}
	}

	acc := make([]models.Project, 0, limit)
	seen := make(map[uint]bool)
	add := func(c *models.Project) {
		if !seen[c.ID] {
			seen[c.ID] = true
			acc = append(acc, *c)
		}
	}

	for _, tag := range tags {
		for _, c := range pool {
			if len(acc) >= limit {
				return acc
			}
			if containsFold(c.Tags, tag) {
				add(c)
			}
		}
	}

	if p.CategoryID != nil {
		for _, c := range pool {
			if len(acc) >= limit {
				break
			}
			if sameCategory(p, c) {
				add(c)
			}
		}
	}

	if len(acc) > limit {
		acc = acc[:limit]
	}
	return acc
}

func sameCategory(p, c *models.Project) bool {
	return p.CategoryID != nil && c.CategoryID != nil && *p.CategoryID == *c.CategoryID
}

func sameCategoryNewestFirst(p *models.Project, pool []*models.Project, limit int) []models.Project {
	if p.CategoryID == nil {
		return []models.Project{}
	}

	var matches []*models.Project
	for _, c := range pool {
		if sameCategory(p, c) {
			matches = append(matches, c)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].StartTime.After(matches[j].StartTime)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]models.Project, len(matches))
	for i, c := range matches {
		out[i] = *c
	}
	return out
}
