package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdfund/models"
)

var base = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func project(id uint, title, tags, details string, startOffset time.Duration) models.Project {
	return models.Project{
		ID:        id,
		Title:     title,
		Tags:      tags,
		Details:   details,
		StartTime: base.Add(startOffset),
		Status:    models.StatusActive,
	}
}

func ids(projects []models.Project) []uint {
	out := make([]uint, len(projects))
	for i, p := range projects {
		out[i] = p.ID
	}
	return out
}

func TestSearchRanksTitleBeforeDetails(t *testing.T) {
	a := project(1, "Solar Kit", "solar energy", "kit", 0)
	b := project(2, "Garden Tools", "", "solar powered pump", time.Hour)

	got := Search("solar", []models.Project{b, a})
	assert.Equal(t, []uint{1, 2}, ids(got))
}

func TestSearchScorePriority(t *testing.T) {
	titleOnly := project(1, "Wind farm", "", "", 0)
	tagOnly := project(2, "Other", "wind", "", time.Hour)
	detailsOnly := project(3, "Other", "", "a wind turbine", 2*time.Hour)

	got := Search("WIND", []models.Project{detailsOnly, tagOnly, titleOnly})
	assert.Equal(t, []uint{1, 2, 3}, ids(got))
}

func TestSearchTiesBreakOnNewestStart(t *testing.T) {
	older := project(1, "Community garden", "", "", 0)
	newer := project(2, "Garden beds", "", "", 48*time.Hour)

	got := Search("garden", []models.Project{older, newer})
	assert.Equal(t, []uint{2, 1}, ids(got))
}

func TestSearchMatchesCategoryAndOwnerNamesWithZeroScore(t *testing.T) {
	cat := &models.Category{ID: 7, Name: "Technology"}

	byCategory := project(1, "Robot", "", "", 0)
	byCategory.Category = cat

	byOwner := project(2, "Bakery", "", "", time.Hour)
	byOwner.Owner = models.User{FirstName: "Techla", LastName: "Stone"}

	byTitle := project(3, "Tech meetup", "", "", -time.Hour)

	none := project(4, "Painting", "", "", 0)

	got := Search("tech", []models.Project{byCategory, byOwner, byTitle, none})
	assert.Equal(t, []uint{3, 2, 1}, ids(got))

	score, ok := Match(&byOwner, "STONE")
	assert.True(t, ok)
	assert.Equal(t, 0, score)
}

func TestSearchIsDuplicateFree(t *testing.T) {
	p := project(1, "Solar", "solar", "solar", 0)

	got := Search("solar", []models.Project{p, p})
	assert.Len(t, got, 1)
}

func TestSearchBlankQueryReturnsCandidatesUnchanged(t *testing.T) {
	candidates := []models.Project{
		project(2, "b", "", "", 0),
		project(1, "a", "", "", time.Hour),
	}

	assert.Equal(t, []uint{2, 1}, ids(Search("   ", candidates)))
	assert.Equal(t, []uint{2, 1}, ids(Search("", candidates)))
}

func TestSearchTrimsQuery(t *testing.T) {
	p := project(1, "Clean Water", "", "", 0)
	assert.Len(t, Search("  water  ", []models.Project{p}), 1)
}

func TestSearchTitleSubstringAlwaysFound(t *testing.T) {
	candidates := []models.Project{
		project(1, "Open Source Library", "books", "", 0),
		project(2, "Solar Kit", "", "", 0),
		project(3, "Music School", "", "", 0),
	}
	for _, p := range candidates {
		for i := 0; i < len(p.Title); i++ {
			for j := i + 1; j <= len(p.Title); j++ {
				q := p.Title[i:j]
				if len(q) > 0 && q[0] != ' ' && q[len(q)-1] != ' ' {
					assert.Contains(t, ids(Search(q, candidates)), p.ID, "query %q", q)
				}
			}
		}
	}
}

func TestSuggest(t *testing.T) {
	var candidates []models.Project
	for i := uint(1); i <= 15; i++ {
		candidates = append(candidates, project(i, "Tree planting", "", "", 0))
	}

	assert.Empty(t, Suggest("t", candidates, 10))
	assert.Empty(t, Suggest(" t ", candidates, 10))
	assert.Empty(t, Suggest("", candidates, 10))

	got := Suggest("tree", candidates, 10)
	require.Len(t, got, 10)
	assert.Equal(t, uint(1), got[0].ID)
}

func TestSuggestionQueryValid(t *testing.T) {
	assert.False(t, SuggestionQueryValid(""))
	assert.False(t, SuggestionQueryValid(" a "))
	assert.False(t, SuggestionQueryValid("é"))
	assert.True(t, SuggestionQueryValid("ab"))
	assert.True(t, SuggestionQueryValid(" éa "))
}
