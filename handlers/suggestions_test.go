package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdfund/models"
)

func decodeSuggestions(t *testing.T, body []byte) SuggestionResponse {
	t.Helper()
	var resp SuggestionResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestSuggestShortQueryReturnsEmptyArrays(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)
	app.createProject(t, owner, "Tree planting")

	for _, q := range []string{"", "t", "%20t%20"} {
		rec := app.do(t, nil, http.MethodGet, "/projects/search-suggestions/?q="+q, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"suggestions":[],"projects":[]}`, rec.Body.String(), "query %q", q)
	}
}

func TestSuggestSerializesProjects(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)
	donor := app.createUser(t, "dan", true)

	category := &models.Category{Name: "Environment"}
	require.NoError(t, app.db.Create(category).Error)

	long := strings.Repeat("é", 200)
	withCat := app.createProject(t, owner, "Solar school", func(p *models.Project) {
		p.CategoryID = &category.ID
		p.Tags = "solar energy"
		p.Details = long
		p.TotalTarget = decimal.NewFromInt(200)
	})
	app.donate(t, donor, withCat, 50)
	require.NoError(t, app.db.Create(&models.ProjectImage{ProjectID: withCat.ID, ObjectKey: "projects/a.png", IsPrimary: true}).Error)

	noCat := app.createProject(t, owner, "Solar bus")

	rec := app.do(t, nil, http.MethodGet, "/projects/search-suggestions/?q=SOLAR", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeSuggestions(t, rec.Body.Bytes())
	assert.Empty(t, resp.Suggestions)
	require.Len(t, resp.Projects, 2)

	first := resp.Projects[0]
	assert.Equal(t, withCat.ID, first.ID)
	assert.Equal(t, "Solar school", first.Title)
	assert.Equal(t, "Olga Tester", first.OwnerName)
	assert.Equal(t, strings.Repeat("é", 150)+"...", first.Description)
	assert.Equal(t, "/media/projects/a.png", first.ImageURL)
	assert.Equal(t, []string{"solar", "energy"}, first.Tags)
	assert.Equal(t, fmt.Sprintf("/projects/%d/", withCat.ID), first.URL)
	assert.Equal(t, "Environment", first.Category)
	assert.InDelta(t, 25.0, first.DonationPercentage, 0.0001)
	assert.InDelta(t, 200.0, first.TotalTarget, 0.0001)

	second := resp.Projects[1]
	assert.Equal(t, noCat.ID, second.ID)
	assert.Equal(t, "General", second.Category)
	assert.Equal(t, "Solar bus details", second.Description)
	assert.Empty(t, second.ImageURL)
	assert.Equal(t, []string{}, second.Tags)
}

func TestSuggestCapsAtTenInIDOrder(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)

	var ids []uint
	for i := 0; i < 13; i++ {
		p := app.createProject(t, owner, fmt.Sprintf("Garden %d", i))
		ids = append(ids, p.ID)
	}

	rec := app.do(t, nil, http.MethodGet, "/projects/search-suggestions/?q=garden", nil)
	resp := decodeSuggestions(t, rec.Body.Bytes())
	require.Len(t, resp.Projects, 10)
	for i, p := range resp.Projects {
		assert.Equal(t, ids[i], p.ID)
	}
}

func TestSuggestRateLimited(t *testing.T) {
	app := newTestAppWithRate(t, 1)

	rec := app.do(t, nil, http.MethodGet, "/projects/search-suggestions/?q=garden", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, nil, http.MethodGet, "/projects/search-suggestions/?q=garden", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"suggestions":[],"projects":[]}`, rec.Body.String())
}

func TestSuggestionForSkipsProjectWithoutOwner(t *testing.T) {
	_, err := suggestionFor(&models.Project{ID: 1, Title: "Orphan"})
	assert.ErrorIs(t, err, errOwnerNotLoaded)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "", truncate("", 5))
}

func TestSuggestLimitIgnoresForwardedForByDefault(t *testing.T) {
	app := newTestAppWithRate(t, 1)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/projects/search-suggestions/?q=garden", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}
