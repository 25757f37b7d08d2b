package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdfund/models"
)

func TestProtectedRouteRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, nil, http.MethodGet, "/home/?search=tree", nil)
	path, query := location(t, rec)
	assert.Equal(t, "/login/", path)
	assert.Equal(t, "/home/?search=tree", query.Get("next"))
}

func TestDetailUnknownProjectRedirectsToList(t *testing.T) {
	app := newTestApp(t)

	for _, target := range []string{"/projects/999/", "/projects/abc/"} {
		rec := app.do(t, nil, http.MethodGet, target, nil)
		path, query := location(t, rec)
		assert.Equal(t, "/projects/all/", path)
		assert.Equal(t, "Project not found", query.Get("error"))
	}
}

func TestDetailRendersProjectAndSimilar(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)
	p := app.createProject(t, owner, "Solar school", func(p *models.Project) { p.Tags = "solar" })
	app.createProject(t, owner, "Solar roof", func(p *models.Project) { p.Tags = "solar" })

	rec := app.do(t, owner, http.MethodGet, fmt.Sprintf("/projects/%d/", p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Solar school")
	assert.Contains(t, body, "Similar projects")
	assert.Contains(t, body, "Solar roof")
	assert.Contains(t, body, "Cancel project")
}

func TestHomeSearch(t *testing.T) {
	app := newTestApp(t)
	user := app.createUser(t, "olga", true)
	app.createProject(t, user, "Community garden")
	app.createProject(t, user, "Music school")

	rec := app.do(t, user, http.MethodGet, "/home/?search=garden", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1 result for")
	assert.Contains(t, rec.Body.String(), "Community garden")
	assert.NotContains(t, rec.Body.String(), "Music school")

	rec = app.do(t, user, http.MethodGet, "/home/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Latest")
}

func TestAllProjectsIgnoresUnknownCategory(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)
	app.createProject(t, owner, "Community garden")

	rec := app.do(t, nil, http.MethodGet, "/projects/all/?category=999", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Community garden")
}

func TestDonate(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)
	donor := app.createUser(t, "dan", true)
	p := app.createProject(t, owner, "Library")

	rec := app.do(t, donor, http.MethodPost, fmt.Sprintf("/projects/%d/donate/", p.ID), url.Values{"amount": {"25.50"}})
	path, query := location(t, rec)
	assert.Equal(t, fmt.Sprintf("/projects/%d/", p.ID), path)
	assert.Contains(t, query.Get("success"), "25.50")

	var donations []models.Donation
	require.NoError(t, app.db.Find(&donations).Error)
	require.Len(t, donations, 1)
	assert.True(t, decimal.RequireFromString("25.50").Equal(donations[0].Amount))
	assert.Equal(t, donor.ID, donations[0].UserID)
}

func TestDonateRejectsInvalidAmount(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)
	p := app.createProject(t, owner, "Library")

	for _, amount := range []string{"0", "-5", "abc"} {
		rec := app.do(t, owner, http.MethodPost, fmt.Sprintf("/projects/%d/donate/", p.ID), url.Values{"amount": {amount}})
		path, query := location(t, rec)
		assert.Equal(t, fmt.Sprintf("/projects/%d/donate/", p.ID), path)
		assert.NotEmpty(t, query.Get("error"), "amount %q", amount)
	}

	var count int64
	app.db.Model(&models.Donation{}).Count(&count)
	assert.Zero(t, count)
}

func TestDonateToCancelledProject(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)
	p := app.createProject(t, owner, "Library", func(p *models.Project) { p.Status = models.StatusCancelled })

	rec := app.do(t, owner, http.MethodGet, fmt.Sprintf("/projects/%d/donate/", p.ID), nil)
	path, _ := location(t, rec)
	assert.Equal(t, fmt.Sprintf("/projects/%d/", p.ID), path)

	rec = app.do(t, owner, http.MethodPost, fmt.Sprintf("/projects/%d/donate/", p.ID), url.Values{"amount": {"10"}})
	path, query := location(t, rec)
	assert.Equal(t, fmt.Sprintf("/projects/%d/", p.ID), path)
	assert.Contains(t, query.Get("error"), "cancelled")

	var count int64
	app.db.Model(&models.Donation{}).Count(&count)
	assert.Zero(t, count)
}

func TestCommentAndReply(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)
	p := app.createProject(t, owner, "Library")

	rec := app.do(t, owner, http.MethodPost, fmt.Sprintf("/projects/%d/comment/", p.ID), url.Values{"content": {"  First!  "}})
	location(t, rec)

	var comment models.Comment
	require.NoError(t, app.db.First(&comment).Error)
	assert.Equal(t, "First!", comment.Content)

	rec = app.do(t, owner, http.MethodPost, fmt.Sprintf("/comment/%d/reply/", comment.ID), url.Values{"content": {"Thanks"}})
	path, _ := location(t, rec)
	assert.Equal(t, fmt.Sprintf("/projects/%d/", p.ID), path)

	var reply models.Comment
	require.NoError(t, app.db.Where("parent_id = ?", comment.ID).First(&reply).Error)
	assert.Equal(t, p.ID, reply.ProjectID)

	rec = app.do(t, owner, http.MethodPost, fmt.Sprintf("/projects/%d/comment/", p.ID), url.Values{"content": {"   "}})
	_, query := location(t, rec)
	assert.NotEmpty(t, query.Get("error"))

	rec = app.do(t, owner, http.MethodPost, "/comment/999/reply/", url.Values{"content": {"Hello"}})
	path, _ = location(t, rec)
	assert.Equal(t, "/projects/all/", path)
}

func TestRateTwiceUpdatesSingleRating(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)
	rater := app.createUser(t, "rita", true)
	p := app.createProject(t, owner, "Library")
	target := fmt.Sprintf("/projects/%d/rate/", p.ID)

	location(t, app.do(t, rater, http.MethodPost, target, url.Values{"rating": {"2"}}))
	location(t, app.do(t, rater, http.MethodPost, target, url.Values{"rating": {"5"}, "comment": {"great"}}))

	var ratings []models.Rating
	require.NoError(t, app.db.Find(&ratings).Error)
	require.Len(t, ratings, 1)
	assert.Equal(t, 5, ratings[0].Value)
	assert.Equal(t, "great", ratings[0].Comment)

	rec := app.do(t, rater, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "You rated this project 5 / 5")

	rec = app.do(t, rater, http.MethodPost, target, url.Values{"rating": {"9"}})
	path, query := location(t, rec)
	assert.Equal(t, target, path)
	assert.NotEmpty(t, query.Get("error"))
}

func TestReportProjectOnlyOnce(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)
	reporter := app.createUser(t, "rob", true)
	p := app.createProject(t, owner, "Library")
	target := fmt.Sprintf("/projects/%d/report/", p.ID)
	form := url.Values{"reason": {"spam"}, "description": {"looks fake"}}

	_, query := location(t, app.do(t, reporter, http.MethodPost, target, form))
	assert.NotEmpty(t, query.Get("success"))

	_, query = location(t, app.do(t, reporter, http.MethodPost, target, form))
	assert.Equal(t, "You have already reported this project.", query.Get("error"))

	rec := app.do(t, reporter, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "You have already reported this project")

	var count int64
	app.db.Model(&models.ProjectReport{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestReportCommentRejectsProjectOnlyReason(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)
	p := app.createProject(t, owner, "Library")
	comment := &models.Comment{ProjectID: p.ID, UserID: owner.ID, Content: "hi"}
	require.NoError(t, app.db.Create(comment).Error)
	target := fmt.Sprintf("/comment/%d/report/", comment.ID)

	rec := app.do(t, owner, http.MethodPost, target, url.Values{"reason": {"copyright"}, "description": {"x"}})
	path, query := location(t, rec)
	assert.Equal(t, target, path)
	assert.NotEmpty(t, query.Get("error"))

	rec = app.do(t, owner, http.MethodPost, target, url.Values{"reason": {"harassment"}, "description": {"rude"}})
	path, _ = location(t, rec)
	assert.Equal(t, fmt.Sprintf("/projects/%d/", p.ID), path)
}

func TestCancelProject(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)
	other := app.createUser(t, "otto", true)
	p := app.createProject(t, owner, "Library")
	app.donate(t, other, p, 249)
	target := fmt.Sprintf("/projects/%d/cancel/", p.ID)

	rec := app.do(t, other, http.MethodPost, target, nil)
	path, _ := location(t, rec)
	assert.Equal(t, fmt.Sprintf("/projects/%d/", p.ID), path)

	rec = app.do(t, owner, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cancel Library?")

	rec = app.do(t, owner, http.MethodPost, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Project cancelled")

	var reloaded models.Project
	require.NoError(t, app.db.First(&reloaded, p.ID).Error)
	assert.Equal(t, models.StatusCancelled, reloaded.Status)
}

func TestCancelProjectAboveThreshold(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)
	donor := app.createUser(t, "dan", true)
	p := app.createProject(t, owner, "Library")
	app.donate(t, donor, p, 250)
	target := fmt.Sprintf("/projects/%d/cancel/", p.ID)

	rec := app.do(t, owner, http.MethodGet, target, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot be cancelled")

	rec = app.do(t, owner, http.MethodPost, target, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var reloaded models.Project
	require.NoError(t, app.db.First(&reloaded, p.ID).Error)
	assert.Equal(t, models.StatusActive, reloaded.Status)
}

func TestCreateProjectValidation(t *testing.T) {
	app := newTestApp(t)
	owner := app.createUser(t, "olga", true)

	form := url.Values{
		"title":        {"Library"},
		"details":      {"Books for everyone"},
		"total_target": {"500"},
		"tags":         {"books reading"},
		"start_time":   {"2024-07-01T10:00"},
		"end_time":     {"2024-06-01T10:00"},
	}
	rec := app.do(t, owner, http.MethodPost, "/projects/create/", form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "end time must be after start time")

	form.Set("end_time", "2024-08-01T10:00")
	rec = app.do(t, owner, http.MethodPost, "/projects/create/", form)
	path, _ := location(t, rec)

	var created models.Project
	require.NoError(t, app.db.Where("title = ?", "Library").First(&created).Error)
	assert.Equal(t, fmt.Sprintf("/projects/%d/", created.ID), path)
	assert.Equal(t, owner.ID, created.OwnerID)
	assert.Equal(t, "books reading", created.Tags)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, nil, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
