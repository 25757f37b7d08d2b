package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"crowdfund/logger"
	"crowdfund/metrics"
	"crowdfund/models"
	"crowdfund/services"
)

const (
	descriptionLimit = 150
	defaultCategory  = "General"
)

type SuggestionResponse struct {
	Suggestions []string            `json:"suggestions"`
	Projects    []ProjectSuggestion `json:"projects"`
}

type ProjectSuggestion struct {
	ID                 uint     `json:"id"`
	Title              string   `json:"title"`
	OwnerName          string   `json:"owner_name"`
	Description        string   `json:"description"`
	ImageURL           string   `json:"image_url"`
	Tags               []string `json:"tags"`
	URL                string   `json:"url"`
	Category           string   `json:"category"`
	DonationPercentage float64  `json:"donation_percentage"`
	TotalTarget        float64  `json:"total_target"`
}

var errOwnerNotLoaded = errors.New("project owner not loaded")

type SuggestionHandler struct {
	projects *services.ProjectService
}

func NewSuggestionHandler(projects *services.ProjectService) *SuggestionHandler {
	return &SuggestionHandler{projects: projects}
}

// Suggest answers the live search box. It never fails: errors produce an
// empty result, and a project that cannot be serialized is left out.
func (h *SuggestionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	resp := SuggestionResponse{Suggestions: []string{}, Projects: []ProjectSuggestion{}}

	projects, err := h.projects.Suggestions(r.Context(), query)
	if err != nil {
		logger.Error("search suggestions", "query", query, "error", err)
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if len(projects) > 0 {
		metrics.SearchesTotal.WithLabelValues("suggest").Inc()
	}

	for i := range projects {
		s, err := suggestionFor(&projects[i])
		if err != nil {
			logger.Warn("skip suggestion", "project_id", projects[i].ID, "error", err)
			continue
		}
		resp.Projects = append(resp.Projects, s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// RateLimited is the response for clients over their suggestion quota.
func (h *SuggestionHandler) RateLimited(w http.ResponseWriter, r *http.Request) {
	metrics.RateLimited.WithLabelValues("suggestions").Inc()
	writeJSON(w, http.StatusTooManyRequests, SuggestionResponse{
		Suggestions: []string{},
		Projects:    []ProjectSuggestion{},
	})
}

func suggestionFor(p *models.Project) (ProjectSuggestion, error) {
	if p.Owner.ID == 0 {
		return ProjectSuggestion{}, errOwnerNotLoaded
	}

	s := ProjectSuggestion{
		ID:                 p.ID,
		Title:              p.Title,
		OwnerName:          p.Owner.FirstName + " " + p.Owner.LastName,
		Description:        truncate(p.Details, descriptionLimit),
		Tags:               p.TagList(),
		URL:                projectURL(p.ID),
		Category:           defaultCategory,
		DonationPercentage: p.DonationPercentage().InexactFloat64(),
		TotalTarget:        p.TotalTarget.InexactFloat64(),
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if name := p.CategoryName(); name != "" {
		s.Category = name
	}
	if img := p.MainImage(); img != nil {
		s.ImageURL = "/media/" + img.ObjectKey
	}
	return s, nil
}

// truncate cuts s to limit runes and marks the cut with "...".
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode json response", "error", err)
	}
}
