package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"crowdfund/logger"
	"crowdfund/metrics"
	"crowdfund/middleware"
	"crowdfund/models"
	"crowdfund/services"

	"github.com/shopspring/decimal"
)

const allProjectsURL = "/projects/all/"

type ProjectHandler struct {
	templates map[string]*template.Template
	projects  *services.ProjectService
}

func NewProjectHandler(templates map[string]*template.Template, projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		templates: templates,
		projects:  projects,
	}
}

// fail turns a service error into a redirect. Not-found targets go back to
// the project list; everything else lands on fallback with a message.
func (h *ProjectHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		redirectError(w, r, allProjectsURL, "Project not found")
	case services.IsValidation(err):
		redirectError(w, r, fallback, capitalize(strings.Join(errorMessages(err), "; ")))
	case errors.Is(err, services.ErrProjectCancelled),
		errors.Is(err, services.ErrNotOwner),
		errors.Is(err, services.ErrCannotCancel),
		errors.Is(err, services.ErrAlreadyReported):
		redirectError(w, r, fallback, capitalize(err.Error()))
	default:
		logger.Error("project request failed", "path", r.URL.Path, "error", err)
		redirectError(w, r, fallback, "Something went wrong, please try again")
	}
}

func (h *ProjectHandler) Home(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("search"))
	data := map[string]interface{}{"Search": query}

	if query != "" {
		metrics.SearchesTotal.WithLabelValues("home").Inc()
		results, err := h.projects.Search(r.Context(), query)
		if err != nil {
			logger.Error("home search", "query", query, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		data["Results"] = results
		data["ResultCount"] = len(results)
		render(w, r, h.templates, "home", http.StatusOK, data)
		return
	}

	home, err := h.projects.Home(r.Context())
	if err != nil {
		logger.Error("home listings", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data["Featured"] = home.Featured
	data["Latest"] = home.Latest
	data["TopRated"] = home.TopRated
	render(w, r, h.templates, "home", http.StatusOK, data)
}

func (h *ProjectHandler) All(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("search"))
	var categoryID uint
	if id := parseOptionalUint(r.URL.Query().Get("category")); id != nil {
		categoryID = *id
	}
	if query != "" {
		metrics.SearchesTotal.WithLabelValues("browse").Inc()
	}

	result, err := h.projects.Browse(r.Context(), categoryID, query)
	if err != nil {
		logger.Error("browse projects", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	render(w, r, h.templates, "all_projects", http.StatusOK, map[string]interface{}{
		"Projects":   result.Projects,
		"Categories": result.Categories,
		"Selected":   result.Selected,
		"Search":     query,
	})
}

func (h *ProjectHandler) MyProjects(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	projects, err := h.projects.OwnedBy(r.Context(), user.ID)
	if err != nil {
		logger.Error("load own projects", "user_id", user.ID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	render(w, r, h.templates, "my_projects", http.StatusOK, map[string]interface{}{
		"Projects": projects,
	})
}

func (h *ProjectHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		redirectError(w, r, allProjectsURL, "Project not found")
		return
	}

	detail, err := h.projects.Detail(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, allProjectsURL)
		return
	}

	data := map[string]interface{}{
		"Project":  detail.Project,
		"Comments": detail.Comments,
		"Similar":  detail.Similar,
	}
	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		data["UserRating"] = detail.Project.UserRating(user.ID)
		data["IsOwner"] = user.Owns(detail.Project)
	}
	render(w, r, h.templates, "project_detail", http.StatusOK, data)
}

func (h *ProjectHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, nil, nil)
}

func (h *ProjectHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, form map[string]string, messages []string) {
	categories, err := h.projects.Categories(r.Context())
	if err != nil {
		logger.Error("load categories", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if form == nil {
		form = map[string]string{}
	}
	render(w, r, h.templates, "project_form", status, map[string]interface{}{
		"Categories": categories,
		"Form":       form,
		"Errors":     messages,
	})
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if err := parseForm(r); err != nil {
		redirectError(w, r, "/projects/create/", "Invalid form data")
		return
	}

	image, closer, err := formUpload(r, "image")
	if err != nil {
		redirectError(w, r, "/projects/create/", "Could not read the uploaded image")
		return
	}
	defer closer.Close()

	form := map[string]string{}
	for _, field := range []string{"title", "details", "category", "total_target", "tags", "start_time", "end_time"} {
		form[field] = r.FormValue(field)
	}

	target, err := decimal.NewFromString(strings.TrimSpace(form["total_target"]))
	if err != nil {
		h.renderForm(w, r, http.StatusBadRequest, form, []string{"Total target must be a number"})
		return
	}

	project, err := h.projects.Create(r.Context(), user, services.ProjectInput{
		Title:       form["title"],
		Details:     form["details"],
		CategoryID:  parseOptionalUint(form["category"]),
		TotalTarget: target,
		Tags:        form["tags"],
		StartTime:   parseTime(dateTimeLayout, form["start_time"]),
		EndTime:     parseTime(dateTimeLayout, form["end_time"]),
		Image:       image,
	})
	if err != nil {
		if services.IsValidation(err) {
			h.renderForm(w, r, http.StatusBadRequest, form, errorMessages(err))
			return
		}
		logger.Error("create project", "user_id", user.ID, "error", err)
		h.renderForm(w, r, http.StatusInternalServerError, form, []string{"Failed to create project"})
		return
	}

	redirectSuccess(w, r, projectURL(project.ID), "Project created successfully!")
}

// loadProject resolves the {id} route parameter, redirecting to the project
// list when it does not name a project.
func (h *ProjectHandler) loadProject(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	id, ok := idParam(r, "id")
	if !ok {
		redirectError(w, r, allProjectsURL, "Project not found")
		return nil, false
	}
	project, err := h.projects.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, allProjectsURL)
		return nil, false
	}
	return project, true
}

func (h *ProjectHandler) DonatePage(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	if project.IsCancelled() {
		redirectError(w, r, projectURL(project.ID), "This project has been cancelled and is not accepting donations.")
		return
	}
	render(w, r, h.templates, "donate", http.StatusOK, map[string]interface{}{
		"Project": project,
	})
}

func (h *ProjectHandler) Donate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		redirectError(w, r, allProjectsURL, "Project not found")
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectError(w, r, projectURL(id)+"donate/", "Invalid form data")
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	donation, err := h.projects.Donate(r.Context(), user, id, r.FormValue("amount"))
	switch {
	case errors.Is(err, services.ErrProjectCancelled):
		redirectError(w, r, projectURL(id), "This project has been cancelled and is not accepting donations.")
		return
	case err != nil:
		h.fail(w, r, err, projectURL(id)+"donate/")
		return
	}

	redirectSuccess(w, r, projectURL(id), fmt.Sprintf("Thank you for your donation of %s!", donation.Amount.StringFixed(2)))
}

func (h *ProjectHandler) Comment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		redirectError(w, r, allProjectsURL, "Project not found")
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectError(w, r, projectURL(id), "Invalid form data")
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	if _, err := h.projects.AddComment(r.Context(), user, id, r.FormValue("content")); err != nil {
		h.fail(w, r, err, projectURL(id))
		return
	}
	redirectSuccess(w, r, projectURL(id), "Your comment has been added.")
}

func (h *ProjectHandler) Reply(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		redirectError(w, r, allProjectsURL, "Comment not found")
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectError(w, r, allProjectsURL, "Invalid form data")
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	reply, err := h.projects.AddReply(r.Context(), user, id, r.FormValue("content"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			redirectError(w, r, allProjectsURL, "Comment not found")
			return
		}
		back := allProjectsURL
		if parent, perr := h.projects.GetComment(r.Context(), id); perr == nil {
			back = projectURL(parent.ProjectID)
		}
		h.fail(w, r, err, back)
		return
	}
	redirectSuccess(w, r, projectURL(reply.ProjectID), "Your reply has been added.")
}

func (h *ProjectHandler) RatePage(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	user := middleware.GetUserFromContext(r.Context())
	existing, err := h.projects.RatingBy(r.Context(), user.ID, project.ID)
	if err != nil {
		h.fail(w, r, err, projectURL(project.ID))
		return
	}
	render(w, r, h.templates, "rate_project", http.StatusOK, map[string]interface{}{
		"Project":  project,
		"Existing": existing,
	})
}

func (h *ProjectHandler) Rate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		redirectError(w, r, allProjectsURL, "Project not found")
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectError(w, r, projectURL(id)+"rate/", "Invalid form data")
		return
	}

	value, err := strconv.Atoi(strings.TrimSpace(r.FormValue("rating")))
	if err != nil {
		redirectError(w, r, projectURL(id)+"rate/", "Please choose a rating")
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	if _, err := h.projects.Rate(r.Context(), user, id, value, r.FormValue("comment")); err != nil {
		h.fail(w, r, err, projectURL(id)+"rate/")
		return
	}
	redirectSuccess(w, r, projectURL(id), "Thank you for rating this project!")
}

func (h *ProjectHandler) ReportProjectPage(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	user := middleware.GetUserFromContext(r.Context())
	reported, err := h.projects.HasReportedProject(r.Context(), user.ID, project.ID)
	if err != nil {
		h.fail(w, r, err, projectURL(project.ID))
		return
	}
	render(w, r, h.templates, "report", http.StatusOK, map[string]interface{}{
		"Kind":     "project",
		"Title":    project.Title,
		"Action":   projectURL(project.ID) + "report/",
		"Back":     projectURL(project.ID),
		"Reasons":  models.ProjectReportReasons,
		"Reported": reported,
	})
}

func (h *ProjectHandler) ReportProject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		redirectError(w, r, allProjectsURL, "Project not found")
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectError(w, r, projectURL(id)+"report/", "Invalid form data")
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	_, err := h.projects.ReportProject(r.Context(), user, id, services.ReportInput{
		Reason:      models.ReportReason(r.FormValue("reason")),
		Description: r.FormValue("description"),
	})
	switch {
	case errors.Is(err, services.ErrAlreadyReported):
		redirectError(w, r, projectURL(id), "You have already reported this project.")
		return
	case err != nil:
		h.fail(w, r, err, projectURL(id)+"report/")
		return
	}
	redirectSuccess(w, r, projectURL(id), "Thank you for your report. Our team will review it.")
}

func (h *ProjectHandler) ReportCommentPage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		redirectError(w, r, allProjectsURL, "Comment not found")
		return
	}
	comment, err := h.projects.GetComment(r.Context(), id)
	if err != nil {
		redirectError(w, r, allProjectsURL, "Comment not found")
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	reported, err := h.projects.HasReportedComment(r.Context(), user.ID, comment.ID)
	if err != nil {
		h.fail(w, r, err, projectURL(comment.ProjectID))
		return
	}
	render(w, r, h.templates, "report", http.StatusOK, map[string]interface{}{
		"Kind":     "comment",
		"Title":    comment.Content,
		"Action":   fmt.Sprintf("/comment/%d/report/", comment.ID),
		"Back":     projectURL(comment.ProjectID),
		"Reasons":  models.CommentReportReasons,
		"Reported": reported,
	})
}

func (h *ProjectHandler) ReportComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		redirectError(w, r, allProjectsURL, "Comment not found")
		return
	}
	comment, err := h.projects.GetComment(r.Context(), id)
	if err != nil {
		redirectError(w, r, allProjectsURL, "Comment not found")
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectError(w, r, fmt.Sprintf("/comment/%d/report/", id), "Invalid form data")
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	_, err = h.projects.ReportComment(r.Context(), user, comment.ID, services.ReportInput{
		Reason:      models.ReportReason(r.FormValue("reason")),
		Description: r.FormValue("description"),
	})
	switch {
	case errors.Is(err, services.ErrAlreadyReported):
		redirectError(w, r, projectURL(comment.ProjectID), "You have already reported this comment.")
		return
	case err != nil:
		h.fail(w, r, err, fmt.Sprintf("/comment/%d/report/", id))
		return
	}
	redirectSuccess(w, r, projectURL(comment.ProjectID), "Thank you for your report. Our team will review it.")
}

// CancelPage asks the owner to confirm, or explains why the project can no
// longer be cancelled.
func (h *ProjectHandler) CancelPage(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	user := middleware.GetUserFromContext(r.Context())
	if !user.Owns(project) {
		redirectError(w, r, projectURL(project.ID), "You can only cancel your own projects.")
		return
	}

	state := "confirm"
	status := http.StatusOK
	if !project.CanBeCancelled() {
		state = "cannot"
		status = http.StatusConflict
	}
	render(w, r, h.templates, "cancel_project", status, map[string]interface{}{
		"Project": project,
		"State":   state,
	})
}

func (h *ProjectHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		redirectError(w, r, allProjectsURL, "Project not found")
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	project, err := h.projects.Cancel(r.Context(), user, id)
	switch {
	case errors.Is(err, services.ErrNotOwner):
		redirectError(w, r, projectURL(id), "You can only cancel your own projects.")
		return
	case errors.Is(err, services.ErrCannotCancel):
		loaded, gerr := h.projects.Get(r.Context(), id)
		if gerr != nil {
			h.fail(w, r, gerr, allProjectsURL)
			return
		}
		render(w, r, h.templates, "cancel_project", http.StatusConflict, map[string]interface{}{
			"Project": loaded,
			"State":   "cannot",
		})
		return
	case err != nil:
		h.fail(w, r, err, projectURL(id))
		return
	}

	render(w, r, h.templates, "cancel_project", http.StatusOK, map[string]interface{}{
		"Project": project,
		"State":   "cancelled",
	})
}

func (h *ProjectHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		redirectError(w, r, allProjectsURL, "Project not found")
		return
	}
	if err := parseForm(r); err != nil {
		redirectError(w, r, projectURL(id), "Invalid form data")
		return
	}

	upload, closer, err := formUpload(r, "image")
	if err != nil {
		redirectError(w, r, projectURL(id), "Could not read the uploaded image")
		return
	}
	defer closer.Close()
	if upload == nil {
		redirectError(w, r, projectURL(id), "Please choose an image to upload")
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	primary := r.FormValue("is_primary") == "on" || r.FormValue("is_primary") == "true"
	if _, err := h.projects.AddImage(r.Context(), user, id, upload, r.FormValue("caption"), primary); err != nil {
		h.fail(w, r, err, projectURL(id))
		return
	}
	redirectSuccess(w, r, projectURL(id), "Image added.")
}

func (h *ProjectHandler) SetPrimaryImage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		redirectError(w, r, allProjectsURL, "Project not found")
		return
	}
	imageID, ok := idParam(r, "imageID")
	if !ok {
		redirectError(w, r, projectURL(id), "Image not found")
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	err := h.projects.SetPrimaryImage(r.Context(), user, id, imageID)
	if errors.Is(err, services.ErrNotFound) {
		// ErrNotFound may name the image rather than the project.
		if _, gerr := h.projects.Get(r.Context(), id); gerr == nil {
			redirectError(w, r, projectURL(id), "Image not found")
			return
		}
	}
	if err != nil {
		h.fail(w, r, err, projectURL(id))
		return
	}
	redirectSuccess(w, r, projectURL(id), "Main image updated.")
}
