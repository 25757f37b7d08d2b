package handlers

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"crowdfund/config"
	"crowdfund/metrics"
	"crowdfund/middleware"
	"crowdfund/services"
	"crowdfund/storage"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type RouterDeps struct {
	Config    *config.Config
	DB        *gorm.DB
	Store     storage.Store
	Templates map[string]*template.Template
	Projects  *services.ProjectService
	Accounts  *services.AccountService
}

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleTimeout     = 10 * time.Minute
)

// NewRouter builds the application routes. Background work it starts stops
// when ctx is done.
func NewRouter(ctx context.Context, deps RouterDeps) http.Handler {
	authHandler := NewAuthHandler(deps.Config, deps.Templates, deps.Accounts, deps.Projects)
	projectHandler := NewProjectHandler(deps.Templates, deps.Projects)
	suggestionHandler := NewSuggestionHandler(deps.Projects)

	perMinute := deps.Config.SuggestRatePerMinute
	suggestLimiter := middleware.NewRateLimiter(perMinute, perMinute/2+1)
	suggestLimiter.StartCleanup(ctx, limiterCleanupInterval, limiterIdleTimeout)

	router := chi.NewRouter()
	if deps.Config.TrustProxy {
		router.Use(chimiddleware.RealIP)
	}
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(metrics.Middleware)

	router.Get("/healthz", Health(deps.DB))
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/media/*", Media(deps.Store))

	router.Group(func(r chi.Router) {
		r.Use(middleware.LoadUser)

		// Public routes
		r.Get("/", authHandler.Landing)
		r.Get("/login/", authHandler.LoginPage)
		r.Post("/login/", authHandler.Login)
		r.Get("/register/", authHandler.RegisterPage)
		r.Post("/register/", authHandler.Register)
		r.Get("/activate/{token}/", authHandler.Activate)
		r.Get("/projects/all/", projectHandler.All)
		r.Get("/projects/{id}/", projectHandler.Detail)
		r.With(suggestLimiter.Limit(suggestionHandler.RateLimited)).
			Get("/projects/search-suggestions/", suggestionHandler.Suggest)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/logout/", authHandler.Logout)
			r.Get("/profile/", authHandler.Profile)
			r.Get("/edit/", authHandler.EditProfilePage)
			r.Post("/edit/", authHandler.EditProfile)
			r.Get("/donations/", authHandler.Donations)
			r.Get("/delete-account/", authHandler.DeleteAccountPage)
			r.Post("/delete-account/", authHandler.DeleteAccount)

			r.Get("/home/", projectHandler.Home)
			r.Get("/projects/my-projects/", projectHandler.MyProjects)
			r.Get("/projects/create/", projectHandler.CreatePage)
			r.Post("/projects/create/", projectHandler.Create)
			r.Get("/projects/{id}/donate/", projectHandler.DonatePage)
			r.Post("/projects/{id}/donate/", projectHandler.Donate)
			r.Post("/projects/{id}/comment/", projectHandler.Comment)
			r.Get("/projects/{id}/rate/", projectHandler.RatePage)
			r.Post("/projects/{id}/rate/", projectHandler.Rate)
			r.Get("/projects/{id}/report/", projectHandler.ReportProjectPage)
			r.Post("/projects/{id}/report/", projectHandler.ReportProject)
			r.Get("/projects/{id}/cancel/", projectHandler.CancelPage)
			r.Post("/projects/{id}/cancel/", projectHandler.Cancel)
			r.Post("/projects/{id}/images/", projectHandler.AddImage)
			r.Post("/projects/{id}/images/{imageID}/primary/", projectHandler.SetPrimaryImage)
			r.Post("/comment/{id}/reply/", projectHandler.Reply)
			r.Get("/comment/{id}/report/", projectHandler.ReportCommentPage)
			r.Post("/comment/{id}/report/", projectHandler.ReportComment)
		})
	})

	return router
}
