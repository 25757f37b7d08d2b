package handlers

import (
	"errors"
	"html/template"
	"net/http"

	"crowdfund/config"
	"crowdfund/logger"
	"crowdfund/middleware"
	"crowdfund/models"
	"crowdfund/services"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	config    *config.Config
	templates map[string]*template.Template
	accounts  *services.AccountService
	projects  *services.ProjectService
}

func NewAuthHandler(cfg *config.Config, templates map[string]*template.Template, accounts *services.AccountService, projects *services.ProjectService) *AuthHandler {
	return &AuthHandler{
		config:    cfg,
		templates: templates,
		accounts:  accounts,
		projects:  projects,
	}
}

func (h *AuthHandler) Landing(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/home/", http.StatusSeeOther)
		return
	}
	render(w, r, h.templates, "landing", http.StatusOK, nil)
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/home/", http.StatusSeeOther)
		return
	}
	render(w, r, h.templates, "login", http.StatusOK, map[string]interface{}{
		"Next": r.URL.Query().Get("next"),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectError(w, r, "/login/", "Invalid form data")
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), r.FormValue("username"), r.FormValue("password"))
	switch {
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInactiveAccount):
		redirectError(w, r, "/login/", capitalize(err.Error()))
		return
	case err != nil:
		logger.Error("login failed", "error", err)
		redirectError(w, r, "/login/", "Something went wrong, please try again")
		return
	}

	token, err := middleware.GenerateToken(user, h.config.JWTExpiration)
	if err != nil {
		redirectError(w, r, "/login/", "Failed to generate token")
		return
	}
	middleware.SetTokenCookie(w, token, h.config.JWTExpiration)

	http.Redirect(w, r, safeNext(r.FormValue("next"), "/home/"), http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearTokenCookie(w)
	redirectSuccess(w, r, "/login/", "You have been successfully logged out.")
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, h.templates, "register", http.StatusOK, map[string]interface{}{
		"Form":    services.RegisterInput{},
		"Genders": []models.Gender{models.GenderMale, models.GenderFemale},
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		redirectError(w, r, "/register/", "Invalid form data")
		return
	}

	picture, closer, err := formUpload(r, "profile_picture")
	if err != nil {
		redirectError(w, r, "/register/", "Could not read the uploaded picture")
		return
	}
	defer closer.Close()

	in := services.RegisterInput{
		Username:        r.FormValue("username"),
		FirstName:       r.FormValue("first_name"),
		LastName:        r.FormValue("last_name"),
		Email:           r.FormValue("email"),
		PhoneNumber:     r.FormValue("phone_number"),
		Birthdate:       parseTime(dateLayout, r.FormValue("birthdate")),
		Gender:          models.Gender(r.FormValue("gender")),
		Country:         r.FormValue("country"),
		Bio:             r.FormValue("bio"),
		Password:        r.FormValue("password1"),
		ConfirmPassword: r.FormValue("password2"),
		ProfilePicture:  picture,
	}

	_, err = h.accounts.Register(r.Context(), in)
	if err != nil {
		var messages []string
		switch {
		case services.IsValidation(err):
			messages = errorMessages(err)
		case errors.Is(err, services.ErrActivationEmail):
			messages = []string{capitalize(err.Error())}
		default:
			logger.Error("registration failed", "error", err)
			messages = []string{"Something went wrong, please try again"}
		}
		in.Password, in.ConfirmPassword = "", ""
		render(w, r, h.templates, "register", http.StatusBadRequest, map[string]interface{}{
			"Form":    in,
			"Errors":  messages,
			"Genders": []models.Gender{models.GenderMale, models.GenderFemale},
		})
		return
	}

	redirectSuccess(w, r, "/login/", "Account created successfully! Please check your email to activate your account.")
}

// Activate renders the activation page for the outcome of consuming the token.
func (h *AuthHandler) Activate(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Activate(r.Context(), chi.URLParam(r, "token"))

	data := map[string]interface{}{}
	status := http.StatusOK
	switch {
	case err == nil:
		data["State"] = "success"
		data["ActivatedUser"] = user
	case errors.Is(err, services.ErrTokenExpired):
		data["State"] = "expired"
		status = http.StatusGone
	case errors.Is(err, services.ErrInvalidToken):
		data["State"] = "invalid"
		status = http.StatusNotFound
	default:
		logger.Error("activation failed", "error", err)
		data["State"] = "invalid"
		status = http.StatusInternalServerError
	}
	render(w, r, h.templates, "activation", status, data)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	projects, err := h.projects.OwnedBy(r.Context(), user.ID)
	if err != nil {
		logger.Error("load profile projects", "user_id", user.ID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	render(w, r, h.templates, "profile", http.StatusOK, map[string]interface{}{
		"User":     user,
		"Projects": projects,
	})
}

func (h *AuthHandler) EditProfilePage(w http.ResponseWriter, r *http.Request) {
	render(w, r, h.templates, "edit_profile", http.StatusOK, map[string]interface{}{
		"User":    middleware.GetUserFromContext(r.Context()),
		"Genders": []models.Gender{models.GenderMale, models.GenderFemale},
	})
}

func (h *AuthHandler) EditProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if err := parseForm(r); err != nil {
		redirectError(w, r, "/edit/", "Invalid form data")
		return
	}

	picture, closer, err := formUpload(r, "profile_picture")
	if err != nil {
		redirectError(w, r, "/edit/", "Could not read the uploaded picture")
		return
	}
	defer closer.Close()

	in := services.ProfileInput{
		FirstName:      r.FormValue("first_name"),
		LastName:       r.FormValue("last_name"),
		PhoneNumber:    r.FormValue("phone_number"),
		Gender:         models.Gender(r.FormValue("gender")),
		Country:        r.FormValue("country"),
		Bio:            r.FormValue("bio"),
		ProfilePicture: picture,
	}
	if birthdate := parseTime(dateLayout, r.FormValue("birthdate")); !birthdate.IsZero() {
		in.Birthdate = &birthdate
	}

	if _, err := h.accounts.UpdateProfile(r.Context(), user, in); err != nil {
		if services.IsValidation(err) {
			render(w, r, h.templates, "edit_profile", http.StatusBadRequest, map[string]interface{}{
				"User":    user,
				"Errors":  errorMessages(err),
				"Genders": []models.Gender{models.GenderMale, models.GenderFemale},
			})
			return
		}
		logger.Error("update profile", "user_id", user.ID, "error", err)
		redirectError(w, r, "/edit/", "Failed to update profile")
		return
	}
	http.Redirect(w, r, "/profile/", http.StatusSeeOther)
}

func (h *AuthHandler) Donations(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	donations, err := h.accounts.Donations(r.Context(), user.ID)
	if err != nil {
		logger.Error("load donations", "user_id", user.ID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	render(w, r, h.templates, "my_donations", http.StatusOK, map[string]interface{}{
		"Donations": donations,
	})
}

func (h *AuthHandler) DeleteAccountPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, h.templates, "delete_account", http.StatusOK, nil)
}

func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if err := h.accounts.DeleteAccount(r.Context(), user); err != nil {
		logger.Error("delete account", "user_id", user.ID, "error", err)
		redirectError(w, r, "/delete-account/", "Failed to delete account")
		return
	}
	middleware.ClearTokenCookie(w)
	redirectSuccess(w, r, "/login/", "Your account has been deleted.")
}
