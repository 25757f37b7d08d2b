package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"crowdfund/logger"
	"crowdfund/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Pages are parsed one per file, each paired with base.html.
var Pages = []string{
	"landing", "login", "register", "activation", "home", "all_projects",
	"my_projects", "project_detail", "project_form", "donate", "rate_project",
	"report", "cancel_project", "profile", "edit_profile", "my_donations",
	"delete_account",
}

func FuncMap() template.FuncMap {
	return template.FuncMap{
		"mediaURL": func(key string) string {
			if key == "" {
				return ""
			}
			return "/media/" + key
		},
		"money": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		"percent": func(d decimal.Decimal) string {
			return d.StringFixed(0)
		},
		"rating": func(f float64) string {
			return strconv.FormatFloat(f, 'f', 1, 64)
		},
		"date": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"datetime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 15:04")
		},
		"dateInput": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format(dateLayout)
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"seq": func(from, to int) []int {
			var out []int
			for i := from; i <= to; i++ {
				out = append(out, i)
			}
			return out
		},
	}
}

// LoadTemplates parses every page in Pages from dir.
func LoadTemplates(dir string) (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(Pages))
	for _, page := range Pages {
		t, err := template.New("").Funcs(FuncMap()).ParseFiles(
			filepath.Join(dir, "base.html"),
			filepath.Join(dir, page+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		templates[page] = t
	}
	return templates, nil
}

// render executes page inside the base layout. The signed-in user is added
// as CurrentUser.
func render(w http.ResponseWriter, r *http.Request, templates map[string]*template.Template, page string, status int, data map[string]interface{}) {
	t, ok := templates[page]
	if !ok {
		logger.Error("unknown template", "page", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["CurrentUser"] = middleware.GetUserFromContext(r.Context())
	if _, ok := data["Error"]; !ok {
		data["Error"] = r.URL.Query().Get("error")
	}
	if _, ok := data["Success"]; !ok {
		data["Success"] = r.URL.Query().Get("success")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		logger.Error("render template", "page", page, "error", err)
	}
}

// redirectWith sends the client to path with a flash message in the query
// string.
func redirectWith(w http.ResponseWriter, r *http.Request, path, key, message string) {
	target := path
	if message != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target += sep + key + "=" + url.QueryEscape(message)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func redirectError(w http.ResponseWriter, r *http.Request, path, message string) {
	redirectWith(w, r, path, "error", message)
}

func redirectSuccess(w http.ResponseWriter, r *http.Request, path, message string) {
	redirectWith(w, r, path, "success", message)
}

func idParam(r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func projectURL(id uint) string {
	return fmt.Sprintf("/projects/%d/", id)
}

// safeNext returns next when it is a local path, otherwise fallback.
func safeNext(next, fallback string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\") {
		return next
	}
	return fallback
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
