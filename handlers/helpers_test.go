package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"crowdfund/config"
	"crowdfund/database"
	"crowdfund/database/dbtest"
	"crowdfund/mail"
	"crowdfund/middleware"
	"crowdfund/models"
	"crowdfund/services"
	"crowdfund/storage"
)

const testPassword = "correct-horse"

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type testApp struct {
	db     *gorm.DB
	store  *storage.MemoryStore
	mailer *fakeMailer
	router http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithRate(t, 600)
}

func newTestAppWithRate(t *testing.T, perMinute int) *testApp {
	t.Helper()

	db, err := dbtest.OpenInMemory()
	require.NoError(t, err)
	database.DB = db
	middleware.SetJWTSecret("test-secret")
	t.Cleanup(func() {
		database.DB = nil
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	templates, err := LoadTemplates("../templates")
	require.NoError(t, err)

	cfg := &config.Config{
		JWTExpiration:        time.Hour,
		BaseURL:              "http://crowdfund.test",
		ActivationExpiration: 24 * time.Hour,
		SuggestRatePerMinute: perMinute,
	}
	app := &testApp{db: db, store: storage.NewMemoryStore(), mailer: &fakeMailer{}}
	routerCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	app.router = NewRouter(routerCtx, RouterDeps{
		Config:    cfg,
		DB:        db,
		Store:     app.store,
		Templates: templates,
		Projects:  services.NewProjectService(db, app.store),
		Accounts:  services.NewAccountService(db, app.store, app.mailer, cfg.BaseURL, cfg.ActivationExpiration),
	})
	return app
}

func (a *testApp) createUser(t *testing.T, username string, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Username:     username,
		FirstName:    strings.ToUpper(username[:1]) + username[1:],
		LastName:     "Tester",
		Email:        username + "@example.org",
		PasswordHash: string(hash),
		IsActive:     active,
	}
	require.NoError(t, a.db.Create(u).Error)
	return u
}

func (a *testApp) createProject(t *testing.T, owner *models.User, title string, mutate ...func(*models.Project)) *models.Project {
	t.Helper()
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &models.Project{
		OwnerID:     owner.ID,
		Title:       title,
		Details:     title + " details",
		TotalTarget: decimal.NewFromInt(1000),
		StartTime:   start,
		EndTime:     start.Add(30 * 24 * time.Hour),
		Status:      models.StatusActive,
	}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, a.db.Create(p).Error)
	return p
}

func (a *testApp) donate(t *testing.T, user *models.User, project *models.Project, amount int64) {
	t.Helper()
	d := &models.Donation{UserID: user.ID, ProjectID: project.ID, Amount: decimal.NewFromInt(amount)}
	require.NoError(t, a.db.Create(d).Error)
}

// do sends a request, signed in as user when user is not nil.
func (a *testApp) do(t *testing.T, user *models.User, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if user != nil {
		token, err := middleware.GenerateToken(user, time.Hour)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// location returns the redirect target's path and query.
func location(t *testing.T, rec *httptest.ResponseRecorder) (string, url.Values) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	u, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return u.Path, u.Query()
}
