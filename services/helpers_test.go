package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"crowdfund/database/dbtest"
	"crowdfund/mail"
	"crowdfund/models"
	"crowdfund/storage"
)

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

var ctx = context.Background()

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbtest.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

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

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		FirstName:    strings.ToUpper(username[:1]) + username[1:],
		LastName:     "Tester",
		Email:        username + "@example.org",
		PasswordHash: "unused",
		IsActive:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

type projectOption func(*models.Project)

func titled(title string) projectOption {
	return func(p *models.Project) { p.Title = title }
}

func tagged(tags string) projectOption {
	return func(p *models.Project) { p.Tags = tags }
}

func detailed(details string) projectOption {
	return func(p *models.Project) { p.Details = details }
}

func startingAt(offset time.Duration) projectOption {
	return func(p *models.Project) {
		p.StartTime = base.Add(offset)
		p.EndTime = p.StartTime.Add(30 * 24 * time.Hour)
	}
}

func inCategory(c *models.Category) projectOption {
	return func(p *models.Project) { p.CategoryID = &c.ID }
}

func withStatus(s models.ProjectStatus) projectOption {
	return func(p *models.Project) { p.Status = s }
}

func featured() projectOption {
	return func(p *models.Project) { p.Featured = true }
}

func createProject(t *testing.T, db *gorm.DB, owner *models.User, opts ...projectOption) *models.Project {
	t.Helper()
	p := &models.Project{
		OwnerID:     owner.ID,
		Title:       "Untitled",
		Details:     "details",
		TotalTarget: decimal.NewFromInt(1000),
		StartTime:   base,
		EndTime:     base.Add(30 * 24 * time.Hour),
		Status:      models.StatusActive,
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func createCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name}
	require.NoError(t, db.Create(c).Error)
	return c
}

func donate(t *testing.T, db *gorm.DB, user *models.User, project *models.Project, amount int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.Donation{
		UserID:    user.ID,
		ProjectID: project.ID,
		Amount:    decimal.NewFromInt(amount),
	}).Error)
}

func imageUpload(name string) *storage.Upload {
	return &storage.Upload{Filename: name, Size: 4, Reader: strings.NewReader("data")}
}

func projectIDs(projects []models.Project) []uint {
	ids := make([]uint, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	return ids
}
