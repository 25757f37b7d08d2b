package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"crowdfund/logger"
	"crowdfund/metrics"
	"crowdfund/models"
	"crowdfund/search"
	"crowdfund/storage"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	// HomeListingSize caps each of the featured, latest and top rated rows.
	HomeListingSize = 6
	// SuggestionLimit caps the projects returned by the suggestion endpoint.
	SuggestionLimit = 10
)

type ProjectService struct {
	db    *gorm.DB
	store storage.Store
}

func NewProjectService(db *gorm.DB, store storage.Store) *ProjectService {
	return &ProjectService{db: db, store: store}
}

// withProjectRelations preloads everything search, the aggregation helpers
// and the project cards read.
func withProjectRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Owner").
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, created_at ASC, id ASC")
		}).
		Preload("Donations").
		Preload("Ratings")
}

func activeOnly(db *gorm.DB) *gorm.DB {
	return db.Where("projects.status = ?", models.StatusActive)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// candidates loads projects with relations in id order, narrowed by scopes.
func (s *ProjectService) candidates(ctx context.Context, scopes ...func(*gorm.DB) *gorm.DB) ([]models.Project, error) {
	var projects []models.Project
	err := withProjectRelations(s.db.WithContext(ctx)).
		Scopes(scopes...).
		Order("projects.id ASC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	return projects, nil
}

func (s *ProjectService) Get(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := withProjectRelations(s.db.WithContext(ctx)).First(&project, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &project, nil
}

// owned loads a project and checks that user owns it.
func (s *ProjectService) owned(ctx context.Context, user *models.User, id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, notFound(err)
	}
	if !user.Owns(&project) {
		return &project, ErrNotOwner
	}
	return &project, nil
}

type ProjectDetail struct {
	Project *models.Project
	// Comments are top-level, newest first, each with replies oldest first.
	Comments []models.Comment
	Similar  []models.Project
}

func (s *ProjectService) Detail(ctx context.Context, id uint) (*ProjectDetail, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var comments []models.Comment
	err = s.db.WithContext(ctx).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Replies.User").
		Where("project_id = ? AND parent_id IS NULL", id).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}

	similar, err := s.similar(ctx, project)
	if err != nil {
		return nil, err
	}

	return &ProjectDetail{
		Project:  project,
		Comments: comments,
		Similar:  similar,
	}, nil
}

// similarColumns are the project fields search.Similar reads.
var similarColumns = []string{"id", "status", "tags", "category_id", "start_time"}

// similar ranks a column-only pool of active projects, then loads the chosen
// few with their relations.
func (s *ProjectService) similar(ctx context.Context, project *models.Project) ([]models.Project, error) {
	var pool []models.Project
	err := s.db.WithContext(ctx).
		Select(similarColumns).
		Scopes(activeOnly).
		Order("projects.id ASC").
		Find(&pool).Error
	if err != nil {
		return nil, fmt.Errorf("load similarity pool: %w", err)
	}

	picked := search.Similar(project, pool, search.DefaultSimilarLimit)
	ids := make([]uint, len(picked))
	for i, p := range picked {
		ids[i] = p.ID
	}
	return s.loadInOrder(ctx, ids)
}

// loadInOrder loads projects with relations, keeping the order of ids.
func (s *ProjectService) loadInOrder(ctx context.Context, ids []uint) ([]models.Project, error) {
	if len(ids) == 0 {
		return []models.Project{}, nil
	}

	var projects []models.Project
	if err := withProjectRelations(s.db.WithContext(ctx)).Where("id IN ?", ids).Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	rank := make(map[uint]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}
	sort.Slice(projects, func(i, j int) bool {
		return rank[projects[i].ID] < rank[projects[j].ID]
	})
	return projects, nil
}

type BrowseResult struct {
	Projects   []models.Project
	Categories []models.Category
	// Selected is nil when no category, or an unknown one, was requested.
	Selected *models.Category
}

// Browse lists every project, optionally narrowed to one category, then
// applies the relevance search when query is not blank.
func (s *ProjectService) Browse(ctx context.Context, categoryID uint, query string) (*BrowseResult, error) {
	result := &BrowseResult{}

	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	result.Categories = categories
	for i := range result.Categories {
		if result.Categories[i].ID == categoryID {
			result.Selected = &result.Categories[i]
		}
	}

	var scopes []func(*gorm.DB) *gorm.DB
	if result.Selected != nil {
		selected := result.Selected.ID
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			return db.Where("projects.category_id = ?", selected)
		})
	}

	candidates, err := s.candidates(ctx, scopes...)
	if err != nil {
		return nil, err
	}
	result.Projects = search.Search(query, candidates)
	return result, nil
}

// Categories lists every category by name.
func (s *ProjectService) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return categories, nil
}

// Search ranks every project against query.
func (s *ProjectService) Search(ctx context.Context, query string) ([]models.Project, error) {
	candidates, err := s.candidates(ctx)
	if err != nil {
		return nil, err
	}
	return search.Search(query, candidates), nil
}

// Suggestions returns up to SuggestionLimit matches in id order. Short
// queries return an empty slice without touching the database.
func (s *ProjectService) Suggestions(ctx context.Context, query string) ([]models.Project, error) {
	if !search.SuggestionQueryValid(query) {
		return []models.Project{}, nil
	}
	candidates, err := s.candidates(ctx)
	if err != nil {
		return nil, err
	}
	return search.Suggest(query, candidates, SuggestionLimit), nil
}

type HomeListings struct {
	Featured []models.Project
	Latest   []models.Project
	TopRated []models.Project
}

func (s *ProjectService) Home(ctx context.Context) (*HomeListings, error) {
	db := s.db.WithContext(ctx)
	home := &HomeListings{}

	err := withProjectRelations(db).Scopes(activeOnly).
		Where("featured = ?", true).
		Order("start_time DESC").
		Limit(HomeListingSize).
		Find(&home.Featured).Error
	if err != nil {
		return nil, fmt.Errorf("load featured projects: %w", err)
	}

	err = withProjectRelations(db).Scopes(activeOnly).
		Order("start_time DESC").
		Limit(HomeListingSize).
		Find(&home.Latest).Error
	if err != nil {
		return nil, fmt.Errorf("load latest projects: %w", err)
	}

	home.TopRated, err = s.topRated(ctx, HomeListingSize)
	if err != nil {
		return nil, err
	}
	return home, nil
}

// topRated returns active projects with at least one rating, best average
// first.
func (s *ProjectService) topRated(ctx context.Context, limit int) ([]models.Project, error) {
	db := s.db.WithContext(ctx)

	var ids []uint
	err := db.Model(&models.Project{}).
		Joins("JOIN ratings ON ratings.project_id = projects.id").
		Scopes(activeOnly).
		Group("projects.id").
		Order("AVG(ratings.rating) DESC, projects.id ASC").
		Limit(limit).
		Pluck("projects.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("rank projects: %w", err)
	}
	return s.loadInOrder(ctx, ids)
}

// OwnedBy lists a user's projects, newest start first.
func (s *ProjectService) OwnedBy(ctx context.Context, ownerID uint) ([]models.Project, error) {
	var projects []models.Project
	err := withProjectRelations(s.db.WithContext(ctx)).
		Where("owner_id = ?", ownerID).
		Order("start_time DESC, id DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("load projects for owner %d: %w", ownerID, err)
	}
	return projects, nil
}

type ProjectInput struct {
	Title       string          `form:"title" validate:"required,max=200"`
	Details     string          `form:"details" validate:"required"`
	CategoryID  *uint           `form:"category"`
	TotalTarget decimal.Decimal `form:"total_target" validate:"-"`
	Tags        string          `form:"tags" validate:"max=200"`
	StartTime   time.Time       `form:"start_time" validate:"required"`
	EndTime     time.Time       `form:"end_time" validate:"required,gtfield=StartTime"`
	Image       *storage.Upload `form:"image" validate:"-"`
}

func (s *ProjectService) Create(ctx context.Context, owner *models.User, in ProjectInput) (*models.Project, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Details = strings.TrimSpace(in.Details)
	in.Tags = strings.TrimSpace(in.Tags)

	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if !in.TotalTarget.IsPositive() {
		return nil, invalid("total target must be greater than 0")
	}
	if in.TotalTarget.GreaterThan(maxAmount) {
		return nil, invalid("total target is too large")
	}

	db := s.db.WithContext(ctx)
	if in.CategoryID != nil {
		var count int64
		if err := db.Model(&models.Category{}).Where("id = ?", *in.CategoryID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check category: %w", err)
		}
		if count == 0 {
			return nil, invalid("category is invalid")
		}
	}

	var imageKey string
	if in.Image != nil {
		key, err := s.saveImage(ctx, "projects", in.Image)
		if err != nil {
			return nil, err
		}
		imageKey = key
	}

	project := &models.Project{
		OwnerID:     owner.ID,
		Title:       in.Title,
		Details:     in.Details,
		CategoryID:  in.CategoryID,
		TotalTarget: in.TotalTarget.Round(2),
		Tags:        in.Tags,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Status:      models.StatusActive,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		if imageKey == "" {
			return nil
		}
		image := models.ProjectImage{ProjectID: project.ID, ObjectKey: imageKey, IsPrimary: true}
		if err := tx.Create(&image).Error; err != nil {
			return err
		}
		project.Images = []models.ProjectImage{image}
		return nil
	})
	if err != nil {
		if imageKey != "" {
			s.removeObject(ctx, imageKey)
		}
		return nil, fmt.Errorf("create project: %w", err)
	}

	metrics.ProjectsCreated.Inc()
	logger.Info("project created", "project_id", project.ID, "owner_id", owner.ID)
	return project, nil
}

// Cancel moves an active project owned by user to cancelled, provided it
// has raised less than the cancellation threshold.
func (s *ProjectService) Cancel(ctx context.Context, user *models.User, projectID uint) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Donations").First(&project, projectID).Error; err != nil {
			return notFound(err)
		}
		if !user.Owns(&project) {
			return ErrNotOwner
		}
		if !project.CanBeCancelled() {
			return ErrCannotCancel
		}

		res := tx.Model(&project).
			Where("status = ?", models.StatusActive).
			Update("status", models.StatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCannotCancel
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	project.Status = models.StatusCancelled
	metrics.ProjectsCancelled.Inc()
	logger.Info("project cancelled", "project_id", project.ID, "owner_id", user.ID)
	return &project, nil
}

// AddImage stores upload and attaches it to the project. The project's first
// image, or one added with primary set, becomes its only primary image.
func (s *ProjectService) AddImage(ctx context.Context, user *models.User, projectID uint, upload *storage.Upload, caption string, primary bool) (*models.ProjectImage, error) {
	if _, err := s.owned(ctx, user, projectID); err != nil {
		return nil, err
	}

	caption = strings.TrimSpace(caption)
	if len([]rune(caption)) > 200 {
		return nil, invalid("caption must be at most 200 characters")
	}

	key, err := s.saveImage(ctx, "projects", upload)
	if err != nil {
		return nil, err
	}

	image := &models.ProjectImage{ProjectID: projectID, ObjectKey: key, Caption: caption}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ProjectImage{}).Where("project_id = ?", projectID).Count(&count).Error; err != nil {
			return err
		}
		image.IsPrimary = primary || count == 0
		if image.IsPrimary {
			err := tx.Model(&models.ProjectImage{}).
				Where("project_id = ?", projectID).
				Update("is_primary", false).Error
			if err != nil {
				return err
			}
		}
		return tx.Create(image).Error
	})
	if err != nil {
		s.removeObject(ctx, key)
		return nil, fmt.Errorf("add image to project %d: %w", projectID, err)
	}
	return image, nil
}

// SetPrimaryImage makes imageID the project's only primary image.
func (s *ProjectService) SetPrimaryImage(ctx context.Context, user *models.User, projectID, imageID uint) error {
	if _, err := s.owned(ctx, user, projectID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var image models.ProjectImage
		if err := tx.Where("id = ? AND project_id = ?", imageID, projectID).First(&image).Error; err != nil {
			return notFound(err)
		}
		err := tx.Model(&models.ProjectImage{}).
			Where("project_id = ? AND id <> ?", projectID, imageID).
			Update("is_primary", false).Error
		if err != nil {
			return err
		}
		return tx.Model(&image).Update("is_primary", true).Error
	})
}

func (s *ProjectService) saveImage(ctx context.Context, folder string, upload *storage.Upload) (string, error) {
	key, err := storage.Save(ctx, s.store, folder, upload)
	if err != nil {
		if isImageRejected(err) {
			return "", invalid("image: " + err.Error())
		}
		return "", err
	}
	return key, nil
}

func (s *ProjectService) removeObject(ctx context.Context, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.Warn("failed to remove stored image", "key", key, "error", err)
	}
}

func isImageRejected(err error) bool {
	return errors.Is(err, storage.ErrUnsupportedImage) ||
		errors.Is(err, storage.ErrImageTooLarge) ||
		errors.Is(err, storage.ErrEmptyImage)
}
