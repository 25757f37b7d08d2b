package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"crowdfund/logger"
	"crowdfund/metrics"
	"crowdfund/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxAmount is the largest value a decimal(10,2) column holds.
var maxAmount = decimal.RequireFromString("99999999.99")

func (s *ProjectService) find(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &project, nil
}

// ParseAmount reads a donation amount from form input, rounded to cents.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, invalid("amount must be a number")
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, invalid("amount must be greater than 0")
	}
	if amount.GreaterThan(maxAmount) {
		return decimal.Zero, invalid("amount is too large")
	}
	return amount, nil
}

func (s *ProjectService) Donate(ctx context.Context, user *models.User, projectID uint, rawAmount string) (*models.Donation, error) {
	project, err := s.find(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.IsCancelled() {
		return nil, ErrProjectCancelled
	}

	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return nil, err
	}

	donation := &models.Donation{UserID: user.ID, ProjectID: project.ID, Amount: amount}
	if err := s.db.WithContext(ctx).Create(donation).Error; err != nil {
		return nil, fmt.Errorf("create donation: %w", err)
	}

	metrics.DonationsTotal.Inc()
	metrics.DonatedAmount.Add(amount.InexactFloat64())
	logger.Info("donation received", "project_id", project.ID, "user_id", user.ID, "amount", amount.StringFixed(2))
	return donation, nil
}

func (s *ProjectService) AddComment(ctx context.Context, user *models.User, projectID uint, content string) (*models.Comment, error) {
	project, err := s.find(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.IsCancelled() {
		return nil, ErrProjectCancelled
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("comment cannot be empty")
	}

	comment := &models.Comment{ProjectID: project.ID, UserID: user.ID, Content: content}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// GetComment loads a comment with its author and project.
func (s *ProjectService) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Preload("User").Preload("Project").First(&comment, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

// AddReply answers parentID on the parent's own project.
func (s *ProjectService) AddReply(ctx context.Context, user *models.User, parentID uint, content string) (*models.Comment, error) {
	parent, err := s.GetComment(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.Project == nil {
		return nil, ErrNotFound
	}
	if parent.Project.IsCancelled() {
		return nil, ErrProjectCancelled
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("reply cannot be empty")
	}

	reply := &models.Comment{
		ProjectID: parent.ProjectID,
		UserID:    user.ID,
		ParentID:  &parent.ID,
		Content:   content,
	}
	if err := s.db.WithContext(ctx).Create(reply).Error; err != nil {
		return nil, fmt.Errorf("create reply: %w", err)
	}
	return reply, nil
}

// Rate records user's rating of a project. A second rating by the same user
// overwrites the first.
func (s *ProjectService) Rate(ctx context.Context, user *models.User, projectID uint, value int, comment string) (*models.Rating, error) {
	if !models.ValidRating(value) {
		return nil, invalid(fmt.Sprintf("rating must be between %d and %d", models.MinRating, models.MaxRating))
	}
	comment = strings.TrimSpace(comment)

	var rating models.Rating
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Select("id").First(&project, projectID).Error; err != nil {
			return notFound(err)
		}
		return tx.Where(models.Rating{UserID: user.ID, ProjectID: projectID}).
			Assign(map[string]interface{}{"rating": value, "comment": comment}).
			FirstOrCreate(&rating).Error
	})
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// RatingBy returns user's rating of a project, or nil if there is none.
func (s *ProjectService) RatingBy(ctx context.Context, userID, projectID uint) (*models.Rating, error) {
	var rating models.Rating
	err := s.db.WithContext(ctx).Where("user_id = ? AND project_id = ?", userID, projectID).First(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

type ReportInput struct {
	Reason      models.ReportReason `form:"reason" validate:"required"`
	Description string              `form:"description" validate:"required"`
}

func (in *ReportInput) check(choices []models.ReasonChoice) error {
	in.Description = strings.TrimSpace(in.Description)
	if err := validateStruct(in); err != nil {
		return err
	}
	if !models.IsValidReason(choices, in.Reason) {
		return invalid("reason is invalid")
	}
	return nil
}

func (s *ProjectService) HasReportedProject(ctx context.Context, userID, projectID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ProjectReport{}).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Count(&count).Error
	return count > 0, err
}

func (s *ProjectService) HasReportedComment(ctx context.Context, userID, commentID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CommentReport{}).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Count(&count).Error
	return count > 0, err
}

func (s *ProjectService) ReportProject(ctx context.Context, user *models.User, projectID uint, in ReportInput) (*models.ProjectReport, error) {
	project, err := s.find(ctx, projectID)
	if err != nil {
		return nil, err
	}
	reported, err := s.HasReportedProject(ctx, user.ID, project.ID)
	if err != nil {
		return nil, err
	}
	if reported {
		return nil, ErrAlreadyReported
	}
	if err := in.check(models.ProjectReportReasons); err != nil {
		return nil, err
	}

	report := &models.ProjectReport{
		UserID:      user.ID,
		ProjectID:   project.ID,
		Reason:      in.Reason,
		Description: in.Description,
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyReported
		}
		return nil, fmt.Errorf("create project report: %w", err)
	}
	logger.Info("project reported", "project_id", project.ID, "user_id", user.ID, "reason", in.Reason)
	return report, nil
}

func (s *ProjectService) ReportComment(ctx context.Context, user *models.User, commentID uint, in ReportInput) (*models.CommentReport, error) {
	comment, err := s.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	reported, err := s.HasReportedComment(ctx, user.ID, comment.ID)
	if err != nil {
		return nil, err
	}
	if reported {
		return nil, ErrAlreadyReported
	}
	if err := in.check(models.CommentReportReasons); err != nil {
		return nil, err
	}

	report := &models.CommentReport{
		UserID:      user.ID,
		CommentID:   comment.ID,
		Reason:      in.Reason,
		Description: in.Description,
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyReported
		}
		return nil, fmt.Errorf("create comment report: %w", err)
	}
	logger.Info("comment reported", "comment_id", comment.ID, "user_id", user.ID, "reason", in.Reason)
	return report, nil
}
