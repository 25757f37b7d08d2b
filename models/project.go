package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ProjectStatus string

const (
	StatusActive    ProjectStatus = "active"
	StatusCancelled ProjectStatus = "cancelled"
	StatusCompleted ProjectStatus = "completed"
)

// CancellationThreshold is the funded percentage at or above which a project
// can no longer be cancelled.
var CancellationThreshold = decimal.NewFromInt(25)

type Project struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	OwnerID     uint            `gorm:"not null;index" json:"owner_id"`
	Owner       User            `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	Title       string          `gorm:"not null;size:200" json:"title"`
	Details     string          `gorm:"type:text;not null" json:"details"`
	CategoryID  *uint           `gorm:"index" json:"category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	TotalTarget decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_target"`
	Tags        string          `gorm:"size:200" json:"tags"`
	StartTime   time.Time       `gorm:"not null;index" json:"start_time"`
	EndTime     time.Time       `gorm:"not null" json:"end_time"`
	Status      ProjectStatus   `gorm:"not null;size:20;default:'active';index" json:"status"`
	Featured    bool            `gorm:"default:false" json:"featured"`

	Images    []ProjectImage `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
	Donations []Donation     `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Ratings   []Rating       `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
}

func (p *Project) IsActive() bool {
	return p.Status == StatusActive
}

func (p *Project) IsCancelled() bool {
	return p.Status == StatusCancelled
}

// TagList returns the whitespace-separated tags as written.
func (p *Project) TagList() []string {
	return strings.Fields(p.Tags)
}

func (p *Project) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Name
}

// MainImage returns the primary image, or the earliest one when none is
// flagged. Images must be preloaded.
func (p *Project) MainImage() *ProjectImage {
	var first *ProjectImage
	for i := range p.Images {
		img := &p.Images[i]
		if img.IsPrimary {
			return img
		}
		if first == nil || img.CreatedAt.Before(first.CreatedAt) {
			first = img
		}
	}
	return first
}

// The methods below read the preloaded Donations and Ratings.

func (p *Project) DonationTotal() decimal.Decimal {
	return DonationTotal(p.Donations)
}

func (p *Project) DonationPercentage() decimal.Decimal {
	return DonationPercentage(p.DonationTotal(), p.TotalTarget)
}

// ProgressPercentage is DonationPercentage capped at 100 for display.
func (p *Project) ProgressPercentage() decimal.Decimal {
	return decimal.Min(p.DonationPercentage(), decimal.NewFromInt(100))
}

func (p *Project) DonationCount() int {
	return len(p.Donations)
}

func (p *Project) AverageRating() float64 {
	return AverageRating(p.Ratings)
}

func (p *Project) RatingCount() int {
	return len(p.Ratings)
}

// UserRating returns the value the given user rated this project with, or nil.
func (p *Project) UserRating(userID uint) *int {
	for _, r := range p.Ratings {
		if r.UserID == userID {
			v := r.Value
			return &v
		}
	}
	return nil
}

func (p *Project) CanBeCancelled() bool {
	return CanBeCancelled(p.Status, p.DonationPercentage())
}

// DonationTotal sums donation amounts; zero when there are none.
func DonationTotal(donations []Donation) decimal.Decimal {
	total := decimal.Zero
	for _, d := range donations {
		total = total.Add(d.Amount)
	}
	return total
}

// DonationPercentage is total/target*100, not capped. A zero target yields 0.
func DonationPercentage(total, target decimal.Decimal) decimal.Decimal {
	if !target.IsPositive() {
		return decimal.Zero
	}
	return total.Div(target).Mul(decimal.NewFromInt(100))
}

// AverageRating is the arithmetic mean of the rating values, 0 when empty.
func AverageRating(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Value
	}
	return float64(sum) / float64(len(ratings))
}

func CanBeCancelled(status ProjectStatus, percentage decimal.Decimal) bool {
	return status == StatusActive && percentage.LessThan(CancellationThreshold)
}
