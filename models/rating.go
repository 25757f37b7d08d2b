package models

import (
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Rating is unique per (user, project); a second submission updates the row.
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"timestamp"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_rating_user_project" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_rating_user_project;index" json:"project_id"`
	Value     int       `gorm:"column:rating;not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
}

func ValidRating(v int) bool {
	return v >= MinRating && v <= MaxRating
}
