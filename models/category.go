package models

import (
	"time"
)

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
}

// DefaultCategories is the catalogue seeded by the seed-categories command.
var DefaultCategories = []string{
	"Technology",
	"Art & Design",
	"Music",
	"Film & Video",
	"Games",
	"Publishing",
	"Food & Craft",
	"Fashion",
	"Health & Fitness",
	"Education",
	"Environment",
	"Community",
	"Science",
	"Sports",
	"Travel",
}
