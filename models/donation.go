package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Donation rows are never updated after creation.
type Donation struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time       `gorm:"index" json:"timestamp"`
	UserID    uint            `gorm:"not null;index" json:"user_id"`
	User      User            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	ProjectID uint            `gorm:"not null;index" json:"project_id"`
	Project   *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
}
