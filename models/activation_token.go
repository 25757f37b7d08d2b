package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivationToken proves ownership of a user's email address. It is consumed
// (deleted) on first use, whether that use succeeds or finds it expired.
type ActivationToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Token     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"token"`
}

func NewActivationToken(userID uint) *ActivationToken {
	return &ActivationToken{
		UserID: userID,
		Token:  uuid.New(),
	}
}

func (t *ActivationToken) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.After(t.CreatedAt.Add(ttl))
}
