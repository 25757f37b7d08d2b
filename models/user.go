package models

import (
	"strings"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Username       string     `gorm:"uniqueIndex;not null;size:150" json:"username"`
	FirstName      string     `gorm:"size:150" json:"first_name"`
	LastName       string     `gorm:"size:150" json:"last_name"`
	Email          string     `gorm:"uniqueIndex;not null;size:254" json:"email"`
	PhoneNumber    *string    `gorm:"uniqueIndex;size:15" json:"phone_number"`
	Birthdate      *time.Time `gorm:"type:date" json:"birthdate"`
	Gender         Gender     `gorm:"size:10" json:"gender"`
	Country        string     `gorm:"size:50" json:"country"`
	ProfilePicture string     `gorm:"size:255" json:"profile_picture"`
	Bio            string     `gorm:"type:text" json:"bio"`
	PasswordHash   string     `gorm:"not null" json:"-"`
	IsActive       bool       `gorm:"default:false" json:"is_active"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Username
}

func (u *User) Owns(p *Project) bool {
	return p != nil && p.OwnerID == u.ID
}
