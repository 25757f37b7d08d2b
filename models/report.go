package models

import (
	"time"
)

type ReportReason string

const (
	ReasonInappropriate ReportReason = "inappropriate"
	ReasonSpam          ReportReason = "spam"
	ReasonViolence      ReportReason = "violence"
	ReasonCopyright     ReportReason = "copyright"
	ReasonHarassment    ReportReason = "harassment"
	ReasonHateSpeech    ReportReason = "hate_speech"
	ReasonOther         ReportReason = "other"
)

// ReasonChoice pairs a reason with its form label.
type ReasonChoice struct {
	Value ReportReason
	Label string
}

var ProjectReportReasons = []ReasonChoice{
	{ReasonInappropriate, "Inappropriate Content"},
	{ReasonSpam, "Spam or Misleading"},
	{ReasonViolence, "Violence or Harmful"},
	{ReasonCopyright, "Copyright Violation"},
	{ReasonOther, "Other"},
}

var CommentReportReasons = []ReasonChoice{
	{ReasonInappropriate, "Inappropriate Content"},
	{ReasonSpam, "Spam or Misleading"},
	{ReasonHarassment, "Harassment or Bullying"},
	{ReasonHateSpeech, "Hate Speech"},
	{ReasonOther, "Other"},
}

func IsValidReason(choices []ReasonChoice, reason ReportReason) bool {
	for _, c := range choices {
		if c.Value == reason {
			return true
		}
	}
	return false
}

// ProjectReport is unique per (user, project).
type ProjectReport struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time    `json:"timestamp"`
	UserID      uint         `gorm:"not null;uniqueIndex:idx_project_report_user_target" json:"user_id"`
	User        User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	ProjectID   uint         `gorm:"not null;uniqueIndex:idx_project_report_user_target" json:"project_id"`
	Project     Project      `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	Reason      ReportReason `gorm:"not null;size:20" json:"reason"`
	Description string       `gorm:"type:text;not null" json:"description"`
	IsResolved  bool         `gorm:"default:false" json:"is_resolved"`
}

// CommentReport is unique per (user, comment).
type CommentReport struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time    `json:"timestamp"`
	UserID      uint         `gorm:"not null;uniqueIndex:idx_comment_report_user_target" json:"user_id"`
	User        User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CommentID   uint         `gorm:"not null;uniqueIndex:idx_comment_report_user_target" json:"comment_id"`
	Comment     Comment      `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"comment,omitempty"`
	Reason      ReportReason `gorm:"not null;size:20" json:"reason"`
	Description string       `gorm:"type:text;not null" json:"description"`
	IsResolved  bool         `gorm:"default:false" json:"is_resolved"`
}
