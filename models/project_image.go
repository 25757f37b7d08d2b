package models

import (
	"time"
)

// ProjectImage is one picture in a project's gallery. At most one image per
// project has IsPrimary set; services.SetPrimaryImage maintains that.
type ProjectImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ProjectID uint      `gorm:"not null;index" json:"project_id"`
	ObjectKey string    `gorm:"not null;size:255" json:"object_key"`
	Caption   string    `gorm:"size:200" json:"caption"`
	IsPrimary bool      `gorm:"default:false" json:"is_primary"`
}
