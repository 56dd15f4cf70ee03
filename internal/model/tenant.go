package model

import (
	"time"

	"gorm.io/gorm"
)

// Tenant represents an organization/workspace scoping tasks, resources,
// categories and prompts. This is the core of the multi-tenant architecture.
type Tenant struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	PIN       string         `json:"-" gorm:"type:varchar(4);not null"` // 4-digit confirmation secret for destructive actions
	AvatarURL string         `json:"avatar_url" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
