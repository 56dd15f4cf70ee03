package model

import (
	"time"

	"gorm.io/gorm"
)

// EmailPrompt represents a tenant-scoped reusable email prompt.
// Only the original creator may edit or delete a prompt, independent of role.
type EmailPrompt struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	TenantID  uint           `json:"tenant_id" gorm:"index;not null"`
	Name      string         `json:"name" gorm:"type:varchar(200);not null"`
	Subject   string         `json:"subject" gorm:"type:varchar(200)"`
	Body      string         `json:"body" gorm:"type:text"`
	CreatorID uint           `json:"creator_id" gorm:"index;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
