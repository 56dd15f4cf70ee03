package model

import (
	"time"

	"gorm.io/gorm"
)

// Resource represents a tenant-scoped link/tool entry
type Resource struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TenantID    uint           `json:"tenant_id" gorm:"index;not null"`
	Title       string         `json:"title" gorm:"type:varchar(200);not null"`
	URL         string         `json:"url" gorm:"type:text"`
	Description string         `json:"description" gorm:"type:text"`
	ImageURL    string         `json:"image_url" gorm:"type:text"`
	CategoryID  *uint          `json:"category_id" gorm:"index"`
	CreatorID   uint           `json:"creator_id" gorm:"index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// ResourceTemplate is a reusable, tenant-independent resource definition
// offered by the resource library.
type ResourceTemplate struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	Title              string         `json:"title" gorm:"type:varchar(200);not null"`
	URL                string         `json:"url" gorm:"type:text"`
	Description        string         `json:"description" gorm:"type:text"`
	ImageURL           string         `json:"image_url" gorm:"type:text"`
	CategoryTemplateID *uint          `json:"category_template_id" gorm:"index"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	CategoryTemplate *CategoryTemplate `json:"category_template,omitempty" gorm:"foreignKey:CategoryTemplateID"`
}

// ResourceTemplateLink records that a template has been imported into a
// tenant, so re-importing the same template is detectable.
type ResourceTemplateLink struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	TemplateID uint      `json:"template_id" gorm:"index:idx_template_tenant,unique;not null"`
	TenantID   uint      `json:"tenant_id" gorm:"index:idx_template_tenant,unique;not null"`
	ResourceID uint      `json:"resource_id" gorm:"index;not null"`
	CreatedAt  time.Time `json:"created_at"`
}
