package model

import (
	"time"

	"gorm.io/gorm"
)

// Membership represents the association between users and tenants.
// This enables multi-tenancy by allowing users to belong to multiple tenants.
//
// IsAdmin is deliberately nullable: rows created before the admin flag existed
// carry NULL, which behaves like admin for category actions but is distinct
// from an explicit false. See authz.AdminLevelOf.
type Membership struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"index:idx_membership_user_tenant,unique;not null"`
	TenantID  uint           `json:"tenant_id" gorm:"index:idx_membership_user_tenant,unique;not null"`
	IsOwner   bool           `json:"is_owner" gorm:"default:false"`
	IsAdmin   *bool          `json:"is_admin"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User   User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Tenant Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}
