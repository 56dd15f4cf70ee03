package model

import (
	"time"

	"gorm.io/gorm"
)

// Invite grants account creation only. Accepting an invite creates a user
// and their own tenant; it does not add the invitee to the inviter's tenant.
type Invite struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Code      string         `json:"code" gorm:"type:varchar(36);uniqueIndex;not null"`
	Email     string         `json:"email" gorm:"type:varchar(100);not null"`
	CreatorID uint           `json:"creator_id" gorm:"index;not null"`
	Used      bool           `json:"used" gorm:"default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
