package model

import (
	"time"

	"gorm.io/gorm"
)

// Task status values
const (
	TaskStatusOpen       = "open"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

// Task represents a tenant-scoped task
type Task struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TenantID    uint           `json:"tenant_id" gorm:"index;not null"`
	Title       string         `json:"title" gorm:"type:varchar(200);not null"`
	Description string         `json:"description" gorm:"type:text"`
	Status      string         `json:"status" gorm:"type:varchar(20);default:'open'"`
	Assignee    string         `json:"assignee" gorm:"type:varchar(100);index"` // assignee email
	DueDate     *time.Time     `json:"due_date"`
	CreatorID   uint           `json:"creator_id" gorm:"index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// Comment represents a comment on a task
type Comment struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	TaskID    uint           `json:"task_id" gorm:"index;not null"`
	AuthorID  uint           `json:"author_id" gorm:"index;not null"`
	Body      string         `json:"body" gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TaskPermission grants a user visibility of tasks assigned to a specific
// assignee. A user with zero rows has no restriction configured and sees all
// tenant tasks.
type TaskPermission struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index:idx_task_perm,unique;not null"`
	Assignee  string    `json:"assignee" gorm:"type:varchar(100);index:idx_task_perm,unique;not null"`
	CreatedAt time.Time `json:"created_at"`
}
