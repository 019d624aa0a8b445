// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"approvals/internal/workflow"

	"gorm.io/gorm"
)

// User is an institution member who files or acts on requests.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Email      string         `gorm:"uniqueIndex;not null" json:"email"`
	Name       string         `gorm:"not null" json:"name"`
	EmpID      string         `gorm:"column:emp_id;uniqueIndex;not null" json:"emp_id"`
	Password   string         `gorm:"not null" json:"-"`
	Role       workflow.Role  `gorm:"type:varchar(32);not null;index" json:"role"`
	College    string         `gorm:"size:120" json:"college"`
	Department string         `gorm:"size:120" json:"department"`
	IsActive   bool           `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}
