package models

import "time"

// SOPRecord is a standard operating procedure a request may cite.
type SOPRecord struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Code                string    `gorm:"size:40;not null;uniqueIndex" json:"code"`
	Title               string    `gorm:"size:200;not null" json:"title"`
	Description         string    `gorm:"type:text" json:"description"`
	College             string    `gorm:"size:120;not null" json:"college"`
	Department          *string   `gorm:"size:120" json:"department,omitempty"`
	RequiresBudgetCheck bool      `gorm:"not null" json:"requires_budget_check"`
	MinimumAmount       *float64  `json:"minimum_amount,omitempty"`
	IsActive            bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (SOPRecord) TableName() string {
	return "sop_records"
}
