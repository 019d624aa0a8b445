package models

import "time"

// BudgetRecord is the allocation for one college, department and category in a fiscal year.
type BudgetRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	College    string    `gorm:"size:120;not null;uniqueIndex:idx_budget_scope" json:"college"`
	Department string    `gorm:"size:120;not null;uniqueIndex:idx_budget_scope" json:"department"`
	Category   string    `gorm:"size:80;not null;uniqueIndex:idx_budget_scope" json:"category"`
	FiscalYear string    `gorm:"size:16;not null;uniqueIndex:idx_budget_scope" json:"fiscal_year"`
	Allocated  float64   `gorm:"not null;default:0" json:"allocated"`
	Spent      float64   `gorm:"not null;default:0" json:"spent"`
	Available  float64   `gorm:"not null;default:0" json:"available"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (BudgetRecord) TableName() string {
	return "budget_records"
}

// Covers reports whether the remaining allocation pays for amount.
func (b *BudgetRecord) Covers(amount float64) bool {
	return b.Available >= amount
}
