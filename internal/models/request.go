package models

import (
	"time"

	"approvals/internal/workflow"

	"gorm.io/gorm"
)

// Request is a purchase or expense request moving through the approval
// pipeline. Status and Version change only through a recorded transition.
type Request struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Title           string          `gorm:"size:200;not null" json:"title"`
	Purpose         string          `gorm:"type:text;not null" json:"purpose"`
	College         string          `gorm:"size:120;not null;index" json:"college"`
	Department      string          `gorm:"size:120;not null" json:"department"`
	CostEstimate    float64         `gorm:"not null;default:0" json:"cost_estimate"`
	ExpenseCategory string          `gorm:"size:80;not null" json:"expense_category"`
	SOPReference    *string         `gorm:"column:sop_reference;size:40" json:"sop_reference,omitempty"`
	Attachments     []string        `gorm:"type:text;serializer:json" json:"attachments"`
	RequesterID     uint            `gorm:"not null;index" json:"requester_id"`
	Requester       *User           `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Status          workflow.Status `gorm:"type:varchar(40);not null;index" json:"status"`
	Version         int             `gorm:"not null;default:0" json:"version"`
	History         []HistoryEntry  `gorm:"foreignKey:RequestID" json:"history,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM.
func (Request) TableName() string {
	return "requests"
}

// LastEntry returns the newest history entry, or nil when history is not loaded.
func (r *Request) LastEntry() *HistoryEntry {
	if len(r.History) == 0 {
		return nil
	}
	return &r.History[len(r.History)-1]
}

// HistoryEntry is one immutable step of a request's audit trail.
type HistoryEntry struct {
	ID                  uint             `gorm:"primaryKey" json:"id"`
	RequestID           uint             `gorm:"not null;uniqueIndex:idx_request_history_seq" json:"request_id"`
	Seq                 int              `gorm:"not null;uniqueIndex:idx_request_history_seq" json:"seq"`
	Action              workflow.Action  `gorm:"type:varchar(16);not null" json:"action"`
	ActorID             uint             `gorm:"not null;index" json:"actor_id"`
	Actor               *User            `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	ActorRole           workflow.Role    `gorm:"type:varchar(32);not null" json:"actor_role"`
	Notes               *string          `gorm:"type:text" json:"notes,omitempty"`
	BudgetAvailable     *bool            `json:"budget_available,omitempty"`
	DirectToChairman    *bool            `json:"direct_to_chairman,omitempty"`
	ForwardedMessage    *string          `gorm:"type:text" json:"forwarded_message,omitempty"`
	Attachments         []string         `gorm:"type:text;serializer:json" json:"attachments,omitempty"`
	ClarificationTarget *string          `gorm:"size:16" json:"clarification_target,omitempty"`
	PreviousStatus      *workflow.Status `gorm:"type:varchar(40)" json:"previous_status,omitempty"`
	NewStatus           workflow.Status  `gorm:"type:varchar(40);not null" json:"new_status"`
	CreatedAt           time.Time        `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (HistoryEntry) TableName() string {
	return "request_history"
}
