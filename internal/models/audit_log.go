package models

import "time"

// Audit actions recorded outside the request history.
const (
	AuditRequestCreated      = "request_created"
	AuditRequestUpdated      = "request_updated"
	AuditRequestDeleted      = "request_deleted"
	AuditRequestTransitioned = "request_transitioned"
)

// AuditLog is an operator-facing record of who did what and from where.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RequestID *uint     `gorm:"index" json:"request_id,omitempty"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Action    string    `gorm:"size:40;not null" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"size:64" json:"ip_address"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
