package database

import "approvals/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Request{},
		&models.HistoryEntry{},
		&models.BudgetRecord{},
		&models.SOPRecord{},
		&models.AuditLog{},
	}
}
