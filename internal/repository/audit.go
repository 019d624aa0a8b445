package repository

import (
	"context"

	"approvals/internal/models"

	"gorm.io/gorm"
)

// AuditRepository stores operator audit rows.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListByRequest(ctx context.Context, requestID uint) ([]models.AuditLog, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository returns a new AuditRepository implementation.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *auditRepository) ListByRequest(ctx context.Context, requestID uint) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := readDB(r.db).WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return logs, nil
}
