package repository

import (
	"context"
	"errors"
	"strings"

	"approvals/internal/cache"
	"approvals/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SOPRepository reads standard operating procedures.
type SOPRepository interface {
	GetByCode(ctx context.Context, code string) (*models.SOPRecord, error)
	ListActive(ctx context.Context) ([]models.SOPRecord, error)
	Upsert(ctx context.Context, record *models.SOPRecord) error
}

type sopRepository struct {
	db *gorm.DB
}

// NewSOPRepository returns a new SOPRepository implementation.
func NewSOPRepository(db *gorm.DB) SOPRepository {
	return &sopRepository{db: db}
}

func (r *sopRepository) GetByCode(ctx context.Context, code string) (*models.SOPRecord, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var record models.SOPRecord
	err := cache.Aside(ctx, cache.SOPKey(code), &record, cache.SOPTTL, func() error {
		err := readDB(r.db).WithContext(ctx).Where("code = ?", code).First(&record).Error
		if err != nil {
			return notFoundOr(err, "SOP", code)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *sopRepository) ListActive(ctx context.Context) ([]models.SOPRecord, error) {
	var records []models.SOPRecord
	err := cache.Aside(ctx, cache.SOPListKey, &records, cache.SOPTTL, func() error {
		err := readDB(r.db).WithContext(ctx).
			Where("is_active = ?", true).
			Order("code").
			Find(&records).Error
		if err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *sopRepository) Upsert(ctx context.Context, record *models.SOPRecord) error {
	record.Code = strings.ToUpper(strings.TrimSpace(record.Code))
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "college", "department",
			"requires_budget_check", "minimum_amount", "is_active", "updated_at",
		}),
	}).Create(record).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("SOP code already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateSOP(ctx, record.Code)
	return nil
}

// IsNotFound reports whether err is a NotFound AppError.
func IsNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}
