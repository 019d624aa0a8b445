package repository

import (
	"context"
	"errors"

	"approvals/internal/cache"
	"approvals/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BudgetFilter narrows a budget listing. Empty fields match everything.
type BudgetFilter struct {
	College    string
	Department string
	Category   string
	FiscalYear string
}

// BudgetRepository reads budget allocations.
type BudgetRepository interface {
	Find(ctx context.Context, college, department, category, fiscalYear string) (*models.BudgetRecord, error)
	List(ctx context.Context, filter BudgetFilter) ([]models.BudgetRecord, error)
	Upsert(ctx context.Context, record *models.BudgetRecord) error
}

type budgetRepository struct {
	db *gorm.DB
}

// NewBudgetRepository returns a new BudgetRepository implementation.
func NewBudgetRepository(db *gorm.DB) BudgetRepository {
	return &budgetRepository{db: db}
}

// Find returns the record for one allocation scope, or nil when none exists.
func (r *budgetRepository) Find(ctx context.Context, college, department, category, fiscalYear string) (*models.BudgetRecord, error) {
	var record models.BudgetRecord
	var missing bool
	key := cache.BudgetKey(college, department, category, fiscalYear)

	err := cache.Aside(ctx, key, &record, cache.BudgetTTL, func() error {
		err := readDB(r.db).WithContext(ctx).
			Where("college = ? AND department = ? AND category = ? AND fiscal_year = ?",
				college, department, category, fiscalYear).
			First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			missing = true
			return errBudgetMissing
		}
		if err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if missing {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

var errBudgetMissing = errors.New("budget record missing")

func (r *budgetRepository) List(ctx context.Context, filter BudgetFilter) ([]models.BudgetRecord, error) {
	q := readDB(r.db).WithContext(ctx).Model(&models.BudgetRecord{})
	if filter.College != "" {
		q = q.Where("college = ?", filter.College)
	}
	if filter.Department != "" {
		q = q.Where("department = ?", filter.Department)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.FiscalYear != "" {
		q = q.Where("fiscal_year = ?", filter.FiscalYear)
	}

	records := []models.BudgetRecord{}
	if err := q.Order("college, department, category").Find(&records).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return records, nil
}

func (r *budgetRepository) Upsert(ctx context.Context, record *models.BudgetRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "college"}, {Name: "department"}, {Name: "category"}, {Name: "fiscal_year"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"allocated", "spent", "available", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.BudgetKey(record.College, record.Department, record.Category, record.FiscalYear))
	return nil
}
