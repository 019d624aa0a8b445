package repository

import (
	"context"
	"errors"
	"time"

	"approvals/internal/models"
	"approvals/internal/observability"
	"approvals/internal/workflow"

	"gorm.io/gorm"
)

const requestsTable = "requests"

// RequestFilter narrows a request listing.
type RequestFilter struct {
	RequesterID *uint
	Statuses    []workflow.Status
	College     string
	Limit       int
	Offset      int
}

// Transition is one conditional status change of a request. It is applied
// only while the stored request still has ExpectedStatus and ExpectedVersion.
type Transition struct {
	RequestID       uint
	ExpectedStatus  workflow.Status
	ExpectedVersion int
	NewStatus       workflow.Status
	Entry           models.HistoryEntry
	// AppendAttachments are added to the request's own attachment list.
	AppendAttachments []string
	// NotBefore is the timestamp of the current last history entry.
	NotBefore time.Time
}

// DetailsUpdate guards an edit of a request's descriptive fields.
type DetailsUpdate struct {
	ExpectedStatus  workflow.Status
	ExpectedVersion int
}

// RequestRepository persists request aggregates. History rows are only ever
// inserted; nothing here updates or deletes one.
type RequestRepository interface {
	Create(ctx context.Context, req *models.Request, entry *models.HistoryEntry) error
	GetByID(ctx context.Context, id uint) (*models.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]models.Request, int64, error)
	History(ctx context.Context, id uint) ([]models.HistoryEntry, error)
	UpdateDetails(ctx context.Context, req *models.Request, guard DetailsUpdate) error
	Delete(ctx context.Context, id uint, guard DetailsUpdate) error
	ApplyTransition(ctx context.Context, t Transition) (*models.Request, error)
}

type requestRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewRequestRepository returns a new RequestRepository implementation.
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db, log: observability.NewRepoLogger(requestsTable)}
}

// Create stores req with its CREATE entry as sequence 1.
func (r *requestRepository) Create(ctx context.Context, req *models.Request, entry *models.HistoryEntry) error {
	defer observability.TrackQuery("create", requestsTable)()

	req.Status = entry.NewStatus
	req.Version = 1
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("History", "Requester").Create(req).Error; err != nil {
			return err
		}
		entry.RequestID = req.ID
		entry.Seq = 1
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = req.CreatedAt
		}
		return tx.Omit("Actor").Create(entry).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}

	req.History = []models.HistoryEntry{*entry}
	r.log.LogCreate(ctx, map[string]interface{}{"id": req.ID, "requester_id": req.RequesterID})
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id uint) (*models.Request, error) {
	return getRequest(ctx, readDB(r.db), id)
}

func getRequest(ctx context.Context, db *gorm.DB, id uint) (*models.Request, error) {
	defer observability.TrackQuery("get", requestsTable)()

	var req models.Request
	err := db.WithContext(ctx).
		Preload("Requester").
		Preload("History", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("seq ASC")
		}).
		First(&req, id).Error
	if err != nil {
		return nil, notFoundOr(err, "Request", id)
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]models.Request, int64, error) {
	defer observability.TrackQuery("list", requestsTable)()

	q := readDB(r.db).WithContext(ctx).Model(&models.Request{})
	if filter.RequesterID != nil {
		q = q.Where("requester_id = ?", *filter.RequesterID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.College != "" {
		q = q.Where("college = ?", filter.College)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var requests []models.Request
	err := q.Preload("Requester").
		Order("created_at DESC, id DESC").
		Limit(clampLimit(filter.Limit, 10, 100)).
		Offset(filter.Offset).
		Find(&requests).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return requests, total, nil
}

func (r *requestRepository) History(ctx context.Context, id uint) ([]models.HistoryEntry, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Request{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if count == 0 {
		return nil, models.NewNotFoundError("Request", id)
	}

	var entries []models.HistoryEntry
	err := readDB(r.db).WithContext(ctx).
		Preload("Actor").
		Where("request_id = ?", id).
		Order("seq ASC").
		Find(&entries).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}

// UpdateDetails writes the descriptive fields of req. Status, version and
// history are never touched.
func (r *requestRepository) UpdateDetails(ctx context.Context, req *models.Request, guard DetailsUpdate) error {
	defer observability.TrackQuery("update", requestsTable)()

	res := r.db.WithContext(ctx).Model(&models.Request{}).
		Where("id = ? AND status = ? AND version = ?", req.ID, guard.ExpectedStatus, guard.ExpectedVersion).
		Select("Title", "Purpose", "College", "Department", "CostEstimate", "ExpenseCategory", "SOPReference", "Attachments").
		Updates(req)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "update")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewConflictError("Request changed since it was read")
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"id": req.ID})
	return nil
}

func (r *requestRepository) Delete(ctx context.Context, id uint, guard DetailsUpdate) error {
	defer observability.TrackQuery("delete", requestsTable)()

	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND version = ?", id, guard.ExpectedStatus, guard.ExpectedVersion).
		Delete(&models.Request{})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewConflictError("Request changed since it was read")
	}
	r.log.LogDelete(ctx, map[string]interface{}{"id": id})
	return nil
}

// ApplyTransition moves a request to t.NewStatus and appends t.Entry in one
// database transaction. A request that no longer matches the expected status
// and version yields a Conflict error and nothing is written.
func (r *requestRepository) ApplyTransition(ctx context.Context, t Transition) (*models.Request, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "ApplyTransition", requestsTable)
	defer span.End()
	observability.AnnotateTransition(ctx, t.RequestID, string(t.ExpectedStatus), string(t.NewStatus))
	defer observability.TrackQuery("transition", requestsTable)()

	now := time.Now().UTC()
	if now.Before(t.NotBefore) {
		now = t.NotBefore
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Request{}).
			Where("id = ? AND status = ? AND version = ?", t.RequestID, t.ExpectedStatus, t.ExpectedVersion).
			Updates(map[string]interface{}{
				"status":     t.NewStatus,
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStale
		}

		entry := t.Entry
		entry.ID = 0
		entry.RequestID = t.RequestID
		entry.Seq = t.ExpectedVersion + 1
		entry.NewStatus = t.NewStatus
		entry.CreatedAt = now
		if err := tx.Omit("Actor").Create(&entry).Error; err != nil {
			if isUniqueConstraintError(err) {
				return errStale
			}
			return err
		}

		if len(t.AppendAttachments) == 0 {
			return nil
		}
		var current models.Request
		if err := tx.Select("id", "attachments").First(&current, t.RequestID).Error; err != nil {
			return err
		}
		current.Attachments = append(current.Attachments, t.AppendAttachments...)
		return tx.Model(&current).Select("Attachments").Updates(&current).Error
	})
	if err != nil {
		if errors.Is(err, errStale) {
			observability.MarkStale(ctx)
			return nil, models.NewConflictError("Request was modified by another actor; reload and retry")
		}
		observability.RecordErrorInContext(ctx, err)
		r.log.LogError(ctx, err, "transition")
		return nil, models.NewInternalError(err)
	}

	r.log.LogUpdate(ctx, map[string]interface{}{
		"id":     t.RequestID,
		"status": t.NewStatus,
		"seq":    t.ExpectedVersion + 1,
	})

	// Read back from the primary so the caller never sees replica lag.
	return getRequest(ctx, r.db, t.RequestID)
}

var errStale = errors.New("request precondition failed")
