package service

import (
	"context"
	"fmt"
	"strings"

	"approvals/internal/models"
	"approvals/internal/repository"
	"approvals/internal/validation"
	"approvals/internal/workflow"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// RequestService implements request creation, reading and owner edits.
type RequestService struct {
	requests repository.RequestRepository
	sops     repository.SOPRepository
	audit    repository.AuditRepository
	resolver *workflow.Resolver
}

// RequestInput holds the descriptive fields a requester controls.
type RequestInput struct {
	Title           string
	Purpose         string
	College         string
	Department      string
	CostEstimate    float64
	ExpenseCategory string
	SOPReference    string
	Attachments     []string
}

// ListInput are the query parameters of a request listing.
type ListInput struct {
	Page             int
	Limit            int
	Status           string
	College          string
	PendingApprovals bool
}

// ListResult is one page of requests.
type ListResult struct {
	Requests []models.Request
	Page     int
	Limit    int
	Total    int64
	Pages    int
}

// ActionOption is an action the caller may take and where it can lead.
type ActionOption struct {
	Action  workflow.Action   `json:"action"`
	Targets []workflow.Status `json:"targets"`
}

func NewRequestService(
	requests repository.RequestRepository,
	sops repository.SOPRepository,
	audit repository.AuditRepository,
	resolver *workflow.Resolver,
) *RequestService {
	return &RequestService{requests: requests, sops: sops, audit: audit, resolver: resolver}
}

// Create files a new request as SUBMITTED with its CREATE history entry.
func (s *RequestService) Create(ctx context.Context, actor Actor, in RequestInput) (*models.Request, error) {
	if actor.Role != workflow.RoleRequester {
		return nil, models.NewForbiddenError("Only requesters can create requests")
	}
	in = in.normalized()
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	req := &models.Request{RequesterID: actor.ID}
	in.applyTo(req)
	notes := "Request submitted"
	entry := &models.HistoryEntry{
		Action:    workflow.ActionCreate,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Notes:     &notes,
		NewStatus: workflow.StatusSubmitted,
	}
	if err := s.requests.Create(ctx, req, entry); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, actor, req.ID, models.AuditRequestCreated, map[string]interface{}{
		"title":         req.Title,
		"cost_estimate": req.CostEstimate,
	})
	return req, nil
}

// Get returns a request the actor may see.
func (s *RequestService) Get(ctx context.Context, actor Actor, id uint) (*models.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, req) {
		return nil, models.NewForbiddenError("You cannot view this request")
	}
	return req, nil
}

// History returns the ordered history of a request the actor may see.
func (s *RequestService) History(ctx context.Context, actor Actor, id uint) ([]models.HistoryEntry, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.requests.History(ctx, id)
}

// List pages through requests. Requesters only ever see their own. With
// PendingApprovals set, only requests awaiting the actor's role are returned.
func (s *RequestService) List(ctx context.Context, actor Actor, in ListInput) (*ListResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	result := &ListResult{Page: page, Limit: limit, Requests: []models.Request{}}

	filter := repository.RequestFilter{
		College: strings.TrimSpace(in.College),
		Limit:   limit,
		Offset:  (page - 1) * limit,
	}
	if actor.Role == workflow.RoleRequester {
		filter.RequesterID = &actor.ID
	}

	if in.PendingApprovals {
		filter.Statuses = workflow.StatusesFor(actor.Role)
		if len(filter.Statuses) == 0 {
			return result, nil
		}
	}

	if raw := strings.TrimSpace(in.Status); raw != "" && raw != "pending" {
		status, ok := workflow.ParseStatus(raw)
		if !ok {
			return nil, models.NewValidationError(fmt.Sprintf("Unknown status %q", raw))
		}
		if in.PendingApprovals && !containsStatus(filter.Statuses, status) {
			return result, nil
		}
		filter.Statuses = []workflow.Status{status}
	}

	requests, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	result.Requests = requests
	result.Total = total
	result.Pages = int((total + int64(limit) - 1) / int64(limit))
	return result, nil
}

// Update edits the descriptive fields of the actor's own request while it is
// submitted or awaiting the requester's clarification.
func (s *RequestService) Update(ctx context.Context, actor Actor, id uint, in RequestInput) (*models.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != actor.ID {
		return nil, models.NewForbiddenError("Only the requester can edit this request")
	}
	if req.Status != workflow.StatusSubmitted && req.Status != workflow.StatusClarificationRequired {
		return nil, models.NewValidationError("Request can only be edited while submitted or awaiting clarification")
	}
	in = in.normalized()
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	in.applyTo(req)
	guard := repository.DetailsUpdate{ExpectedStatus: req.Status, ExpectedVersion: req.Version}
	if err := s.requests.UpdateDetails(ctx, req, guard); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, actor, req.ID, models.AuditRequestUpdated, map[string]interface{}{
		"title":         req.Title,
		"cost_estimate": req.CostEstimate,
	})
	return req, nil
}

// Delete soft-deletes the actor's own request before anyone has acted on it.
func (s *RequestService) Delete(ctx context.Context, actor Actor, id uint) error {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req.RequesterID != actor.ID {
		return models.NewForbiddenError("Only the requester can delete this request")
	}
	if req.Status != workflow.StatusSubmitted {
		return models.NewValidationError("Only submitted requests can be deleted")
	}

	guard := repository.DetailsUpdate{ExpectedStatus: req.Status, ExpectedVersion: req.Version}
	if err := s.requests.Delete(ctx, id, guard); err != nil {
		return err
	}
	recordAudit(ctx, s.audit, actor, id, models.AuditRequestDeleted, map[string]interface{}{"title": req.Title})
	return nil
}

// AvailableActions lists what the actor can do to the request now and the
// statuses each action can lead to.
func (s *RequestService) AvailableActions(ctx context.Context, actor Actor, id uint) ([]ActionOption, error) {
	req, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	options := []ActionOption{}
	if !workflow.CanAct(req.Status, actor.Role) {
		return options, nil
	}
	if actor.Role == workflow.RoleRequester && req.RequesterID != actor.ID {
		return options, nil
	}

	candidates := map[workflow.Action][]workflow.Context{
		workflow.ActionApprove: {
			workflow.ApproveContext{},
			workflow.ApproveContext{BudgetAvailable: workflow.Bool(true)},
			workflow.ApproveContext{BudgetAvailable: workflow.Bool(false)},
			workflow.ApproveContext{BudgetAvailable: workflow.Bool(false), DirectToChairman: workflow.Bool(true)},
		},
		workflow.ActionReject: {workflow.RejectContext{}},
		workflow.ActionClarify: {
			workflow.ClarifyContext{},
			workflow.ClarifyContext{Type: workflow.ClarifySOP},
			workflow.ClarifyContext{Type: workflow.ClarifyAccountant},
			workflow.ClarifyContext{Type: workflow.ClarifyDepartment},
		},
		workflow.ActionForward: {workflow.ForwardContext{}},
	}
	order := []workflow.Action{workflow.ActionApprove, workflow.ActionReject, workflow.ActionClarify, workflow.ActionForward}

	for _, action := range order {
		var targets []workflow.Status
		for _, c := range candidates[action] {
			next, ok := s.resolver.Resolve(req.Status, actor.Role, c)
			if ok && !containsStatus(targets, next) {
				targets = append(targets, next)
			}
		}
		if len(targets) > 0 {
			options = append(options, ActionOption{Action: action, Targets: targets})
		}
	}
	return options, nil
}

func (s *RequestService) validate(ctx context.Context, in RequestInput) error {
	fields := validation.RequestFields{
		Title:           in.Title,
		Purpose:         in.Purpose,
		College:         in.College,
		Department:      in.Department,
		CostEstimate:    in.CostEstimate,
		ExpenseCategory: in.ExpenseCategory,
		SOPReference:    in.SOPReference,
		Attachments:     in.Attachments,
	}
	if err := validation.ValidateRequest(fields); err != nil {
		return models.NewValidationError(err.Error())
	}
	if in.SOPReference == "" || s.sops == nil {
		return nil
	}

	sop, err := s.sops.GetByCode(ctx, in.SOPReference)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.NewValidationError(fmt.Sprintf("SOP reference %s does not exist", in.SOPReference))
		}
		return err
	}
	if !sop.IsActive {
		return models.NewValidationError(fmt.Sprintf("SOP reference %s is no longer active", sop.Code))
	}
	return nil
}

func (in RequestInput) normalized() RequestInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Purpose = strings.TrimSpace(in.Purpose)
	in.College = strings.TrimSpace(in.College)
	in.Department = strings.TrimSpace(in.Department)
	in.ExpenseCategory = strings.TrimSpace(in.ExpenseCategory)
	in.SOPReference = strings.ToUpper(strings.TrimSpace(in.SOPReference))
	return in
}

func (in RequestInput) applyTo(req *models.Request) {
	req.Title = in.Title
	req.Purpose = in.Purpose
	req.College = in.College
	req.Department = in.Department
	req.CostEstimate = in.CostEstimate
	req.ExpenseCategory = in.ExpenseCategory
	req.SOPReference = nil
	if in.SOPReference != "" {
		ref := in.SOPReference
		req.SOPReference = &ref
	}
	req.Attachments = cleanAttachments(in.Attachments)
	if req.Attachments == nil {
		req.Attachments = []string{}
	}
}

func canView(actor Actor, req *models.Request) bool {
	return actor.IsApprover() || req.RequesterID == actor.ID
}

func containsStatus(list []workflow.Status, s workflow.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
