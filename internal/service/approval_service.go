package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"approvals/internal/featureflags"
	"approvals/internal/middleware"
	"approvals/internal/models"
	"approvals/internal/observability"
	"approvals/internal/repository"
	"approvals/internal/validation"
	"approvals/internal/workflow"

	"go.opentelemetry.io/otel/attribute"
)

// ErrNoApplicableRule marks a decision the workflow has no transition for.
var ErrNoApplicableRule = errors.New("no applicable rule")

// ApprovalService coordinates workflow transitions: it loads a request,
// checks the actor, resolves the next status and writes the change
// conditionally so concurrent actors cannot both win.
type ApprovalService struct {
	requests   repository.RequestRepository
	budgets    repository.BudgetRepository
	audit      repository.AuditRepository
	resolver   *workflow.Resolver
	flags      *featureflags.Manager
	fiscalYear string
}

// ApplyInput is one actor decision on one request.
type ApplyInput struct {
	RequestID   uint
	Actor       Actor
	Notes       string
	Attachments []string
	Context     workflow.Context
}

func NewApprovalService(
	requests repository.RequestRepository,
	budgets repository.BudgetRepository,
	audit repository.AuditRepository,
	resolver *workflow.Resolver,
	flags *featureflags.Manager,
	fiscalYear string,
) *ApprovalService {
	return &ApprovalService{
		requests:   requests,
		budgets:    budgets,
		audit:      audit,
		resolver:   resolver,
		flags:      flags,
		fiscalYear: fiscalYear,
	}
}

// Apply performs in.Context's action on the request and returns the updated
// aggregate. Nothing is written unless the whole transition succeeds.
func (s *ApprovalService) Apply(ctx context.Context, in ApplyInput) (*models.Request, error) {
	start := time.Now()
	ctx, span := observability.GetTraceLayer().TraceServiceCall(ctx, "ApprovalService", "Apply")
	defer span.End()

	if in.Context == nil {
		return nil, models.NewValidationError("Unsupported action")
	}
	action := in.Context.Action()
	span.SetAttributes(
		attribute.Int64("request.id", int64(in.RequestID)),
		attribute.String("workflow.action", string(action)),
		attribute.String("user.role", string(in.Actor.Role)),
	)

	var from workflow.Status
	fail := func(err error) (*models.Request, error) {
		outcome := outcomeFor(err)
		observability.RecordTransition(string(action), "", outcome, start)
		observability.LogTransition(ctx, in.RequestID, string(action), string(from), "", outcome, err)
		if outcome == observability.OutcomeError {
			observability.RecordErrorInContext(ctx, err)
		}
		return nil, err
	}

	if err := validateApplyInput(in); err != nil {
		return fail(err)
	}

	req, err := s.requests.GetByID(ctx, in.RequestID)
	if err != nil {
		return fail(err)
	}
	from = req.Status

	if !workflow.CanAct(req.Status, in.Actor.Role) {
		return fail(models.NewForbiddenError(fmt.Sprintf(
			"Role %s cannot act on a request in status %s", in.Actor.Role, req.Status)))
	}
	if in.Actor.Role == workflow.RoleRequester && req.RequesterID != in.Actor.ID {
		return fail(models.NewForbiddenError("Only the requester can respond to a clarification"))
	}

	decision := in.Context
	if approve, ok := decision.(workflow.ApproveContext); ok {
		decision = s.autofillBudget(ctx, req, in.Actor, approve)
	}

	next, ok := s.resolver.Resolve(req.Status, in.Actor.Role, decision)
	if !ok {
		return fail(&models.AppError{
			Code:    models.CodeValidation,
			Message: fmt.Sprintf("Cannot %s a request in status %s as %s", action, req.Status, in.Actor.Role),
			Err:     ErrNoApplicableRule,
		})
	}

	entry, appendToRequest := buildEntry(req, in, decision)
	transition := repository.Transition{
		RequestID:         req.ID,
		ExpectedStatus:    req.Status,
		ExpectedVersion:   req.Version,
		NewStatus:         next,
		Entry:             entry,
		AppendAttachments: appendToRequest,
	}
	if last := req.LastEntry(); last != nil {
		transition.NotBefore = last.CreatedAt
	}

	updated, err := s.requests.ApplyTransition(ctx, transition)
	if err != nil {
		return fail(err)
	}

	observability.RecordTransition(string(action), string(next), observability.OutcomeApplied, start)
	observability.LogTransition(ctx, req.ID, string(action), string(from), string(next), observability.OutcomeApplied, nil)
	recordAudit(ctx, s.audit, in.Actor, req.ID, models.AuditRequestTransitioned, map[string]interface{}{
		"action": action,
		"from":   from,
		"to":     next,
		"seq":    req.Version + 1,
	})

	return updated, nil
}

// autofillBudget fills in budget availability from the budget records when an
// institution manager approves at the verification fork without stating it.
func (s *ApprovalService) autofillBudget(ctx context.Context, req *models.Request, actor Actor, c workflow.ApproveContext) workflow.ApproveContext {
	if _, known := c.BudgetKnown(); known {
		return c
	}
	if req.Status != workflow.StatusInstitutionVerified || actor.Role != workflow.RoleInstitutionManager {
		return c
	}
	if s.budgets == nil || !s.flags.EnabledFor(featureflags.BudgetAutofill, actor.ID, string(actor.Role)) {
		return c
	}

	record, err := s.budgets.Find(ctx, req.College, req.Department, req.ExpenseCategory, s.fiscalYear)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "budget lookup failed",
			slog.Uint64("request_id", uint64(req.ID)),
			slog.String("error", err.Error()))
		return c
	}
	if record == nil {
		return c
	}
	c.BudgetAvailable = workflow.Bool(record.Covers(req.CostEstimate))
	return c
}

// buildEntry returns the history entry for a decision and the attachments to
// add to the request itself.
func buildEntry(req *models.Request, in ApplyInput, decision workflow.Context) (models.HistoryEntry, []string) {
	prev := req.Status
	entry := models.HistoryEntry{
		Action:         decision.Action(),
		ActorID:        in.Actor.ID,
		ActorRole:      in.Actor.Role,
		PreviousStatus: &prev,
	}
	notes := strings.TrimSpace(in.Notes)
	attachments := cleanAttachments(in.Attachments)

	switch c := decision.(type) {
	case workflow.ForwardContext:
		msg := strings.TrimSpace(c.Message)
		if msg == "" {
			msg = notes
		}
		if msg != "" {
			entry.ForwardedMessage = &msg
		}
		entry.Attachments = attachments
		return entry, nil
	case workflow.ApproveContext:
		entry.BudgetAvailable = copyBool(c.BudgetAvailable)
		entry.DirectToChairman = copyBool(c.DirectToChairman)
	case workflow.ClarifyContext:
		if c.Type != "" {
			target := string(c.Type)
			entry.ClarificationTarget = &target
		}
	}

	if notes != "" {
		entry.Notes = &notes
	}
	if len(attachments) == 0 {
		return entry, nil
	}
	entry.Attachments = attachments
	return entry, attachments
}

func validateApplyInput(in ApplyInput) error {
	if in.RequestID == 0 {
		return models.NewValidationError("Request ID is required")
	}
	if !in.Actor.Role.Valid() {
		return models.NewForbiddenError("Unknown role")
	}
	if err := validation.ValidateNotes(in.Notes); err != nil {
		return models.NewValidationError(err.Error())
	}
	if fwd, ok := in.Context.(workflow.ForwardContext); ok {
		if err := validation.ValidateNotes(fwd.Message); err != nil {
			return models.NewValidationError(err.Error())
		}
	}
	if err := validation.ValidateAttachments(in.Attachments); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

func outcomeFor(err error) observability.TransitionOutcome {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return observability.OutcomeError
	}
	switch appErr.Code {
	case models.CodeForbidden, models.CodeUnauthorized:
		return observability.OutcomeForbidden
	case models.CodeNotFound:
		return observability.OutcomeNotFound
	case models.CodeConflict:
		return observability.OutcomeConflict
	case models.CodeValidation:
		if errors.Is(err, ErrNoApplicableRule) {
			return observability.OutcomeNoRule
		}
		return observability.OutcomeInvalid
	}
	return observability.OutcomeError
}

func cleanAttachments(in []string) []string {
	var out []string
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
