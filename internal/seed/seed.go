package seed

import (
	"context"
	"fmt"
	"log/slog"

	"approvals/internal/featureflags"
	"approvals/internal/middleware"
	"approvals/internal/models"
	"approvals/internal/repository"
	"approvals/internal/service"
	"approvals/internal/workflow"

	"gorm.io/gorm"
)

// tables in delete order, children first.
var tables = []string{"request_history", "audit_logs", "requests", "budget_records", "sop_records", "users"}

// Seeder creates demo requests by driving them through the real services, so
// every seeded history is one the workflow could have produced.
type Seeder struct {
	db        *gorm.DB
	fixtures  *Fixtures
	factory   *Factory
	users     repository.UserRepository
	requests  *service.RequestService
	approvals *service.ApprovalService
}

// NewSeeder wires a seeder over db.
func NewSeeder(db *gorm.DB, f *Fixtures, seed int64) *Seeder {
	resolver := workflow.NewResolver(workflow.DefaultRules())
	requestRepo := repository.NewRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	return &Seeder{
		db:       db,
		fixtures: f,
		factory:  NewFactory(seed, f),
		users:    repository.NewUserRepository(db),
		requests: service.NewRequestService(requestRepo, repository.NewSOPRepository(db), auditRepo, resolver),
		approvals: service.NewApprovalService(
			requestRepo, repository.NewBudgetRepository(db), auditRepo, resolver,
			featureflags.NewManager(""), f.FiscalYear,
		),
	}
}

// ClearAll deletes every row of the application tables.
func (s *Seeder) ClearAll(ctx context.Context) error {
	for _, table := range tables {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// SampleRequests files n requests as the seeded requester and advances each a
// random number of steps along the approval path. Roughly one in eight ends
// rejected. Reference data must already be loaded.
func (s *Seeder) SampleRequests(ctx context.Context, n int) ([]*models.Request, error) {
	actors, err := s.actors(ctx)
	if err != nil {
		return nil, err
	}
	requester, ok := actors[workflow.RoleRequester]
	if !ok {
		return nil, fmt.Errorf("no seeded requester account")
	}

	pathLen := len(workflow.LinearPath())
	out := make([]*models.Request, 0, n)
	for i := 0; i < n; i++ {
		req, err := s.requests.Create(ctx, requester, s.factory.RequestInput())
		if err != nil {
			return out, fmt.Errorf("create sample request %d: %w", i+1, err)
		}

		id := req.ID
		steps := s.factory.Intn(pathLen)
		for step := 0; step < steps && !req.Status.Terminal(); step++ {
			req, err = s.advance(ctx, actors, req)
			if err != nil {
				return out, fmt.Errorf("advance sample request %d: %w", id, err)
			}
		}
		if !req.Status.Terminal() && s.factory.Chance(12) {
			req, err = s.act(ctx, actors, req, workflow.RejectContext{})
			if err != nil {
				return out, fmt.Errorf("reject sample request %d: %w", id, err)
			}
		}

		out = append(out, req)
	}

	middleware.Logger.Info("seeded sample requests", slog.Int("count", len(out)))
	return out, nil
}

func (s *Seeder) advance(ctx context.Context, actors map[workflow.Role]service.Actor, req *models.Request) (*models.Request, error) {
	return s.act(ctx, actors, req, workflow.ApproveContext{BudgetAvailable: workflow.Bool(true)})
}

func (s *Seeder) act(ctx context.Context, actors map[workflow.Role]service.Actor, req *models.Request, decision workflow.Context) (*models.Request, error) {
	roles := workflow.RequiredApprovers(req.Status)
	if len(roles) == 0 {
		return req, nil
	}
	actor, ok := actors[roles[0]]
	if !ok {
		return nil, fmt.Errorf("no seeded account for role %s", roles[0])
	}
	return s.approvals.Apply(ctx, service.ApplyInput{
		RequestID: req.ID,
		Actor:     actor,
		Notes:     s.factory.Notes(),
		Context:   decision,
	})
}

func (s *Seeder) actors(ctx context.Context) (map[workflow.Role]service.Actor, error) {
	out := make(map[workflow.Role]service.Actor, len(s.fixtures.Users))
	for _, u := range s.fixtures.Users {
		user, err := s.users.GetByEmail(ctx, UserEmail(u.Role))
		if err != nil {
			return nil, err
		}
		if user == nil {
			continue
		}
		out[u.Role] = service.Actor{ID: user.ID, Role: user.Role, IP: "127.0.0.1"}
	}
	return out, nil
}
