package service

import (
	"context"
	"sync"
	"testing"

	"approvals/internal/database"
	"approvals/internal/featureflags"
	"approvals/internal/models"
	"approvals/internal/repository"
	"approvals/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db        *gorm.DB
	requests  repository.RequestRepository
	budgets   repository.BudgetRepository
	sops      repository.SOPRepository
	audit     repository.AuditRepository
	resolver  *workflow.Resolver
	actors    map[workflow.Role]Actor
	approvals *ApprovalService
	service   *RequestService
}

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// newTestEnv wires real repositories over sqlite with one user per role.
func newTestEnv(t *testing.T, flags string) *testEnv {
	t.Helper()
	db := setupSQLiteDB(t)
	env := &testEnv{
		db:       db,
		requests: repository.NewRequestRepository(db),
		budgets:  repository.NewBudgetRepository(db),
		sops:     repository.NewSOPRepository(db),
		audit:    repository.NewAuditRepository(db),
		resolver: workflow.NewResolver(workflow.DefaultRules()),
		actors:   make(map[workflow.Role]Actor),
	}
	for _, role := range workflow.Roles() {
		u := &models.User{
			Email:    string(role) + "@srm.edu",
			Name:     string(role),
			EmpID:    "EMP-" + string(role),
			Password: "x",
			Role:     role,
			College:  "Engineering",
			IsActive: true,
		}
		require.NoError(t, db.Create(u).Error)
		env.actors[role] = Actor{ID: u.ID, Role: role, IP: "10.0.0.1"}
	}
	env.approvals = NewApprovalService(env.requests, env.budgets, env.audit, env.resolver, featureflags.NewManager(flags), "2024-25")
	env.service = NewRequestService(env.requests, env.sops, env.audit, env.resolver)
	return env
}

func (e *testEnv) actor(role workflow.Role) Actor {
	return e.actors[role]
}

func sampleInput() RequestInput {
	return RequestInput{
		Title:           "Lab oscilloscopes",
		Purpose:         "Replace three broken oscilloscopes in the electronics lab",
		College:         "Engineering",
		Department:      "Electrical",
		CostEstimate:    1200,
		ExpenseCategory: "Equipment",
		Attachments:     []string{"quote.pdf"},
	}
}

func (e *testEnv) newRequest(t *testing.T) *models.Request {
	t.Helper()
	req, err := e.service.Create(context.Background(), e.actor(workflow.RoleRequester), sampleInput())
	require.NoError(t, err)
	return req
}

func (e *testEnv) apply(t *testing.T, id uint, role workflow.Role, c workflow.Context) *models.Request {
	t.Helper()
	req, err := e.approvals.Apply(context.Background(), ApplyInput{RequestID: id, Actor: e.actor(role), Context: c})
	require.NoError(t, err, "%s by %s", c.Action(), role)
	return req
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, code, appErr.Code)
	}
}

// barrierRepo holds every GetByID until n callers have loaded the request,
// so all of them act on the same version.
type barrierRepo struct {
	repository.RequestRepository
	wg *sync.WaitGroup
}

func newBarrierRepo(inner repository.RequestRepository, n int) *barrierRepo {
	wg := &sync.WaitGroup{}
	wg.Add(n)
	return &barrierRepo{RequestRepository: inner, wg: wg}
}

func (b *barrierRepo) GetByID(ctx context.Context, id uint) (*models.Request, error) {
	req, err := b.RequestRepository.GetByID(ctx, id)
	b.wg.Done()
	b.wg.Wait()
	return req, err
}

// userRepoStub lets tests replace single UserRepository methods.
type userRepoStub struct {
	getByIDFn    func(ctx context.Context, id uint) (*models.User, error)
	getByEmailFn func(ctx context.Context, email string) (*models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}

func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}

func (s *userRepoStub) Create(context.Context, *models.User) error { return nil }

func (s *userRepoStub) Upsert(context.Context, *models.User) error { return nil }

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		},
		getByEmailFn: func(context.Context, string) (*models.User, error) {
			return nil, nil
		},
	}
}
