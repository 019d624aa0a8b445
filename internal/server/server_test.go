package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"approvals/internal/config"
	"approvals/internal/database"
	"approvals/internal/seed"
	"approvals/internal/workflow"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testServer struct {
	t     *testing.T
	s     *Server
	app   *fiber.App
	db    *gorm.DB
	mr    *miniredis.Miniredis
	users map[workflow.Role]uint
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

// newTestServer builds the full app over sqlite and miniredis with the
// reference accounts loaded.
func newTestServer(t *testing.T, flags string) *testServer {
	t.Helper()

	db := setupSQLiteDB(t)
	fixtures, err := seed.LoadFixtures(nil)
	require.NoError(t, err)
	require.NoError(t, seed.Reference(context.Background(), db, fixtures, seed.ReferenceOptions{SkipBcrypt: true, BudgetSeed: 1}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret:    testSecret,
		JWTTTLHours:  1,
		Env:          "test",
		FiscalYear:   "2024-25",
		FeatureFlags: flags,
	}
	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	app := NewApp()
	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	ts := &testServer{t: t, s: s, app: app, db: db, mr: mr, users: make(map[workflow.Role]uint)}
	for _, role := range workflow.Roles() {
		u, err := s.userRepo.GetByEmail(context.Background(), seed.UserEmail(role))
		require.NoError(t, err)
		require.NotNil(t, u, role)
		ts.users[role] = u.ID
	}
	return ts
}

func (ts *testServer) token(role workflow.Role) string {
	ts.t.Helper()
	token, _, err := ts.s.tokens.Issue(ts.users[role], role)
	require.NoError(ts.t, err)
	return token
}

// do sends a request as role (empty role sends no token) and decodes the JSON body.
func (ts *testServer) do(method, path string, role workflow.Role, body interface{}) (int, map[string]interface{}) {
	ts.t.Helper()
	status, raw := ts.doRaw(method, path, role, body)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(ts.t, json.Unmarshal(raw, &out), string(raw))
	}
	return status, out
}

func (ts *testServer) doRaw(method, path string, role workflow.Role, body interface{}) (int, []byte) {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token(role))
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(ts.t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(ts.t, err)
	return resp.StatusCode, raw
}

func TestHealthChecks(t *testing.T) {
	ts := newTestServer(t, "")

	status, body := ts.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", body["status"])

	status, body = ts.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	ts.mr.Close()
	status, body = ts.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "degraded", body["status"])
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	ts := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/requests", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp, err = ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestUnknownRouteKeepsJSONShape(t *testing.T) {
	ts := newTestServer(t, "")

	status, body := ts.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body["error"])
}

func TestHumanizeParam(t *testing.T) {
	tests := map[string]string{
		"id":             "ID",
		"requestId":      "request ID",
		"historyEntryId": "history entry ID",
		"code":           "code",
	}
	for in, want := range tests {
		assert.Equal(t, want, humanizeParam(in), in)
	}
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(parsePagination(c, defaultPageLimit))
	})

	cases := []struct {
		query string
		want  Pagination
	}{
		{"", Pagination{Page: 1, Limit: 10}},
		{"?page=3&limit=25", Pagination{Page: 3, Limit: 25}},
		{"?page=-2&limit=0", Pagination{Page: 1, Limit: 10}},
		{"?limit=1000", Pagination{Page: 1, Limit: 100}},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tc.query, nil))
		require.NoError(t, err)
		var got Pagination
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		_ = resp.Body.Close()
		assert.Equal(t, tc.want, got, tc.query)
	}
}
