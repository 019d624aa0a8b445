package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"approvals/internal/seed"
	"approvals/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	ts := newTestServer(t, "")

	tests := []struct {
		name     string
		body     interface{}
		expected int
	}{
		{"valid credentials", loginRequest{Email: seed.UserEmail(workflow.RoleDean), Password: "password123"}, http.StatusOK},
		{"email is case-insensitive", loginRequest{Email: "DEAN@srm.edu", Password: "password123"}, http.StatusOK},
		{"wrong password", loginRequest{Email: seed.UserEmail(workflow.RoleDean), Password: "nope"}, http.StatusUnauthorized},
		{"unknown user", loginRequest{Email: "ghost@srm.edu", Password: "password123"}, http.StatusUnauthorized},
		{"missing fields", loginRequest{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ts.do(http.MethodPost, "/api/auth/login", "", tt.body)
			assert.Equal(t, tt.expected, status, body)
			if tt.expected == http.StatusOK {
				assert.NotEmpty(t, body["token"])
				user, ok := body["user"].(map[string]interface{})
				require.True(t, ok)
				assert.Equal(t, "dean", user["role"])
				assert.NotContains(t, user, "password")
			}
		})
	}
}

func TestLogin_MalformedBody(t *testing.T) {
	ts := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, "")

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := ts.app.Test(req, -1)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestAuthRequired_RoleMismatch(t *testing.T) {
	ts := newTestServer(t, "")

	// A token claiming a role the account does not hold is rejected.
	token, _, err := ts.s.tokens.Issue(ts.users[workflow.RoleRequester], workflow.RoleChairman)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMeAndLogout(t *testing.T) {
	ts := newTestServer(t, "")

	_, login := ts.do(http.MethodPost, "/api/auth/login", "",
		loginRequest{Email: seed.UserEmail(workflow.RoleAccountant), Password: "password123"})
	token, ok := login["token"].(string)
	require.True(t, ok)

	call := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := ts.app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/api/auth/me"))
	assert.Equal(t, http.StatusOK, call(http.MethodPost, "/api/auth/logout"))
	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/api/auth/me"))
	assert.NotEmpty(t, ts.mr.Keys())
}
