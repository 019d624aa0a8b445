package server

import (
	"fmt"
	"net/http"
	"testing"

	"approvals/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequestBody() requestBody {
	return requestBody{
		Title:           "Oscilloscopes for the signals lab",
		Purpose:         "Replace the two broken bench oscilloscopes before term starts",
		College:         "Engineering",
		Department:      "Computer Science",
		CostEstimate:    42000,
		ExpenseCategory: "Equipment",
		SOPReference:    "sop-001",
		Attachments:     []string{"quote-1.pdf"},
	}
}

// createRequest files a request as the seeded requester and returns its ID.
func (ts *testServer) createRequest() uint {
	ts.t.Helper()
	status, body := ts.do(http.MethodPost, "/api/requests", workflow.RoleRequester, validRequestBody())
	require.Equal(ts.t, http.StatusCreated, status, body)
	id, ok := body["id"].(float64)
	require.True(ts.t, ok)
	return uint(id)
}

func requestPath(id uint, suffix string) string {
	return fmt.Sprintf("/api/requests/%d%s", id, suffix)
}

func TestCreateRequest(t *testing.T) {
	ts := newTestServer(t, "")

	status, body := ts.do(http.MethodPost, "/api/requests", workflow.RoleRequester, validRequestBody())
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "submitted", body["status"])
	assert.Equal(t, float64(1), body["version"])
	assert.Equal(t, "SOP-001", body["sop_reference"])
	assert.Equal(t, float64(ts.users[workflow.RoleRequester]), body["requester_id"])

	progress, ok := body["progress"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), progress["step"])
	assert.Equal(t, true, progress["on_path"])
	assert.Equal(t, false, progress["awaiting_clarification"])
	assert.Equal(t, []interface{}{"institution_manager"}, body["required_approvers"])
}

func TestCreateRequest_Rejections(t *testing.T) {
	ts := newTestServer(t, "")

	tests := []struct {
		name     string
		role     workflow.Role
		mutate   func(*requestBody)
		expected int
	}{
		{"approver cannot file", workflow.RoleInstitutionManager, nil, http.StatusForbidden},
		{"short title", workflow.RoleRequester, func(b *requestBody) { b.Title = "Hi" }, http.StatusBadRequest},
		{"negative cost", workflow.RoleRequester, func(b *requestBody) { b.CostEstimate = -1 }, http.StatusBadRequest},
		{"missing college", workflow.RoleRequester, func(b *requestBody) { b.College = " " }, http.StatusBadRequest},
		{"unknown SOP", workflow.RoleRequester, func(b *requestBody) { b.SOPReference = "SOP-999" }, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validRequestBody()
			if tt.mutate != nil {
				tt.mutate(&body)
			}
			status, resp := ts.do(http.MethodPost, "/api/requests", tt.role, body)
			assert.Equal(t, tt.expected, status, resp)
			assert.NotEmpty(t, resp["error"])
		})
	}

	status, _ := ts.do(http.MethodPost, "/api/requests", "", validRequestBody())
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestGetRequest(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createRequest()

	status, body := ts.do(http.MethodGet, requestPath(id, ""), workflow.RoleRequester, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Oscilloscopes for the signals lab", body["title"])
	history, ok := body["history"].([]interface{})
	require.True(t, ok)
	assert.Len(t, history, 1)

	status, _ = ts.do(http.MethodGet, requestPath(id, ""), workflow.RoleDean, nil)
	assert.Equal(t, http.StatusOK, status, "approvers can read any request")

	status, body = ts.do(http.MethodGet, "/api/requests/abc", workflow.RoleRequester, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid ID", body["error"])

	status, _ = ts.do(http.MethodGet, "/api/requests/9999", workflow.RoleRequester, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListRequests(t *testing.T) {
	ts := newTestServer(t, "")
	first := ts.createRequest()
	ts.createRequest()
	ts.createRequest()

	status, body := ts.do(http.MethodGet, "/api/requests?limit=2", workflow.RoleRequester, nil)
	require.Equal(t, http.StatusOK, status)
	requests, ok := body["requests"].([]interface{})
	require.True(t, ok)
	assert.Len(t, requests, 2)
	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(3), pagination["total"])
	assert.Equal(t, float64(2), pagination["pages"])

	// Move one request past the manager so pending lists diverge.
	status, _ = ts.do(http.MethodPost, requestPath(first, "/approve"), workflow.RoleInstitutionManager,
		decisionBody{Action: "approve"})
	require.Equal(t, http.StatusOK, status)

	status, body = ts.do(http.MethodGet, "/api/requests?pendingApprovals=true&status=submitted", workflow.RoleInstitutionManager, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["requests"], 2)

	status, body = ts.do(http.MethodGet, "/api/requests?pendingApprovals=true", workflow.RoleInstitutionManager, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["requests"], 3, "submitted and manager_review both await the manager")

	status, body = ts.do(http.MethodGet, "/api/requests?pendingApprovals=true", workflow.RoleChairman, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["requests"])

	status, _ = ts.do(http.MethodGet, "/api/requests?status=bogus", workflow.RoleDean, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUpdateAndDeleteRequest(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createRequest()

	edited := validRequestBody()
	edited.Title = "Three oscilloscopes for the signals lab"
	edited.CostEstimate = 63000
	status, body := ts.do(http.MethodPut, requestPath(id, ""), workflow.RoleRequester, edited)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, edited.Title, body["title"])
	assert.Equal(t, float64(63000), body["cost_estimate"])

	status, _ = ts.do(http.MethodPut, requestPath(id, ""), workflow.RoleDean, edited)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.do(http.MethodDelete, requestPath(id, ""), workflow.RoleRequester, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.do(http.MethodGet, requestPath(id, ""), workflow.RoleRequester, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeleteRequest_AfterApproval(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createRequest()

	status, _ := ts.do(http.MethodPost, requestPath(id, "/approve"), workflow.RoleInstitutionManager,
		decisionBody{Action: "approve"})
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.do(http.MethodDelete, requestPath(id, ""), workflow.RoleRequester, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRequestHistoryAndActions(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createRequest()

	status, raw := ts.doRaw(http.MethodGet, requestPath(id, "/history"), workflow.RoleRequester, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `"action":"create"`)

	status, body := ts.do(http.MethodGet, requestPath(id, "/actions"), workflow.RoleInstitutionManager, nil)
	require.Equal(t, http.StatusOK, status)
	actions, ok := body["actions"].([]interface{})
	require.True(t, ok)
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, a.(map[string]interface{})["action"].(string))
	}
	assert.Equal(t, []string{"approve", "reject", "clarify", "forward"}, names)

	status, body = ts.do(http.MethodGet, requestPath(id, "/actions"), workflow.RoleChairman, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["actions"])
}
