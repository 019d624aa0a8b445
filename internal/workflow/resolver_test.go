package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_RejectAlwaysRejects(t *testing.T) {
	t.Parallel()
	r := NewResolver(DefaultRules())

	for _, status := range Statuses() {
		for _, role := range RequiredApprovers(status) {
			next, ok := r.Resolve(status, role, RejectContext{})
			require.True(t, ok, "%s/%s", status, role)
			assert.Equal(t, StatusRejected, next, "%s/%s", status, role)
		}
	}
}

func TestResolve_Clarify(t *testing.T) {
	t.Parallel()
	r := NewResolver(DefaultRules())

	tests := []struct {
		name    string
		current Status
		role    Role
		target  ClarificationType
		want    Status
	}{
		{"manager asks sop", StatusManagerReview, RoleInstitutionManager, ClarifySOP, StatusSOPClarification},
		{"manager asks accountant", StatusBudgetCheck, RoleInstitutionManager, ClarifyAccountant, StatusBudgetClarification},
		{"dean asks department", StatusDeanReview, RoleDean, ClarifyDepartment, StatusDepartmentClarification},
		{"manager asks department falls back", StatusManagerReview, RoleInstitutionManager, ClarifyDepartment, StatusClarificationRequired},
		{"dean asks sop falls back", StatusDeanReview, RoleDean, ClarifySOP, StatusClarificationRequired},
		{"vp without target", StatusVPApproval, RoleVP, "", StatusClarificationRequired},
		{"accountant asks sop", StatusBudgetCheck, RoleAccountant, ClarifySOP, StatusClarificationRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := r.Resolve(tt.current, tt.role, ClarifyContext{Type: tt.target})
			require.True(t, ok)
			assert.Equal(t, tt.want, next)
		})
	}
}

func TestResolve_Forward(t *testing.T) {
	t.Parallel()
	r := NewResolver(DefaultRules())

	tests := []struct {
		name    string
		current Status
		role    Role
		want    Status
	}{
		{"manager review to vp", StatusManagerReview, RoleInstitutionManager, StatusVPApproval},
		{"institution verified to vp", StatusInstitutionVerified, RoleInstitutionManager, StatusVPApproval},
		{"vp to hoi", StatusVPApproval, RoleVP, StatusHOIApproval},
		{"hoi to dean", StatusHOIApproval, RoleHeadOfInstitution, StatusDeanReview},
		{"dean to chief director", StatusDeanReview, RoleDean, StatusChiefDirectorApproval},
		{"chief director to chairman", StatusChiefDirectorApproval, RoleChiefDirector, StatusChairmanApproval},
		{"no shortcut keeps status", StatusBudgetCheck, RoleAccountant, StatusBudgetCheck},
		{"manager at submitted keeps status", StatusSubmitted, RoleInstitutionManager, StatusSubmitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := r.Resolve(tt.current, tt.role, ForwardContext{Message: "fyi"})
			require.True(t, ok)
			assert.Equal(t, tt.want, next)
			assert.Equal(t, tt.want != tt.current, ForwardChangesStatus(tt.current, tt.role))
		})
	}
}

func TestResolve_InstitutionVerifiedFork(t *testing.T) {
	t.Parallel()
	r := NewResolver(DefaultRules())

	next, ok := r.Resolve(StatusInstitutionVerified, RoleInstitutionManager, ApproveContext{BudgetAvailable: Bool(true)})
	require.True(t, ok)
	assert.Equal(t, StatusVPApproval, next)

	next, ok = r.Resolve(StatusInstitutionVerified, RoleInstitutionManager, ApproveContext{BudgetAvailable: Bool(false)})
	require.True(t, ok)
	assert.Equal(t, StatusDeanReview, next)

	// Without a budget decision the unconditional edge applies.
	next, ok = r.Resolve(StatusInstitutionVerified, RoleInstitutionManager, ApproveContext{})
	require.True(t, ok)
	assert.Equal(t, StatusVPApproval, next)
}

func TestResolve_DeanReviewBranches(t *testing.T) {
	t.Parallel()
	r := NewResolver(DefaultRules())

	tests := []struct {
		name string
		ctx  ApproveContext
		want Status
	}{
		{"no budget direct to chairman", ApproveContext{BudgetAvailable: Bool(false), DirectToChairman: Bool(true)}, StatusChairmanApproval},
		{"no budget via departments", ApproveContext{BudgetAvailable: Bool(false), DirectToChairman: Bool(false)}, StatusDepartmentChecks},
		{"no budget flag unset", ApproveContext{BudgetAvailable: Bool(false)}, StatusDepartmentChecks},
		{"budget available ignores shortcut", ApproveContext{BudgetAvailable: Bool(true), DirectToChairman: Bool(true)}, StatusDepartmentChecks},
		{"no context", ApproveContext{}, StatusDepartmentChecks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := r.Resolve(StatusDeanReview, RoleDean, tt.ctx)
			require.True(t, ok)
			assert.Equal(t, tt.want, next)
		})
	}
}

func TestResolve_ClarificationLoopsClose(t *testing.T) {
	t.Parallel()
	r := NewResolver(DefaultRules())

	for _, role := range RequiredApprovers(StatusSOPClarification) {
		next, ok := r.Resolve(StatusSOPClarification, role, ApproveContext{})
		require.True(t, ok, role)
		assert.Equal(t, StatusManagerReview, next, role)
	}

	next, ok := r.Resolve(StatusBudgetClarification, RoleAccountant, ApproveContext{})
	require.True(t, ok)
	assert.Equal(t, StatusManagerReview, next)

	for _, role := range DepartmentRoles {
		next, ok = r.Resolve(StatusDepartmentClarification, role, ApproveContext{})
		require.True(t, ok)
		assert.Equal(t, StatusDeanReview, next)
	}

	next, ok = r.Resolve(StatusClarificationRequired, RoleRequester, ApproveContext{})
	require.True(t, ok)
	assert.Equal(t, StatusSubmitted, next)
}

func TestResolve_NoApplicableRule(t *testing.T) {
	t.Parallel()
	r := NewResolver(DefaultRules())

	_, ok := r.Resolve(StatusSubmitted, RoleVP, ApproveContext{})
	assert.False(t, ok)

	_, ok = r.Resolve(StatusApproved, RoleChairman, ApproveContext{})
	assert.False(t, ok)

	_, ok = r.Resolve(StatusSubmitted, RoleInstitutionManager, nil)
	assert.False(t, ok)
}

func TestResolve_EveryApproverCanApprove(t *testing.T) {
	t.Parallel()
	r := NewResolver(DefaultRules())

	for _, status := range Statuses() {
		for _, role := range RequiredApprovers(status) {
			_, ok := r.Resolve(status, role, ApproveContext{})
			assert.True(t, ok, "approver %s has no approve edge from %s", role, status)
		}
	}
}

func TestResolve_HappyPathReachesApproved(t *testing.T) {
	t.Parallel()
	r := NewResolver(DefaultRules())

	steps := []struct {
		role Role
		ctx  ApproveContext
	}{
		{RoleInstitutionManager, ApproveContext{}},
		{RoleInstitutionManager, ApproveContext{}},
		{RoleMMA, ApproveContext{}},
		{RoleAccountant, ApproveContext{}},
		{RoleInstitutionManager, ApproveContext{BudgetAvailable: Bool(true)}},
		{RoleVP, ApproveContext{}},
		{RoleHeadOfInstitution, ApproveContext{}},
		{RoleDean, ApproveContext{}},
		{RoleHR, ApproveContext{}},
		{RoleDean, ApproveContext{}},
		{RoleChiefDirector, ApproveContext{}},
		{RoleChairman, ApproveContext{}},
	}

	status := StatusSubmitted
	for i, step := range steps {
		require.True(t, CanAct(status, step.role), "step %d: %s cannot act on %s", i, step.role, status)
		next, ok := r.Resolve(status, step.role, step.ctx)
		require.True(t, ok, "step %d from %s", i, status)
		status = next
	}

	assert.Equal(t, StatusApproved, status)
	step, total := Progress(status)
	assert.Equal(t, total, step)
}
