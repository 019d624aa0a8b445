package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules_Validate(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultRules().Validate())
}

func TestRuleTable_ValidateFindsProblems(t *testing.T) {
	t.Parallel()

	shadowed := RuleTable{
		{From: StatusDeanReview, To: StatusDepartmentChecks, Role: RoleDean},
		{From: StatusDeanReview, To: StatusChairmanApproval, Role: RoleDean, When: func(ApproveContext) bool { return true }},
	}
	assert.ErrorContains(t, shadowed.Validate(), "shadows")

	terminal := RuleTable{{From: StatusApproved, To: StatusSubmitted, Role: RoleChairman}}
	assert.ErrorContains(t, terminal.Validate(), "terminal")

	unknown := RuleTable{{From: "drafted", To: StatusSubmitted, Role: "janitor"}}
	err := unknown.Validate()
	assert.ErrorContains(t, err, "unknown status")
	assert.ErrorContains(t, err, "unknown role")
}

func TestRuleTable_FirstMatchWins(t *testing.T) {
	t.Parallel()
	table := RuleTable{
		{From: StatusSubmitted, To: StatusManagerReview, Role: RoleInstitutionManager, When: func(c ApproveContext) bool { return c.BudgetAvailable != nil }},
		{From: StatusSubmitted, To: StatusSOPVerification, Role: RoleInstitutionManager},
		{From: StatusSubmitted, To: StatusBudgetCheck, Role: RoleInstitutionManager},
	}

	e, ok := table.Match(StatusSubmitted, RoleInstitutionManager, ApproveContext{})
	require.True(t, ok)
	assert.Equal(t, StatusSOPVerification, e.To)

	e, ok = table.Match(StatusSubmitted, RoleInstitutionManager, ApproveContext{BudgetAvailable: Bool(true)})
	require.True(t, ok)
	assert.Equal(t, StatusManagerReview, e.To)

	assert.Len(t, table.From(StatusSubmitted), 3)
	assert.Empty(t, table.From(StatusApproved))
}

func TestRequiredApprovers(t *testing.T) {
	t.Parallel()

	assert.ElementsMatch(t,
		[]Role{RoleMMA, RoleHR, RoleAudit, RoleIT, RoleSOPVerifier},
		RequiredApprovers(StatusSOPVerification))
	assert.Equal(t, []Role{RoleRequester}, RequiredApprovers(StatusClarificationRequired))
	assert.Empty(t, RequiredApprovers(StatusApproved))
	assert.Empty(t, RequiredApprovers(StatusRejected))
	assert.Empty(t, RequiredApprovers("unknown"))

	for _, role := range Roles() {
		assert.False(t, CanAct(StatusApproved, role))
		assert.False(t, CanAct(StatusRejected, role))
	}

	// Every non-terminal status has someone who can act on it.
	for _, s := range Statuses() {
		if s.Terminal() {
			continue
		}
		assert.NotEmpty(t, RequiredApprovers(s), s)
	}
}

func TestRequiredApprovers_ReturnsCopy(t *testing.T) {
	t.Parallel()
	roles := RequiredApprovers(StatusBudgetCheck)
	roles[0] = RoleChairman
	assert.Equal(t, []Role{RoleAccountant}, RequiredApprovers(StatusBudgetCheck))
}

func TestStatusesFor(t *testing.T) {
	t.Parallel()
	assert.ElementsMatch(t,
		[]Status{StatusDeanReview, StatusDeanVerification},
		StatusesFor(RoleDean))
	assert.ElementsMatch(t,
		[]Status{StatusSOPVerification, StatusDepartmentChecks, StatusSOPClarification, StatusDepartmentClarification},
		StatusesFor(RoleAudit))
	assert.Equal(t, []Status{StatusClarificationRequired}, StatusesFor(RoleRequester))
}

func TestProgress(t *testing.T) {
	t.Parallel()

	step, total := Progress(StatusSubmitted)
	assert.Equal(t, 1, step)
	assert.Equal(t, 13, total)

	step, total = Progress(StatusApproved)
	assert.Equal(t, total, step)

	step, _ = Progress(StatusDeanReview)
	assert.Equal(t, 8, step)

	step, _, onPath := ProgressOf(StatusSOPClarification)
	assert.False(t, onPath)
	assert.Equal(t, 1, step)

	_, _, onPath = ProgressOf(StatusRejected)
	assert.False(t, onPath)
}

func TestParsers(t *testing.T) {
	t.Parallel()

	s, ok := ParseStatus(" DEAN_REVIEW ")
	assert.True(t, ok)
	assert.Equal(t, StatusDeanReview, s)
	_, ok = ParseStatus("pending")
	assert.False(t, ok)

	r, ok := ParseRole("Head_Of_Institution")
	assert.True(t, ok)
	assert.Equal(t, RoleHeadOfInstitution, r)

	a, ok := ParseAction("Forward")
	assert.True(t, ok)
	assert.Equal(t, ActionForward, a)
	_, ok = ParseAction("create")
	assert.False(t, ok, "create is never accepted from clients")

	c, ok := ParseClarificationType("budget")
	assert.True(t, ok)
	assert.Equal(t, ClarifyAccountant, c)
	c, ok = ParseClarificationType("")
	assert.True(t, ok)
	assert.Equal(t, ClarificationType(""), c)
	_, ok = ParseClarificationType("legal")
	assert.False(t, ok)
}

func TestContextFor(t *testing.T) {
	t.Parallel()
	for _, a := range []Action{ActionApprove, ActionReject, ActionClarify, ActionForward} {
		ctx := ContextFor(a)
		require.NotNil(t, ctx)
		assert.Equal(t, a, ctx.Action())
	}
	assert.Nil(t, ContextFor(ActionCreate))
}
