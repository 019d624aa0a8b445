package workflow

import (
	"errors"
	"fmt"
)

// Edge is one allowed approval step. When is optional; an edge without a
// predicate always applies to its (From, Role) pair.
type Edge struct {
	From      Status
	To        Status
	Role      Role
	When      func(ApproveContext) bool
	Condition string
}

// RuleTable is an ordered list of edges. For a given (From, Role) the first
// edge whose predicate holds wins.
type RuleTable []Edge

func budgetIs(want bool) func(ApproveContext) bool {
	return func(c ApproveContext) bool {
		v, ok := c.BudgetKnown()
		return ok && v == want
	}
}

func directToChairman(c ApproveContext) bool {
	v, ok := c.BudgetKnown()
	return ok && !v && c.directToChairman()
}

func edgesFor(from, to Status, roles ...Role) []Edge {
	out := make([]Edge, 0, len(roles))
	for _, r := range roles {
		out = append(out, Edge{From: from, To: to, Role: r})
	}
	return out
}

// DefaultRules returns the approval table used in production.
func DefaultRules() RuleTable {
	var t RuleTable

	t = append(t,
		Edge{From: StatusSubmitted, To: StatusManagerReview, Role: RoleInstitutionManager},
		Edge{From: StatusManagerReview, To: StatusSOPVerification, Role: RoleInstitutionManager},
	)

	// Material check: any department desk or the SOP verifier clears it.
	t = append(t, edgesFor(StatusSOPVerification, StatusBudgetCheck,
		RoleMMA, RoleHR, RoleAudit, RoleIT, RoleSOPVerifier)...)

	t = append(t,
		Edge{From: StatusBudgetCheck, To: StatusInstitutionVerified, Role: RoleAccountant},

		Edge{From: StatusInstitutionVerified, To: StatusVPApproval, Role: RoleInstitutionManager,
			When: budgetIs(true), Condition: "budgetAvailable == true"},
		Edge{From: StatusInstitutionVerified, To: StatusDeanReview, Role: RoleInstitutionManager,
			When: budgetIs(false), Condition: "budgetAvailable == false"},
		Edge{From: StatusInstitutionVerified, To: StatusVPApproval, Role: RoleInstitutionManager},

		Edge{From: StatusVPApproval, To: StatusHOIApproval, Role: RoleVP},
		Edge{From: StatusHOIApproval, To: StatusDeanReview, Role: RoleHeadOfInstitution},

		Edge{From: StatusDeanReview, To: StatusChairmanApproval, Role: RoleDean,
			When: directToChairman, Condition: "budgetAvailable == false && directToChairman == true"},
		Edge{From: StatusDeanReview, To: StatusDepartmentChecks, Role: RoleDean},
	)

	t = append(t, edgesFor(StatusDepartmentChecks, StatusDeanVerification, DepartmentRoles...)...)

	t = append(t,
		Edge{From: StatusDeanVerification, To: StatusChiefDirectorApproval, Role: RoleDean},
		Edge{From: StatusChiefDirectorApproval, To: StatusChairmanApproval, Role: RoleChiefDirector},
		Edge{From: StatusChairmanApproval, To: StatusApproved, Role: RoleChairman},
	)

	// Clarification responses return to the review that asked for them.
	t = append(t, edgesFor(StatusSOPClarification, StatusManagerReview,
		RoleSOPVerifier, RoleMMA, RoleHR, RoleAudit, RoleIT)...)
	t = append(t, Edge{From: StatusBudgetClarification, To: StatusManagerReview, Role: RoleAccountant})
	t = append(t, edgesFor(StatusDepartmentClarification, StatusDeanReview, DepartmentRoles...)...)
	t = append(t, Edge{From: StatusClarificationRequired, To: StatusSubmitted, Role: RoleRequester})

	return t
}

// Match returns the first edge leaving from for role whose predicate holds.
func (t RuleTable) Match(from Status, role Role, ctx ApproveContext) (Edge, bool) {
	for _, e := range t {
		if e.From != from || e.Role != role {
			continue
		}
		if e.When == nil || e.When(ctx) {
			return e, true
		}
	}
	return Edge{}, false
}

// From returns all edges leaving status, in table order.
func (t RuleTable) From(status Status) []Edge {
	var out []Edge
	for _, e := range t {
		if e.From == status {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks the table for unknown values, edges out of terminal
// statuses and unconditional edges that hide a later conditional edge.
func (t RuleTable) Validate() error {
	var errs []error
	for i, e := range t {
		if !e.From.Valid() || !e.To.Valid() {
			errs = append(errs, fmt.Errorf("edge %d: unknown status %q -> %q", i, e.From, e.To))
		}
		if !e.Role.Valid() {
			errs = append(errs, fmt.Errorf("edge %d: unknown role %q", i, e.Role))
		}
		if e.From.Terminal() {
			errs = append(errs, fmt.Errorf("edge %d: leaves terminal status %q", i, e.From))
		}
		if e.When != nil {
			continue
		}
		for j := i + 1; j < len(t); j++ {
			later := t[j]
			if later.From == e.From && later.Role == e.Role && later.When != nil {
				errs = append(errs, fmt.Errorf("edge %d: unconditional %s/%s shadows conditional edge %d", i, e.From, e.Role, j))
			}
		}
	}
	return errors.Join(errs...)
}
