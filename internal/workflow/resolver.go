package workflow

type forwardKey struct {
	from Status
	role Role
}

// forwardShortcuts lists where a forward moves a request. Pairs not listed
// leave the status unchanged.
var forwardShortcuts = map[forwardKey]Status{
	{StatusManagerReview, RoleInstitutionManager}:       StatusVPApproval,
	{StatusInstitutionVerified, RoleInstitutionManager}: StatusVPApproval,
	{StatusVPApproval, RoleVP}:                          StatusHOIApproval,
	{StatusHOIApproval, RoleHeadOfInstitution}:          StatusDeanReview,
	{StatusDeanReview, RoleDean}:                        StatusChiefDirectorApproval,
	{StatusDeanVerification, RoleDean}:                  StatusChiefDirectorApproval,
	{StatusChiefDirectorApproval, RoleChiefDirector}:    StatusChairmanApproval,
}

// Resolver computes the next status of a request. It holds no mutable state.
type Resolver struct {
	rules RuleTable
}

// NewResolver builds a resolver over the given table.
func NewResolver(rules RuleTable) *Resolver {
	return &Resolver{rules: rules}
}

// Rules returns the table the resolver consults.
func (r *Resolver) Rules() RuleTable {
	return r.rules
}

// Resolve returns the status a request in current moves to when role performs
// ctx's action. ok is false when no transition applies.
func (r *Resolver) Resolve(current Status, role Role, ctx Context) (next Status, ok bool) {
	if ctx == nil {
		return "", false
	}
	switch c := ctx.(type) {
	case RejectContext:
		return StatusRejected, true
	case ClarifyContext:
		return resolveClarify(role, c), true
	case ForwardContext:
		if to, found := forwardShortcuts[forwardKey{current, role}]; found {
			return to, true
		}
		return current, true
	case ApproveContext:
		return r.resolveApprove(current, role, c)
	}
	return "", false
}

// ForwardChangesStatus reports whether a forward from current by role moves the request.
func ForwardChangesStatus(current Status, role Role) bool {
	_, ok := forwardShortcuts[forwardKey{current, role}]
	return ok
}

func resolveClarify(role Role, c ClarifyContext) Status {
	switch {
	case role == RoleInstitutionManager && c.Type == ClarifySOP:
		return StatusSOPClarification
	case role == RoleInstitutionManager && c.Type == ClarifyAccountant:
		return StatusBudgetClarification
	case role == RoleDean && c.Type == ClarifyDepartment:
		return StatusDepartmentClarification
	}
	return StatusClarificationRequired
}

func (r *Resolver) resolveApprove(current Status, role Role, c ApproveContext) (Status, bool) {
	budget, known := c.BudgetKnown()

	if current == StatusInstitutionVerified && role == RoleInstitutionManager && known {
		if budget {
			return StatusVPApproval, true
		}
		return StatusDeanReview, true
	}

	if current == StatusDeanReview && role == RoleDean && known && !budget {
		if c.directToChairman() {
			return StatusChairmanApproval, true
		}
		return StatusDepartmentChecks, true
	}

	edge, found := r.rules.Match(current, role, c)
	if !found {
		return "", false
	}
	return edge.To, true
}
