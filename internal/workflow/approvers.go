package workflow

var approvers = map[Status][]Role{
	StatusSubmitted:               {RoleInstitutionManager},
	StatusManagerReview:           {RoleInstitutionManager},
	StatusSOPVerification:         {RoleMMA, RoleHR, RoleAudit, RoleIT, RoleSOPVerifier},
	StatusBudgetCheck:             {RoleAccountant},
	StatusInstitutionVerified:     {RoleInstitutionManager},
	StatusVPApproval:              {RoleVP},
	StatusHOIApproval:             {RoleHeadOfInstitution},
	StatusDeanReview:              {RoleDean},
	StatusDepartmentChecks:        {RoleMMA, RoleHR, RoleAudit, RoleIT},
	StatusDeanVerification:        {RoleDean},
	StatusChiefDirectorApproval:   {RoleChiefDirector},
	StatusChairmanApproval:        {RoleChairman},
	StatusApproved:                {},
	StatusRejected:                {},
	StatusClarificationRequired:   {RoleRequester},
	StatusSOPClarification:        {RoleSOPVerifier, RoleMMA, RoleHR, RoleAudit, RoleIT},
	StatusBudgetClarification:     {RoleAccountant},
	StatusDepartmentClarification: {RoleMMA, RoleHR, RoleAudit, RoleIT},
}

// RequiredApprovers returns the roles entitled to act on a request in status.
// Terminal and unknown statuses return an empty slice.
func RequiredApprovers(status Status) []Role {
	roles := approvers[status]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// CanAct reports whether role may act on a request in status.
func CanAct(status Status, role Role) bool {
	for _, r := range approvers[status] {
		if r == role {
			return true
		}
	}
	return false
}

// StatusesFor returns the statuses in which role is an approver, used to build
// pending-approval queries.
func StatusesFor(role Role) []Status {
	var out []Status
	for _, s := range allStatuses {
		if CanAct(s, role) {
			out = append(out, s)
		}
	}
	return out
}
