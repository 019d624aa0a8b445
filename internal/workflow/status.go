// Package workflow holds the approval routing engine: statuses, roles, the rule
// table, the route resolver, the approver gate and the progress indicator.
// Everything in this package is pure and safe for concurrent use.
package workflow

// Status is the stage a request currently sits in.
type Status string

// Request statuses. Wire values match the stored column values.
const (
	StatusSubmitted               Status = "submitted"
	StatusManagerReview           Status = "manager_review"
	StatusSOPVerification         Status = "sop_verification"
	StatusBudgetCheck             Status = "budget_check"
	StatusInstitutionVerified     Status = "institution_verified"
	StatusVPApproval              Status = "vp_approval"
	StatusHOIApproval             Status = "hoi_approval"
	StatusDeanReview              Status = "dean_review"
	StatusDepartmentChecks        Status = "department_checks"
	StatusDeanVerification        Status = "dean_verification"
	StatusChiefDirectorApproval   Status = "chief_director_approval"
	StatusChairmanApproval        Status = "chairman_approval"
	StatusApproved                Status = "approved"
	StatusRejected                Status = "rejected"
	StatusClarificationRequired   Status = "clarification_required"
	StatusSOPClarification        Status = "sop_clarification"
	StatusBudgetClarification     Status = "budget_clarification"
	StatusDepartmentClarification Status = "department_clarification"
)

var allStatuses = []Status{
	StatusSubmitted,
	StatusManagerReview,
	StatusSOPVerification,
	StatusBudgetCheck,
	StatusInstitutionVerified,
	StatusVPApproval,
	StatusHOIApproval,
	StatusDeanReview,
	StatusDepartmentChecks,
	StatusDeanVerification,
	StatusChiefDirectorApproval,
	StatusChairmanApproval,
	StatusApproved,
	StatusRejected,
	StatusClarificationRequired,
	StatusSOPClarification,
	StatusBudgetClarification,
	StatusDepartmentClarification,
}

// Statuses returns every known status in pipeline order followed by side states.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further action is possible from s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Clarification reports whether s is one of the clarification side states.
func (s Status) Clarification() bool {
	switch s {
	case StatusClarificationRequired, StatusSOPClarification,
		StatusBudgetClarification, StatusDepartmentClarification:
		return true
	}
	return false
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(raw string) (Status, bool) {
	s := Status(normalize(raw))
	return s, s.Valid()
}

func (s Status) String() string {
	return string(s)
}
