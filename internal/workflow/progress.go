package workflow

// linearPath is the canonical happy path used for progress display.
var linearPath = []Status{
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
}

// LinearPath returns the canonical pipeline order.
func LinearPath() []Status {
	out := make([]Status, len(linearPath))
	copy(out, linearPath)
	return out
}

// Progress returns the 1-based position of status on the linear path and the
// path length. Statuses off the path report step 1.
func Progress(status Status) (step, total int) {
	step, total, _ = ProgressOf(status)
	return step, total
}

// ProgressOf is Progress plus whether status lies on the linear path.
func ProgressOf(status Status) (step, total int, onPath bool) {
	total = len(linearPath)
	for i, s := range linearPath {
		if s == status {
			return i + 1, total, true
		}
	}
	return 1, total, false
}
