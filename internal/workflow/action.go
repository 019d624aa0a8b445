package workflow

// Action is the verb an actor performs on a request.
type Action string

const (
	ActionCreate  Action = "create"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionClarify Action = "clarify"
	ActionForward Action = "forward"
)

// ParseAction converts a wire value into one of the actor-facing actions.
// CREATE is recorded by the system and never accepted from a client.
func ParseAction(raw string) (Action, bool) {
	switch a := Action(normalize(raw)); a {
	case ActionApprove, ActionReject, ActionClarify, ActionForward:
		return a, true
	}
	return "", false
}

func (a Action) String() string {
	return string(a)
}

// ClarificationType names the downstream desk asked to clarify.
type ClarificationType string

const (
	ClarifySOP        ClarificationType = "sop"
	ClarifyAccountant ClarificationType = "accountant"
	ClarifyDepartment ClarificationType = "department"
)

// ParseClarificationType accepts the known targets plus "budget" as an alias of
// "accountant". An empty string is valid and means "no specific desk".
func ParseClarificationType(raw string) (ClarificationType, bool) {
	switch v := normalize(raw); v {
	case "":
		return "", true
	case "budget", string(ClarifyAccountant):
		return ClarifyAccountant, true
	case string(ClarifySOP):
		return ClarifySOP, true
	case string(ClarifyDepartment):
		return ClarifyDepartment, true
	}
	return "", false
}

// Context carries the per-call decision inputs of one action. The set of
// implementations is closed: ApproveContext, RejectContext, ClarifyContext and
// ForwardContext.
type Context interface {
	Action() Action
	sealed()
}

// ApproveContext holds the branch inputs of an approval.
type ApproveContext struct {
	BudgetAvailable  *bool
	DirectToChairman *bool
}

// RejectContext carries nothing; a rejection always resolves.
type RejectContext struct{}

// ClarifyContext selects which desk is asked for clarification.
type ClarifyContext struct {
	Type ClarificationType
}

// ForwardContext carries the message attached to a forward.
type ForwardContext struct {
	Message string
}

func (ApproveContext) Action() Action { return ActionApprove }
func (RejectContext) Action() Action  { return ActionReject }
func (ClarifyContext) Action() Action { return ActionClarify }
func (ForwardContext) Action() Action { return ActionForward }

func (ApproveContext) sealed() {}
func (RejectContext) sealed()  {}
func (ClarifyContext) sealed() {}
func (ForwardContext) sealed() {}

// ContextFor returns the zero context for an action, or nil for CREATE and
// unknown actions.
func ContextFor(a Action) Context {
	switch a {
	case ActionApprove:
		return ApproveContext{}
	case ActionReject:
		return RejectContext{}
	case ActionClarify:
		return ClarifyContext{}
	case ActionForward:
		return ForwardContext{}
	}
	return nil
}

// BudgetKnown reports whether the budget flag was supplied and its value.
func (c ApproveContext) BudgetKnown() (available bool, ok bool) {
	if c.BudgetAvailable == nil {
		return false, false
	}
	return *c.BudgetAvailable, true
}

func (c ApproveContext) directToChairman() bool {
	return c.DirectToChairman != nil && *c.DirectToChairman
}

// Bool returns a pointer to v, for building contexts inline.
func Bool(v bool) *bool {
	return &v
}
