// Package service holds the application use cases that sit between the HTTP
// handlers and the repositories.
package service

import "approvals/internal/workflow"

// Actor is the authenticated caller of a use case.
type Actor struct {
	ID   uint
	Role workflow.Role
	IP   string
}

// IsApprover reports whether the actor holds any role other than requester.
func (a Actor) IsApprover() bool {
	return a.Role != workflow.RoleRequester
}
