package server

import (
	"approvals/internal/models"
	"approvals/internal/service"
	"approvals/internal/workflow"

	"github.com/gofiber/fiber/v2"
)

// decisionBody is the payload of POST /api/requests/:id/approve.
type decisionBody struct {
	Action           string   `json:"action"`
	Notes            string   `json:"notes"`
	BudgetAvailable  *bool    `json:"budgetAvailable"`
	DirectToChairman *bool    `json:"directToChairman"`
	ForwardedMessage string   `json:"forwardedMessage"`
	Attachments      []string `json:"attachments"`
	Target           string   `json:"target"`
}

// decisionContext turns the loosely typed body into the action's context.
func decisionContext(body decisionBody) (workflow.Context, error) {
	action, ok := workflow.ParseAction(body.Action)
	if !ok {
		return nil, models.NewValidationError("Invalid action")
	}

	switch action {
	case workflow.ActionApprove:
		return workflow.ApproveContext{
			BudgetAvailable:  body.BudgetAvailable,
			DirectToChairman: body.DirectToChairman,
		}, nil
	case workflow.ActionReject:
		return workflow.RejectContext{}, nil
	case workflow.ActionClarify:
		target, ok := workflow.ParseClarificationType(body.Target)
		if !ok {
			return nil, models.NewValidationError("Unknown clarification target " + body.Target)
		}
		return workflow.ClarifyContext{Type: target}, nil
	case workflow.ActionForward:
		return workflow.ForwardContext{Message: body.ForwardedMessage}, nil
	}
	return nil, models.NewValidationError("Invalid action")
}

// ApproveRequest handles POST /api/requests/:id/approve
// @Summary Act on a request
// @Description Approve, reject, clarify or forward a request. The transition is applied only if the request has not changed since it was read.
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param request body decisionBody true "Decision"
// @Success 200 {object} requestView
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /requests/{id}/approve [post]
func (s *Server) ApproveRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body decisionBody
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	decision, err := decisionContext(body)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	updated, err := s.approvalService.Apply(c.UserContext(), service.ApplyInput{
		RequestID:   id,
		Actor:       actorFrom(c),
		Notes:       body.Notes,
		Attachments: body.Attachments,
		Context:     decision,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishRequestTransitioned(c.UserContext(), updated)
	return c.JSON(viewOf(updated))
}
