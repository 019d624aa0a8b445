package server

import (
	"approvals/internal/models"
	"approvals/internal/service"
	"approvals/internal/workflow"

	"github.com/gofiber/fiber/v2"
)

type requestBody struct {
	Title           string   `json:"title"`
	Purpose         string   `json:"purpose"`
	College         string   `json:"college"`
	Department      string   `json:"department"`
	CostEstimate    float64  `json:"cost_estimate"`
	ExpenseCategory string   `json:"expense_category"`
	SOPReference    string   `json:"sop_reference"`
	Attachments     []string `json:"attachments"`
}

func (b requestBody) input() service.RequestInput {
	return service.RequestInput{
		Title:           b.Title,
		Purpose:         b.Purpose,
		College:         b.College,
		Department:      b.Department,
		CostEstimate:    b.CostEstimate,
		ExpenseCategory: b.ExpenseCategory,
		SOPReference:    b.SOPReference,
		Attachments:     b.Attachments,
	}
}

// requestView is a request plus the derived display fields.
type requestView struct {
	*models.Request
	Progress          progressView    `json:"progress"`
	RequiredApprovers []workflow.Role `json:"required_approvers"`
}

func viewOf(req *models.Request) requestView {
	return requestView{
		Request:           req,
		Progress:          progressFor(req.Status),
		RequiredApprovers: workflow.RequiredApprovers(req.Status),
	}
}

// CreateRequest handles POST /api/requests
// @Summary File a request
// @Description Create a purchase request in SUBMITTED status
// @Tags requests
// @Accept json
// @Produce json
// @Param request body requestBody true "Request details"
// @Success 201 {object} requestView
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /requests [post]
func (s *Server) CreateRequest(c *fiber.Ctx) error {
	var body requestBody
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req, err := s.requestService.Create(c.UserContext(), actorFrom(c), body.input())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishRequestCreated(c.UserContext(), req)
	return c.Status(fiber.StatusCreated).JSON(viewOf(req))
}

// ListRequests handles GET /api/requests
// @Summary List requests
// @Description Requesters see their own requests; approvers see all, or only those awaiting their role with pendingApprovals=true
// @Tags requests
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param status query string false "Status filter"
// @Param college query string false "College filter"
// @Param pendingApprovals query bool false "Only requests awaiting the caller's role"
// @Success 200 {object} object{requests=[]models.Request,pagination=object{page=int,limit=int,total=int,pages=int}}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /requests [get]
func (s *Server) ListRequests(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPageLimit)

	result, err := s.requestService.List(c.UserContext(), actorFrom(c), service.ListInput{
		Page:             page.Page,
		Limit:            page.Limit,
		Status:           c.Query("status"),
		College:          c.Query("college"),
		PendingApprovals: c.QueryBool("pendingApprovals", false),
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"requests": result.Requests,
		"pagination": fiber.Map{
			"page":  result.Page,
			"limit": result.Limit,
			"total": result.Total,
			"pages": result.Pages,
		},
	})
}

// GetRequest handles GET /api/requests/:id
// @Summary Get a request
// @Tags requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} requestView
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /requests/{id} [get]
func (s *Server) GetRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	req, err := s.requestService.Get(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(viewOf(req))
}

// UpdateRequest handles PUT /api/requests/:id
// @Summary Edit a request
// @Description The owner may edit descriptive fields while the request is SUBMITTED or CLARIFICATION_REQUIRED
// @Tags requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param request body requestBody true "Request details"
// @Success 200 {object} requestView
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /requests/{id} [put]
func (s *Server) UpdateRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body requestBody
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req, err := s.requestService.Update(c.UserContext(), actorFrom(c), id, body.input())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishRequestUpdated(c.UserContext(), req)
	return c.JSON(viewOf(req))
}

// DeleteRequest handles DELETE /api/requests/:id
// @Summary Withdraw a request
// @Description The owner may delete a request that nobody has acted on yet
// @Tags requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /requests/{id} [delete]
func (s *Server) DeleteRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	actor := actorFrom(c)
	if err := s.requestService.Delete(c.UserContext(), actor, id); err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishRequestDeleted(c.UserContext(), id, actor.ID)
	return c.JSON(fiber.Map{"message": "Request deleted"})
}

// GetRequestHistory handles GET /api/requests/:id/history
// @Summary Request history
// @Tags requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {array} models.HistoryEntry
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /requests/{id}/history [get]
func (s *Server) GetRequestHistory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	history, err := s.requestService.History(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(history)
}

// GetRequestActions handles GET /api/requests/:id/actions
// @Summary Available actions
// @Description Actions the caller may take now and the statuses each can lead to
// @Tags requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} object{actions=[]service.ActionOption}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /requests/{id}/actions [get]
func (s *Server) GetRequestActions(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	actions, err := s.requestService.AvailableActions(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"actions": actions})
}
