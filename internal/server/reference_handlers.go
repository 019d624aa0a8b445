package server

import (
	"approvals/internal/models"
	"approvals/internal/repository"
	"approvals/internal/workflow"

	"github.com/gofiber/fiber/v2"
)

// GetBudgets handles GET /api/budgets
// @Summary Budget records
// @Tags reference
// @Produce json
// @Param college query string false "College"
// @Param department query string false "Department"
// @Param category query string false "Expense category"
// @Param fiscalYear query string false "Fiscal year, defaults to the configured one"
// @Success 200 {array} models.BudgetRecord
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /budgets [get]
func (s *Server) GetBudgets(c *fiber.Ctx) error {
	fiscalYear := c.Query("fiscalYear", s.config.FiscalYear)

	records, err := s.budgetRepo.List(c.UserContext(), repository.BudgetFilter{
		College:    c.Query("college"),
		Department: c.Query("department"),
		Category:   c.Query("category"),
		FiscalYear: fiscalYear,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(records)
}

// GetSOPs handles GET /api/sops
// @Summary Active SOP records
// @Tags reference
// @Produce json
// @Success 200 {array} models.SOPRecord
// @Security BearerAuth
// @Router /sops [get]
func (s *Server) GetSOPs(c *fiber.Ctx) error {
	records, err := s.sopRepo.ListActive(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(records)
}

// GetSOP handles GET /api/sops/:code
// @Summary SOP record by code
// @Tags reference
// @Produce json
// @Param code path string true "SOP code"
// @Success 200 {object} models.SOPRecord
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sops/{code} [get]
func (s *Server) GetSOP(c *fiber.Ctx) error {
	record, err := s.sopRepo.GetByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if !record.IsActive {
		return models.RespondWithAppError(c, models.NewNotFoundError("SOP", record.Code))
	}
	return c.JSON(record)
}

type edgeView struct {
	From      workflow.Status `json:"from"`
	To        workflow.Status `json:"to"`
	Role      workflow.Role   `json:"role"`
	Condition string          `json:"condition,omitempty"`
}

// GetWorkflow handles GET /api/workflow
// @Summary Workflow definition
// @Description Approval rules, the roles entitled to act in each status and the linear path used for progress
// @Tags reference
// @Produce json
// @Param from query string false "Only rules leaving this status"
// @Success 200 {object} object{rules=[]edgeView,approvers=map[string][]string,path=[]string}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /workflow [get]
func (s *Server) GetWorkflow(c *fiber.Ctx) error {
	rules := s.resolver.Rules()
	if raw := c.Query("from"); raw != "" {
		from, ok := workflow.ParseStatus(raw)
		if !ok {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unknown status: "+raw))
		}
		rules = rules.From(from)
	}
	edges := make([]edgeView, 0, len(rules))
	for _, e := range rules {
		edges = append(edges, edgeView{From: e.From, To: e.To, Role: e.Role, Condition: e.Condition})
	}

	approvers := make(map[workflow.Status][]workflow.Role)
	for _, st := range workflow.Statuses() {
		if roles := workflow.RequiredApprovers(st); len(roles) > 0 {
			approvers[st] = roles
		}
	}

	return c.JSON(fiber.Map{
		"rules":     edges,
		"approvers": approvers,
		"path":      workflow.LinearPath(),
	})
}
