package server

import (
	"errors"
	"strings"
	"unicode"

	"approvals/internal/middleware"
	"approvals/internal/models"
	"approvals/internal/service"
	"approvals/internal/workflow"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed page/limit query parameters.
type Pagination struct {
	Page  int
	Limit int
}

const (
	defaultPageLimit   = 10
	maxPaginationLimit = 100
)

// parsePagination extracts page and limit query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	return Pagination{Page: page, Limit: limit}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "requestId" -> "Invalid request ID").
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// actorFrom builds the service actor from the identity AuthRequired stored.
func actorFrom(c *fiber.Ctx) service.Actor {
	userID, _ := c.Locals("userID").(uint)
	role, _ := c.Locals("role").(workflow.Role)
	return service.Actor{ID: userID, Role: role, IP: c.IP()}
}

func claimsFrom(c *fiber.Ctx) (middleware.TokenClaims, bool) {
	claims, ok := c.Locals("claims").(middleware.TokenClaims)
	return claims, ok
}

// progressView is the UI progress indicator of a request.
type progressView struct {
	Step                  int  `json:"step"`
	Total                 int  `json:"total"`
	OnPath                bool `json:"on_path"`
	AwaitingClarification bool `json:"awaiting_clarification"`
}

func progressFor(status workflow.Status) progressView {
	step, total, onPath := workflow.ProgressOf(status)
	return progressView{
		Step:                  step,
		Total:                 total,
		OnPath:                onPath,
		AwaitingClarification: status.Clarification(),
	}
}
