package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
// @Summary Feature flags
// @Tags admin
// @Produce json
// @Success 200 {object} object{names=[]string,raw=map[string]string,evaluated=map[string]bool}
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	actor := actorFrom(c)

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"names":     []string{},
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"names":     s.featureFlags.Names(),
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(actor.ID, string(actor.Role)),
	})
}
