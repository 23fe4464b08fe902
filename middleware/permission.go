package middleware

import (
	"boardroom/services"
	"boardroom/utils"

	"github.com/gofiber/fiber/v2"
)

// CompanyParam names the route parameter carrying the company id.
const CompanyParam = "companyId"

// RequireMember rejects callers without an ACTIVE membership in the
// company named by the route.
func RequireMember(perms *services.PermissionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := perms.ActiveMembership(c.UserContext(), CurrentUserID(c), c.Params(CompanyParam)); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequirePermission lets the request through when the caller holds any of
// codes in the route's company.
func RequirePermission(perms *services.PermissionService, codes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := CurrentUserID(c)
		companyID := c.Params(CompanyParam)
		if !perms.HasAnyPermission(c.UserContext(), userID, companyID, codes...) {
			return utils.Forbidden("insufficient permissions")
		}
		return c.Next()
	}
}
