package middleware

import (
	"github.com/gofiber/fiber/v2"

	"multiplication-shooter/models"
	"multiplication-shooter/utils"
)

// RequireRole lets the request through only when the actor set by GoogleAuth
// has one of roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := Actor(c)
		if actor == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "unauthenticated", nil)
		}
		for _, role := range roles {
			if actor.Role == role {
				return c.Next()
			}
		}
		return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
	}
}

func RequireAdmin() fiber.Handler {
	return RequireRole(models.RoleAdmin)
}
