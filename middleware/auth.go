package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"multiplication-shooter/models"
	"multiplication-shooter/services"
	"multiplication-shooter/utils"
)

const actorLocalsKey = "actor"

// AccountResolver maps a verified identity to the internal user.
type AccountResolver interface {
	Resolve(ctx context.Context, id *services.Identity) (*models.User, error)
}

// GoogleAuth verifies the bearer ID token, resolves the account and stores
// it as the request actor. Requests without a valid token never reach the
// handlers.
func GoogleAuth(resolver services.IdentityResolver, accounts AccountResolver, log *zap.Logger) fiber.Handler {
	log = log.Named("auth")
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "missing bearer token", nil)
		}

		identity, err := resolver.Verify(c.UserContext(), token)
		if err != nil {
			log.Debug("token verification failed", zap.String("path", c.Path()), zap.Error(err))
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid or expired token", nil)
		}

		user, err := accounts.Resolve(c.UserContext(), identity)
		if err != nil {
			log.Warn("account resolution failed", zap.String("email", identity.Email), zap.Error(err))
			return err
		}

		c.Locals(actorLocalsKey, user)
		return c.Next()
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// Actor returns the authenticated user, or nil outside GoogleAuth.
func Actor(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(actorLocalsKey).(*models.User)
	return user
}
