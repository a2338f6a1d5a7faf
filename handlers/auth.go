package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"multiplication-shooter/middleware"
	"multiplication-shooter/services"
	"multiplication-shooter/utils"
)

type verifyRequest struct {
	Token string `json:"token"`
}

type AuthHandler struct {
	identity services.IdentityResolver
	accounts *services.AccountDirectory
	log      *zap.Logger
}

func SetupAuthRoutes(router fiber.Router, identity services.IdentityResolver, accounts *services.AccountDirectory, log *zap.Logger) {
	h := &AuthHandler{identity: identity, accounts: accounts, log: log.Named("auth")}
	router.Post("/auth/verify", h.Verify)
}

// Verify is the explicit sign-in: it resolves the account like every other
// authenticated request and also writes the login audit row. The token may
// come in the body or as a bearer header.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return &services.ValidationError{Fields: []services.FieldError{{Field: "body", Message: "invalid request body"}}}
		}
	}
	if req.Token == "" {
		req.Token = middleware.BearerToken(c)
	}
	if req.Token == "" {
		return &services.ValidationError{Fields: []services.FieldError{{Field: "token", Message: "is required"}}}
	}

	identity, err := h.identity.Verify(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	user, err := h.accounts.Resolve(c.UserContext(), identity)
	if err != nil {
		return err
	}

	// The audit row is best effort; a failed insert must not block sign-in.
	if err := h.accounts.RecordLogin(c.UserContext(), user, c.IP(), c.Get(fiber.HeaderUserAgent)); err != nil {
		h.log.Warn("failed to record login", zap.String("user_id", user.ID), zap.Error(err))
	}

	return utils.Success(c, fiber.StatusOK, user)
}
