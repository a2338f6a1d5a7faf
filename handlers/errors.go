package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"multiplication-shooter/services"
	"multiplication-shooter/utils"
)

var statusBySentinel = []struct {
	err    error
	status int
}{
	{services.ErrUnauthenticated, fiber.StatusUnauthorized},
	{services.ErrNotFound, fiber.StatusNotFound},
	{services.ErrForbidden, fiber.StatusForbidden},
	{services.ErrInvalidState, fiber.StatusConflict},
}

// ErrorHandler is the single place domain errors become HTTP statuses.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	log = log.Named("http")
	return func(c *fiber.Ctx, err error) error {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			return utils.Fail(c, fiber.StatusUnprocessableEntity, "validation failed", ve.Fields)
		}

		for _, m := range statusBySentinel {
			if errors.Is(err, m.err) {
				return utils.Fail(c, m.status, publicMessage(err, m.err), nil)
			}
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return utils.Fail(c, fe.Code, fe.Message, nil)
		}

		log.Error("unhandled error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return utils.Fail(c, fiber.StatusInternalServerError, "internal server error", nil)
	}
}

// publicMessage drops the trailing sentinel text, so ErrSessionFinished
// reads "session already finished".
func publicMessage(err, sentinel error) string {
	msg := err.Error()
	if trimmed := strings.TrimSuffix(msg, ": "+sentinel.Error()); trimmed != "" {
		return trimmed
	}
	return msg
}
