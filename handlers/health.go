package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

func SetupHealthRoutes(router fiber.Router) {
	router.Get("/test", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "API is working!",
			"timestamp": time.Now().UTC(),
		})
	})
}
