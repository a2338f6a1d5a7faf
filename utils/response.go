package utils

import "github.com/gofiber/fiber/v2"

// Success writes {"success": true, "data": data}.
func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// Fail writes {"success": false, "error": msg} plus "details" when given.
func Fail(c *fiber.Ctx, status int, msg string, details interface{}) error {
	body := fiber.Map{
		"success": false,
		"error":   msg,
	}
	if details != nil {
		body["details"] = details
	}
	return c.Status(status).JSON(body)
}
