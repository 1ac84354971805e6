package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/vidassign-api/internal/utils"
)

// Authenticated rejects requests whose token did not resolve to a user id.
func Authenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch id := c.Locals("user_id").(type) {
		case uint:
			if id > 0 {
				return c.Next()
			}
		case int:
			if id > 0 {
				return c.Next()
			}
		}
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
}
