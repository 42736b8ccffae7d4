package middleware

import (
	"strings"

	"bugboard/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token. The
// token's subject is re-fetched from the database on every request, so a
// deleted or deactivated account is rejected even while its token is still
// within its lifetime. The resolved user is stored in the request context.
func AuthRequired(tokens *services.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		user, err := tokens.Verify(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}
		if !user.Active {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "account deactivated",
			})
		}

		c.Locals("currentUser", user)
		return c.Next()
	}
}
