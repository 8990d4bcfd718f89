package auth

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const localsUserID = "userID"

// Middleware validates the Authorization header and stores the resolved
// subject in the request context. Every failure is a 401; there is no
// guest identity.
func Middleware(v Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		subject, err := v.Verify(c.Context(), token)
		if err != nil {
			slog.Info("token verification failed", "err", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		c.Locals(localsUserID, subject)
		return c.Next()
	}
}

// UserID returns the authenticated subject stored by Middleware, or ""
// when the request never passed through it.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsUserID).(string)
	return id
}
