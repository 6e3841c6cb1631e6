package jwt

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/blog/pkg/auth"
)

// Locals keys set by the middleware for downstream handlers.
const (
	LocalsUserID = "userId"
	LocalsUser   = "user"
)

// NewAuthMiddleware returns a Fiber middleware that validates the
// Bearer JWT and resolves the subject to a stored user. On success it
// sets the user id and the user (password hash stripped) into Locals.
// A valid token whose subject no longer exists is rejected: deleting
// an account invalidates its outstanding tokens.
func NewAuthMiddleware(gen *Generator, users auth.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"message": "missing Authorization header"})
		}
		// Support both "Bearer <token>" and "<token>" (no prefix).
		var tokenStr string
		if strings.Contains(authHeader, " ") {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenStr = strings.TrimSpace(parts[1])
			} else {
				tokenStr = strings.TrimSpace(authHeader)
			}
		} else {
			tokenStr = strings.TrimSpace(authHeader)
		}
		if tokenStr == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"message": "empty token"})
		}
		userID, err := gen.Verify(tokenStr)
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"message": "invalid or expired token"})
		}
		user, err := users.GetByID(c.Context(), userID)
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"message": "not authorized, user not found"})
		}
		user.PasswordHash = ""
		c.Locals(LocalsUserID, user.ID.String())
		c.Locals(LocalsUser, user)
		return c.Next()
	}
}
