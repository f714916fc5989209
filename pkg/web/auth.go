package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Authenticator resolves a bearer token to a user ID.
type Authenticator interface {
	// Authenticate returns the user ID for a token, or false when the
	// token is unknown.
	Authenticate(token string) (string, bool)
}

// StaticTokens is a fixed token-to-user map, used for development and
// tests. Production deployments plug in their own Authenticator.
type StaticTokens map[string]string

// Authenticate implements Authenticator.
func (s StaticTokens) Authenticate(token string) (string, bool) {
	user, ok := s[token]
	return user, ok
}

const userIDKey = "userID"

// requireAuth extracts and validates the bearer token, storing the
// resolved user ID in the request locals.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
	}
	userID, ok := s.auth.Authenticate(token)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
	}
	c.Locals(userIDKey, userID)
	return c.Next()
}

// userID returns the authenticated user for the request.
func userID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
