package middleware

import (
	"context"
	"strings"

	"marketplace/internal/models"

	"github.com/gofiber/fiber/v2"
)

// LocalUserUID is the Fiber locals key holding the authenticated caller's uid.
const LocalUserUID = "userUID"

// TokenVerifier resolves a bearer ID token to the uid it was issued for.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, idToken string) (string, error)
}

// AuthRequired rejects requests without a valid bearer ID token.
func AuthRequired(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		uid, err := verifier.VerifyToken(c.UserContext(), token)
		if err != nil || uid == "" {
			Logger.DebugContext(c.UserContext(), "token verification failed", "error", err)
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		setCaller(c, uid)
		return c.Next()
	}
}

// OptionalAuth records the caller's uid when a valid bearer token is present and
// lets every request through.
func OptionalAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearerToken(c); token != "" {
			if uid, err := verifier.VerifyToken(c.UserContext(), token); err == nil && uid != "" {
				setCaller(c, uid)
			}
		}
		return c.Next()
	}
}

// CallerUID returns the authenticated caller's uid, or "" for anonymous requests.
func CallerUID(c *fiber.Ctx) string {
	uid, _ := c.Locals(LocalUserUID).(string)
	return uid
}

func setCaller(c *fiber.Ctx, uid string) {
	c.Locals(LocalUserUID, uid)
	// Sync to UserContext for logging and downstream services
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, uid))
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
