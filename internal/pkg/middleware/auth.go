package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/FitLifeApp/FitLife/internal/pkg/env"
	"github.com/FitLifeApp/FitLife/internal/pkg/token"
	"github.com/FitLifeApp/FitLife/internal/pkg/usercontext"
)

// BearerAuthMiddleware authenticates API requests carrying a bearer JWT and
// installs the member context. Missing or invalid tokens get a JSON 401.
func BearerAuthMiddleware() fiber.Handler {
	secret := env.GetEnv("JWT_SECRET", "")

	return func(c *fiber.Ctx) error {
		raw := extractBearerToken(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing bearer token"})
		}

		claims, err := token.ParseToken(raw, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid or expired token"})
		}

		userCtx := usercontext.UserContext{
			UserID:     claims.UserID,
			UserUUID:   claims.UserUUID,
			Email:      claims.Email,
			IsLoggedIn: true,
		}
		c.Locals(usercontext.KeyUserContext, userCtx)
		c.Locals(usercontext.KeyUserID, claims.UserID)
		c.Locals(usercontext.KeyUserUUID, claims.UserUUID)

		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
