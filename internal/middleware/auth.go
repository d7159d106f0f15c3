// Package middleware provides HTTP middleware components for the application.
// It includes authentication and request processing middleware for the fiber
// web framework.
package middleware

import (
	"strings"

	"arbirupee/internal/config"
	"arbirupee/internal/services/auth"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware validates wallet session tokens. It extracts the bearer
// token from the Authorization header, validates it, and places the claims
// on the request context.
type AuthMiddleware struct {
	authService auth.Service
}

func NewAuthMiddleware(authService auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	claims, err := m.authService.ValidateToken(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}

	c.Locals("claims", claims)
	c.Locals("userID", claims.UserID)
	c.Locals("walletAddress", claims.WalletAddress)

	return c.Next()
}

// AdminAuth guards operator endpoints with a static API key. The key is
// compared verbatim; an empty configured key disables the surface entirely.
func AdminAuth(c *fiber.Ctx) error {
	key := config.GetEnv("ADMIN_API_KEY", "")
	if key == "" || c.Get("X-Admin-Key") != key {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}
	return c.Next()
}
