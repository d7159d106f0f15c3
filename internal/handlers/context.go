package handlers

import (
	"context"

	"arbirupee/internal/models"
	"arbirupee/internal/repositories"
	"arbirupee/internal/services/orchestrator"

	"github.com/gofiber/fiber/v2"
)

// currentUser resolves the authenticated user from the claims the auth
// middleware placed on the context.
func currentUser(ctx context.Context, c *fiber.Ctx, users repositories.UserRepository) (*models.User, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return users.FindByID(ctx, claims.UserID)
}

// requestMeta captures the caller context recorded on every transaction.
func requestMeta(c *fiber.Ctx) orchestrator.RequestMeta {
	return orchestrator.RequestMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
		Source:    c.Get("X-Client-Source", "web"),
	}
}
