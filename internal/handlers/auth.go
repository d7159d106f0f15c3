package handlers

import (
	"errors"

	"arbirupee/internal/services/auth"
	"arbirupee/internal/utils/response"
	"arbirupee/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler establishes wallet sessions.
type AuthHandler struct {
	authService auth.Service
}

func NewAuthHandler(authService auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type sessionInput struct {
	WalletAddress string `json:"walletAddress" validate:"required,evm_address"`
}

func (h *AuthHandler) CreateSession(c *fiber.Ctx) error {
	var input sessionInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validation.Struct(input); err != nil {
		return response.ValidationError(c, err.Error())
	}

	user, token, err := h.authService.CreateSession(c.Context(), input.WalletAddress)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidAddress) {
			return response.BadRequest(c, "Invalid wallet address")
		}
		return response.ServerError(c, "Failed to create session")
	}

	return response.Success(c, "Session created", fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":            user.ID,
			"walletAddress": user.WalletAddress,
		},
	})
}
