package handlers

import (
	"errors"

	"arbirupee/internal/repositories"
	"arbirupee/internal/services/orchestrator"
	"arbirupee/internal/services/payment"

	"github.com/gofiber/fiber/v2"
)

// mapServiceError translates orchestrator failures into an HTTP status and a
// stable error code. Unknown errors stay opaque to the client.
func mapServiceError(err error) (int, string, string) {
	switch {
	case errors.Is(err, orchestrator.ErrLimitViolation):
		return fiber.StatusBadRequest, orchestrator.CodeLimitViolation, err.Error()
	case errors.Is(err, orchestrator.ErrInsufficientBalance):
		return fiber.StatusBadRequest, orchestrator.CodeInsufficientBalance, err.Error()
	case errors.Is(err, orchestrator.ErrInvalidAddress):
		return fiber.StatusBadRequest, orchestrator.CodeInvalidAddress, err.Error()
	case errors.Is(err, orchestrator.ErrSelfTransfer):
		return fiber.StatusBadRequest, orchestrator.CodeSelfTransfer, err.Error()
	case errors.Is(err, orchestrator.ErrWalletBusy):
		return fiber.StatusConflict, "WALLET_BUSY", err.Error()
	case errors.Is(err, orchestrator.ErrPaymentMismatch):
		return fiber.StatusBadRequest, orchestrator.CodePaymentMismatch, err.Error()
	case errors.Is(err, orchestrator.ErrPaymentNotCaptured):
		return fiber.StatusBadRequest, orchestrator.CodePaymentNotCaptured, err.Error()
	case errors.Is(err, orchestrator.ErrNotResolvable):
		return fiber.StatusConflict, "NOT_RESOLVABLE", err.Error()
	case errors.Is(err, orchestrator.ErrChainPending):
		return fiber.StatusGatewayTimeout, "CHAIN_PENDING", "transaction is awaiting on-chain confirmation"
	case errors.Is(err, payment.ErrInvalidSignature):
		return fiber.StatusBadRequest, orchestrator.CodeInvalidSignature, err.Error()
	case errors.Is(err, repositories.ErrTransactionNotFound):
		return fiber.StatusNotFound, "NOT_FOUND", err.Error()
	default:
		return fiber.StatusInternalServerError, "INTERNAL_ERROR", "transaction processing failed"
	}
}
