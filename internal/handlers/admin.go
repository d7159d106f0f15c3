package handlers

import (
	"arbirupee/internal/services/orchestrator"
	"arbirupee/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler exposes operator reconciliation.
type AdminHandler struct {
	orchestrator orchestrator.Service
}

func NewAdminHandler(svc orchestrator.Service) *AdminHandler {
	return &AdminHandler{orchestrator: svc}
}

// ResolvePending re-queries the payment gateway for a stuck deposit and
// drives it to its correct terminal state.
func (h *AdminHandler) ResolvePending(c *fiber.Ctx) error {
	transactionID := c.Params("id")
	if transactionID == "" {
		return response.BadRequest(c, "Transaction ID is required")
	}

	tx, err := h.orchestrator.ResolvePending(c.Context(), transactionID)
	if err != nil {
		status, code, msg := mapServiceError(err)
		return response.TransactionError(c, status, code, msg, transactionID)
	}

	return response.Success(c, "Transaction reconciled", fiber.Map{
		"transactionId": tx.TransactionID,
		"status":        tx.Status,
	})
}
