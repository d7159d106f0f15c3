package handlers

import (
	"arbirupee/internal/repositories"
	"arbirupee/internal/services/orchestrator"
	"arbirupee/internal/utils/response"
	"arbirupee/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// WithdrawHandler serves the withdrawal surface: details page, initiation
// and payout confirmation.
type WithdrawHandler struct {
	orchestrator orchestrator.Service
	users        repositories.UserRepository
}

func NewWithdrawHandler(svc orchestrator.Service, users repositories.UserRepository) *WithdrawHandler {
	return &WithdrawHandler{orchestrator: svc, users: users}
}

func (h *WithdrawHandler) Details(c *fiber.Ctx) error {
	user, err := currentUser(c.Context(), c, h.users)
	if err != nil {
		return response.Unauthorized(c)
	}

	details, err := h.orchestrator.WithdrawDetails(c.Context(), user)
	if err != nil {
		return response.ServerError(c, "Failed to retrieve withdrawal details")
	}

	return response.Success(c, "Withdrawal details retrieved", details)
}

type withdrawInput struct {
	Amount        decimal.Decimal `json:"amount"`
	BankName      string          `json:"bankName" validate:"required"`
	AccountHolder string          `json:"accountHolder" validate:"required"`
	AccountNumber string          `json:"accountNumber" validate:"required"`
	IFSCCode      string          `json:"ifsc" validate:"required"`
	UPIID         string          `json:"upiId"`
}

func (h *WithdrawHandler) Withdraw(c *fiber.Ctx) error {
	var input withdrawInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if !input.Amount.IsPositive() {
		return response.BadRequest(c, "Amount must be greater than zero")
	}
	if err := validation.Struct(input); err != nil {
		return response.ValidationError(c, err.Error())
	}

	user, err := currentUser(c.Context(), c, h.users)
	if err != nil {
		return response.Unauthorized(c)
	}

	tx, err := h.orchestrator.Withdraw(c.Context(), user, orchestrator.WithdrawRequest{
		Amount: input.Amount,
		Banking: orchestrator.BankingDetails{
			BankName:      input.BankName,
			AccountHolder: input.AccountHolder,
			AccountNumber: input.AccountNumber,
			IFSCCode:      input.IFSCCode,
			UPIID:         input.UPIID,
			PaymentMethod: "bank_transfer",
		},
		Meta: requestMeta(c),
	})
	if err != nil {
		status, code, msg := mapServiceError(err)
		txID := ""
		if tx != nil {
			txID = tx.TransactionID
		}
		return response.TransactionError(c, status, code, msg, txID)
	}

	return response.Success(c, "Withdrawal processed", fiber.Map{
		"transactionId": tx.TransactionID,
		"status":        tx.Status,
		"txHash":        tx.Blockchain.TxHash,
		"payoutId":      tx.Payment.PayoutID,
	})
}

type confirmPayoutInput struct {
	TransactionID string `json:"transactionId" validate:"required"`
	PayoutID      string `json:"payoutId" validate:"required"`
	Signature     string `json:"signature" validate:"required"`
}

func (h *WithdrawHandler) ConfirmPayout(c *fiber.Ctx) error {
	var input confirmPayoutInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validation.Struct(input); err != nil {
		return response.ValidationError(c, err.Error())
	}

	user, err := currentUser(c.Context(), c, h.users)
	if err != nil {
		return response.Unauthorized(c)
	}

	tx, err := h.orchestrator.ConfirmPayout(c.Context(), user, orchestrator.ConfirmPayoutRequest{
		TransactionID: input.TransactionID,
		PayoutID:      input.PayoutID,
		Signature:     input.Signature,
	})
	if err != nil {
		status, code, msg := mapServiceError(err)
		return response.TransactionError(c, status, code, msg, input.TransactionID)
	}

	return response.Success(c, "Payout confirmed", fiber.Map{
		"transactionId": tx.TransactionID,
		"status":        tx.Status,
		"payoutStatus":  tx.Payment.Status,
	})
}
