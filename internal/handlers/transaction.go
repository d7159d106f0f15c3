package handlers

import (
	"errors"
	"strconv"

	"arbirupee/internal/repositories"
	"arbirupee/internal/services/orchestrator"
	"arbirupee/internal/utils/response"
	"arbirupee/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const maxTransactionLimit = 100

// TransactionHandler serves the deposit, transfer and query endpoints.
type TransactionHandler struct {
	orchestrator orchestrator.Service
	users        repositories.UserRepository
}

func NewTransactionHandler(svc orchestrator.Service, users repositories.UserRepository) *TransactionHandler {
	return &TransactionHandler{orchestrator: svc, users: users}
}

type depositInput struct {
	Amount        decimal.Decimal `json:"amount"`
	BankName      string          `json:"bankName"`
	AccountHolder string          `json:"accountHolder"`
	AccountNumber string          `json:"accountNumber"`
	IFSCCode      string          `json:"ifsc"`
	UPIID         string          `json:"upiId"`
	PaymentMethod string          `json:"paymentMethod"`
}

func (h *TransactionHandler) InitiateDeposit(c *fiber.Ctx) error {
	var input depositInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if !input.Amount.IsPositive() {
		return response.BadRequest(c, "Amount must be greater than zero")
	}

	user, err := currentUser(c.Context(), c, h.users)
	if err != nil {
		return response.Unauthorized(c)
	}

	result, err := h.orchestrator.InitiateDeposit(c.Context(), user, orchestrator.DepositRequest{
		Amount: input.Amount,
		Banking: orchestrator.BankingDetails{
			BankName:      input.BankName,
			AccountHolder: input.AccountHolder,
			AccountNumber: input.AccountNumber,
			IFSCCode:      input.IFSCCode,
			UPIID:         input.UPIID,
			PaymentMethod: input.PaymentMethod,
		},
		Meta: requestMeta(c),
	})
	if err != nil {
		status, code, msg := mapServiceError(err)
		txID := ""
		if result != nil && result.Transaction != nil {
			txID = result.Transaction.TransactionID
		}
		return response.TransactionError(c, status, code, msg, txID)
	}

	return response.Success(c, "Deposit initiated", fiber.Map{
		"transactionId": result.Transaction.TransactionID,
		"status":        result.Transaction.Status,
		"orderId":       result.OrderID,
		"amount":        result.OrderAmount,
		"currency":      result.Currency,
	})
}

type confirmDepositInput struct {
	TransactionID string `json:"transactionId" validate:"required"`
	PaymentID     string `json:"paymentId" validate:"required"`
	Signature     string `json:"signature"`
}

func (h *TransactionHandler) ConfirmDeposit(c *fiber.Ctx) error {
	var input confirmDepositInput
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

	tx, err := h.orchestrator.ConfirmDeposit(c.Context(), user, orchestrator.ConfirmDepositRequest{
		TransactionID: input.TransactionID,
		PaymentID:     input.PaymentID,
		Signature:     input.Signature,
	})
	if err != nil {
		status, code, msg := mapServiceError(err)
		return response.TransactionError(c, status, code, msg, input.TransactionID)
	}

	return response.Success(c, "Deposit confirmed", fiber.Map{
		"transactionId": tx.TransactionID,
		"status":        tx.Status,
		"txHash":        tx.Blockchain.TxHash,
	})
}

type transferInput struct {
	Amount           decimal.Decimal `json:"amount"`
	RecipientAddress string          `json:"recipientAddress" validate:"required,evm_address"`
	Note             string          `json:"note" validate:"max=500"`
}

func (h *TransactionHandler) Transfer(c *fiber.Ctx) error {
	var input transferInput
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

	tx, err := h.orchestrator.Transfer(c.Context(), user, orchestrator.TransferRequest{
		Amount:           input.Amount,
		RecipientAddress: input.RecipientAddress,
		Note:             input.Note,
		Meta:             requestMeta(c),
	})
	if err != nil {
		status, code, msg := mapServiceError(err)
		txID := ""
		if tx != nil {
			txID = tx.TransactionID
		}
		return response.TransactionError(c, status, code, msg, txID)
	}

	return response.Success(c, "Transfer completed", fiber.Map{
		"transactionId": tx.TransactionID,
		"status":        tx.Status,
		"txHash":        tx.Blockchain.TxHash,
	})
}

func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	transactionID := c.Params("id")
	if transactionID == "" {
		return response.BadRequest(c, "Transaction ID is required")
	}

	user, err := currentUser(c.Context(), c, h.users)
	if err != nil {
		return response.Unauthorized(c)
	}

	tx, err := h.orchestrator.GetTransaction(c.Context(), user.ID, transactionID)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return response.NotFound(c, "Transaction not found")
		}
		return response.ServerError(c, "Failed to retrieve transaction")
	}

	return response.Success(c, "Transaction retrieved", tx)
}

func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	user, err := currentUser(c.Context(), c, h.users)
	if err != nil {
		return response.Unauthorized(c)
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	if limit < 1 {
		limit = 10
	}
	if page < 1 {
		page = 1
	}

	filter := repositories.TransactionFilter{
		UserID: user.ID,
		Type:   c.Query("type"),
		Status: c.Query("status"),
	}
	txs, total, err := h.orchestrator.ListTransactions(c.Context(), filter, repositories.Page{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return response.ServerError(c, "Failed to retrieve transactions")
	}

	return response.Success(c, "Transactions retrieved", fiber.Map{
		"transactions": txs,
		"total":        total,
		"page":         page,
		"limit":        limit,
	})
}

func (h *TransactionHandler) UserStats(c *fiber.Ctx) error {
	user, err := currentUser(c.Context(), c, h.users)
	if err != nil {
		return response.Unauthorized(c)
	}

	stats, err := h.orchestrator.GetUserStats(c.Context(), user)
	if err != nil {
		return response.ServerError(c, "Failed to retrieve statistics")
	}

	return response.Success(c, "Statistics retrieved", stats)
}
