package orchestrator

import (
	"arbirupee/internal/models"
	"arbirupee/internal/repositories"

	"github.com/shopspring/decimal"
)

// BankingDetails accompany deposit and withdrawal requests.
type BankingDetails struct {
	BankName      string
	AccountHolder string
	AccountNumber string
	IFSCCode      string
	UPIID         string
	PaymentMethod string
}

// RequestMeta is captured from the HTTP layer for the audit trail.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	Source    string
}

// DepositRequest initiates an INR deposit.
type DepositRequest struct {
	Amount  decimal.Decimal
	Banking BankingDetails
	Meta    RequestMeta
}

// DepositResult returns the pending transaction plus the gateway order the
// client completes.
type DepositResult struct {
	Transaction *models.Transaction
	OrderID     string
	OrderAmount decimal.Decimal
	Currency    string
}

// ConfirmDepositRequest carries the payment reference back from the client.
type ConfirmDepositRequest struct {
	TransactionID string
	PaymentID     string
	Signature     string
}

// WithdrawRequest initiates an arbINR withdrawal back to INR.
type WithdrawRequest struct {
	Amount  decimal.Decimal
	Banking BankingDetails
	Meta    RequestMeta
}

// ConfirmPayoutRequest confirms the bank payout of a completed withdrawal.
type ConfirmPayoutRequest struct {
	TransactionID string
	PayoutID      string
	Signature     string
}

// TransferRequest initiates a peer transfer.
type TransferRequest struct {
	Amount           decimal.Decimal
	RecipientAddress string
	Note             string
	Meta             RequestMeta
}

// WithdrawDetails summarizes limits and live balance for the withdraw page.
type WithdrawDetails struct {
	AccountHolder string          `json:"accountHolder"`
	AccountNumber string          `json:"accountNumber"`
	IFSCCode      string          `json:"ifsc"`
	BankName      string          `json:"bankName"`
	Balance       decimal.Decimal `json:"userBalance"`
	MinWithdraw   decimal.Decimal `json:"minWithdraw"`
	MaxWithdraw   decimal.Decimal `json:"maxWithdraw"`
}

// UserStats bundles the statistics endpoint payload.
type UserStats struct {
	Statistics models.Statistics      `json:"userStats"`
	Breakdown  []repositories.TypeStat `json:"transactionBreakdown"`
	Recent     []models.Transaction   `json:"recentActivity"`
}
