// Package payment adapts the INR payment gateway. Order creation, payment
// lookup, payout creation, signature checks and webhook decoding live here;
// the orchestrator treats the gateway as a black box producing orders and
// webhook events.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Order is a payment intent the client completes out of band.
type Order struct {
	OrderID  string          `json:"orderId"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
	Receipt  string          `json:"receipt"`
}

// Payment is the gateway's view of a completed or attempted payment.
type Payment struct {
	PaymentID string          `json:"paymentId"`
	OrderID   string          `json:"orderId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Method    string          `json:"method"`
	Captured  bool            `json:"captured"`
}

// Payout is a bank transfer out to the user.
type Payout struct {
	PayoutID string          `json:"payoutId"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
}

// BankDetails identifies the payout destination account.
type BankDetails struct {
	AccountHolder string
	AccountNumber string
	IFSCCode      string
	BankName      string
}

// Webhook event types the gateway delivers.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
)

// Payment status the gateway reports for a captured payment.
const StatusCaptured = "captured"

// WebhookEvent is a decoded, signature-verified gateway callback.
type WebhookEvent struct {
	EventID   string          `json:"eventId"`
	Type      string          `json:"type"`
	OrderID   string          `json:"orderId"`
	PaymentID string          `json:"paymentId"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

// Gateway is the contract the orchestrator depends on.
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string, notes map[string]string) (*Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
	CreatePayout(ctx context.Context, amount decimal.Decimal, bank BankDetails, idempotencyKey string) (*Payout, error)
	DecodeWebhook(body []byte, signature string) (*WebhookEvent, error)
}
