package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TransactionTypeDeposit  = "deposit"
	TransactionTypeWithdraw = "withdraw"
	TransactionTypeTransfer = "transfer"
)

// Transaction sub-types
const (
	SubTypeINRDeposit    = "inr_deposit"
	SubTypeINRWithdrawal = "inr_withdrawal"
	SubTypePeerTransfer  = "peer_transfer"
)

// Transaction statuses. Transitions only move forward:
// pending -> processing -> completed | failed, and pending -> failed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Currencies
const (
	CurrencyINR    = "INR"
	CurrencyArbINR = "arbINR"
)

// Recipient identifies the receiving side of a peer transfer. UserID is set
// only when the wallet address belongs to a known user.
type Recipient struct {
	WalletAddress string `json:"walletAddress"`
	UserID        *uint  `json:"userId,omitempty"`
}

// Banking carries the bank details attached to deposits and withdrawals.
type Banking struct {
	BankName          string `json:"bankName"`
	AccountHolder     string `json:"accountHolder"`
	AccountNumber     string `json:"accountNumber"`
	IFSCCode          string `json:"ifscCode"`
	UPIID             string `json:"upiId"`
	PaymentMethod     string `json:"paymentMethod"`
	BankTransactionID string `json:"bankTransactionId"`
}

// Payment mirrors the state of the external payment gateway order. OrderID is
// write-once; the ledger refuses to overwrite a non-empty value.
type Payment struct {
	OrderID   string          `json:"orderId"`
	PaymentID string          `json:"paymentId"`
	PayoutID  string          `json:"payoutId"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,2)" json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Method    string          `json:"method"`
	Captured  bool            `json:"captured"`
}

// Blockchain records the on-chain receipt once a mint/burn/transfer
// succeeds. TxHash is write-once.
type Blockchain struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
	GasUsed     uint64 `json:"gasUsed"`
}

// TxError captures the machine-readable failure reason of a terminal
// transaction.
type TxError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Transaction is the unit of work driven through the lifecycle state machine.
type Transaction struct {
	ID            uint            `gorm:"primarykey" json:"-"`
	TransactionID string          `gorm:"uniqueIndex;not null" json:"transactionId"`
	Type          string          `gorm:"not null;index" json:"type"`
	SubType       string          `json:"subType"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Currency      string          `gorm:"not null" json:"currency"`
	Status        string          `gorm:"not null;default:'pending';index" json:"status"`
	UserID        uint            `gorm:"not null;index" json:"-"`
	WalletAddress string          `gorm:"not null;index" json:"walletAddress"`

	Recipient  Recipient  `gorm:"embedded;embeddedPrefix:recipient_" json:"recipient,omitempty"`
	Banking    Banking    `gorm:"embedded;embeddedPrefix:banking_" json:"banking,omitempty"`
	Payment    Payment    `gorm:"embedded;embeddedPrefix:payment_" json:"payment,omitempty"`
	Blockchain Blockchain `gorm:"embedded;embeddedPrefix:blockchain_" json:"blockchain,omitempty"`
	TxError    TxError    `gorm:"embedded;embeddedPrefix:error_" json:"error,omitempty"`

	Metadata    JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"-"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// transactionIDPrefixes maps transaction types to the external id prefix.
var transactionIDPrefixes = map[string]string{
	TransactionTypeDeposit:  "DEP",
	TransactionTypeWithdraw: "WDR",
	TransactionTypeTransfer: "TRF",
}

// GenerateTransactionID assigns the externally shareable transaction id.
// It must be called exactly once, before the first persist.
func (t *Transaction) GenerateTransactionID() error {
	if t.TransactionID != "" {
		return fmt.Errorf("transaction id already assigned: %s", t.TransactionID)
	}
	prefix, ok := transactionIDPrefixes[t.Type]
	if !ok {
		return fmt.Errorf("unknown transaction type: %q", t.Type)
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	t.TransactionID = fmt.Sprintf("%s-%s", prefix, strings.ToUpper(token))
	return nil
}

// IsTerminal reports whether the transaction reached a final status.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// validTransitions is the forward-only status graph.
var validTransitions = map[string][]string{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
