package repositories

import (
	"context"
	"time"

	"arbirupee/internal/models"

	"github.com/shopspring/decimal"
)

// TransactionFilter narrows ledger queries. Zero values mean "any".
type TransactionFilter struct {
	UserID uint
	Type   string
	Status string
}

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

// StatusPatch carries the sub-record fields merged into a transaction during
// a status transition. Nil members are left untouched.
type StatusPatch struct {
	Payment           *models.Payment
	Blockchain        *models.Blockchain
	TxError           *models.TxError
	BankTransactionID string
	Metadata          models.JSON
	CompletedAt       *time.Time
}

// TypeStat is one row of the per-type transaction breakdown.
type TypeStat struct {
	Type        string          `json:"type"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// TransactionRepository is the durable ledger of transactions.
//
// UpdateStatus is a compare-and-set write: it transitions the row only when
// the stored status still equals fromStatus, so a racing duplicate
// confirmation and a racing webhook cannot both drive the same transaction
// past a terminal state.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	UpdateStatus(ctx context.Context, transactionID, fromStatus, toStatus string, patch StatusPatch) error
	Patch(ctx context.Context, transactionID string, patch StatusPatch) error
	FindByID(ctx context.Context, transactionID string) (*models.Transaction, error)
	FindByIDForUser(ctx context.Context, transactionID string, userID uint) (*models.Transaction, error)
	FindByPaymentOrder(ctx context.Context, orderID string) (*models.Transaction, error)
	List(ctx context.Context, filter TransactionFilter, page Page) ([]models.Transaction, int64, error)
	Stats(ctx context.Context, userID uint) ([]TypeStat, error)
	Recent(ctx context.Context, userID uint, limit int) ([]models.Transaction, error)
}
