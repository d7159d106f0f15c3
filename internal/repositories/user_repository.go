package repositories

import (
	"context"

	"arbirupee/internal/models"

	"github.com/shopspring/decimal"
)

// StatisticsDelta is applied to a user's counters after a transaction
// completes. Zero-valued members are skipped.
type StatisticsDelta struct {
	Deposited        decimal.Decimal
	Withdrawn        decimal.Decimal
	Transferred      decimal.Decimal
	Received         decimal.Decimal
	TransactionCount int64
}

// UserRepository is the ledger-relevant projection of users. Statistics
// increments must be atomic in the database, never read-modify-write in
// application code.
type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByWallet(ctx context.Context, walletAddress string) (*models.User, error)
	FindOrCreateByWallet(ctx context.Context, walletAddress string) (*models.User, error)
	ApplyStatistics(ctx context.Context, userID uint, delta StatisticsDelta) error
}
