package orchestrator

import (
	"context"
	"time"

	"arbirupee/internal/models"
	"arbirupee/internal/repositories"
)

// Locker provides the short-lived coordination primitives the orchestrator
// needs from redis: per-wallet exclusion and webhook event deduplication.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
	MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	UnmarkEvent(ctx context.Context, eventID string) error
}

// Service drives every transaction through its lifecycle. It is the only
// writer of transaction status and user statistics.
type Service interface {
	InitiateDeposit(ctx context.Context, user *models.User, req DepositRequest) (*DepositResult, error)
	ConfirmDeposit(ctx context.Context, user *models.User, req ConfirmDepositRequest) (*models.Transaction, error)
	Withdraw(ctx context.Context, user *models.User, req WithdrawRequest) (*models.Transaction, error)
	ConfirmPayout(ctx context.Context, user *models.User, req ConfirmPayoutRequest) (*models.Transaction, error)
	Transfer(ctx context.Context, user *models.User, req TransferRequest) (*models.Transaction, error)

	GetTransaction(ctx context.Context, userID uint, transactionID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter repositories.TransactionFilter, page repositories.Page) ([]models.Transaction, int64, error)
	WithdrawDetails(ctx context.Context, user *models.User) (*WithdrawDetails, error)
	GetUserStats(ctx context.Context, user *models.User) (*UserStats, error)

	HandleWebhook(ctx context.Context, body []byte, signature string) error
	ResolvePending(ctx context.Context, transactionID string) (*models.Transaction, error)
}
