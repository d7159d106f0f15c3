// Package orchestrator implements the transaction lifecycle: it creates
// transactions, coordinates the payment gateway and the token contract, and
// reconciles success and failure across both without losing or
// double-applying funds.
//
// Status moves forward only (pending -> processing -> completed/failed) and
// every transition is a compare-and-set write in the ledger, so a racing
// duplicate confirmation and a racing webhook cannot both complete the same
// transaction. Per-wallet redis locks close the window between the
// authoritative balance read and the burn/transfer commit.
package orchestrator

import (
	"context"
	"errors"
	"net"
	"time"

	"arbirupee/internal/config"
	"arbirupee/internal/models"
	"arbirupee/internal/repositories"
	"arbirupee/internal/services/chain"
	"arbirupee/internal/services/payment"

	"github.com/sirupsen/logrus"
)

const (
	// walletLockTTL bounds how long a crashed holder can block a wallet.
	walletLockTTL = 30 * time.Second
	// eventDedupTTL covers the gateway's webhook redelivery horizon.
	eventDedupTTL = 24 * time.Hour
)

type service struct {
	transactions repositories.TransactionRepository
	users        repositories.UserRepository
	chain        chain.Gateway
	payments     payment.Gateway
	locker       Locker
	limits       config.Limits
	log          *logrus.Entry
}

// NewService wires the orchestrator. All collaborators are injected so tests
// can substitute fakes and connection lifecycle stays with the caller.
func NewService(
	transactions repositories.TransactionRepository,
	users repositories.UserRepository,
	chainGw chain.Gateway,
	paymentGw payment.Gateway,
	locker Locker,
	limits config.Limits,
	log *logrus.Entry,
) Service {
	if transactions == nil {
		panic("transaction repository is required")
	}
	if users == nil {
		panic("user repository is required")
	}
	if chainGw == nil {
		panic("chain gateway is required")
	}
	if paymentGw == nil {
		panic("payment gateway is required")
	}
	if locker == nil {
		panic("locker is required")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}

	return &service{
		transactions: transactions,
		users:        users,
		chain:        chainGw,
		payments:     paymentGw,
		locker:       locker,
		limits:       limits,
		log:          log,
	}
}

func (s *service) GetTransaction(ctx context.Context, userID uint, transactionID string) (*models.Transaction, error) {
	return s.transactions.FindByIDForUser(ctx, transactionID, userID)
}

func (s *service) ListTransactions(ctx context.Context, filter repositories.TransactionFilter, page repositories.Page) ([]models.Transaction, int64, error) {
	return s.transactions.List(ctx, filter, page)
}

func (s *service) WithdrawDetails(ctx context.Context, user *models.User) (*WithdrawDetails, error) {
	balance, err := s.chain.BalanceOf(ctx, user.WalletAddress)
	if err != nil {
		return nil, err
	}

	maxWithdraw := s.limits.MaxWithdraw
	if balance.LessThan(maxWithdraw) {
		maxWithdraw = balance
	}
	return &WithdrawDetails{
		AccountHolder: user.Name,
		Balance:       balance,
		MinWithdraw:   s.limits.MinWithdraw,
		MaxWithdraw:   maxWithdraw,
	}, nil
}

func (s *service) GetUserStats(ctx context.Context, user *models.User) (*UserStats, error) {
	breakdown, err := s.transactions.Stats(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	recent, err := s.transactions.Recent(ctx, user.ID, 5)
	if err != nil {
		return nil, err
	}
	return &UserStats{
		Statistics: user.Statistics,
		Breakdown:  breakdown,
		Recent:     recent,
	}, nil
}

// failTransaction moves a transaction to failed with the given code,
// regardless of whether it is still pending or already processing.
func (s *service) failTransaction(ctx context.Context, tx *models.Transaction, fromStatus, code, message string, meta models.JSON) {
	patch := repositories.StatusPatch{
		TxError:  &models.TxError{Code: code, Message: message},
		Metadata: meta,
	}
	if err := s.transactions.UpdateStatus(ctx, tx.TransactionID, fromStatus, models.StatusFailed, patch); err != nil {
		s.log.WithError(err).WithField("transaction_id", tx.TransactionID).
			Error("failed to mark transaction failed")
	}
}

// isTimeout reports whether a gateway error is a timeout, meaning the call
// may have executed even though no answer arrived. Such errors never imply
// failure; only an authoritative gateway response does.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// flagReconciliation queues a transaction for the operator without touching
// its status.
func (s *service) flagReconciliation(ctx context.Context, transactionID, note string) {
	if err := s.transactions.Patch(ctx, transactionID, repositories.StatusPatch{
		Metadata: models.JSON{
			"reconciliation_required": true,
			"note":                    note,
		},
	}); err != nil {
		s.log.WithError(err).WithField("transaction_id", transactionID).
			Error("failed to flag transaction for reconciliation")
	}
}

func now() *time.Time {
	t := time.Now()
	return &t
}
