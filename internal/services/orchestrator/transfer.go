package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"arbirupee/internal/models"
	"arbirupee/internal/repositories"

	"github.com/sirupsen/logrus"
)

// Transfer moves arbINR between wallets. The transfer fee is reserved in the
// affordability check only; it is not moved on-chain and never counted in
// statistics.
func (s *service) Transfer(ctx context.Context, user *models.User, req TransferRequest) (*models.Transaction, error) {
	recipient := strings.ToLower(req.RecipientAddress)
	sender := strings.ToLower(user.WalletAddress)

	if !s.chain.IsValidAddress(req.RecipientAddress) {
		return nil, ErrInvalidAddress
	}
	if recipient == sender {
		return nil, ErrSelfTransfer
	}
	if req.Amount.LessThan(s.limits.MinTransfer) || req.Amount.GreaterThan(s.limits.MaxTransfer) {
		return nil, fmt.Errorf("%w: transfer must be between %s and %s arbINR",
			ErrLimitViolation, s.limits.MinTransfer, s.limits.MaxTransfer)
	}

	ok, err := s.locker.AcquireLock(ctx, "wallet:"+sender, walletLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWalletBusy
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), "wallet:"+sender); err != nil {
			s.log.WithError(err).WithField("wallet", sender).Warn("failed to release wallet lock")
		}
	}()

	totalRequired := req.Amount.Add(s.limits.TransferFee)
	balance, err := s.chain.BalanceOf(ctx, sender)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(totalRequired) {
		return nil, fmt.Errorf("%w: balance %s, required %s including %s fee",
			ErrInsufficientBalance, balance, totalRequired, s.limits.TransferFee)
	}

	// Best-effort join: the recipient may not be a known user.
	var recipientUser *models.User
	if u, err := s.users.FindByWallet(ctx, recipient); err == nil {
		recipientUser = u
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}

	tx := &models.Transaction{
		Type:          models.TransactionTypeTransfer,
		SubType:       models.SubTypePeerTransfer,
		Amount:        req.Amount,
		Currency:      models.CurrencyArbINR,
		UserID:        user.ID,
		WalletAddress: sender,
		Recipient:     models.Recipient{WalletAddress: recipient},
		Metadata:      metadataRecord(req.Meta, req.Note),
	}
	if recipientUser != nil {
		tx.Recipient.UserID = &recipientUser.ID
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	if err := s.transactions.UpdateStatus(ctx, tx.TransactionID, models.StatusPending, models.StatusProcessing,
		repositories.StatusPatch{}); err != nil {
		return tx, err
	}

	receipt, err := s.chain.Transfer(ctx, sender, recipient, req.Amount, tx.TransactionID)
	if err != nil {
		if isTimeout(err) {
			s.flagReconciliation(ctx, tx.TransactionID, "transfer timed out, outcome unknown")
			return tx, fmt.Errorf("%w: transfer timed out for %s", ErrChainPending, tx.TransactionID)
		}
		s.failTransaction(ctx, tx, models.StatusProcessing, CodeTransferFailed, err.Error(), nil)
		return tx, fmt.Errorf("transfer failed for %s: %w", tx.TransactionID, err)
	}

	if err := s.transactions.UpdateStatus(ctx, tx.TransactionID, models.StatusProcessing, models.StatusCompleted,
		repositories.StatusPatch{
			Blockchain: &models.Blockchain{
				TxHash:      receipt.TxHash,
				BlockNumber: receipt.BlockNumber,
				GasUsed:     receipt.GasUsed,
			},
			CompletedAt: now(),
		}); err != nil {
		return tx, err
	}

	// Debit the sender, credit the recipient when known.
	if err := s.users.ApplyStatistics(ctx, user.ID, repositories.StatisticsDelta{
		Transferred:      req.Amount,
		TransactionCount: 1,
	}); err != nil {
		s.log.WithError(err).WithField("transaction_id", tx.TransactionID).
			Error("failed to apply sender statistics")
	}
	if recipientUser != nil {
		if err := s.users.ApplyStatistics(ctx, recipientUser.ID, repositories.StatisticsDelta{
			Received:         req.Amount,
			TransactionCount: 1,
		}); err != nil {
			s.log.WithError(err).WithField("transaction_id", tx.TransactionID).
				Error("failed to apply recipient statistics")
		}
	}

	s.log.WithFields(logrus.Fields{
		"transaction_id": tx.TransactionID,
		"tx_hash":        receipt.TxHash,
		"recipient":      recipient,
		"amount":         req.Amount.String(),
	}).Info("transfer completed")

	return s.transactions.FindByID(ctx, tx.TransactionID)
}
