package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"arbirupee/internal/models"
	"arbirupee/internal/repositories"
	"arbirupee/internal/services/payment"

	"github.com/sirupsen/logrus"
)

// Withdraw burns arbINR from the caller's wallet and initiates a bank
// payout. The balance is re-read under the wallet lock immediately before
// the burn, so two concurrent withdrawals cannot both drain the same
// balance.
func (s *service) Withdraw(ctx context.Context, user *models.User, req WithdrawRequest) (*models.Transaction, error) {
	if req.Amount.LessThan(s.limits.MinWithdraw) || req.Amount.GreaterThan(s.limits.MaxWithdraw) {
		return nil, fmt.Errorf("%w: withdrawal must be between %s and %s INR",
			ErrLimitViolation, s.limits.MinWithdraw, s.limits.MaxWithdraw)
	}

	wallet := strings.ToLower(user.WalletAddress)
	ok, err := s.locker.AcquireLock(ctx, "wallet:"+wallet, walletLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWalletBusy
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), "wallet:"+wallet); err != nil {
			s.log.WithError(err).WithField("wallet", wallet).Warn("failed to release wallet lock")
		}
	}()

	// Authoritative balance read, under the lock.
	balance, err := s.chain.BalanceOf(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(req.Amount) {
		return nil, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientBalance, balance, req.Amount)
	}

	tx := &models.Transaction{
		Type:          models.TransactionTypeWithdraw,
		SubType:       models.SubTypeINRWithdrawal,
		Amount:        req.Amount,
		Currency:      models.CurrencyArbINR,
		UserID:        user.ID,
		WalletAddress: wallet,
		Banking:       bankingRecord(req.Banking),
		Metadata:      metadataRecord(req.Meta, ""),
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	if err := s.transactions.UpdateStatus(ctx, tx.TransactionID, models.StatusPending, models.StatusProcessing,
		repositories.StatusPatch{}); err != nil {
		return tx, err
	}

	receipt, err := s.chain.Burn(ctx, wallet, req.Amount, tx.TransactionID)
	if err != nil {
		if isTimeout(err) {
			// The burn may have executed. Stay processing until the outcome
			// is settled against the bridge.
			s.flagReconciliation(ctx, tx.TransactionID, "burn timed out, outcome unknown")
			return tx, fmt.Errorf("%w: burn timed out for %s", ErrChainPending, tx.TransactionID)
		}
		s.failTransaction(ctx, tx, models.StatusProcessing, CodeBurnFailed, err.Error(), nil)
		return tx, fmt.Errorf("burn failed for %s: %w", tx.TransactionID, err)
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

	if err := s.users.ApplyStatistics(ctx, user.ID, repositories.StatisticsDelta{
		Withdrawn:        req.Amount,
		TransactionCount: 1,
	}); err != nil {
		s.log.WithError(err).WithField("transaction_id", tx.TransactionID).
			Error("failed to apply withdrawal statistics")
	}

	s.log.WithFields(logrus.Fields{
		"transaction_id": tx.TransactionID,
		"tx_hash":        receipt.TxHash,
		"amount":         req.Amount.String(),
	}).Info("withdrawal burn completed")

	// The burn is final; a payout failure never reverses it. It is recorded
	// for operator retry instead.
	s.initiatePayout(ctx, tx)

	return s.transactions.FindByID(ctx, tx.TransactionID)
}

func (s *service) initiatePayout(ctx context.Context, tx *models.Transaction) {
	payout, err := s.payments.CreatePayout(ctx, tx.Amount, payment.BankDetails{
		AccountHolder: tx.Banking.AccountHolder,
		AccountNumber: tx.Banking.AccountNumber,
		IFSCCode:      tx.Banking.IFSCCode,
		BankName:      tx.Banking.BankName,
	}, tx.TransactionID)
	if err != nil {
		s.log.WithError(err).WithField("transaction_id", tx.TransactionID).
			Error("payout creation failed after burn")
		if patchErr := s.transactions.Patch(ctx, tx.TransactionID, repositories.StatusPatch{
			Metadata: models.JSON{
				"reconciliation_required": true,
				"note":                    "burn succeeded, payout failed: " + err.Error(),
			},
		}); patchErr != nil {
			s.log.WithError(patchErr).WithField("transaction_id", tx.TransactionID).
				Error("failed to flag payout for reconciliation")
		}
		return
	}

	if err := s.transactions.Patch(ctx, tx.TransactionID, repositories.StatusPatch{
		Payment: &models.Payment{
			PayoutID: payout.PayoutID,
			Status:   payout.Status,
		},
	}); err != nil {
		s.log.WithError(err).WithField("transaction_id", tx.TransactionID).
			Error("failed to record payout reference")
	}
}

// ConfirmPayout verifies the gateway's payout signature and marks the bank
// leg of a completed withdrawal as settled. Statistics were applied when the
// burn completed; this only annotates.
func (s *service) ConfirmPayout(ctx context.Context, user *models.User, req ConfirmPayoutRequest) (*models.Transaction, error) {
	tx, err := s.transactions.FindByIDForUser(ctx, req.TransactionID, user.ID)
	if err != nil {
		return nil, err
	}
	if tx.Type != models.TransactionTypeWithdraw {
		return nil, repositories.ErrTransactionNotFound
	}
	if tx.Payment.PayoutID == "" || tx.Payment.PayoutID != req.PayoutID {
		return tx, fmt.Errorf("%w: unknown payout reference", ErrPaymentMismatch)
	}
	if !s.payments.VerifySignature(tx.TransactionID, req.PayoutID, req.Signature) {
		return tx, payment.ErrInvalidSignature
	}

	if err := s.transactions.Patch(ctx, tx.TransactionID, repositories.StatusPatch{
		Payment:  &models.Payment{Status: "processed"},
		Metadata: models.JSON{"payout_confirmed": true},
	}); err != nil {
		return tx, err
	}
	return s.transactions.FindByID(ctx, tx.TransactionID)
}
