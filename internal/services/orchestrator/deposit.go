package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"arbirupee/internal/models"
	"arbirupee/internal/repositories"
	"arbirupee/internal/services/payment"

	"github.com/sirupsen/logrus"
)

// InitiateDeposit records a pending deposit and opens a payment order with
// the gateway. The deposit completes later, via ConfirmDeposit or the
// gateway webhook.
func (s *service) InitiateDeposit(ctx context.Context, user *models.User, req DepositRequest) (*DepositResult, error) {
	if req.Amount.LessThan(s.limits.MinDeposit) || req.Amount.GreaterThan(s.limits.MaxDeposit) {
		return nil, fmt.Errorf("%w: deposit must be between %s and %s INR",
			ErrLimitViolation, s.limits.MinDeposit, s.limits.MaxDeposit)
	}

	tx := &models.Transaction{
		Type:          models.TransactionTypeDeposit,
		SubType:       models.SubTypeINRDeposit,
		Amount:        req.Amount,
		Currency:      models.CurrencyINR,
		UserID:        user.ID,
		WalletAddress: strings.ToLower(user.WalletAddress),
		Banking:       bankingRecord(req.Banking),
		Metadata:      metadataRecord(req.Meta, ""),
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	order, err := s.payments.CreateOrder(ctx, req.Amount, models.CurrencyINR, map[string]string{
		"transactionId": tx.TransactionID,
		"walletAddress": tx.WalletAddress,
		"purpose":       "arbINR_deposit",
	})
	if err != nil {
		s.failTransaction(ctx, tx, models.StatusPending, CodePaymentOrderFailed, err.Error(), nil)
		// The transaction exists and is now failed; the caller surfaces its id.
		return &DepositResult{Transaction: tx}, fmt.Errorf("payment order creation failed for %s: %w", tx.TransactionID, err)
	}

	if err := s.transactions.Patch(ctx, tx.TransactionID, repositories.StatusPatch{
		Payment: &models.Payment{
			OrderID:  order.OrderID,
			Amount:   order.Amount,
			Currency: order.Currency,
			Status:   order.Status,
		},
	}); err != nil {
		return &DepositResult{Transaction: tx}, err
	}

	s.log.WithFields(logrus.Fields{
		"transaction_id": tx.TransactionID,
		"order_id":       order.OrderID,
		"amount":         req.Amount.String(),
	}).Info("deposit initiated")

	tx.Payment.OrderID = order.OrderID
	return &DepositResult{
		Transaction: tx,
		OrderID:     order.OrderID,
		OrderAmount: order.Amount,
		Currency:    order.Currency,
	}, nil
}

// ConfirmDeposit verifies the payment reference against the gateway, then
// mints. Calling it again after completion is a no-op returning the
// completed transaction.
func (s *service) ConfirmDeposit(ctx context.Context, user *models.User, req ConfirmDepositRequest) (*models.Transaction, error) {
	tx, err := s.transactions.FindByIDForUser(ctx, req.TransactionID, user.ID)
	if err != nil {
		return nil, err
	}
	if tx.Type != models.TransactionTypeDeposit {
		return nil, repositories.ErrTransactionNotFound
	}
	if tx.Status == models.StatusCompleted {
		return tx, nil
	}
	if tx.Status == models.StatusFailed {
		return tx, fmt.Errorf("deposit %s already failed: %s", tx.TransactionID, tx.TxError.Code)
	}

	if req.Signature != "" && !s.payments.VerifySignature(tx.Payment.OrderID, req.PaymentID, req.Signature) {
		return tx, payment.ErrInvalidSignature
	}

	pay, err := s.payments.GetPayment(ctx, req.PaymentID)
	if err != nil {
		return tx, fmt.Errorf("payment lookup failed: %w", err)
	}
	// Transient mismatches leave the transaction as-is; the caller may retry
	// confirmation with the correct reference, never re-create the order.
	if !pay.Captured || pay.Status != payment.StatusCaptured {
		return tx, ErrPaymentNotCaptured
	}
	if !pay.Amount.Equal(tx.Amount) {
		return tx, fmt.Errorf("%w: paid %s, expected %s", ErrPaymentMismatch, pay.Amount, tx.Amount)
	}
	if pay.OrderID != "" && tx.Payment.OrderID != "" && pay.OrderID != tx.Payment.OrderID {
		return tx, fmt.Errorf("%w: payment belongs to order %s", ErrPaymentMismatch, pay.OrderID)
	}

	return s.completeDeposit(ctx, tx, &models.Payment{
		PaymentID: pay.PaymentID,
		Status:    pay.Status,
		Method:    pay.Method,
		Captured:  true,
	})
}

// completeDeposit drives a verified deposit through processing to its
// terminal state: mint, record the receipt, apply statistics. Shared by the
// client confirmation path and webhook reconciliation. The processing CAS is
// the single-writer gate: whichever path wins performs the mint; the loser
// backs off without side effects.
func (s *service) completeDeposit(ctx context.Context, tx *models.Transaction, pay *models.Payment) (*models.Transaction, error) {
	if tx.Status == models.StatusPending {
		err := s.transactions.UpdateStatus(ctx, tx.TransactionID, models.StatusPending, models.StatusProcessing,
			repositories.StatusPatch{Payment: pay})
		if err != nil {
			if errors.Is(err, repositories.ErrInvalidTransition) {
				// Another confirmation won the race.
				return s.transactions.FindByID(ctx, tx.TransactionID)
			}
			return tx, err
		}
	}

	receipt, err := s.chain.Mint(ctx, tx.WalletAddress, tx.Amount, tx.TransactionID)
	if err != nil {
		if isTimeout(err) {
			// The mint may have executed. Stay processing; a webhook
			// redelivery or ResolvePending settles the outcome.
			s.flagReconciliation(ctx, tx.TransactionID, "mint timed out, outcome unknown")
			return tx, fmt.Errorf("%w: mint timed out for %s", ErrChainPending, tx.TransactionID)
		}
		// Payment is captured but tokens were not issued: terminal failure,
		// flagged for operator reconciliation.
		s.failTransaction(ctx, tx, models.StatusProcessing, CodeMintFailed, err.Error(), models.JSON{
			"reconciliation_required": true,
			"note":                    "payment captured, mint failed",
		})
		return tx, fmt.Errorf("mint failed for %s: %w", tx.TransactionID, err)
	}

	err = s.transactions.UpdateStatus(ctx, tx.TransactionID, models.StatusProcessing, models.StatusCompleted,
		repositories.StatusPatch{
			Blockchain: &models.Blockchain{
				TxHash:      receipt.TxHash,
				BlockNumber: receipt.BlockNumber,
				GasUsed:     receipt.GasUsed,
			},
			CompletedAt: now(),
		})
	if err != nil {
		return tx, err
	}

	if err := s.users.ApplyStatistics(ctx, tx.UserID, repositories.StatisticsDelta{
		Deposited:        tx.Amount,
		TransactionCount: 1,
	}); err != nil {
		s.log.WithError(err).WithField("transaction_id", tx.TransactionID).
			Error("failed to apply deposit statistics")
	}

	s.log.WithFields(logrus.Fields{
		"transaction_id": tx.TransactionID,
		"tx_hash":        receipt.TxHash,
		"amount":         tx.Amount.String(),
	}).Info("deposit completed")

	return s.transactions.FindByID(ctx, tx.TransactionID)
}

func bankingRecord(b BankingDetails) models.Banking {
	method := b.PaymentMethod
	if method == "" {
		method = "bank_transfer"
	}
	return models.Banking{
		BankName:      b.BankName,
		AccountHolder: b.AccountHolder,
		AccountNumber: b.AccountNumber,
		IFSCCode:      b.IFSCCode,
		UPIID:         b.UPIID,
		PaymentMethod: method,
	}
}

func metadataRecord(m RequestMeta, note string) models.JSON {
	meta := models.JSON{}
	if m.IPAddress != "" {
		meta["ipAddress"] = m.IPAddress
	}
	if m.UserAgent != "" {
		meta["userAgent"] = m.UserAgent
	}
	if m.Source != "" {
		meta["source"] = m.Source
	} else {
		meta["source"] = "web"
	}
	if note != "" {
		meta["note"] = note
	}
	return meta
}
