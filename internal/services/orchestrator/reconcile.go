package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"arbirupee/internal/models"
	"arbirupee/internal/repositories"
	"arbirupee/internal/services/chain"
	"arbirupee/internal/services/payment"

	"github.com/sirupsen/logrus"
)

// HandleWebhook reconciles asynchronous payment events. The signature is
// verified before any lookup; redelivered events and already-terminal
// transactions are no-ops.
func (s *service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	event, err := s.payments.DecodeWebhook(body, signature)
	if err != nil {
		// Invalid signatures never touch transaction state.
		return err
	}

	first, err := s.locker.MarkEventSeen(ctx, event.EventID, eventDedupTTL)
	if err != nil {
		return err
	}
	if !first {
		s.log.WithField("event_id", event.EventID).Debug("webhook event replayed, ignoring")
		return nil
	}

	if err := s.processWebhookEvent(ctx, event); err != nil {
		// Release the dedup mark so the gateway's redelivery retries the
		// event. The status CAS keeps a concurrent duplicate harmless.
		if unmarkErr := s.locker.UnmarkEvent(context.WithoutCancel(ctx), event.EventID); unmarkErr != nil {
			s.log.WithError(unmarkErr).WithField("event_id", event.EventID).
				Error("failed to release webhook dedup mark")
		}
		return err
	}
	return nil
}

func (s *service) processWebhookEvent(ctx context.Context, event *payment.WebhookEvent) error {
	log := s.log.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"type":     event.Type,
		"order_id": event.OrderID,
	})

	// Lookup is by the gateway's order id; this path never trusts a
	// client-supplied transaction id.
	tx, err := s.transactions.FindByPaymentOrder(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			log.Info("webhook for unknown order, ignoring")
			return nil
		}
		return err
	}
	if tx.IsTerminal() {
		log.WithField("status", tx.Status).Debug("transaction already terminal, ignoring webhook")
		return nil
	}

	switch event.Type {
	case payment.EventPaymentCaptured, payment.EventOrderPaid:
		if !event.Amount.IsZero() && !event.Amount.Equal(tx.Amount) {
			log.WithField("amount", event.Amount.String()).
				Warn("webhook amount mismatch, leaving transaction for manual review")
			return s.transactions.Patch(ctx, tx.TransactionID, repositories.StatusPatch{
				Metadata: models.JSON{
					"reconciliation_required": true,
					"note":                    "webhook amount mismatch",
				},
			})
		}
		_, err := s.completeDeposit(ctx, tx, &models.Payment{
			PaymentID: event.PaymentID,
			Status:    payment.StatusCaptured,
			Captured:  true,
		})
		return err

	case payment.EventPaymentFailed:
		s.failTransaction(ctx, tx, tx.Status, CodePaymentFailed, event.Reason, nil)
		log.Info("transaction failed via webhook")
		return nil

	default:
		log.Debug("unhandled webhook event type")
		return nil
	}
}

// ResolvePending settles a transaction stuck in pending or processing,
// typically after a gateway timeout. Deposits are resolved against the
// payment gateway, withdrawals and transfers against the bridge. A timed-out
// call never implies failure on its own.
func (s *service) ResolvePending(ctx context.Context, transactionID string) (*models.Transaction, error) {
	tx, err := s.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.IsTerminal() {
		return tx, ErrNotResolvable
	}

	switch tx.Type {
	case models.TransactionTypeDeposit:
		return s.resolveDeposit(ctx, tx)
	case models.TransactionTypeWithdraw, models.TransactionTypeTransfer:
		return s.resolveChainMutation(ctx, tx)
	default:
		return tx, ErrNotResolvable
	}
}

func (s *service) resolveDeposit(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	// A recorded receipt means the mint went through and only the final
	// transition was lost; finish it.
	if tx.Blockchain.TxHash != "" && tx.Status == models.StatusProcessing {
		if err := s.transactions.UpdateStatus(ctx, tx.TransactionID, models.StatusProcessing, models.StatusCompleted,
			repositories.StatusPatch{CompletedAt: now()}); err != nil {
			return tx, err
		}
		if err := s.users.ApplyStatistics(ctx, tx.UserID, repositories.StatisticsDelta{
			Deposited:        tx.Amount,
			TransactionCount: 1,
		}); err != nil {
			s.log.WithError(err).WithField("transaction_id", tx.TransactionID).
				Error("failed to apply deposit statistics during reconciliation")
		}
		return s.transactions.FindByID(ctx, tx.TransactionID)
	}

	if tx.Payment.PaymentID == "" {
		return tx, fmt.Errorf("%w: no payment reference recorded", ErrNotResolvable)
	}

	pay, err := s.payments.GetPayment(ctx, tx.Payment.PaymentID)
	if err != nil {
		return tx, fmt.Errorf("authoritative payment lookup failed: %w", err)
	}

	if pay.Captured && pay.Amount.Equal(tx.Amount) {
		return s.completeDeposit(ctx, tx, &models.Payment{
			PaymentID: pay.PaymentID,
			Status:    pay.Status,
			Method:    pay.Method,
			Captured:  true,
		})
	}
	if pay.Status == "failed" {
		s.failTransaction(ctx, tx, tx.Status, CodePaymentFailed, "payment failed at gateway", nil)
		return s.transactions.FindByID(ctx, tx.TransactionID)
	}

	// Payment still in flight at the gateway; leave the transaction alone.
	return tx, nil
}

// resolveChainMutation settles a withdrawal or transfer left processing
// after a bridge timeout. Mutations are idempotent per transaction id on the
// bridge, so re-issuing the call either replays the original receipt or
// performs it for the first time.
func (s *service) resolveChainMutation(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if tx.Status != models.StatusProcessing {
		return tx, ErrNotResolvable
	}

	patch := repositories.StatusPatch{CompletedAt: now()}
	if tx.Blockchain.TxHash == "" {
		var receipt *chain.Receipt
		var err error
		if tx.Type == models.TransactionTypeWithdraw {
			receipt, err = s.chain.Burn(ctx, tx.WalletAddress, tx.Amount, tx.TransactionID)
		} else {
			receipt, err = s.chain.Transfer(ctx, tx.WalletAddress, tx.Recipient.WalletAddress, tx.Amount, tx.TransactionID)
		}
		if err != nil {
			if isTimeout(err) {
				return tx, fmt.Errorf("%w: bridge timed out again for %s", ErrChainPending, tx.TransactionID)
			}
			code := CodeBurnFailed
			if tx.Type == models.TransactionTypeTransfer {
				code = CodeTransferFailed
			}
			s.failTransaction(ctx, tx, models.StatusProcessing, code, err.Error(), nil)
			return s.transactions.FindByID(ctx, tx.TransactionID)
		}
		patch.Blockchain = &models.Blockchain{
			TxHash:      receipt.TxHash,
			BlockNumber: receipt.BlockNumber,
			GasUsed:     receipt.GasUsed,
		}
	}

	if err := s.transactions.UpdateStatus(ctx, tx.TransactionID, models.StatusProcessing, models.StatusCompleted, patch); err != nil {
		return tx, err
	}

	switch tx.Type {
	case models.TransactionTypeWithdraw:
		if err := s.users.ApplyStatistics(ctx, tx.UserID, repositories.StatisticsDelta{
			Withdrawn:        tx.Amount,
			TransactionCount: 1,
		}); err != nil {
			s.log.WithError(err).WithField("transaction_id", tx.TransactionID).
				Error("failed to apply withdrawal statistics during reconciliation")
		}
		if tx.Payment.PayoutID == "" {
			s.initiatePayout(ctx, tx)
		}
	case models.TransactionTypeTransfer:
		if err := s.users.ApplyStatistics(ctx, tx.UserID, repositories.StatisticsDelta{
			Transferred:      tx.Amount,
			TransactionCount: 1,
		}); err != nil {
			s.log.WithError(err).WithField("transaction_id", tx.TransactionID).
				Error("failed to apply sender statistics during reconciliation")
		}
		if tx.Recipient.UserID != nil {
			if err := s.users.ApplyStatistics(ctx, *tx.Recipient.UserID, repositories.StatisticsDelta{
				Received:         tx.Amount,
				TransactionCount: 1,
			}); err != nil {
				s.log.WithError(err).WithField("transaction_id", tx.TransactionID).
					Error("failed to apply recipient statistics during reconciliation")
			}
		}
	}

	return s.transactions.FindByID(ctx, tx.TransactionID)
}
