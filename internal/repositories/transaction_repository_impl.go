package repositories

import (
	"context"
	"errors"
	"fmt"

	"arbirupee/internal/models"

	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates the gorm-backed transaction ledger.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	if db == nil {
		panic("db is required")
	}
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.TransactionID == "" {
		if err := tx.GenerateTransactionID(); err != nil {
			return err
		}
	}
	if tx.Status == "" {
		tx.Status = models.StatusPending
	}

	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, transactionID, fromStatus, toStatus string, patch StatusPatch) error {
	if !models.CanTransition(fromStatus, toStatus) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, fromStatus, toStatus)
	}

	current, err := r.FindByID(ctx, transactionID)
	if err != nil {
		return err
	}

	updates, err := buildUpdates(current, patch)
	if err != nil {
		return err
	}
	updates["status"] = toStatus

	// Compare-and-set on the stored status. Losing the race affects zero
	// rows and surfaces as an invalid transition to the caller.
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, fromStatus).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update transaction status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: transaction %s is no longer %s", ErrInvalidTransition, transactionID, fromStatus)
	}
	return nil
}

// Patch merges sub-record fields without a status transition. Used for
// attaching the payment order after creation and for reconciliation notes.
func (r *transactionRepository) Patch(ctx context.Context, transactionID string, patch StatusPatch) error {
	current, err := r.FindByID(ctx, transactionID)
	if err != nil {
		return err
	}

	updates, err := buildUpdates(current, patch)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ?", transactionID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to patch transaction: %w", res.Error)
	}
	return nil
}

func buildUpdates(current *models.Transaction, patch StatusPatch) (map[string]interface{}, error) {
	// Confirmed external identifiers are write-once.
	if patch.Blockchain != nil && current.Blockchain.TxHash != "" &&
		patch.Blockchain.TxHash != current.Blockchain.TxHash {
		return nil, fmt.Errorf("%w: blockchain tx hash", ErrImmutableField)
	}
	if patch.Payment != nil && current.Payment.OrderID != "" &&
		patch.Payment.OrderID != "" && patch.Payment.OrderID != current.Payment.OrderID {
		return nil, fmt.Errorf("%w: payment order id", ErrImmutableField)
	}

	updates := map[string]interface{}{}

	if p := patch.Payment; p != nil {
		if p.OrderID != "" {
			updates["payment_order_id"] = p.OrderID
		}
		if p.PaymentID != "" {
			updates["payment_payment_id"] = p.PaymentID
		}
		if p.PayoutID != "" {
			updates["payment_payout_id"] = p.PayoutID
		}
		if !p.Amount.IsZero() {
			updates["payment_amount"] = p.Amount
		}
		if p.Currency != "" {
			updates["payment_currency"] = p.Currency
		}
		if p.Status != "" {
			updates["payment_status"] = p.Status
		}
		if p.Method != "" {
			updates["payment_method"] = p.Method
		}
		if p.Captured {
			updates["payment_captured"] = true
		}
	}
	if b := patch.Blockchain; b != nil {
		updates["blockchain_tx_hash"] = b.TxHash
		updates["blockchain_block_number"] = b.BlockNumber
		updates["blockchain_gas_used"] = b.GasUsed
	}
	if e := patch.TxError; e != nil {
		updates["error_code"] = e.Code
		updates["error_message"] = e.Message
	}
	if patch.BankTransactionID != "" {
		updates["banking_bank_transaction_id"] = patch.BankTransactionID
	}
	if patch.CompletedAt != nil {
		updates["completed_at"] = patch.CompletedAt
	}
	if len(patch.Metadata) > 0 {
		merged := models.JSON{}
		for k, v := range current.Metadata {
			merged[k] = v
		}
		for k, v := range patch.Metadata {
			merged[k] = v
		}
		updates["metadata"] = merged
	}

	return updates, nil
}

func (r *transactionRepository) FindByID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) FindByIDForUser(ctx context.Context, transactionID string, userID uint) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND user_id = ?", transactionID, userID).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) FindByPaymentOrder(ctx context.Context, orderID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).Where("payment_order_id = ?", orderID).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to find transaction by order: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) List(ctx context.Context, filter TransactionFilter, page Page) ([]models.Transaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Transaction{})
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var txs []models.Transaction
	err := q.Order("created_at DESC").Limit(page.Limit).Offset(page.Offset).Find(&txs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, total, nil
}

func (r *transactionRepository) Stats(ctx context.Context, userID uint) ([]TypeStat, error) {
	var stats []TypeStat
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND status = ?", userID, models.StatusCompleted).
		Select("type, COUNT(*) as count, COALESCE(SUM(amount), 0) as total_amount").
		Group("type").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate transaction stats: %w", err)
	}
	return stats, nil
}

func (r *transactionRepository) Recent(ctx context.Context, userID uint, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent transactions: %w", err)
	}
	return txs, nil
}
