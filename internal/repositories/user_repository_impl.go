package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"arbirupee/internal/models"

	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates the gorm-backed user store.
func NewUserRepository(db *gorm.DB) UserRepository {
	if db == nil {
		panic("db is required")
	}
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) FindByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("wallet_address = ?", strings.ToLower(walletAddress)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by wallet: %w", err)
	}
	return &user, nil
}

// FindOrCreateByWallet backs the wallet session flow: the first session for
// an address creates the user row. Concurrent first sessions race on the
// unique index; the loser re-reads the winner's row.
func (r *userRepository) FindOrCreateByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	wallet := strings.ToLower(walletAddress)
	user, err := r.FindByWallet(ctx, wallet)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	created := &models.User{WalletAddress: wallet, Status: "active"}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		if isUniqueViolation(err) {
			return r.FindByWallet(ctx, wallet)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

func (r *userRepository) ApplyStatistics(ctx context.Context, userID uint, delta StatisticsDelta) error {
	updates := map[string]interface{}{
		"last_activity_at": time.Now(),
	}
	if !delta.Deposited.IsZero() {
		updates["statistics_total_deposited"] = gorm.Expr("statistics_total_deposited + ?", delta.Deposited)
	}
	if !delta.Withdrawn.IsZero() {
		updates["statistics_total_withdrawn"] = gorm.Expr("statistics_total_withdrawn + ?", delta.Withdrawn)
	}
	if !delta.Transferred.IsZero() {
		updates["statistics_total_transferred"] = gorm.Expr("statistics_total_transferred + ?", delta.Transferred)
	}
	if !delta.Received.IsZero() {
		updates["statistics_total_received"] = gorm.Expr("statistics_total_received + ?", delta.Received)
	}
	if delta.TransactionCount != 0 {
		updates["statistics_transaction_count"] = gorm.Expr("statistics_transaction_count + ?", delta.TransactionCount)
	}

	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to apply statistics: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
