package storage

import (
	"context"
	"fmt"

	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdjustBalance applies a signed delta to the stored balance.
// It must only be called by the ledger, paired with AddTransaction.
func (s *Storage) AdjustBalance(ctx context.Context, userID string, delta int64) error {
	res := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("adjusting balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %s", errs.ErrNotFound, userID)
	}
	return nil
}

func (s *Storage) AddTransaction(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		return wrapCreate(err, "transaction")
	}
	return nil
}

func (s *Storage) ListTransactions(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	var result []*models.Transaction
	if err := s.db.
		WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return result, nil
}

// SumTransactions recomputes the balance of a user from the ledger.
func (s *Storage) SumTransactions(ctx context.Context, userID string) (int64, error) {
	var total int64
	if err := s.db.
		WithContext(ctx).
		Model(&models.Transaction{}).
		Where("user_id = ?", userID).
		Select(
			"COALESCE(SUM(CASE WHEN category IN ? THEN -amount ELSE amount END), 0)",
			[]models.Category{models.CategoryAdminDebit, models.CategoryWithdrawal},
		).
		Scan(&total).
		Error; err != nil {
		return 0, fmt.Errorf("summing transactions: %w", err)
	}
	return total, nil
}

func (s *Storage) CountTransactions(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := s.db.
		WithContext(ctx).
		Model(&models.Transaction{}).
		Where("user_id = ?", userID).
		Count(&count).
		Error; err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return count, nil
}
