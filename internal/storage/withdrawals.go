package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/google/uuid"
)

func (s *Storage) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		return wrapCreate(err, "withdrawal")
	}
	return nil
}

func (s *Storage) GetWithdrawal(ctx context.Context, withdrawalID string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := s.db.WithContext(ctx).Where("id = ?", withdrawalID).First(&w).Error; err != nil {
		return nil, wrapGet(err, "withdrawal", withdrawalID)
	}
	return &w, nil
}

// PendingWithdrawalSum is the amount earmarked by the user's unprocessed requests.
func (s *Storage) PendingWithdrawalSum(ctx context.Context, userID string) (int64, error) {
	var total int64
	if err := s.db.
		WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("user_id = ? AND status = ?", userID, models.WithdrawalStatusPending).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).
		Error; err != nil {
		return 0, fmt.Errorf("summing pending withdrawals: %w", err)
	}
	return total, nil
}

func (s *Storage) ApproveWithdrawal(ctx context.Context, withdrawalID, notes, payoutTo string, processedAt time.Time) error {
	return s.transition(ctx, &models.Withdrawal{}, "withdrawal", withdrawalID, models.WithdrawalStatusPending, map[string]any{
		"status":       models.WithdrawalStatusApproved,
		"processed_at": processedAt,
		"admin_notes":  notes,
		"payout_to":    payoutTo,
	})
}

func (s *Storage) RejectWithdrawal(ctx context.Context, withdrawalID, notes string, processedAt time.Time) error {
	return s.transition(ctx, &models.Withdrawal{}, "withdrawal", withdrawalID, models.WithdrawalStatusPending, map[string]any{
		"status":       models.WithdrawalStatusRejected,
		"processed_at": processedAt,
		"admin_notes":  notes,
	})
}

// ListWithdrawals returns withdrawals with the given status, oldest first.
// An empty status matches all of them.
func (s *Storage) ListWithdrawals(ctx context.Context, status models.WithdrawalStatus, limit int) ([]*models.Withdrawal, error) {
	var result []*models.Withdrawal
	q := s.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("requested_at").Limit(limit).Find(&result).Error; err != nil {
		return nil, fmt.Errorf("listing withdrawals: %w", err)
	}
	return result, nil
}

func (s *Storage) ListUserWithdrawals(ctx context.Context, userID string, limit int) ([]*models.Withdrawal, error) {
	var result []*models.Withdrawal
	if err := s.db.
		WithContext(ctx).
		Where("user_id = ?", userID).
		Order("requested_at DESC").
		Limit(limit).
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("listing user withdrawals: %w", err)
	}
	return result, nil
}
