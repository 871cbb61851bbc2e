package storage

import (
	"context"
	"fmt"

	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Storage) CreateReferral(ctx context.Context, ref *models.Referral) error {
	if ref.ID == "" {
		ref.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(ref).Error; err != nil {
		return wrapCreate(err, "referral")
	}
	return nil
}

func (s *Storage) GetReferralByReferred(ctx context.Context, referredID string) (*models.Referral, error) {
	var ref models.Referral
	if err := s.db.WithContext(ctx).Where("referred_id = ?", referredID).First(&ref).Error; err != nil {
		return nil, wrapGet(err, "referral for user", referredID)
	}
	return &ref, nil
}

func (s *Storage) AddReferralReward(ctx context.Context, referredID string, amount int64) error {
	res := s.db.
		WithContext(ctx).
		Model(&models.Referral{}).
		Where("referred_id = ?", referredID).
		Update("reward_amount", gorm.Expr("reward_amount + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("updating referral reward: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: referral for user %s", errs.ErrNotFound, referredID)
	}
	return nil
}

type ReferralStats struct {
	Referred    int64 `json:"referred"`
	TotalEarned int64 `json:"total_earned"`
}

func (s *Storage) GetReferralStats(ctx context.Context, referrerID string) (*ReferralStats, error) {
	var stats ReferralStats
	if err := s.db.
		WithContext(ctx).
		Model(&models.Referral{}).
		Where("referrer_id = ?", referrerID).
		Select("COUNT(*) AS referred, COALESCE(SUM(reward_amount), 0) AS total_earned").
		Scan(&stats).
		Error; err != nil {
		return nil, fmt.Errorf("getting referral stats: %w", err)
	}
	return &stats, nil
}
