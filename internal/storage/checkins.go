package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LastCheckin returns the user's most recent claim, or nil if there is none.
func (s *Storage) LastCheckin(ctx context.Context, userID string) (*models.DailyCheckin, error) {
	var c models.DailyCheckin
	err := s.db.
		WithContext(ctx).
		Where("user_id = ?", userID).
		Order("claimed_at DESC").
		First(&c).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting last checkin: %w", err)
	}
	return &c, nil
}

func (s *Storage) CreateCheckin(ctx context.Context, c *models.DailyCheckin) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return wrapCreate(err, "checkin")
	}
	return nil
}
