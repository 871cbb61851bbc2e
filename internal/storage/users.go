package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return wrapCreate(err, "user")
	}
	return nil
}

// TakenIdentity returns the name of the first identity field already used by
// another user, or an empty string if all of them are free.
func (s *Storage) TakenIdentity(ctx context.Context, email, phone, username string) (string, error) {
	for _, check := range []struct {
		column string
		value  string
	}{
		{"email", email},
		{"phone", phone},
		{"username", username},
	} {
		var count int64
		if err := s.db.
			WithContext(ctx).
			Model(&models.User{}).
			Where(check.column+" = ?", check.value).
			Count(&count).
			Error; err != nil {
			return "", fmt.Errorf("checking %s: %w", check.column, err)
		}
		if count > 0 {
			return check.column, nil
		}
	}
	return "", nil
}

func (s *Storage) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, wrapGet(err, "user", userID)
	}
	return &user, nil
}

// GetUserForUpdate loads the user and holds a row lock until the transaction ends.
func (s *Storage) GetUserForUpdate(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.
		WithContext(ctx).
		Clauses(forUpdate()).
		Where("id = ?", userID).
		First(&user).
		Error; err != nil {
		return nil, wrapGet(err, "user", userID)
	}
	return &user, nil
}

func (s *Storage) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("referral_code = ?", code).First(&user).Error; err != nil {
		return nil, wrapGet(err, "user with code", code)
	}
	return &user, nil
}

func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	if err := s.db.
		WithContext(ctx).
		Where("username = ? OR email = ? OR phone = ?", login, login, login).
		First(&user).
		Error; err != nil {
		return nil, wrapGet(err, "user", login)
	}
	return &user, nil
}

// setOnce updates columns on the user only while guardColumn is still false.
// It reports whether the row was changed.
func (s *Storage) setOnce(ctx context.Context, userID, guardColumn string, updates map[string]any) (bool, error) {
	res := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND "+guardColumn+" = ?", userID, false).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("updating user: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Storage) MarkFirstTaskCompleted(ctx context.Context, userID string) (bool, error) {
	return s.setOnce(ctx, userID, "first_task_completed", map[string]any{
		"first_task_completed": true,
	})
}

// MarkTelegramJoined binds telegramID to the user and flips telegram_joined.
// A telegram id already bound to someone else yields ErrConflict.
func (s *Storage) MarkTelegramJoined(ctx context.Context, userID string, telegramID int64) (bool, error) {
	owner, err := s.TelegramIDOwner(ctx, telegramID)
	if err != nil {
		return false, err
	}
	if owner != "" && owner != userID {
		return false, fmt.Errorf("%w: telegram account %d is linked to another user", errs.ErrConflict, telegramID)
	}

	marked, err := s.setOnce(ctx, userID, "telegram_joined", map[string]any{
		"telegram_joined": true,
		"telegram_id":     telegramID,
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, fmt.Errorf("%w: telegram account %d is linked to another user", errs.ErrConflict, telegramID)
	}
	return marked, err
}

// TelegramIDOwner returns the id of the user bound to telegramID, or an empty string.
func (s *Storage) TelegramIDOwner(ctx context.Context, telegramID int64) (string, error) {
	var ids []string
	if err := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Limit(1).
		Pluck("id", &ids).
		Error; err != nil {
		return "", fmt.Errorf("looking up telegram id: %w", err)
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

// LockUPI pins the user's payout identity. It never overwrites an existing lock.
func (s *Storage) LockUPI(ctx context.Context, userID, upi string) (bool, error) {
	return s.setOnce(ctx, userID, "upi_locked", map[string]any{
		"upi_locked":     true,
		"registered_upi": upi,
		"upi":            upi,
	})
}

// SetUPI changes the active UPI of a user whose identity is not locked yet.
func (s *Storage) SetUPI(ctx context.Context, userID, upi string) (bool, error) {
	return s.setOnce(ctx, userID, "upi_locked", map[string]any{
		"upi": upi,
	})
}

func (s *Storage) SetReferrer(ctx context.Context, userID, referrerID string) (bool, error) {
	res := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND referrer_id IS NULL", userID).
		Update("referrer_id", referrerID)
	if res.Error != nil {
		return false, fmt.Errorf("setting referrer: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Storage) BanUser(ctx context.Context, userID string, banType models.BanType, expiry *time.Time, reason string) error {
	res := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"banned":     true,
			"ban_type":   banType,
			"ban_expiry": expiry,
			"ban_reason": reason,
		})
	if res.Error != nil {
		return fmt.Errorf("banning user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %s", errs.ErrNotFound, userID)
	}
	return nil
}

func (s *Storage) UnbanUser(ctx context.Context, userID string) error {
	res := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(unbanColumns())
	if res.Error != nil {
		return fmt.Errorf("unbanning user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %s", errs.ErrNotFound, userID)
	}
	return nil
}

// LiftExpiredBans clears every temporary ban whose expiry is not after now.
// Running it again with nothing expired changes no rows.
func (s *Storage) LiftExpiredBans(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("banned = ? AND ban_type = ? AND ban_expiry <= ?", true, models.BanTypeTemporary, now).
		Updates(unbanColumns())
	if res.Error != nil {
		return 0, fmt.Errorf("lifting expired bans: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func unbanColumns() map[string]any {
	return map[string]any{
		"banned":     false,
		"ban_type":   "",
		"ban_expiry": nil,
		"ban_reason": "",
	}
}
