package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Storage struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.Task{},
		&models.TaskSubmission{},
		&models.CompletedTask{},
		&models.Referral{},
		&models.Withdrawal{},
		&models.DailyCheckin{},
	); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// InTx runs fn against a Storage bound to a single database transaction.
// Nested calls on a transaction-bound Storage become savepoints.
func (s *Storage) InTx(ctx context.Context, fn func(tx *Storage) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Storage{db: tx})
	})
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

func wrapGet(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", errs.ErrNotFound, what, id)
	}
	return fmt.Errorf("getting %s: %w", what, err)
}

func wrapCreate(err error, what string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s already exists", errs.ErrConflict, what)
	}
	return fmt.Errorf("creating %s: %w", what, err)
}

// transition moves a row from its pending status to a terminal one.
// The update only matches while the row is still pending, so of two racing
// callers exactly one wins; the other gets ErrInvalidState.
func (s *Storage) transition(ctx context.Context, model any, what, id string, pending any, updates map[string]any) error {
	res := s.db.
		WithContext(ctx).
		Model(model).
		Where("id = ? AND status = ?", id, pending).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("updating %s: %w", what, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("checking %s: %w", what, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s %s", errs.ErrNotFound, what, id)
	}
	return fmt.Errorf("%w: %s %s is not pending", errs.ErrInvalidState, what, id)
}
