// Package withdrawal implements the payout request lifecycle.
//
// A request earmarks part of the balance while it is pending; approval
// debits the ledger and, on the user's first approved payout, permanently
// locks the payout identity (UPI) to the details used for it.
package withdrawal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/C4T-BuT-S4D/taskpay/internal/ledger"
	"github.com/C4T-BuT-S4D/taskpay/internal/metrics"
	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/C4T-BuT-S4D/taskpay/internal/notify"
	"github.com/C4T-BuT-S4D/taskpay/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMinimum = 50
	MethodUPI      = "upi"

	listLimit = 100
)

type Service struct {
	storage *storage.Storage
	ledger  *ledger.Ledger
	hub     *notify.Hub
	minimum int64
	now     func() time.Time
	log     *logrus.Entry
}

func New(st *storage.Storage, l *ledger.Ledger, hub *notify.Hub, minimum int64) *Service {
	if minimum <= 0 {
		minimum = DefaultMinimum
	}
	return &Service{
		storage: st,
		ledger:  l,
		hub:     hub,
		minimum: minimum,
		now:     func() time.Time { return time.Now().UTC() },
		log:     logrus.WithField("component", "withdrawal"),
	}
}

func (s *Service) Minimum() int64 {
	return s.minimum
}

// Request creates a pending withdrawal if amount fits in the available balance:
// the stored balance minus every other pending request of the user.
func (s *Service) Request(ctx context.Context, userID string, amount int64, method, details string) (*models.Withdrawal, error) {
	details = strings.TrimSpace(details)
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		method = MethodUPI
	}
	if details == "" {
		return nil, fmt.Errorf("%w: payment details are required", errs.ErrInvalidArgument)
	}
	if amount < s.minimum {
		return nil, fmt.Errorf("%w: minimum withdrawal is %d", errs.ErrBelowMinimum, s.minimum)
	}

	var w *models.Withdrawal
	if err := s.storage.InTx(ctx, func(tx *storage.Storage) error {
		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user.IsBanned(s.now()) {
			return fmt.Errorf("%w: user %s is banned", errs.ErrForbidden, userID)
		}

		available, err := available(ctx, tx, user)
		if err != nil {
			return err
		}
		if amount > available {
			return fmt.Errorf("%w: requested %d, available %d", errs.ErrInsufficientBalance, amount, available)
		}

		w = &models.Withdrawal{
			UserID:  userID,
			Amount:  amount,
			Method:  method,
			Details: details,
			Status:  models.WithdrawalStatusPending,
		}
		return tx.CreateWithdrawal(ctx, w)
	}); err != nil {
		return nil, err
	}

	metrics.Transitions.WithLabelValues("withdrawal", string(models.WithdrawalStatusPending)).Inc()
	s.log.WithFields(logrus.Fields{"user_id": userID, "withdrawal_id": w.ID, "amount": amount}).Info("withdrawal requested")
	_ = s.hub.Notify(ctx, userID, notify.KindWithdrawalPending, w.ID,
		fmt.Sprintf("Withdrawal of %d requested.", amount))
	return w, nil
}

func available(ctx context.Context, tx *storage.Storage, user *models.User) (int64, error) {
	pending, err := tx.PendingWithdrawalSum(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	return user.Balance - pending, nil
}

func (s *Service) AvailableBalance(ctx context.Context, userID string) (int64, error) {
	var result int64
	err := s.storage.InTx(ctx, func(tx *storage.Storage) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		result, err = available(ctx, tx, user)
		return err
	})
	return result, err
}

type ApproveResult struct {
	Withdrawal  *models.Withdrawal  `json:"withdrawal"`
	Transaction *models.Transaction `json:"transaction"`
	UPILocked   bool                `json:"upi_locked"`
}

// Approve settles a pending withdrawal. The first approval for a user locks
// their UPI to the withdrawal details; later approvals leave the lock alone
// and settle to the registered UPI.
func (s *Service) Approve(ctx context.Context, withdrawalID, notes string) (*ApproveResult, error) {
	result := &ApproveResult{}
	if err := s.storage.InTx(ctx, func(tx *storage.Storage) error {
		w, err := tx.GetWithdrawal(ctx, withdrawalID)
		if err != nil {
			return err
		}
		if w.Status != models.WithdrawalStatusPending {
			return fmt.Errorf("%w: withdrawal %s is %s", errs.ErrInvalidState, withdrawalID, w.Status)
		}

		user, err := tx.GetUserForUpdate(ctx, w.UserID)
		if err != nil {
			return err
		}
		payoutTo := w.Details
		if user.UPILocked {
			payoutTo = user.RegisteredUPI
		}

		processedAt := s.now()
		if err := tx.ApproveWithdrawal(ctx, withdrawalID, notes, payoutTo, processedAt); err != nil {
			return err
		}
		w.Status = models.WithdrawalStatusApproved
		w.ProcessedAt = &processedAt
		w.AdminNotes = notes
		w.PayoutTo = payoutTo
		result.Withdrawal = w

		if result.Transaction, err = s.ledger.Debit(
			ctx, tx, w.UserID, w.Amount, models.CategoryWithdrawal,
			fmt.Sprintf("withdrawal via %s", w.Method),
		); err != nil {
			return err
		}

		if !user.UPILocked {
			if result.UPILocked, err = tx.LockUPI(ctx, w.UserID, w.Details); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	w := result.Withdrawal
	metrics.Transitions.WithLabelValues("withdrawal", string(models.WithdrawalStatusApproved)).Inc()
	s.log.WithFields(logrus.Fields{
		"withdrawal_id": withdrawalID,
		"user_id":       w.UserID,
		"amount":        w.Amount,
		"upi_locked":    result.UPILocked,
	}).Info("withdrawal approved")
	_ = s.hub.Notify(ctx, w.UserID, notify.KindWithdrawalApproved, withdrawalID,
		fmt.Sprintf("Withdrawal of %d approved, paid to %s.", w.Amount, w.PayoutTo))
	return result, nil
}

// Reject closes a pending withdrawal. The earmarked amount becomes available again.
func (s *Service) Reject(ctx context.Context, withdrawalID, notes string) (*models.Withdrawal, error) {
	var w *models.Withdrawal
	if err := s.storage.InTx(ctx, func(tx *storage.Storage) error {
		if err := tx.RejectWithdrawal(ctx, withdrawalID, notes, s.now()); err != nil {
			return err
		}
		var err error
		w, err = tx.GetWithdrawal(ctx, withdrawalID)
		return err
	}); err != nil {
		return nil, err
	}

	metrics.Transitions.WithLabelValues("withdrawal", string(models.WithdrawalStatusRejected)).Inc()
	s.log.WithFields(logrus.Fields{"withdrawal_id": withdrawalID, "notes": notes}).Info("withdrawal rejected")
	_ = s.hub.Notify(ctx, w.UserID, notify.KindWithdrawalRejected, withdrawalID,
		fmt.Sprintf("Withdrawal of %d rejected: %s", w.Amount, notes))
	return w, nil
}

func (s *Service) List(ctx context.Context, status models.WithdrawalStatus) ([]*models.Withdrawal, error) {
	return s.storage.ListWithdrawals(ctx, status, listLimit)
}

func (s *Service) UserWithdrawals(ctx context.Context, userID string) ([]*models.Withdrawal, error) {
	return s.storage.ListUserWithdrawals(ctx, userID, listLimit)
}
