// Package ledger is the only writer of user balances.
//
// Every balance change is a single signed delta on the user row paired with
// exactly one immutable transaction record, applied in one database
// transaction. The stored balance can therefore always be rebuilt from the
// transaction log; Reconcile does exactly that.
package ledger

import (
	"context"
	"fmt"

	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/C4T-BuT-S4D/taskpay/internal/metrics"
	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/C4T-BuT-S4D/taskpay/internal/storage"
	"github.com/sirupsen/logrus"
)

type Ledger struct {
	log *logrus.Entry
}

func New() *Ledger {
	return &Ledger{log: logrus.WithField("component", "ledger")}
}

// Credit adds amount to the user's balance. st may be bound to an outer transaction.
func (l *Ledger) Credit(ctx context.Context, st *storage.Storage, userID string, amount int64, category models.Category, reason string) (*models.Transaction, error) {
	if category.IsDebit() {
		return nil, fmt.Errorf("%w: %s is not a credit category", errs.ErrInvalidArgument, category)
	}
	return l.apply(ctx, st, userID, amount, category, reason)
}

// Debit subtracts amount from the user's balance. It does not check for overdraft.
func (l *Ledger) Debit(ctx context.Context, st *storage.Storage, userID string, amount int64, category models.Category, reason string) (*models.Transaction, error) {
	if !category.IsDebit() {
		return nil, fmt.Errorf("%w: %s is not a debit category", errs.ErrInvalidArgument, category)
	}
	return l.apply(ctx, st, userID, amount, category, reason)
}

func (l *Ledger) apply(ctx context.Context, st *storage.Storage, userID string, amount int64, category models.Category, reason string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", errs.ErrInvalidArgument, amount)
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", errs.ErrInvalidArgument, category)
	}

	txn := &models.Transaction{
		UserID:   userID,
		Amount:   amount,
		Category: category,
		Reason:   reason,
	}
	if err := st.InTx(ctx, func(tx *storage.Storage) error {
		if err := tx.AdjustBalance(ctx, userID, txn.SignedAmount()); err != nil {
			return err
		}
		return tx.AddTransaction(ctx, txn)
	}); err != nil {
		return nil, err
	}

	metrics.LedgerEntries.WithLabelValues(string(category)).Inc()
	metrics.LedgerAmount.WithLabelValues(string(category)).Add(float64(amount))
	l.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"category": category,
		"delta":    txn.SignedAmount(),
	}).Debug("ledger entry written")

	return txn, nil
}

type Audit struct {
	UserID        string `json:"user_id"`
	StoredBalance int64  `json:"stored_balance"`
	LedgerBalance int64  `json:"ledger_balance"`
	Entries       int64  `json:"entries"`
}

func (a *Audit) Consistent() bool {
	return a.StoredBalance == a.LedgerBalance
}

// Reconcile recomputes the user's balance from the transaction log.
func (l *Ledger) Reconcile(ctx context.Context, st *storage.Storage, userID string) (*Audit, error) {
	audit := &Audit{UserID: userID}
	if err := st.InTx(ctx, func(tx *storage.Storage) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		audit.StoredBalance = user.Balance

		if audit.LedgerBalance, err = tx.SumTransactions(ctx, userID); err != nil {
			return err
		}
		if audit.Entries, err = tx.CountTransactions(ctx, userID); err != nil {
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if !audit.Consistent() {
		l.log.WithFields(logrus.Fields{
			"user_id": userID,
			"stored":  audit.StoredBalance,
			"ledger":  audit.LedgerBalance,
		}).Error("balance does not match ledger")
	}
	return audit, nil
}
