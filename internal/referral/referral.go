package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/C4T-BuT-S4D/taskpay/internal/ledger"
	"github.com/C4T-BuT-S4D/taskpay/internal/metrics"
	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/C4T-BuT-S4D/taskpay/internal/storage"
	"github.com/sirupsen/logrus"
)

type Bonuses struct {
	Signup    int64
	FirstTask int64
}

var DefaultBonuses = Bonuses{Signup: 5, FirstTask: 15}

type Engine struct {
	ledger  *ledger.Ledger
	bonuses Bonuses
	now     func() time.Time
	log     *logrus.Entry
}

func New(l *ledger.Ledger, bonuses Bonuses) *Engine {
	return &Engine{
		ledger:  l,
		bonuses: bonuses,
		now:     time.Now,
		log:     logrus.WithField("component", "referral"),
	}
}

// ApplySignupCode links a freshly created user to the owner of code and pays the
// instant bonus. An unknown, self or banned code is skipped: the result is nil
// and signup carries on. st must be the signup transaction.
func (e *Engine) ApplySignupCode(ctx context.Context, st *storage.Storage, newUser *models.User, code string) (*models.Referral, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	log := e.log.WithFields(logrus.Fields{"user_id": newUser.ID, "code": code})

	referrer, err := st.GetUserByReferralCode(ctx, code)
	if errors.Is(err, errs.ErrNotFound) {
		log.Info("unknown referral code, skipping")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up referral code: %w", err)
	}
	if referrer.ID == newUser.ID {
		log.Info("self referral, skipping")
		return nil, nil
	}
	if referrer.IsBanned(e.now()) {
		log.Info("referrer is banned, skipping")
		return nil, nil
	}

	linked, err := st.SetReferrer(ctx, newUser.ID, referrer.ID)
	if err != nil {
		return nil, err
	}
	if !linked {
		log.Info("user already has a referrer, skipping")
		return nil, nil
	}

	ref := &models.Referral{
		ReferrerID:   referrer.ID,
		ReferredID:   newUser.ID,
		RewardAmount: e.bonuses.Signup,
	}
	if err := st.CreateReferral(ctx, ref); err != nil {
		return nil, err
	}
	if _, err := e.ledger.Credit(
		ctx, st, referrer.ID, e.bonuses.Signup, models.CategoryReferral,
		fmt.Sprintf("signup bonus for inviting %s", newUser.Username),
	); err != nil {
		return nil, fmt.Errorf("crediting signup bonus: %w", err)
	}

	referrerID := referrer.ID
	newUser.ReferrerID = &referrerID
	metrics.ReferralBonuses.WithLabelValues("signup").Inc()
	log.WithField("referrer_id", referrer.ID).Info("signup referral bonus paid")
	return ref, nil
}

// OnTaskApproved pays the referrer's first-task bonus once per referred user.
// The first_task_completed flag is flipped before the credit, inside the
// approval transaction, so a retried approval can never pay twice.
// It reports whether a bonus was paid.
func (e *Engine) OnTaskApproved(ctx context.Context, st *storage.Storage, user *models.User) (bool, error) {
	if user.ReferrerID == nil || user.FirstTaskCompleted {
		return false, nil
	}

	flipped, err := st.MarkFirstTaskCompleted(ctx, user.ID)
	if err != nil {
		return false, err
	}
	if !flipped {
		return false, nil
	}
	user.FirstTaskCompleted = true

	if _, err := e.ledger.Credit(
		ctx, st, *user.ReferrerID, e.bonuses.FirstTask, models.CategoryReferral,
		fmt.Sprintf("first task bonus for %s", user.Username),
	); err != nil {
		return false, fmt.Errorf("crediting first task bonus: %w", err)
	}
	if err := st.AddReferralReward(ctx, user.ID, e.bonuses.FirstTask); err != nil {
		return false, err
	}

	metrics.ReferralBonuses.WithLabelValues("first_task").Inc()
	e.log.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"referrer_id": *user.ReferrerID,
	}).Info("first task referral bonus paid")
	return true, nil
}

func (e *Engine) Stats(ctx context.Context, st *storage.Storage, referrerID string) (*storage.ReferralStats, error) {
	return st.GetReferralStats(ctx, referrerID)
}

func (e *Engine) Bonuses() Bonuses {
	return e.bonuses
}
