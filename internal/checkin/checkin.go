package checkin

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/C4T-BuT-S4D/taskpay/internal/ledger"
	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/C4T-BuT-S4D/taskpay/internal/notify"
	"github.com/C4T-BuT-S4D/taskpay/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	CycleLength     = 7
	DefaultCooldown = 24 * time.Hour

	minReward = 1
	maxReward = 10
)

type Tracker struct {
	storage  *storage.Storage
	ledger   *ledger.Ledger
	hub      *notify.Hub
	cooldown time.Duration
	now      func() time.Time
	reward   func() int64
	log      *logrus.Entry
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithReward(reward func() int64) Option {
	return func(t *Tracker) { t.reward = reward }
}

func New(st *storage.Storage, l *ledger.Ledger, hub *notify.Hub, cooldown time.Duration, opts ...Option) *Tracker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	t := &Tracker{
		storage:  st,
		ledger:   l,
		hub:      hub,
		cooldown: cooldown,
		now:      func() time.Time { return time.Now().UTC() },
		reward:   func() int64 { return minReward + rand.Int64N(maxReward-minReward+1) },
		log:      logrus.WithField("component", "checkin"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type Status struct {
	NextDay     int        `json:"next_day"`
	CanClaim    bool       `json:"can_claim"`
	NextClaimAt *time.Time `json:"next_claim_at,omitempty"`
	LastDay     int        `json:"last_day"`
}

// next derives the state of the cycle from the most recent claim alone.
func (t *Tracker) next(last *models.DailyCheckin, now time.Time) *Status {
	if last == nil {
		return &Status{NextDay: 1, CanClaim: true}
	}

	st := &Status{LastDay: last.Day}
	readyAt := last.ClaimedAt.Add(t.cooldown)
	if now.Before(readyAt) {
		st.NextClaimAt = &readyAt
		return st
	}

	st.CanClaim = true
	st.NextDay = last.Day + 1
	if last.Day >= CycleLength {
		st.NextDay = 1
	}
	return st
}

func (t *Tracker) Status(ctx context.Context, userID string) (*Status, error) {
	if _, err := t.storage.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	last, err := t.storage.LastCheckin(ctx, userID)
	if err != nil {
		return nil, err
	}
	return t.next(last, t.now()), nil
}

// Claim grants today's reward, a uniform draw from [1, 10], and credits it.
// Claims closer than the cooldown to the previous one fail with errs.ErrTooSoon.
func (t *Tracker) Claim(ctx context.Context, userID string) (*models.DailyCheckin, error) {
	var claim *models.DailyCheckin
	if err := t.storage.InTx(ctx, func(tx *storage.Storage) error {
		now := t.now()

		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user.IsBanned(now) {
			return fmt.Errorf("%w: user %s is banned", errs.ErrForbidden, userID)
		}

		last, err := tx.LastCheckin(ctx, userID)
		if err != nil {
			return err
		}
		st := t.next(last, now)
		if !st.CanClaim {
			return fmt.Errorf("%w: next check-in at %s", errs.ErrTooSoon, st.NextClaimAt.Format(time.RFC3339))
		}

		claim = &models.DailyCheckin{
			UserID:    userID,
			Day:       st.NextDay,
			Amount:    t.reward(),
			ClaimedAt: now,
		}
		if err := tx.CreateCheckin(ctx, claim); err != nil {
			return err
		}
		_, err = t.ledger.Credit(ctx, tx, userID, claim.Amount, models.CategoryDailyCheckin,
			fmt.Sprintf("daily check-in day %d", claim.Day))
		return err
	}); err != nil {
		return nil, err
	}

	t.log.WithFields(logrus.Fields{"user_id": userID, "day": claim.Day, "amount": claim.Amount}).Info("check-in claimed")
	_ = t.hub.Notify(ctx, userID, notify.KindCheckin, claim.ID,
		fmt.Sprintf("Day %d check-in: %d credited.", claim.Day, claim.Amount))
	return claim, nil
}
