// Package notify keeps short-lived per-user notifications and forwards them
// to optional sinks. Nothing here is durable: losing the queue loses only
// the notices, never balance state.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Kind string

const (
	KindTaskSubmitted      Kind = "task_submitted"
	KindTaskApproved       Kind = "task_approved"
	KindTaskRejected       Kind = "task_rejected"
	KindWithdrawalPending  Kind = "withdrawal_pending"
	KindWithdrawalApproved Kind = "withdrawal_approved"
	KindWithdrawalRejected Kind = "withdrawal_rejected"
	KindReferralBonus      Kind = "referral_bonus"
	KindCheckin            Kind = "checkin"
	KindBalanceAdjusted    Kind = "balance_adjusted"
	KindBanned             Kind = "banned"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	RefID     string    `json:"ref_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) String() string {
	return fmt.Sprintf("Notification(%s, user=%s, %s)", n.ID, n.UserID, n.Kind)
}

type Store interface {
	Push(ctx context.Context, n *Notification) error
	// List returns the user's notifications, newest first.
	List(ctx context.Context, userID string) ([]*Notification, error)
	// Trim drops notifications created before cutoff and reports how many went away.
	Trim(ctx context.Context, cutoff time.Time) (int, error)
}

type Forwarder interface {
	Forward(ctx context.Context, n *Notification) error
}

// DefaultForwardTimeout bounds a single forwarder call made from Notify.
const DefaultForwardTimeout = 5 * time.Second

type Hub struct {
	store          Store
	forwarders     []Forwarder
	forwardTimeout time.Duration
	log            *logrus.Entry
}

func NewHub(store Store, forwarders ...Forwarder) *Hub {
	return &Hub{
		store:          store,
		forwarders:     forwarders,
		forwardTimeout: DefaultForwardTimeout,
		log:            logrus.WithField("component", "notify"),
	}
}

func (h *Hub) SetForwardTimeout(d time.Duration) {
	if d > 0 {
		h.forwardTimeout = d
	}
}

func (h *Hub) AddForwarder(f Forwarder) {
	h.forwarders = append(h.forwarders, f)
}

// Notify stores the notification and hands it to every forwarder.
// Failures are logged and returned joined; callers that already committed
// state should not treat them as fatal.
func (h *Hub) Notify(ctx context.Context, userID string, kind Kind, refID, message string) error {
	n := &Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		RefID:     refID,
		CreatedAt: time.Now().UTC(),
	}

	var finalErr error
	if err := h.store.Push(ctx, n); err != nil {
		finalErr = errors.Join(finalErr, fmt.Errorf("storing %v: %w", n, err))
	}
	for _, f := range h.forwarders {
		if err := h.forward(ctx, f, n); err != nil {
			finalErr = errors.Join(finalErr, fmt.Errorf("forwarding %v: %w", n, err))
		}
	}
	if finalErr != nil {
		h.log.Warnf("notification delivery failed: %v", finalErr)
	}
	return finalErr
}

func (h *Hub) forward(ctx context.Context, f Forwarder, n *Notification) error {
	ctx, cancel := context.WithTimeout(ctx, h.forwardTimeout)
	defer cancel()
	return f.Forward(ctx, n)
}

func (h *Hub) List(ctx context.Context, userID string) ([]*Notification, error) {
	return h.store.List(ctx, userID)
}

// RunTrimmer drops notifications older than ttl every interval until ctx is done.
func (h *Hub) RunTrimmer(ctx context.Context, interval, ttl time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	logger := h.log.WithField("component", "notify_trimmer")

	for {
		select {
		case <-t.C:
			n, err := h.store.Trim(ctx, time.Now().UTC().Add(-ttl))
			if err != nil {
				logger.Errorf("failed to trim notifications: %v", err)
				continue
			}
			if n > 0 {
				logger.Infof("trimmed %d old notifications", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
