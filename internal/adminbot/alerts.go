package adminbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/C4T-BuT-S4D/taskpay/internal/notify"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

type sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Alerts forwards new pending items to every admin chat.
type Alerts struct {
	bot      sender
	adminIDs []int64
	log      *logrus.Entry
}

func NewAlerts(bot sender, adminIDs []int64) *Alerts {
	return &Alerts{
		bot:      bot,
		adminIDs: adminIDs,
		log:      logrus.WithField("component", "admin_alerts"),
	}
}

func (a *Alerts) Forward(_ context.Context, n *notify.Notification) error {
	var approve, reject CallbackAction
	switch n.Kind {
	case notify.KindTaskSubmitted:
		approve, reject = CallbackApproveSubmission, CallbackRejectSubmission
	case notify.KindWithdrawalPending:
		approve, reject = CallbackApproveWithdrawal, CallbackRejectWithdrawal
	default:
		return nil
	}

	text := fmt.Sprintf("New %s from %s\n%s", n.Kind, n.UserID, n.Message)
	var errList []error
	for _, id := range a.adminIDs {
		// Telebot rewrites button data on send, so every message gets its own markup.
		markup := reviewMarkup(approve, reject, n.RefID)
		if _, err := a.bot.Send(telebot.ChatID(id), text, markup); err != nil {
			errList = append(errList, fmt.Errorf("alerting admin %d: %w", id, err))
		}
	}
	if len(errList) > 0 {
		a.log.Warnf("failed to alert %d admins", len(errList))
	}
	return errors.Join(errList...)
}
