// Package adminbot lets operators review submissions and withdrawals from Telegram.
package adminbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/C4T-BuT-S4D/taskpay/internal/config"
	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/C4T-BuT-S4D/taskpay/internal/tasks"
	"github.com/C4T-BuT-S4D/taskpay/internal/withdrawal"
	"gopkg.in/telebot.v4"
)

const pendingShown = 10

type Bot struct {
	config      *config.Config
	tasks       *tasks.Service
	withdrawals *withdrawal.Service
}

func New(cfg *config.Config, ts *tasks.Service, ws *withdrawal.Service) *Bot {
	return &Bot{
		config:      cfg,
		tasks:       ts,
		withdrawals: ws,
	}
}

// Register binds the admin commands to tb.
func (b *Bot) Register(tb *telebot.Bot) {
	tb.Handle("/pending", b.wrap(b.HandlePending))
	tb.Handle("/reject_task", b.wrap(b.HandleRejectTask))
	tb.Handle("/reject_withdrawal", b.wrap(b.HandleRejectWithdrawal))
	tb.Handle(telebot.OnCallback, b.wrap(b.HandleCallback))
}

func (b *Bot) wrap(h func(uc *UpdateContext) error) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), b.config.BotHandleTimeout)
		defer cancel()

		uc := NewUpdateContext(ctx, c)
		if !b.config.IsAdmin(uc.SenderID()) {
			uc.L().Warnf("ignoring update from non-admin %d", uc.SenderID())
			return nil
		}

		if err := h(uc); err != nil {
			uc.L().Errorf("failed to handle update: %v", err)
			return uc.Reply(fmt.Sprintf("Error: %v", err))
		}
		return nil
	}
}

func (b *Bot) HandlePending(uc *UpdateContext) error {
	subs, err := b.tasks.ListSubmissions(uc, models.SubmissionStatusPending)
	if err != nil {
		return fmt.Errorf("listing submissions: %w", err)
	}
	wds, err := b.withdrawals.List(uc, models.WithdrawalStatusPending)
	if err != nil {
		return fmt.Errorf("listing withdrawals: %w", err)
	}

	uc.L().Infof("showing %d pending submissions and %d pending withdrawals", len(subs), len(wds))
	if len(subs) == 0 && len(wds) == 0 {
		return uc.Reply("Nothing pending.")
	}

	for i, sub := range subs {
		if i == pendingShown {
			break
		}
		text, markup := submissionCard(sub)
		if err := uc.Reply(text, markup); err != nil {
			return fmt.Errorf("sending submission %s: %w", sub.ID, err)
		}
	}
	for i, w := range wds {
		if i == pendingShown {
			break
		}
		text, markup := withdrawalCard(w)
		if err := uc.Reply(text, markup); err != nil {
			return fmt.Errorf("sending withdrawal %s: %w", w.ID, err)
		}
	}
	return nil
}

func (b *Bot) HandleCallback(uc *UpdateContext) error {
	cb := uc.TC().Callback()
	if cb == nil {
		return nil
	}
	action, id, ok := parseCallback(cb.Data)
	if !ok || id == "" {
		uc.L().Warnf("unknown callback data %q", cb.Data)
		return uc.TC().Respond(&telebot.CallbackResponse{Text: "Unknown action"})
	}

	var (
		result string
		err    error
	)
	switch action {
	case CallbackApproveSubmission:
		var res *tasks.ApproveResult
		if res, err = b.tasks.Approve(uc, id); err == nil {
			result = fmt.Sprintf("Submission %s approved, paid %d.", id, res.Transaction.Amount)
		}
	case CallbackRejectSubmission:
		if _, err = b.tasks.Reject(uc, id, "rejected by admin"); err == nil {
			result = fmt.Sprintf("Submission %s rejected.", id)
		}
	case CallbackApproveWithdrawal:
		var res *withdrawal.ApproveResult
		if res, err = b.withdrawals.Approve(uc, id, ""); err == nil {
			result = fmt.Sprintf("Withdrawal %s approved, pay %d to %s.", id, res.Withdrawal.Amount, res.Withdrawal.PayoutTo)
		}
	case CallbackRejectWithdrawal:
		if _, err = b.withdrawals.Reject(uc, id, "rejected by admin"); err == nil {
			result = fmt.Sprintf("Withdrawal %s rejected.", id)
		}
	}

	if errors.Is(err, errs.ErrInvalidState) {
		uc.L().Infof("%s on %s: already processed", action, id)
		return uc.TC().Respond(&telebot.CallbackResponse{Text: "Already processed"})
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", action, id, err)
	}

	uc.L().Info(result)
	if err := uc.TC().Respond(&telebot.CallbackResponse{Text: "Done"}); err != nil {
		uc.L().Warnf("failed to answer callback: %v", err)
	}
	return uc.Reply(result)
}

func (b *Bot) HandleRejectTask(uc *UpdateContext) error {
	id, reason := uc.CommandArgs()
	if id == "" {
		return uc.Reply("Usage: /reject_task <submission id> <reason>")
	}
	if _, err := b.tasks.Reject(uc, id, reason); err != nil {
		return fmt.Errorf("rejecting submission: %w", err)
	}
	return uc.Reply(fmt.Sprintf("Submission %s rejected.", id))
}

func (b *Bot) HandleRejectWithdrawal(uc *UpdateContext) error {
	id, notes := uc.CommandArgs()
	if id == "" {
		return uc.Reply("Usage: /reject_withdrawal <withdrawal id> <notes>")
	}
	if _, err := b.withdrawals.Reject(uc, id, notes); err != nil {
		return fmt.Errorf("rejecting withdrawal: %w", err)
	}
	return uc.Reply(fmt.Sprintf("Withdrawal %s rejected.", id))
}

func submissionCard(sub *models.TaskSubmission) (string, *telebot.ReplyMarkup) {
	text := fmt.Sprintf(
		"Submission %s\nuser: %s\ntask: %s\nsubmitted: %s",
		sub.ID, sub.UserID, sub.TaskID, sub.SubmittedAt.Format("2006-01-02 15:04"),
	)
	return text, reviewMarkup(CallbackApproveSubmission, CallbackRejectSubmission, sub.ID)
}

func withdrawalCard(w *models.Withdrawal) (string, *telebot.ReplyMarkup) {
	text := fmt.Sprintf(
		"Withdrawal %s\nuser: %s\namount: %d\n%s: %s",
		w.ID, w.UserID, w.Amount, w.Method, w.Details,
	)
	return text, reviewMarkup(CallbackApproveWithdrawal, CallbackRejectWithdrawal, w.ID)
}

func reviewMarkup(approve, reject CallbackAction, id string) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("Approve", approve.String(), id),
		markup.Data("Reject", reject.String(), id),
	))
	return markup
}
