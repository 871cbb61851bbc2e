package adminbot

import (
	"context"
	"errors"
	"testing"

	"github.com/C4T-BuT-S4D/taskpay/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v4"
)

type sent struct {
	to     string
	text   string
	markup *telebot.ReplyMarkup
}

type fakeSender struct {
	sent []sent
	err  error
}

func (f *fakeSender) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	s := sent{to: to.Recipient(), text: what.(string)}
	for _, opt := range opts {
		if m, ok := opt.(*telebot.ReplyMarkup); ok {
			s.markup = m
		}
	}
	f.sent = append(f.sent, s)
	return &telebot.Message{}, f.err
}

func TestAlerts_Forward(t *testing.T) {
	ctx := context.Background()
	bot := &fakeSender{}
	alerts := NewAlerts(bot, []int64{100, 200})

	require.NoError(t, alerts.Forward(ctx, &notify.Notification{
		UserID:  "u1",
		Kind:    notify.KindTaskApproved,
		RefID:   "s1",
		Message: "approved",
	}))
	assert.Empty(t, bot.sent)

	require.NoError(t, alerts.Forward(ctx, &notify.Notification{
		UserID:  "u1",
		Kind:    notify.KindWithdrawalPending,
		RefID:   "w1",
		Message: "Withdrawal of 60 requested.",
	}))
	require.Len(t, bot.sent, 2)
	assert.Equal(t, "100", bot.sent[0].to)
	assert.Equal(t, "200", bot.sent[1].to)
	assert.Contains(t, bot.sent[0].text, "Withdrawal of 60 requested.")
	require.NotNil(t, bot.sent[0].markup)
	assert.Equal(t, "approve_wd", bot.sent[0].markup.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "w1", bot.sent[0].markup.InlineKeyboard[0][0].Data)

	bot.err = errors.New("blocked by user")
	err := alerts.Forward(ctx, &notify.Notification{UserID: "u2", Kind: notify.KindTaskSubmitted, RefID: "s2"})
	assert.ErrorContains(t, err, "blocked by user")
}
