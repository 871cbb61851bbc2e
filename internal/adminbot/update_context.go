package adminbot

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

type UpdateContext struct {
	context.Context
	tc  telebot.Context
	log *logrus.Entry
}

func NewUpdateContext(c context.Context, tc telebot.Context) *UpdateContext {
	fields := logrus.Fields{
		"update_id": tc.Update().ID,
	}
	if tc.Sender() != nil {
		fields["admin_id"] = tc.Sender().ID
		fields["admin_username"] = tc.Sender().Username
	}
	if cb := tc.Callback(); cb != nil {
		fields["callback"] = strings.TrimPrefix(cb.Data, "\f")
	}

	return &UpdateContext{
		Context: c,
		tc:      tc,
		log:     logrus.WithFields(fields),
	}
}

func (uc *UpdateContext) L() *logrus.Entry {
	return uc.log
}

func (uc *UpdateContext) TC() telebot.Context {
	return uc.tc
}

func (uc *UpdateContext) SenderID() int64 {
	if uc.tc.Sender() == nil {
		return 0
	}
	return uc.tc.Sender().ID
}

// CommandArgs splits the command payload into the first word and the rest.
func (uc *UpdateContext) CommandArgs() (string, string) {
	msg := uc.tc.Message()
	if msg == nil {
		return "", ""
	}
	first, rest, _ := strings.Cut(strings.TrimSpace(msg.Payload), " ")
	return first, strings.TrimSpace(rest)
}

func (uc *UpdateContext) Reply(text string, opts ...any) error {
	return uc.tc.Send(text, opts...)
}
