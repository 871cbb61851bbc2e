package telegram

import (
	"fmt"

	"gopkg.in/telebot.v4"
)

type memberLookup interface {
	ChatMemberOf(chat, user telebot.Recipient) (*telebot.ChatMember, error)
}

// Membership checks whether a Telegram user is in the configured channel.
type Membership struct {
	bot     memberLookup
	channel telebot.Recipient
}

func NewMembership(bot memberLookup, channelID int64) *Membership {
	return &Membership{bot: bot, channel: telebot.ChatID(channelID)}
}

func (m *Membership) IsMember(telegramUserID int64) (bool, error) {
	member, err := m.bot.ChatMemberOf(m.channel, &telebot.User{ID: telegramUserID})
	if err != nil {
		return false, fmt.Errorf("getting chat member: %w", err)
	}
	switch member.Role {
	case telebot.Creator, telebot.Administrator, telebot.Member:
		return true, nil
	default:
		return false, nil
	}
}
