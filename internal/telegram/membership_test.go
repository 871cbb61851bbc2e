package telegram

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v4"
)

type fakeLookup struct {
	roles map[int64]telebot.MemberStatus
	chat  string
}

func (f *fakeLookup) ChatMemberOf(chat, user telebot.Recipient) (*telebot.ChatMember, error) {
	f.chat = chat.Recipient()
	role, ok := f.roles[user.(*telebot.User).ID]
	if !ok {
		return nil, errors.New("telegram: user not found (400)")
	}
	return &telebot.ChatMember{Role: role}, nil
}

func TestMembership_IsMember(t *testing.T) {
	lookup := &fakeLookup{roles: map[int64]telebot.MemberStatus{
		1: telebot.Creator,
		2: telebot.Administrator,
		3: telebot.Member,
		4: telebot.Left,
		5: telebot.Kicked,
	}}
	m := NewMembership(lookup, -1001234)

	for id, want := range map[int64]bool{1: true, 2: true, 3: true, 4: false, 5: false} {
		got, err := m.IsMember(id)
		require.NoError(t, err)
		assert.Equal(t, want, got, "user %d", id)
	}
	assert.Equal(t, "-1001234", lookup.chat)

	_, err := m.IsMember(99)
	assert.Error(t, err)
}
