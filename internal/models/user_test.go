package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_IsBanned(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.Add(time.Hour)

	assert.False(t, (&User{}).IsBanned(now))
	assert.True(t, (&User{Banned: true, BanType: BanTypePermanent}).IsBanned(now))

	temp := &User{Banned: true, BanType: BanTypeTemporary, BanExpiry: &expiry}
	assert.True(t, temp.IsBanned(now))
	assert.False(t, temp.IsBanned(expiry))
	assert.False(t, temp.IsBanned(expiry.Add(time.Minute)))
}

func TestTransaction_SignedAmount(t *testing.T) {
	for category, want := range map[Category]int64{
		CategoryTaskReward:   40,
		CategoryReferral:     40,
		CategoryDailyCheckin: 40,
		CategoryTelegramJoin: 40,
		CategoryAdminCredit:  40,
		CategoryAdminDebit:   -40,
		CategoryWithdrawal:   -40,
	} {
		txn := &Transaction{Amount: 40, Category: category}
		assert.Equal(t, want, txn.SignedAmount(), category)
		assert.True(t, category.Valid())
	}
	assert.False(t, Category("bonus").Valid())
}
