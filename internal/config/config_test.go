package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestSetupCommon(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("TASKPAY_POSTGRES_DSN", "postgres://taskpay@localhost/taskpay")
	t.Setenv("TASKPAY_TELEGRAM_ADMIN_IDS", "11,22")
	t.Setenv("TASKPAY_WITHDRAWAL_MINIMUM", "100")

	SetupCommon()
	cfg := New()

	assert.Equal(t, "postgres://taskpay@localhost/taskpay", cfg.PostgresDSN)
	assert.Equal(t, int64(100), cfg.WithdrawalMinimum)
	assert.Equal(t, int64(5), cfg.ReferralSignupBonus)
	assert.Equal(t, int64(15), cfg.ReferralFirstTaskBonus)
	assert.Equal(t, 24*time.Hour, cfg.CheckinCooldown)
	assert.Equal(t, 50, cfg.NotificationLimit)
	assert.Equal(t, 5*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, []int64{11, 22}, cfg.TelegramAdminIDs)

	assert.True(t, cfg.IsAdmin(22))
	assert.False(t, cfg.IsAdmin(33))
}
