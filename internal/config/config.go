package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	PostgresDSN string `mapstructure:"postgres_dsn"`
	ListenAddr  string `mapstructure:"listen_addr"`

	JWTSecret  string        `mapstructure:"jwt_secret"`
	JWTTTL     time.Duration `mapstructure:"jwt_ttl"`
	AdminToken string        `mapstructure:"admin_token"`

	WithdrawalMinimum      int64         `mapstructure:"withdrawal_minimum"`
	ReferralSignupBonus    int64         `mapstructure:"referral_signup_bonus"`
	ReferralFirstTaskBonus int64         `mapstructure:"referral_first_task_bonus"`
	TelegramJoinBonus      int64         `mapstructure:"telegram_join_bonus"`
	CheckinCooldown        time.Duration `mapstructure:"checkin_cooldown"`
	BanSweepInterval       time.Duration `mapstructure:"ban_sweep_interval"`

	NotificationLimit int           `mapstructure:"notification_limit"`
	NotificationTTL   time.Duration `mapstructure:"notification_ttl"`
	RedisAddr         string        `mapstructure:"redis_addr"`
	RedisPassword     string        `mapstructure:"redis_password"`
	WebhookURL        string        `mapstructure:"webhook_url"`
	WebhookTimeout    time.Duration `mapstructure:"webhook_timeout"`

	TelegramToken    string        `mapstructure:"telegram_token"`
	TelegramChannel  int64         `mapstructure:"telegram_channel"`
	TelegramAdminIDs []int64       `mapstructure:"telegram_admin_ids"`
	BotHandleTimeout time.Duration `mapstructure:"bot_handle_timeout"`
}

func New() *Config {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		logrus.Fatalf("unmarshalling config: %v", err)
	}
	return cfg
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.TelegramAdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func SetupCommon() {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}

	viper.SetDefault("withdrawal_minimum", 50)
	viper.SetDefault("referral_signup_bonus", 5)
	viper.SetDefault("referral_first_task_bonus", 15)
	viper.SetDefault("telegram_join_bonus", 5)
	viper.SetDefault("checkin_cooldown", "24h")
	viper.SetDefault("notification_limit", 50)
	viper.SetDefault("notification_ttl", "72h")
	viper.SetDefault("redis_addr", "")
	viper.SetDefault("redis_password", "")
	viper.SetDefault("webhook_url", "")
	viper.SetDefault("webhook_timeout", "5s")
	viper.SetDefault("telegram_token", "")
	viper.SetDefault("telegram_channel", 0)
	viper.SetDefault("telegram_admin_ids", "")
	viper.SetEnvPrefix("TASKPAY")

	viper.MustBindEnv("postgres_dsn")
	viper.AutomaticEnv()
}
