package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/adminbot"
	"github.com/C4T-BuT-S4D/taskpay/internal/config"
	"github.com/C4T-BuT-S4D/taskpay/internal/ledger"
	"github.com/C4T-BuT-S4D/taskpay/internal/logging"
	"github.com/C4T-BuT-S4D/taskpay/internal/notify"
	"github.com/C4T-BuT-S4D/taskpay/internal/referral"
	"github.com/C4T-BuT-S4D/taskpay/internal/storage"
	"github.com/C4T-BuT-S4D/taskpay/internal/tasks"
	"github.com/C4T-BuT-S4D/taskpay/internal/withdrawal"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/telebot.v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	setupConfig()
	logging.Init()

	cfg := config.New()
	logrus.Debugf("config: %+v", cfg)

	if len(cfg.TelegramAdminIDs) == 0 {
		logrus.Fatal("telegram_admin_ids is empty, nobody could use the bot")
	}

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	store := storage.New(db)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	initCtx, migrateCancel := context.WithTimeout(ctx, 10*time.Second)
	defer migrateCancel()

	if err := store.Migrate(initCtx); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	// Decisions made from the bot must reach the same per-user queue the API reads.
	var notifications notify.Store = notify.NewMemoryStore(cfg.NotificationLimit)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		notifications = notify.NewRedisStore(rdb, cfg.NotificationLimit, cfg.NotificationTTL)
	} else {
		logrus.Warn("redis_addr is not set, user notifications from the bot stay in this process")
	}
	hub := notify.NewHub(notifications)
	hub.SetForwardTimeout(cfg.WebhookTimeout)
	if cfg.WebhookURL != "" {
		hub.AddForwarder(notify.NewWebhook(cfg.WebhookURL, cfg.WebhookTimeout))
	}

	l := ledger.New()
	ref := referral.New(l, referral.Bonuses{
		Signup:    cfg.ReferralSignupBonus,
		FirstTask: cfg.ReferralFirstTaskBonus,
	})

	bot, err := telebot.NewBot(telebot.Settings{
		Token: cfg.TelegramToken,
		Poller: &telebot.LongPoller{
			Timeout:        10 * time.Second,
			AllowedUpdates: []string{"message", "callback_query"},
		},
	})
	if err != nil {
		logrus.Fatalf("Failed to create bot: %v", err)
	}

	admin := adminbot.New(
		cfg,
		tasks.New(store, l, ref, hub),
		withdrawal.New(store, l, hub, cfg.WithdrawalMinimum),
	)
	admin.Register(bot)

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		bot.Start()
	}()

	<-ctx.Done()

	bot.Stop()

	logrus.Info("waiting for services to finish")
	wg.Wait()
}

func setupConfig() {
	viper.SetDefault("bot_handle_timeout", "10s")
	viper.MustBindEnv("telegram_token")
	config.SetupCommon()
}
