package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/adminbot"
	"github.com/C4T-BuT-S4D/taskpay/internal/api"
	"github.com/C4T-BuT-S4D/taskpay/internal/authutil"
	"github.com/C4T-BuT-S4D/taskpay/internal/checkin"
	"github.com/C4T-BuT-S4D/taskpay/internal/config"
	"github.com/C4T-BuT-S4D/taskpay/internal/ledger"
	"github.com/C4T-BuT-S4D/taskpay/internal/logging"
	"github.com/C4T-BuT-S4D/taskpay/internal/notify"
	"github.com/C4T-BuT-S4D/taskpay/internal/referral"
	"github.com/C4T-BuT-S4D/taskpay/internal/storage"
	"github.com/C4T-BuT-S4D/taskpay/internal/tasks"
	"github.com/C4T-BuT-S4D/taskpay/internal/telegram"
	"github.com/C4T-BuT-S4D/taskpay/internal/users"
	"github.com/C4T-BuT-S4D/taskpay/internal/withdrawal"
	"github.com/labstack/echo/v4"
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

	hub := notify.NewHub(notificationStore(cfg))
	hub.SetForwardTimeout(cfg.WebhookTimeout)
	if cfg.WebhookURL != "" {
		hub.AddForwarder(notify.NewWebhook(cfg.WebhookURL, cfg.WebhookTimeout))
	}

	l := ledger.New()
	ref := referral.New(l, referral.Bonuses{
		Signup:    cfg.ReferralSignupBonus,
		FirstTask: cfg.ReferralFirstTaskBonus,
	})

	userService := users.New(store, l, ref, hub)
	taskService := tasks.New(store, l, ref, hub)
	withdrawalService := withdrawal.New(store, l, hub, cfg.WithdrawalMinimum)
	checkins := checkin.New(store, l, hub, cfg.CheckinCooldown)

	if cfg.TelegramToken != "" {
		bot, err := telebot.NewBot(telebot.Settings{
			Token:   cfg.TelegramToken,
			Offline: true,
			// Alerts are sent from request handlers.
			Client: &http.Client{Timeout: cfg.WebhookTimeout},
		})
		if err != nil {
			logrus.Fatalf("Failed to create bot: %v", err)
		}
		if cfg.TelegramChannel != 0 {
			userService.EnableTelegramJoin(telegram.NewMembership(bot, cfg.TelegramChannel), cfg.TelegramJoinBonus)
		}
		if len(cfg.TelegramAdminIDs) > 0 {
			hub.AddForwarder(adminbot.NewAlerts(bot, cfg.TelegramAdminIDs))
		}
	}

	service := api.NewService(
		cfg,
		authutil.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		userService,
		taskService,
		withdrawalService,
		checkins,
		hub,
	)
	e := echo.New()
	e.HideBanner = true
	service.Register(e)

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		userService.RunBanSweeper(ctx, cfg.BanSweepInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.RunTrimmer(ctx, time.Hour, cfg.NotificationTTL)
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("failed to shutdown server: %v", err)
	}

	logrus.Info("waiting for services to finish")
	wg.Wait()
}

func notificationStore(cfg *config.Config) notify.Store {
	if cfg.RedisAddr == "" {
		return notify.NewMemoryStore(cfg.NotificationLimit)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return notify.NewRedisStore(rdb, cfg.NotificationLimit, cfg.NotificationTTL)
}

func setupConfig() {
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("jwt_ttl", "72h")
	viper.SetDefault("ban_sweep_interval", "1m")
	viper.SetDefault("bot_handle_timeout", "10s")
	viper.MustBindEnv("jwt_secret")
	viper.MustBindEnv("admin_token")
	config.SetupCommon()
}
