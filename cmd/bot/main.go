package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/kuznetsov-tulips/tulip-bot/internal/bot"
	"github.com/kuznetsov-tulips/tulip-bot/internal/catalog"
	"github.com/kuznetsov-tulips/tulip-bot/internal/config"
	"github.com/kuznetsov-tulips/tulip-bot/internal/conversation"
	"github.com/kuznetsov-tulips/tulip-bot/internal/db"
	"github.com/kuznetsov-tulips/tulip-bot/internal/expiry"
	"github.com/kuznetsov-tulips/tulip-bot/internal/intake"
	"github.com/kuznetsov-tulips/tulip-bot/internal/ledger"
	"github.com/kuznetsov-tulips/tulip-bot/internal/logger"
	"github.com/kuznetsov-tulips/tulip-bot/internal/metrics"
	"github.com/kuznetsov-tulips/tulip-bot/internal/notify"
	"github.com/kuznetsov-tulips/tulip-bot/internal/orderform"
	"github.com/kuznetsov-tulips/tulip-bot/internal/payment"
	"github.com/kuznetsov-tulips/tulip-bot/internal/redis"
	"github.com/kuznetsov-tulips/tulip-bot/internal/refund"
	"github.com/kuznetsov-tulips/tulip-bot/internal/render"
	"github.com/kuznetsov-tulips/tulip-bot/internal/reports"
	"github.com/kuznetsov-tulips/tulip-bot/internal/server"
)

const (
	serviceName      = "tulip-bot"
	conversationTTL  = 7 * 24 * time.Hour
	shutdownTimeout  = 10 * time.Second
	webhookQueueSize = 100
	pollTimeout      = 60

	// Above the long-poll wait so getUpdates is not cut short.
	telegramHTTPTimeout = (pollTimeout + 15) * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "bot stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "bot shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	pricing := catalog.Pricing{Small: cfg.Price15, Large: cfg.Price25}
	store, err := db.New(cfg.DBPath, db.WithPricing(pricing))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	checks := map[string]server.Pinger{"sqlite": store}
	var (
		conversations conversation.Store = conversation.NewMemoryStore()
		sweepLock     expiry.Lock        = expiry.NopLock{}
	)
	if cfg.RedisURL != "" {
		redisClient, err := redis.New(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}()
		conversations = conversation.NewRedisStore(redisClient, conversationTTL)
		lock, err := expiry.NewRedisLock(redisClient, redisClient.LockKey(expiry.JobName), 0)
		if err != nil {
			return err
		}
		sweepLock = lock
		checks["redis"] = redisClient
	} else {
		logg.Warn(ctx, "REDIS_URL not set, conversations are kept in memory")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	cat := catalog.Default()
	renderer := render.New(render.Options{
		Catalog:         cat,
		Pricing:         pricing,
		Location:        loc,
		AdminContacts:   cfg.AdminContacts,
		PaymentPhone:    cfg.PaymentPhone,
		PaymentReceiver: cfg.PaymentReceiver,
		PickupAddress:   cfg.PickupAddress,
		PaymentTimeout:  cfg.PaymentTimeout,
		RefundWindow:    cfg.RefundWindow,
	})

	var orderLedger ledger.Ledger = ledger.Nop{}
	if cfg.SheetsEnabled() {
		sheets, err := ledger.NewSheets(ctx, ledger.SheetsConfig{
			CredentialsPath: cfg.SheetsCredentialsPath,
			SpreadsheetID:   cfg.SheetID,
			Worksheet:       cfg.WorksheetName,
		}, cat, loc)
		if err != nil {
			// Orders still go through without the spreadsheet.
			logg.Error(ctx, "google sheets unavailable, ledger export disabled", err)
		} else {
			orderLedger = sheets
		}
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramToken, tgbotapi.APIEndpoint,
		&http.Client{Timeout: telegramHTTPTimeout})
	if err != nil {
		return fmt.Errorf("connecting to telegram: %w", err)
	}
	logg.Info(logg.WithField(ctx, "bot_username", api.Self.UserName), "authorized on telegram")

	dispatcher := notify.NewDispatcher(bot.NewNotifier(api), logg, m)

	intakeMachine := intake.NewMachine(intake.Deps{
		Catalog: cat,
		Pricing: pricing,
		Schedule: catalog.Scheduler{
			Days:          cfg.PickupDays,
			StartHour:     cfg.PickupStartHour,
			EndHour:       cfg.PickupEndHour,
			SundayEndHour: cfg.PickupSundayEndHour,
			Location:      loc,
		},
		Profiles: store,
		Stock:    store,
		Orders:   store,
		IsAdmin:  cfg.IsAdmin,
		Logger:   logg,
	})
	payments := payment.NewService(payment.Deps{
		Orders:          store,
		Ledger:          orderLedger,
		Forms:           orderform.New(cfg.OrderFormsDir, renderer, cfg.PickupAddress),
		Notifier:        dispatcher,
		Render:          renderer,
		Admins:          cfg.AdminIDs,
		MaxReceiptBytes: cfg.MaxReceiptBytes,
		Metrics:         m,
		Logger:          logg,
	})
	refunds := refund.NewFlow(refund.Deps{
		Orders:   store,
		Ledger:   orderLedger,
		Notifier: dispatcher,
		Render:   renderer,
		Admins:   cfg.AdminIDs,
		Window:   cfg.RefundWindow,
		Metrics:  m,
		Logger:   logg,
	})
	sweeper := expiry.NewSweeper(expiry.Deps{
		Orders:   store,
		Notifier: dispatcher,
		Render:   renderer,
		Lock:     sweepLock,
		Metrics:  m,
		Logger:   logg,
		Interval: cfg.SweepInterval,
		Timeout:  cfg.PaymentTimeout,
	})
	tulipBot := bot.New(bot.Deps{
		API:           api,
		Conversations: conversations,
		Intake:        intakeMachine,
		Payment:       payments,
		Refund:        refunds,
		Reports:       reports.NewService(store, loc, cfg.PaymentTimeout),
		Orders:        store,
		Stock:         store,
		Pricing:       pricing,
		Render:        renderer,
		IsAdmin:       cfg.IsAdmin,
		Logger:        logg,
	})

	routerOpts := server.Options{Logger: logg, Checks: checks, Gatherer: registry}
	var updates <-chan tgbotapi.Update
	if cfg.WebhookURL != "" {
		path, err := setWebhook(api, cfg.WebhookURL, cfg.WebhookSecret)
		if err != nil {
			return err
		}
		queue := make(chan tgbotapi.Update, webhookQueueSize)
		routerOpts.WebhookPath = path
		routerOpts.Webhook = bot.NewWebhookHandler(cfg.WebhookSecret, queue, logg)
		updates = queue
		logg.Info(logg.WithField(ctx, "path", path), "receiving updates by webhook")
	} else {
		if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			return fmt.Errorf("removing webhook: %w", err)
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = pollTimeout
		updates = api.GetUpdatesChan(u)
		defer api.StopReceivingUpdates()
		logg.Info(ctx, "receiving updates by long polling")
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewRouter(routerOpts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tulipBot.Run(ctx, updates) })
	g.Go(func() error { return sweeper.Run(ctx) })
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// setWebhook registers the webhook with Telegram and returns the path the
// router serves it on.
func setWebhook(api *tgbotapi.BotAPI, rawURL, secret string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing WEBHOOK_URL: %w", err)
	}
	params := tgbotapi.Params{"url": u.String()}
	if secret != "" {
		params["secret_token"] = secret
	}
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		return "", fmt.Errorf("setting webhook: %w", err)
	}
	if u.Path == "" {
		return "/", nil
	}
	return u.Path, nil
}
