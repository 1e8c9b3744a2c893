package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/curavoice/voice-backend/internal/api/router"
	"github.com/curavoice/voice-backend/internal/appointment"
	"github.com/curavoice/voice-backend/internal/availability"
	"github.com/curavoice/voice-backend/internal/booking"
	"github.com/curavoice/voice-backend/internal/calllog"
	"github.com/curavoice/voice-backend/internal/clinic"
	appconfig "github.com/curavoice/voice-backend/internal/config"
	"github.com/curavoice/voice-backend/internal/doctor"
	"github.com/curavoice/voice-backend/internal/http/handlers"
	"github.com/curavoice/voice-backend/internal/idempotency"
	"github.com/curavoice/voice-backend/internal/notify"
	"github.com/curavoice/voice-backend/internal/observability/metrics"
	"github.com/curavoice/voice-backend/internal/patient"
	"github.com/curavoice/voice-backend/internal/reminders"
	"github.com/curavoice/voice-backend/internal/retell"
	"github.com/curavoice/voice-backend/internal/vapi"
	"github.com/curavoice/voice-backend/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting voice-backend API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	// Redis backs webhook idempotency. Without it the guard degrades to
	// treating every delivery as new.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() { _ = rdb.Close() }()
	} else {
		logger.Warn("REDIS_ADDR not set, webhook deduplication disabled")
	}
	guard := idempotency.NewGuard(rdb, "webhook", 0)

	m := metrics.NewBookingMetrics(nil)

	// Stores
	clinics := clinic.NewStore(pool)
	doctors := doctor.NewStore(pool)
	patients := patient.NewStore(pool)
	appts := appointment.NewStore(pool)
	blocked := appointment.NewBlockedStore(pool)
	calls := calllog.NewStore(pool)

	// Services
	availabilitySvc := availability.NewService(doctors, appts, blocked, logger)
	queue := notify.NewQueue(cfg.NotifyQueueSize)
	bookingSvc := booking.NewService(doctors, patients, appts, clinics, availabilitySvc, queue, logger, m)

	termii, err := notify.NewTermiiClient(notify.TermiiConfig{
		APIKey:   cfg.TermiiAPIKey,
		SenderID: cfg.TermiiSenderID,
		Timeout:  cfg.TermiiTimeout,
	})
	if err != nil {
		logger.Warn("termii not configured, notifications disabled", "error", err)
	} else {
		notifySvc := notify.NewService(appts, termii, logger, m)
		dispatcher := notify.NewDispatcher(queue, notifySvc, cfg.NotifyWorkerCount, logger)
		go dispatcher.Run(ctx)
	}

	// The sweeper is always built so the admin API can trigger a one-off
	// sweep, but the periodic loop stays off unless this process owns
	// reminders. Deployments running cmd/reminder-worker leave it disabled.
	sweeper := reminders.NewSweeper(appts, queue, cfg.ReminderLeadMin, cfg.ReminderLeadMax, logger, m)
	if cfg.ReminderSweepEnabled {
		go sweeper.Run(ctx, cfg.ReminderInterval)
	}

	// Vendor clients. A deployment typically configures one of the two.
	var assistants handlers.AssistantProvisioner
	if cfg.VapiAPIKey != "" {
		vapiClient, err := vapi.New(vapi.Config{
			APIKey:        cfg.VapiAPIKey,
			WebhookURL:    cfg.VapiWebhookURL,
			WebhookSecret: cfg.VapiWebhookSecret,
		})
		if err != nil {
			logger.Error("vapi client", "error", err)
			os.Exit(1)
		}
		assistants = vapiClient
	}
	var agents handlers.AgentProvisioner
	if cfg.RetellAPIKey != "" {
		retellClient, err := retell.New(retell.Config{APIKey: cfg.RetellAPIKey})
		if err != nil {
			logger.Error("retell client", "error", err)
			os.Exit(1)
		}
		agents = retellClient
	}

	// Handlers
	funcs := handlers.NewFunctionRouter(bookingSvc, availabilitySvc, doctors, clinics, logger)
	vapiWebhook := handlers.NewVapiWebhookHandler(cfg.VapiWebhookSecret, clinics, funcs, calls, guard, logger, m)
	retellWebhook := handlers.NewRetellWebhookHandler(cfg.RetellAPIKey, clinics, funcs, calls, guard, logger, m)
	apiHandler := handlers.NewAPIHandler(bookingSvc, availabilitySvc, doctors, logger)
	admin := handlers.NewAdminHandler(clinics, assistants, agents, sweeper, cfg.WebhookBaseURL, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		VapiWebhook:        vapiWebhook,
		RetellWebhook:      retellWebhook,
		API:                apiHandler,
		Admin:              admin,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		WebhookRate:        cfg.WebhookRatePerSecond,
		WebhookBurst:       cfg.WebhookRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	cancel()

	logger.Info("server stopped")
}
