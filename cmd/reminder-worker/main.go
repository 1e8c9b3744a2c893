// The reminder worker runs the periodic sweep that queues appointment
// reminders, and the dispatcher that delivers them over Termii. It can run
// alongside the API server or on its own when reminder volume warrants a
// dedicated process.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/curavoice/voice-backend/internal/appointment"
	appconfig "github.com/curavoice/voice-backend/internal/config"
	"github.com/curavoice/voice-backend/internal/notify"
	"github.com/curavoice/voice-backend/internal/observability/metrics"
	"github.com/curavoice/voice-backend/internal/reminders"
	"github.com/curavoice/voice-backend/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting reminder worker",
		"env", cfg.Env,
		"interval", cfg.ReminderInterval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	termii, err := notify.NewTermiiClient(notify.TermiiConfig{
		APIKey:   cfg.TermiiAPIKey,
		SenderID: cfg.TermiiSenderID,
		Timeout:  cfg.TermiiTimeout,
	})
	if err != nil {
		logger.Error("termii configuration", "error", err)
		os.Exit(1)
	}

	m := metrics.NewBookingMetrics(nil)
	appts := appointment.NewStore(pool)
	queue := notify.NewQueue(cfg.NotifyQueueSize)
	notifySvc := notify.NewService(appts, termii, logger, m)
	dispatcher := notify.NewDispatcher(queue, notifySvc, cfg.NotifyWorkerCount, logger)
	sweeper := reminders.NewSweeper(appts, queue, cfg.ReminderLeadMin, cfg.ReminderLeadMax, logger, m)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	sweeper.Run(ctx, cfg.ReminderInterval)

	wg.Wait()
	logger.Info("reminder worker stopped")
}
