// Package reminders finds appointments inside the reminder lead window and
// queues a reminder for each. The sweep runs on a fixed interval from its own
// worker binary.
package reminders

import (
	"context"
	"time"

	"github.com/curavoice/voice-backend/internal/appointment"
	"github.com/curavoice/voice-backend/internal/notify"
	"github.com/curavoice/voice-backend/internal/observability/metrics"
	"github.com/curavoice/voice-backend/pkg/logging"
)

// CandidateStore lists appointments whose reminder is due.
type CandidateStore interface {
	ListNeedingReminder(ctx context.Context, from, to time.Time) ([]appointment.ReminderCandidate, error)
}

// Enqueuer hands reminder jobs to the notification workers.
type Enqueuer interface {
	Enqueue(msg notify.Message) bool
}

// Sweeper queues reminders for appointments 24 to 48 hours out. The
// reminder_sent flag keeps a candidate from being picked up twice across
// sweeps; a crash between send and flag means at worst one duplicate
// reminder, never a missed one.
type Sweeper struct {
	store   CandidateStore
	queue   Enqueuer
	leadMin time.Duration
	leadMax time.Duration
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
	now     func() time.Time
}

// NewSweeper creates a sweeper with the given lead window.
func NewSweeper(store CandidateStore, queue Enqueuer, leadMin, leadMax time.Duration, logger *logging.Logger, m *metrics.BookingMetrics) *Sweeper {
	if leadMin <= 0 {
		leadMin = 24 * time.Hour
	}
	if leadMax <= leadMin {
		leadMax = leadMin * 2
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{
		store:   store,
		queue:   queue,
		leadMin: leadMin,
		leadMax: leadMax,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Sweep runs one pass and returns how many reminders were queued.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now().UTC()
	from := day(now.Add(s.leadMin))
	to := day(now.Add(s.leadMax))

	candidates, err := s.store.ListNeedingReminder(ctx, from, to)
	if err != nil {
		s.metrics.ObserveReminder("sweep_failed")
		return 0, err
	}

	queued := 0
	for _, c := range candidates {
		msg := notify.Message{Kind: notify.KindReminder, ClinicID: c.ClinicID, AppointmentID: c.ID}
		if s.queue.Enqueue(msg) {
			queued++
			s.metrics.ObserveReminder("queued")
			continue
		}
		s.metrics.ObserveReminder("dropped")
		s.logger.Warn("reminder dropped, queue full", "appointment_id", c.ID)
	}

	if len(candidates) > 0 {
		s.logger.Info("reminder sweep", "candidates", len(candidates), "queued", queued)
	}
	return queued, nil
}

// Run sweeps on the interval until ctx is cancelled. The first sweep happens
// immediately.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("reminder sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
