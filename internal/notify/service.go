// Package notify delivers appointment confirmations, reschedules,
// cancellations and reminders to patients over Termii SMS or WhatsApp.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/appointment"
	"github.com/curavoice/voice-backend/internal/observability/metrics"
	"github.com/curavoice/voice-backend/pkg/logging"
)

// DetailStore loads the joined appointment record and records send flags.
type DetailStore interface {
	GetDetail(ctx context.Context, clinicID, id uuid.UUID) (*appointment.Detail, error)
	MarkConfirmationSent(ctx context.Context, id uuid.UUID) error
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
}

// Sender delivers one text message. Satisfied by TermiiClient.
type Sender interface {
	Send(ctx context.Context, to, text, channel string) (*SendResult, error)
}

// Service renders and sends one notification per message.
type Service struct {
	store   DetailStore
	sender  Sender
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
}

// NewService creates a notification service.
func NewService(store DetailStore, sender Sender, logger *logging.Logger, m *metrics.BookingMetrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, sender: sender, logger: logger, metrics: m}
}

// Process sends the notification described by msg. Errors are returned for
// logging only; nothing upstream retries, so a failed send is a dropped
// message.
func (s *Service) Process(ctx context.Context, msg Message) error {
	dt, err := s.store.GetDetail(ctx, msg.ClinicID, msg.AppointmentID)
	if err != nil {
		s.metrics.ObserveNotification(string(msg.Kind), "none", "load_failed")
		return fmt.Errorf("notify: load appointment %s: %w", msg.AppointmentID, err)
	}

	channel := ChannelSMS
	if dt.PrefersWhatsApp {
		channel = ChannelWhatsApp
	}
	text := renderText(msg.Kind, dt)

	if _, err := s.sender.Send(ctx, dt.PatientPhone, text, channel); err != nil {
		s.metrics.ObserveNotification(string(msg.Kind), channel, "send_failed")
		return fmt.Errorf("notify: send %s for appointment %s: %w", msg.Kind, msg.AppointmentID, err)
	}
	s.metrics.ObserveNotification(string(msg.Kind), channel, "sent")

	switch msg.Kind {
	case KindConfirmation:
		if err := s.store.MarkConfirmationSent(ctx, msg.AppointmentID); err != nil {
			return fmt.Errorf("notify: flag confirmation for %s: %w", msg.AppointmentID, err)
		}
	case KindReminder:
		if err := s.store.MarkReminderSent(ctx, msg.AppointmentID); err != nil {
			return fmt.Errorf("notify: flag reminder for %s: %w", msg.AppointmentID, err)
		}
	}
	return nil
}

// renderText builds the patient-facing message body.
func renderText(kind Kind, dt *appointment.Detail) string {
	doctor := dt.DoctorName
	if dt.DoctorTitle != "" {
		doctor = dt.DoctorTitle + " " + dt.DoctorName
	}
	day := dt.Date.Format("Monday, 2 January 2006")
	clock := dt.StartClock()

	switch kind {
	case KindCancellation:
		return fmt.Sprintf("Hi %s, your appointment with %s at %s on %s at %s has been cancelled. Call %s to book a new one.",
			dt.PatientName, doctor, dt.ClinicName, day, clock, dt.ClinicPhone)
	case KindReschedule:
		return fmt.Sprintf("Hi %s, your appointment with %s at %s has been moved to %s at %s. Call %s if this does not work for you.",
			dt.PatientName, doctor, dt.ClinicName, day, clock, dt.ClinicPhone)
	case KindReminder:
		return fmt.Sprintf("Hi %s, this is a reminder of your appointment with %s at %s on %s at %s. See you soon!",
			dt.PatientName, doctor, dt.ClinicName, day, clock)
	default:
		return fmt.Sprintf("Hi %s, your appointment with %s at %s is confirmed for %s at %s. Call %s if you need to make changes.",
			dt.PatientName, doctor, dt.ClinicName, day, clock, dt.ClinicPhone)
	}
}

// Dispatcher drains the queue with a fixed pool of workers.
type Dispatcher struct {
	queue   *Queue
	service *Service
	workers int
	timeout time.Duration
	logger  *logging.Logger
}

// NewDispatcher wires a queue to the service.
func NewDispatcher(queue *Queue, service *Service, workers int, logger *logging.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		queue:   queue,
		service: service,
		workers: workers,
		timeout: 30 * time.Second,
		logger:  logger,
	}
}

// Run processes messages until ctx is cancelled, then waits for in-flight
// sends to finish.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				msg, ok := d.queue.Dequeue(ctx)
				if !ok {
					return
				}
				sendCtx, cancel := context.WithTimeout(context.Background(), d.timeout)
				if err := d.service.Process(sendCtx, msg); err != nil {
					d.logger.Error("notification failed",
						"kind", msg.Kind,
						"appointment_id", msg.AppointmentID,
						"error", err,
					)
				}
				cancel()
			}
		}()
	}
	wg.Wait()
}
