package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking and voice flows.
type BookingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	slotConflictsTotal prometheus.Counter
	webhookLatency     *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
	remindersTotal     *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "curavoice",
			Subsystem: "booking",
			Name:      "operations_total",
			Help:      "Booking operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		slotConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "curavoice",
			Subsystem: "booking",
			Name:      "slot_conflicts_total",
			Help:      "Bookings rejected because the slot was already taken",
		}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "curavoice",
			Subsystem: "voice",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of voice vendor webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"vendor", "event_type"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "curavoice",
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Outbound patient notifications by kind, channel and status",
		}, []string{"kind", "channel", "status"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "curavoice",
			Subsystem: "reminders",
			Name:      "sweep_total",
			Help:      "Reminder sweep results",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.slotConflictsTotal, m.webhookLatency, m.notificationsTotal, m.remindersTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *BookingMetrics) ObserveSlotConflict() {
	if m == nil {
		return
	}
	m.slotConflictsTotal.Inc()
}

func (m *BookingMetrics) ObserveWebhookLatency(vendor, eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(vendor, eventType).Observe(seconds)
}

func (m *BookingMetrics) ObserveNotification(kind, channel, status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(kind, channel, status).Inc()
}

func (m *BookingMetrics) ObserveReminder(status string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(status).Inc()
}
