package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveBooking(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveBooking("book", "success")
	m.ObserveBooking("book", "success")
	m.ObserveBooking("cancel", "not_found")

	got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("book", "success"))
	if got != 2 {
		t.Errorf("book/success = %v, want 2", got)
	}
}

func TestObserveSlotConflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveSlotConflict()
	if got := testutil.ToFloat64(m.slotConflictsTotal); got != 1 {
		t.Errorf("slot conflicts = %v, want 1", got)
	}
}

func TestNilReceiverSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveBooking("book", "success")
	m.ObserveSlotConflict()
	m.ObserveWebhookLatency("vapi", "function-call", 0.1)
	m.ObserveNotification("confirmation", "sms", "sent")
	m.ObserveReminder("sent")
}
