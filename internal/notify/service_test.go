package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/appointment"
	"github.com/curavoice/voice-backend/pkg/logging"
)

type fakeDetailStore struct {
	mu               sync.Mutex
	detail           *appointment.Detail
	err              error
	confirmedID      *uuid.UUID
	reminderFlagged  *uuid.UUID
	markConfirmError error
}

func (f *fakeDetailStore) GetDetail(_ context.Context, _, _ uuid.UUID) (*appointment.Detail, error) {
	return f.detail, f.err
}

func (f *fakeDetailStore) MarkConfirmationSent(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmedID = &id
	return f.markConfirmError
}

func (f *fakeDetailStore) MarkReminderSent(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminderFlagged = &id
	return nil
}

type fakeSender struct {
	mu      sync.Mutex
	to      string
	text    string
	channel string
	calls   int
	err     error
}

func (f *fakeSender) Send(_ context.Context, to, text, channel string) (*SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.to, f.text, f.channel = to, text, channel
	if f.err != nil {
		return nil, f.err
	}
	return &SendResult{MessageID: "m1"}, nil
}

func sampleDetail() *appointment.Detail {
	return &appointment.Detail{
		Appointment: appointment.Appointment{
			ID:              uuid.New(),
			ClinicID:        uuid.New(),
			Date:            time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
			Time:            "10:00:00",
			DurationMinutes: 30,
			Status:          appointment.StatusScheduled,
		},
		PatientName:  "Amina Yusuf",
		PatientPhone: "+2348012345678",
		DoctorName:   "Okafor",
		DoctorTitle:  "Dr.",
		ClinicName:   "Sunrise Clinic",
		ClinicPhone:  "+2341234567",
	}
}

func TestProcessConfirmation(t *testing.T) {
	dt := sampleDetail()
	store := &fakeDetailStore{detail: dt}
	sender := &fakeSender{}
	svc := NewService(store, sender, logging.New("error"), nil)

	msg := Message{Kind: KindConfirmation, ClinicID: dt.ClinicID, AppointmentID: dt.ID}
	if err := svc.Process(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sender.channel != ChannelSMS {
		t.Errorf("channel = %s, want sms", sender.channel)
	}
	if sender.to != "+2348012345678" {
		t.Errorf("to = %s", sender.to)
	}
	for _, want := range []string{"Amina Yusuf", "Dr. Okafor", "Sunrise Clinic", "Monday, 12 January 2026", "10:00"} {
		if !strings.Contains(sender.text, want) {
			t.Errorf("text missing %q: %s", want, sender.text)
		}
	}
	if store.confirmedID == nil || *store.confirmedID != dt.ID {
		t.Error("confirmation flag not recorded")
	}
	if store.reminderFlagged != nil {
		t.Error("reminder flag must stay untouched")
	}
}

func TestProcessReminderSetsFlag(t *testing.T) {
	dt := sampleDetail()
	store := &fakeDetailStore{detail: dt}
	sender := &fakeSender{}
	svc := NewService(store, sender, logging.New("error"), nil)

	msg := Message{Kind: KindReminder, ClinicID: dt.ClinicID, AppointmentID: dt.ID}
	if err := svc.Process(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.reminderFlagged == nil || *store.reminderFlagged != dt.ID {
		t.Error("reminder flag not recorded")
	}
	if !strings.Contains(sender.text, "reminder") {
		t.Errorf("text = %s", sender.text)
	}
}

func TestProcessWhatsAppPreference(t *testing.T) {
	dt := sampleDetail()
	dt.PrefersWhatsApp = true
	store := &fakeDetailStore{detail: dt}
	sender := &fakeSender{}
	svc := NewService(store, sender, logging.New("error"), nil)

	msg := Message{Kind: KindReschedule, ClinicID: dt.ClinicID, AppointmentID: dt.ID}
	if err := svc.Process(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.channel != ChannelWhatsApp {
		t.Errorf("channel = %s, want whatsapp", sender.channel)
	}
}

func TestProcessSendFailureLeavesFlagsAlone(t *testing.T) {
	dt := sampleDetail()
	store := &fakeDetailStore{detail: dt}
	sender := &fakeSender{err: errors.New("vendor down")}
	svc := NewService(store, sender, logging.New("error"), nil)

	msg := Message{Kind: KindConfirmation, ClinicID: dt.ClinicID, AppointmentID: dt.ID}
	if err := svc.Process(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
	if store.confirmedID != nil {
		t.Error("confirmation flag set despite failed send")
	}
}

func TestQueueEnqueueDropsWhenFull(t *testing.T) {
	q := NewQueue(1)
	if !q.Enqueue(Message{Kind: KindConfirmation}) {
		t.Fatal("first enqueue should fit")
	}
	if q.Enqueue(Message{Kind: KindConfirmation}) {
		t.Fatal("second enqueue should drop, not block")
	}
	if q.Len() != 1 {
		t.Errorf("len = %d, want 1", q.Len())
	}
}

func TestDispatcherDrainsQueue(t *testing.T) {
	dt := sampleDetail()
	store := &fakeDetailStore{detail: dt}
	sender := &fakeSender{}
	svc := NewService(store, sender, logging.New("error"), nil)

	q := NewQueue(8)
	for i := 0; i < 3; i++ {
		q.Enqueue(Message{Kind: KindConfirmation, ClinicID: dt.ClinicID, AppointmentID: dt.ID})
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(q, svc, 2, logging.New("error"))
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		sender.mu.Lock()
		calls := sender.calls
		sender.mu.Unlock()
		if calls == 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("calls = %d, want 3", calls)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}
