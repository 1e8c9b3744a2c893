package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/curavoice/voice-backend/internal/appointment"
	"github.com/curavoice/voice-backend/internal/notify"
	"github.com/curavoice/voice-backend/pkg/logging"
)

type fakeCandidates struct {
	from, to   time.Time
	candidates []appointment.ReminderCandidate
	err        error
}

func (f *fakeCandidates) ListNeedingReminder(_ context.Context, from, to time.Time) ([]appointment.ReminderCandidate, error) {
	f.from, f.to = from, to
	return f.candidates, f.err
}

type fakeQueue struct {
	msgs []notify.Message
	full bool
}

func (q *fakeQueue) Enqueue(msg notify.Message) bool {
	if q.full {
		return false
	}
	q.msgs = append(q.msgs, msg)
	return true
}

func TestSweepQueuesCandidates(t *testing.T) {
	store := &fakeCandidates{candidates: []appointment.ReminderCandidate{
		{ID: uuid.New(), ClinicID: uuid.New()},
		{ID: uuid.New(), ClinicID: uuid.New()},
	}}
	q := &fakeQueue{}
	s := NewSweeper(store, q, 24*time.Hour, 48*time.Hour, logging.New("error"), nil)
	s.now = func() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) }

	queued, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if queued != 2 {
		t.Errorf("queued = %d, want 2", queued)
	}
	for _, m := range q.msgs {
		if m.Kind != notify.KindReminder {
			t.Errorf("kind = %s", m.Kind)
		}
	}
}

func TestSweepWindowBounds(t *testing.T) {
	store := &fakeCandidates{}
	s := NewSweeper(store, &fakeQueue{}, 24*time.Hour, 48*time.Hour, logging.New("error"), nil)
	s.now = func() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) }

	if _, err := s.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	wantFrom := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	if !store.from.Equal(wantFrom) || !store.to.Equal(wantTo) {
		t.Errorf("window = [%s, %s], want [%s, %s]", store.from, store.to, wantFrom, wantTo)
	}
}

func TestSweepFullQueueDrops(t *testing.T) {
	store := &fakeCandidates{candidates: []appointment.ReminderCandidate{{ID: uuid.New()}}}
	q := &fakeQueue{full: true}
	s := NewSweeper(store, q, 24*time.Hour, 48*time.Hour, logging.New("error"), nil)

	queued, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if queued != 0 {
		t.Errorf("queued = %d, want 0", queued)
	}
}

func TestSweepStoreError(t *testing.T) {
	store := &fakeCandidates{err: errors.New("db down")}
	s := NewSweeper(store, &fakeQueue{}, 24*time.Hour, 48*time.Hour, logging.New("error"), nil)

	if _, err := s.Sweep(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
