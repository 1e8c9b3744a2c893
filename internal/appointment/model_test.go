package appointment

import (
	"testing"
	"time"

	"github.com/curavoice/voice-backend/internal/schedule"
)

func TestStatusActive(t *testing.T) {
	active := []Status{StatusScheduled, StatusConfirmed}
	inactive := []Status{StatusCancelled, StatusCompleted, StatusNoShow}

	for _, s := range active {
		if !s.Active() {
			t.Errorf("%s should be active", s)
		}
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range inactive {
		if s.Active() {
			t.Errorf("%s should not be active", s)
		}
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"10:00", "10:00:00", false},
		{"09:30:00", "09:30:00", false},
		{"9:05", "09:05:00", false},
		{"25:00", "", true},
		{"soonish", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeTime(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeTime(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeTime(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAppointmentInterval(t *testing.T) {
	a := Appointment{Time: "10:00:00", DurationMinutes: 30}
	iv, err := a.Interval()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iv != (schedule.Interval{Start: 600, End: 630}) {
		t.Errorf("interval = %v, want [600,630)", iv)
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBlockedTimeIntervalOnSameDay(t *testing.T) {
	b := BlockedTime{
		Start: time.Date(2026, 1, 12, 13, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 12, 15, 30, 0, 0, time.UTC),
	}
	got := b.IntervalOn(day(2026, 1, 12))
	if got != (schedule.Interval{Start: 780, End: 930}) {
		t.Errorf("interval = %v, want [780,930)", got)
	}
}

func TestBlockedTimeIntervalCrossMidnight(t *testing.T) {
	// 22:00 Jan 12 to 02:00 Jan 13 occupies both dates, clamped per date.
	b := BlockedTime{
		Start: time.Date(2026, 1, 12, 22, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 13, 2, 0, 0, 0, time.UTC),
	}

	first := b.IntervalOn(day(2026, 1, 12))
	if first != (schedule.Interval{Start: 1320, End: schedule.MinutesPerDay}) {
		t.Errorf("first day = %v, want [1320,1440)", first)
	}

	second := b.IntervalOn(day(2026, 1, 13))
	if second != (schedule.Interval{Start: 0, End: 120}) {
		t.Errorf("second day = %v, want [0,120)", second)
	}
}

func TestBlockedTimeIntervalOutsideDate(t *testing.T) {
	b := BlockedTime{
		Start: time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC),
	}
	if got := b.IntervalOn(day(2026, 1, 12)); !got.Empty() {
		t.Errorf("expected empty interval, got %v", got)
	}
}

func TestBlockedTimeFullDay(t *testing.T) {
	b := BlockedTime{
		Start: time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC),
	}
	got := b.IntervalOn(day(2026, 1, 12))
	if got != (schedule.Interval{Start: 0, End: schedule.MinutesPerDay}) {
		t.Errorf("interval = %v, want [0,1440)", got)
	}
}
