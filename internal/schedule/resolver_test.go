package schedule

import (
	"errors"
	"testing"
	"time"
)

func weekdayHours() WeeklyHours {
	return WeeklyHours{
		"monday":  {Enabled: true, Start: "09:00", End: "17:00"},
		"tuesday": {Enabled: false, Start: "09:00", End: "17:00"},
	}
}

// 2026-01-12 is a Monday.
var monday = time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)

func TestResolveOpenDay(t *testing.T) {
	day, err := Resolve(weekdayHours(), []BreakWindow{{Start: "12:30", End: "13:00"}}, 30, 5, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.Closed() {
		t.Fatal("expected open day")
	}
	if day.Window != (Interval{540, 1020}) {
		t.Errorf("window = %v, want [540,1020)", day.Window)
	}
	if day.SlotMinutes != 30 || day.BufferMinutes != 5 {
		t.Errorf("slot/buffer = %d/%d, want 30/5", day.SlotMinutes, day.BufferMinutes)
	}
	if len(day.Breaks) != 1 || day.Breaks[0] != (Interval{750, 780}) {
		t.Errorf("breaks = %v, want [[750,780)]", day.Breaks)
	}
}

func TestResolveDisabledDay(t *testing.T) {
	tuesday := monday.AddDate(0, 0, 1)
	day, err := Resolve(weekdayHours(), nil, 30, 0, tuesday)
	if err != nil {
		t.Fatalf("disabled day must not be an error, got %v", err)
	}
	if !day.Closed() {
		t.Errorf("expected closed day, got window %v", day.Window)
	}
}

func TestResolveAbsentDay(t *testing.T) {
	sunday := monday.AddDate(0, 0, -1)
	day, err := Resolve(weekdayHours(), nil, 30, 0, sunday)
	if err != nil {
		t.Fatalf("absent day must not be an error, got %v", err)
	}
	if !day.Closed() {
		t.Errorf("expected closed day, got window %v", day.Window)
	}
}

func TestResolveMalformedData(t *testing.T) {
	tests := []struct {
		name   string
		hours  WeeklyHours
		breaks []BreakWindow
		slot   int
		buffer int
	}{
		{"bad start", WeeklyHours{"monday": {Enabled: true, Start: "late", End: "17:00"}}, nil, 30, 0},
		{"bad end", WeeklyHours{"monday": {Enabled: true, Start: "09:00", End: "25:00"}}, nil, 30, 0},
		{"inverted window", WeeklyHours{"monday": {Enabled: true, Start: "17:00", End: "09:00"}}, nil, 30, 0},
		{"bad break", weekdayHours(), []BreakWindow{{Start: "noon", End: "13:00"}}, 30, 0},
		{"zero slot", weekdayHours(), nil, 0, 0},
		{"negative buffer", weekdayHours(), nil, 30, -1},
	}
	for _, tt := range tests {
		_, err := Resolve(tt.hours, tt.breaks, tt.slot, tt.buffer, monday)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: error %v is not a *ConfigError", tt.name, err)
		}
	}
}
