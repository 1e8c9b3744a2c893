package schedule

import (
	"fmt"
	"strings"
	"time"
)

// DayHours is one weekday entry in a doctor's working-hours map.
type DayHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// WeeklyHours maps lowercase weekday names ("monday"..."sunday") to hours.
type WeeklyHours map[string]DayHours

// BreakWindow is a recurring time-of-day break, e.g. {"12:30","13:00"}.
type BreakWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ConfigError reports corrupt schedule data on a doctor record. It is a
// configuration fault, not a business condition: callers surface "no slots"
// to the patient but must log it for operator attention.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("schedule config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Day is the resolved schedule for one doctor on one calendar date.
type Day struct {
	// Window is the working-hours range; empty means the day is closed.
	Window        Interval
	SlotMinutes   int
	BufferMinutes int
	Breaks        []Interval
}

// Closed reports whether the doctor does not work on the date at all.
func (d Day) Closed() bool { return d.Window.Empty() }

// Resolve maps a date onto the doctor's recurring week. A disabled or absent
// weekday yields a closed Day with no error; malformed hours, breaks, slot or
// buffer values yield a *ConfigError.
func Resolve(hours WeeklyHours, breaks []BreakWindow, slotMinutes, bufferMinutes int, date time.Time) (Day, error) {
	if slotMinutes <= 0 {
		return Day{}, &ConfigError{Field: "slot_duration", Err: fmt.Errorf("must be positive, got %d", slotMinutes)}
	}
	if bufferMinutes < 0 {
		return Day{}, &ConfigError{Field: "buffer_time", Err: fmt.Errorf("must be non-negative, got %d", bufferMinutes)}
	}

	dayName := strings.ToLower(date.Weekday().String())
	entry, ok := hours[dayName]
	if !ok || !entry.Enabled {
		return Day{SlotMinutes: slotMinutes, BufferMinutes: bufferMinutes}, nil
	}

	start, err := ParseClock(entry.Start)
	if err != nil {
		return Day{}, &ConfigError{Field: "working_hours." + dayName + ".start", Err: err}
	}
	end, err := ParseClock(entry.End)
	if err != nil {
		return Day{}, &ConfigError{Field: "working_hours." + dayName + ".end", Err: err}
	}
	if end <= start {
		return Day{}, &ConfigError{Field: "working_hours." + dayName, Err: fmt.Errorf("window %q-%q is inverted or empty", entry.Start, entry.End)}
	}

	day := Day{
		Window:        Interval{Start: start, End: end},
		SlotMinutes:   slotMinutes,
		BufferMinutes: bufferMinutes,
	}

	for _, b := range breaks {
		bs, err := ParseClock(b.Start)
		if err != nil {
			return Day{}, &ConfigError{Field: "break_times.start", Err: err}
		}
		be, err := ParseClock(b.End)
		if err != nil {
			return Day{}, &ConfigError{Field: "break_times.end", Err: err}
		}
		day.Breaks = append(day.Breaks, Interval{Start: bs, End: be})
	}

	return day, nil
}
