// Package schedule implements the doctor availability engine: minute-offset
// intervals, weekly working-hours resolution, and slot generation.
package schedule

import (
	"fmt"
	"strings"
)

// MinutesPerDay is the upper bound (exclusive) for a time-of-day offset.
const MinutesPerDay = 24 * 60

// Interval is a half-open time range [Start, End) in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Overlaps reports whether two half-open intervals share any instant.
// [a,b) and [c,d) overlap iff a < d and c < b, so touching boundaries
// (b == c) do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

// Empty reports whether the interval contains no instants.
func (i Interval) Empty() bool {
	return i.End <= i.Start
}

// ParseClock converts a 24-hour "HH:MM" or "HH:MM:SS" string to minutes since
// midnight. Seconds are accepted and truncated; the stored appointment time
// column carries them. The whole string must parse: a clock value with
// trailing or non-digit characters is rejected rather than silently clipped.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("schedule: malformed clock value %q", s)
	}
	vals := make([]int, len(parts))
	for i, part := range parts {
		n, err := parseClockField(part)
		if err != nil {
			return 0, fmt.Errorf("schedule: malformed clock value %q", s)
		}
		vals[i] = n
	}
	hh, mm := vals[0], vals[1]
	ss := 0
	if len(vals) == 3 {
		ss = vals[2]
	}
	if hh > 23 || mm > 59 || ss > 59 {
		return 0, fmt.Errorf("schedule: clock value %q out of range", s)
	}
	return hh*60 + mm, nil
}

func parseClockField(s string) (int, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, fmt.Errorf("bad field width")
	}
	n := 0
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-digit %q", c)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
