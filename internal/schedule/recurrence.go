// Package schedule expands repeat patterns into calendar days and turns
// template workouts into dated instances.
package schedule

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftplan/internal/models"
)

// Cadence is the recurrence interval of a weekday pattern.
type Cadence string

const (
	Weekly      Cadence = "weekly"
	Fortnightly Cadence = "fortnightly"
	Monthly     Cadence = "monthly"
)

// OverflowPolicy decides what month arithmetic does with a day-of-month
// that does not exist in the target month (e.g. the 31st in February).
type OverflowPolicy string

const (
	// Clamp moves the day to the last day of the target month.
	Clamp OverflowPolicy = "clamp"
	// Roll carries the surplus days into the following month.
	Roll OverflowPolicy = "roll"
)

// DefaultHorizonMonths bounds how far ahead a pattern is expanded.
const DefaultHorizonMonths = 3

var (
	ErrUnknownCadence  = errors.New("unknown cadence")
	ErrInvalidWeekday  = errors.New("weekday must be between 0 (Sunday) and 6 (Saturday)")
	ErrMissingStart    = errors.New("start date is required")
	ErrUnknownOverflow = errors.New("unknown month overflow policy")
)

// RecurrenceSpec describes which days a template repeats on.
type RecurrenceSpec struct {
	StartDate time.Time
	Days      []time.Weekday
	Cadence   Cadence
}

// Validate rejects malformed specs. An empty weekday set is valid.
func (s RecurrenceSpec) Validate() error {
	if s.StartDate.IsZero() {
		return ErrMissingStart
	}
	if _, err := ParseCadence(string(s.Cadence)); err != nil {
		return err
	}
	for _, d := range s.Days {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: %d", ErrInvalidWeekday, d)
		}
	}
	return nil
}

// ParseCadence parses a cadence name, case-insensitively.
func ParseCadence(s string) (Cadence, error) {
	switch c := Cadence(strings.ToLower(strings.TrimSpace(s))); c {
	case Weekly, Fortnightly, Monthly:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCadence, s)
	}
}

// ParseOverflowPolicy parses "clamp" or "roll". Empty means Clamp.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch p := OverflowPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return Clamp, nil
	case Clamp, Roll:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOverflow, s)
	}
}

// ParseWeekday accepts 0-6, full English names or three-letter abbreviations.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("%w: %d", ErrInvalidWeekday, n)
		}
		return time.Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// ParseWeekdays parses a comma-separated weekday list such as "mon,wed".
func ParseWeekdays(s string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := ParseWeekday(part)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

// Expander expands recurrence specs over a bounded horizon.
type Expander struct {
	HorizonMonths int
	Overflow      OverflowPolicy
}

// DefaultExpander uses a three month horizon and clamps overflowing days.
func DefaultExpander() Expander {
	return Expander{HorizonMonths: DefaultHorizonMonths, Overflow: Clamp}
}

// Expand returns the days matched by spec using the default expander.
func Expand(spec RecurrenceSpec) []time.Time {
	return DefaultExpander().Expand(spec)
}

// Expand walks day by day over [start, start+horizon) and returns every day
// whose weekday is selected, sorted and without duplicates.
//
// Weekly includes every matching day. Fortnightly skips seven days after each
// seven-day window that begins on the start date. Monthly scans a seven-day
// window from the start's day-of-month and then jumps to that day-of-month in
// the next month; month anchors are always computed from the start date.
func (e Expander) Expand(spec RecurrenceSpec) []time.Time {
	if len(spec.Days) == 0 || spec.StartDate.IsZero() {
		return nil
	}
	horizon := e.HorizonMonths
	if horizon <= 0 {
		horizon = DefaultHorizonMonths
	}

	var want [7]bool
	for _, d := range spec.Days {
		if d >= time.Sunday && d <= time.Saturday {
			want[d] = true
		}
	}

	start := models.StartOfDay(spec.StartDate)
	end := AddMonths(start, horizon, e.Overflow)

	var out []time.Time
	day := start
	inWindow := 0
	windows := 0
	for day.Before(end) {
		if want[day.Weekday()] {
			out = append(out, day)
		}
		day = day.AddDate(0, 0, 1)
		inWindow++
		if inWindow < 7 {
			continue
		}
		inWindow = 0
		windows++
		switch spec.Cadence {
		case Fortnightly:
			day = day.AddDate(0, 0, 7)
		case Monthly:
			day = AddMonths(start, windows, e.Overflow)
		}
	}

	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(out, func(a, b time.Time) bool { return a.Equal(b) })
}

// AddMonths adds n calendar months to t, resolving a missing day-of-month
// with the given policy. The zero policy behaves like Clamp.
func AddMonths(t time.Time, n int, policy OverflowPolicy) time.Time {
	if policy == Roll {
		return t.AddDate(0, n, 0)
	}
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	day := min(t.Day(), daysIn(first.Year(), first.Month(), t.Location()))
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
