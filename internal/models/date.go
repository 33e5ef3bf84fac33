package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used for scheduled workouts.
const DateLayout = "2006-01-02"

// WorkoutDate is either a template marker or a concrete calendar day.
// The zero value is the template marker.
type WorkoutDate struct {
	scheduled bool
	day       time.Time
}

// TemplateDate returns the marker for reusable, undated workouts.
func TemplateDate() WorkoutDate {
	return WorkoutDate{}
}

// ScheduledOn returns a date bound to the calendar day of t in t's location.
func ScheduledOn(t time.Time) WorkoutDate {
	return WorkoutDate{scheduled: true, day: StartOfDay(t)}
}

// ParseDate parses a YYYY-MM-DD string in the host's local time zone.
func ParseDate(s string) (WorkoutDate, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return WorkoutDate{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return ScheduledOn(t), nil
}

// IsTemplate reports whether d is the template marker.
func (d WorkoutDate) IsTemplate() bool {
	return !d.scheduled
}

// Day returns the calendar day and true for a scheduled date.
func (d WorkoutDate) Day() (time.Time, bool) {
	return d.day, d.scheduled
}

// Equal reports whether both dates denote the same variant and day.
func (d WorkoutDate) Equal(o WorkoutDate) bool {
	if d.scheduled != o.scheduled {
		return false
	}
	return !d.scheduled || d.String() == o.String()
}

// String returns "template" or the YYYY-MM-DD day.
func (d WorkoutDate) String() string {
	if !d.scheduled {
		return "template"
	}
	return d.day.Format(DateLayout)
}

// MarshalJSON encodes templates as null and scheduled days as "YYYY-MM-DD".
func (d WorkoutDate) MarshalJSON() ([]byte, error) {
	if !d.scheduled {
		return []byte("null"), nil
	}
	return json.Marshal(d.day.Format(DateLayout))
}

// UnmarshalJSON accepts null, "" or a YYYY-MM-DD string.
func (d *WorkoutDate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = TemplateDate()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("workout date: %w", err)
	}
	if s == "" {
		*d = TemplateDate()
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
