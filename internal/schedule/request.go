package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/claude/liftplan/internal/models"
)

// Request is the JSON form of a RecurrenceSpec used by the HTTP API and MCP.
// Days accept 0-6, full names or three-letter abbreviations.
type Request struct {
	StartDate string   `json:"start_date"`
	Days      []string `json:"days"`
	Cadence   string   `json:"cadence"`
}

// NewRequest renders spec in wire form.
func NewRequest(spec RecurrenceSpec) Request {
	r := Request{
		StartDate: spec.StartDate.Format(models.DateLayout),
		Days:      make([]string, len(spec.Days)),
		Cadence:   string(spec.Cadence),
	}
	for i, d := range spec.Days {
		r.Days[i] = strings.ToLower(d.String()[:3])
	}
	return r
}

// Spec parses the request. The start date is read in the local time zone.
func (r Request) Spec() (RecurrenceSpec, error) {
	if r.StartDate == "" {
		return RecurrenceSpec{}, ErrMissingStart
	}
	start, err := time.ParseInLocation(models.DateLayout, r.StartDate, time.Local)
	if err != nil {
		return RecurrenceSpec{}, fmt.Errorf("parsing start_date: %w", err)
	}
	cadence, err := ParseCadence(r.Cadence)
	if err != nil {
		return RecurrenceSpec{}, err
	}
	spec := RecurrenceSpec{StartDate: start, Cadence: cadence}
	for _, s := range r.Days {
		d, err := ParseWeekday(s)
		if err != nil {
			return RecurrenceSpec{}, err
		}
		spec.Days = append(spec.Days, d)
	}
	return spec, nil
}

// FormatDates renders days as YYYY-MM-DD strings.
func FormatDates(days []time.Time) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Format(models.DateLayout)
	}
	return out
}
