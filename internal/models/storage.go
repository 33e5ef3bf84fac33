package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Workout kinds as stored in the kind column.
const (
	KindTemplate  = "template"
	KindScheduled = "scheduled"
)

// WorkoutRow is a row ready for insertion into the workouts table.
// Exercises are stored as a JSON document alongside the flat columns.
type WorkoutRow struct {
	ID             uuid.UUID
	Name           string
	Kind           string
	ScheduledDate  *time.Time
	TemplateID     *uuid.UUID
	Completed      bool
	DurationMin    *int
	StartTime      *time.Time
	EndTime        *time.Time
	CaloriesBurned *int
	Notes          string
	Exercises      []byte
}

// NewWorkoutRow flattens a workout for storage.
func NewWorkoutRow(w Workout) (WorkoutRow, error) {
	exercises := w.Exercises
	if exercises == nil {
		exercises = []WorkoutExercise{}
	}
	data, err := json.Marshal(exercises)
	if err != nil {
		return WorkoutRow{}, fmt.Errorf("encoding exercises: %w", err)
	}
	row := WorkoutRow{
		ID:             w.ID,
		Name:           w.Name,
		Kind:           KindTemplate,
		TemplateID:     w.TemplateID,
		Completed:      w.Completed,
		DurationMin:    w.DurationMin,
		StartTime:      w.StartTime,
		EndTime:        w.EndTime,
		CaloriesBurned: w.CaloriesBurned,
		Notes:          w.Notes,
		Exercises:      data,
	}
	if day, ok := w.Date.Day(); ok {
		row.Kind = KindScheduled
		row.ScheduledDate = &day
	}
	return row, nil
}

// Workout rebuilds the domain workout from a stored row.
func (r WorkoutRow) Workout() (Workout, error) {
	w := Workout{
		ID:             r.ID,
		Name:           r.Name,
		TemplateID:     r.TemplateID,
		Completed:      r.Completed,
		DurationMin:    r.DurationMin,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		CaloriesBurned: r.CaloriesBurned,
		Notes:          r.Notes,
	}
	if len(r.Exercises) > 0 {
		if err := json.Unmarshal(r.Exercises, &w.Exercises); err != nil {
			return Workout{}, fmt.Errorf("decoding exercises for %s: %w", r.ID, err)
		}
	}
	if r.Kind == KindScheduled && r.ScheduledDate != nil {
		// Dates are stored as calendar days; rebuild them in the local zone.
		d := *r.ScheduledDate
		w.Date = ScheduledOn(time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local))
	}
	return w, nil
}
