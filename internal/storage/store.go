package storage

import (
	"context"
	"errors"
	"time"

	"github.com/claude/liftplan/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no workout has the requested id.
var ErrNotFound = errors.New("workout not found")

// Store persists workouts keyed by id. SaveWorkout is idempotent: a save
// whose id already exists is ignored and reports false.
type Store interface {
	GetWorkout(ctx context.Context, id uuid.UUID) (models.Workout, error)
	SaveWorkout(ctx context.Context, w models.Workout) (bool, error)
	UpdateWorkout(ctx context.Context, w models.Workout) error
	DeleteWorkout(ctx context.Context, id uuid.UUID) error
	ListWorkouts(ctx context.Context, f Filter) ([]models.Workout, error)
}

// Filter narrows ListWorkouts. Zero fields match everything.
// Start and End bound scheduled dates as [Start, End) and exclude templates.
type Filter struct {
	Kind       string
	Start      time.Time
	End        time.Time
	TemplateID *uuid.UUID
	Completed  *bool
}

func (f Filter) hasRange() bool {
	return !f.Start.IsZero() || !f.End.IsZero()
}

// Match reports whether w passes the filter.
func (f Filter) Match(w models.Workout) bool {
	switch f.Kind {
	case models.KindTemplate:
		if !w.Date.IsTemplate() {
			return false
		}
	case models.KindScheduled:
		if w.Date.IsTemplate() {
			return false
		}
	}
	if f.TemplateID != nil && (w.TemplateID == nil || *w.TemplateID != *f.TemplateID) {
		return false
	}
	if f.Completed != nil && w.Completed != *f.Completed {
		return false
	}
	if f.hasRange() {
		day, ok := w.Date.Day()
		if !ok {
			return false
		}
		if !f.Start.IsZero() && day.Before(models.StartOfDay(f.Start)) {
			return false
		}
		if !f.End.IsZero() && !day.Before(f.End) {
			return false
		}
	}
	return true
}

// Stats summarizes stored workouts.
type Stats struct {
	Templates     int `json:"templates"`
	Scheduled     int `json:"scheduled"`
	Completed     int `json:"completed"`
	TotalMinutes  int `json:"total_minutes"`
	TotalCalories int `json:"total_calories"`
	CompletedSets int `json:"completed_sets"`
	SkippedOrOpen int `json:"skipped_or_open_sets"`
}

// ComputeStats aggregates a workout list into Stats.
func ComputeStats(workouts []models.Workout) Stats {
	var s Stats
	for _, w := range workouts {
		if w.Date.IsTemplate() {
			s.Templates++
			continue
		}
		s.Scheduled++
		if !w.Completed {
			continue
		}
		s.Completed++
		if w.DurationMin != nil {
			s.TotalMinutes += *w.DurationMin
		}
		if w.CaloriesBurned != nil {
			s.TotalCalories += *w.CaloriesBurned
		}
		for _, ex := range w.Exercises {
			for _, set := range ex.Sets {
				if set.Completed {
					s.CompletedSets++
				} else {
					s.SkippedOrOpen++
				}
			}
		}
	}
	return s
}
