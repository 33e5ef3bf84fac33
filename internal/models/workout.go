package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Exercise describes a catalog movement referenced by a workout.
type Exercise struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Category     string   `json:"category" yaml:"category"`
	MuscleGroups []string `json:"muscle_groups,omitempty" yaml:"muscle_groups"`
}

// WorkoutSet is one set of an exercise. Reps is the target until a session
// completes the set, after which it holds the banked count.
type WorkoutSet struct {
	ID          uuid.UUID `json:"id"`
	Reps        int       `json:"reps"`
	WeightKg    *float64  `json:"weight_kg,omitempty"`
	DurationSec *int      `json:"duration_sec,omitempty"`
	RestSec     *int      `json:"rest_sec,omitempty"`
	Completed   bool      `json:"completed"`
}

// WorkoutExercise is an exercise with its ordered sets.
type WorkoutExercise struct {
	ID       uuid.UUID    `json:"id"`
	Exercise Exercise     `json:"exercise"`
	Sets     []WorkoutSet `json:"sets"`
	Notes    string       `json:"notes,omitempty"`
}

// Workout is either a template or a dated instance.
type Workout struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	Exercises      []WorkoutExercise `json:"exercises"`
	Date           WorkoutDate       `json:"date"`
	TemplateID     *uuid.UUID        `json:"template_id,omitempty"`
	Completed      bool              `json:"completed"`
	DurationMin    *int              `json:"duration_min,omitempty"`
	StartTime      *time.Time        `json:"start_time,omitempty"`
	EndTime        *time.Time        `json:"end_time,omitempty"`
	CaloriesBurned *int              `json:"calories_burned,omitempty"`
	Notes          string            `json:"notes,omitempty"`
}

var (
	ErrMissingName        = errors.New("workout name is required")
	ErrIncompleteWorkout  = errors.New("completed workout is missing session results")
	ErrCompletedTemplate  = errors.New("template workouts cannot be completed")
	ErrNegativeTargetReps = errors.New("set reps must not be negative")
)

// Validate checks the structural invariants of a workout.
func (w Workout) Validate() error {
	if w.Name == "" {
		return ErrMissingName
	}
	if w.Completed {
		if w.Date.IsTemplate() {
			return ErrCompletedTemplate
		}
		if w.DurationMin == nil || w.StartTime == nil || w.EndTime == nil || w.CaloriesBurned == nil {
			return ErrIncompleteWorkout
		}
	}
	for i, ex := range w.Exercises {
		for j, s := range ex.Sets {
			if s.Reps < 0 {
				return fmt.Errorf("exercise %d set %d: %w", i, j, ErrNegativeTargetReps)
			}
		}
	}
	return nil
}

// TotalSets counts the sets across all exercises.
func TotalSets(exercises []WorkoutExercise) int {
	n := 0
	for _, ex := range exercises {
		n += len(ex.Sets)
	}
	return n
}

// Clone returns a deep copy of w. Mutating the copy never affects w.
func (w Workout) Clone() Workout {
	c := w
	c.Exercises = CloneExercises(w.Exercises)
	c.TemplateID = clonePtr(w.TemplateID)
	c.DurationMin = clonePtr(w.DurationMin)
	c.StartTime = clonePtr(w.StartTime)
	c.EndTime = clonePtr(w.EndTime)
	c.CaloriesBurned = clonePtr(w.CaloriesBurned)
	return c
}

// CloneExercises deep-copies an exercise list.
func CloneExercises(exercises []WorkoutExercise) []WorkoutExercise {
	if exercises == nil {
		return nil
	}
	out := make([]WorkoutExercise, len(exercises))
	for i, ex := range exercises {
		out[i] = ex
		out[i].Exercise.MuscleGroups = append([]string(nil), ex.Exercise.MuscleGroups...)
		if ex.Sets != nil {
			out[i].Sets = make([]WorkoutSet, len(ex.Sets))
			for j, s := range ex.Sets {
				out[i].Sets[j] = s
				out[i].Sets[j].WeightKg = clonePtr(s.WeightKg)
				out[i].Sets[j].DurationSec = clonePtr(s.DurationSec)
				out[i].Sets[j].RestSec = clonePtr(s.RestSec)
			}
		}
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
