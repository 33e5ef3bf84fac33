// Package session drives a live workout: rep banking per set, elapsed time
// and the final completed workout.
//
// The core is a pure reducer, Machine.Apply, mapping (State, Event) to a new
// State. Handle wraps it with a clock and a ticker; Manager keeps the live
// handles and persists finished workouts.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/claude/liftplan/internal/calories"
	"github.com/claude/liftplan/internal/models"
)

// Status is the global state of a session.
type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

// Outcome is the progress of a single set.
type Outcome string

const (
	OutcomeBanking   Outcome = "banking"
	OutcomeCompleted Outcome = "completed"
	OutcomeSkipped   Outcome = "skipped"
)

var (
	ErrSessionFinished = errors.New("session is finished")
	ErrNothingBanked   = errors.New("no reps banked for the current set")
	ErrInvalidReps     = errors.New("banked reps must be positive")
	ErrNotActive       = errors.New("session is not active")
	ErrNotPaused       = errors.New("session is not paused")
	ErrNoSets          = errors.New("workout has no sets")
	ErrTemplate        = errors.New("templates cannot be run as sessions")
	ErrAlreadyComplete = errors.New("workout is already completed")
	ErrUnknownEvent    = errors.New("unknown session event")
)

// Event is an input to Machine.Apply.
type Event interface {
	Name() string
}

// Bank adds N reps to the current set.
type Bank struct {
	N int `json:"n"`
}

// CompleteSet records the banked reps and advances. At stamps the end time
// if this finishes the session.
type CompleteSet struct {
	At time.Time `json:"at"`
}

// SkipSet advances without completing the current set.
type SkipSet struct {
	At time.Time `json:"at"`
}

// Tick is one second of wall time.
type Tick struct{}

type Pause struct{}

type Resume struct{}

func (Bank) Name() string        { return "bank" }
func (CompleteSet) Name() string { return "complete" }
func (SkipSet) Name() string     { return "skip" }
func (Tick) Name() string        { return "tick" }
func (Pause) Name() string       { return "pause" }
func (Resume) Name() string      { return "resume" }

// State is an immutable snapshot of a session. Apply never mutates the
// slices of a State it receives; every change produces fresh copies.
type State struct {
	Workout        models.Workout `json:"workout"`
	ExerciseIndex  int            `json:"exercise_index"`
	SetIndex       int            `json:"set_index"`
	BankedReps     int            `json:"banked_reps"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	Status         Status         `json:"status"`
	Outcomes       [][]Outcome    `json:"outcomes"`
	StartedAt      time.Time      `json:"started_at"`
}

// NewState starts a session over a private copy of w.
func NewState(w models.Workout, startedAt time.Time) (State, error) {
	if w.Date.IsTemplate() {
		return State{}, ErrTemplate
	}
	if w.Completed {
		return State{}, ErrAlreadyComplete
	}
	if models.TotalSets(w.Exercises) == 0 {
		return State{}, ErrNoSets
	}

	s := State{
		Workout:   w.Clone(),
		Status:    StatusActive,
		Outcomes:  make([][]Outcome, len(w.Exercises)),
		StartedAt: startedAt,
	}
	for i, ex := range w.Exercises {
		s.Outcomes[i] = make([]Outcome, len(ex.Sets))
		for j := range ex.Sets {
			s.Outcomes[i][j] = OutcomeBanking
		}
	}
	s.ExerciseIndex, s.SetIndex, _ = nextSet(s.Workout.Exercises, 0, -1)
	return s, nil
}

// Finished returns the completed workout once the session is terminal.
func (s State) Finished() (models.Workout, bool) {
	if s.Status != StatusFinished {
		return models.Workout{}, false
	}
	return s.Workout, true
}

// TargetReps returns the target of the current set, or 0 when finished.
func (s State) TargetReps() int {
	if s.Status == StatusFinished {
		return 0
	}
	return s.Workout.Exercises[s.ExerciseIndex].Sets[s.SetIndex].Reps
}

// Current returns the exercise under the cursor.
func (s State) Current() (models.WorkoutExercise, bool) {
	if s.Status == StatusFinished {
		return models.WorkoutExercise{}, false
	}
	return s.Workout.Exercises[s.ExerciseIndex], true
}

// Machine applies events to session states.
type Machine struct {
	Estimator calories.Estimator
}

// Apply returns the state after e. A rejected event returns s unchanged
// together with the reason.
func (m Machine) Apply(s State, e Event) (State, error) {
	if s.Status == StatusFinished {
		return s, ErrSessionFinished
	}

	switch e := e.(type) {
	case Bank:
		if e.N <= 0 {
			return s, ErrInvalidReps
		}
		s.BankedReps = min(s.BankedReps+e.N, s.TargetReps())
		return s, nil

	case CompleteSet:
		if s.BankedReps <= 0 {
			return s, ErrNothingBanked
		}
		return m.advance(s, OutcomeCompleted, e.At), nil

	case SkipSet:
		return m.advance(s, OutcomeSkipped, e.At), nil

	case Tick:
		if s.Status == StatusActive {
			s.ElapsedSeconds++
		}
		return s, nil

	case Pause:
		if s.Status != StatusActive {
			return s, ErrNotActive
		}
		s.Status = StatusPaused
		return s, nil

	case Resume:
		if s.Status != StatusPaused {
			return s, ErrNotPaused
		}
		s.Status = StatusActive
		return s, nil
	}
	return s, fmt.Errorf("%T: %w", e, ErrUnknownEvent)
}

func (m Machine) advance(s State, outcome Outcome, at time.Time) State {
	exercises := models.CloneExercises(s.Workout.Exercises)
	if outcome == OutcomeCompleted {
		set := &exercises[s.ExerciseIndex].Sets[s.SetIndex]
		set.Reps = s.BankedReps
		set.Completed = true
	}

	outcomes := make([][]Outcome, len(s.Outcomes))
	for i := range s.Outcomes {
		outcomes[i] = append([]Outcome(nil), s.Outcomes[i]...)
	}
	outcomes[s.ExerciseIndex][s.SetIndex] = outcome

	s.Workout.Exercises = exercises
	s.Outcomes = outcomes
	s.BankedReps = 0

	ei, si, ok := nextSet(exercises, s.ExerciseIndex, s.SetIndex)
	if !ok {
		return m.finish(s, at)
	}
	s.ExerciseIndex, s.SetIndex = ei, si
	return s
}

func (m Machine) finish(s State, at time.Time) State {
	if at.IsZero() {
		at = s.StartedAt.Add(time.Duration(s.ElapsedSeconds) * time.Second)
	}
	start := s.StartedAt
	duration := s.ElapsedSeconds / 60
	kcal := m.Estimator.Estimate(s.Workout.Exercises, duration)

	s.Workout.StartTime = &start
	s.Workout.EndTime = &at
	s.Workout.DurationMin = &duration
	s.Workout.CaloriesBurned = &kcal
	s.Workout.Completed = true
	s.Status = StatusFinished
	return s
}

// nextSet returns the position after (ei, si), skipping exercises with no sets.
func nextSet(exercises []models.WorkoutExercise, ei, si int) (int, int, bool) {
	if ei < len(exercises) && si+1 < len(exercises[ei].Sets) {
		return ei, si + 1, true
	}
	for ei++; ei < len(exercises); ei++ {
		if len(exercises[ei].Sets) > 0 {
			return ei, 0, true
		}
	}
	return 0, 0, false
}

// Replay applies events to initial in order, stopping at the first rejection.
func Replay(m Machine, initial State, events []Event) (State, error) {
	s := initial
	for i, e := range events {
		next, err := m.Apply(s, e)
		if err != nil {
			return s, fmt.Errorf("event %d (%s): %w", i, e.Name(), err)
		}
		s = next
	}
	return s, nil
}
