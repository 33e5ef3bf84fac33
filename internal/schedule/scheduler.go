package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftplan/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNotTemplate is returned when scheduling a workout that already has a date.
var ErrNotTemplate = errors.New("workout is not a template")

// WorkoutStore is the persistence the scheduler needs.
type WorkoutStore interface {
	GetWorkout(ctx context.Context, id uuid.UUID) (models.Workout, error)
	SaveWorkout(ctx context.Context, w models.Workout) (bool, error)
}

// Result reports the outcome of scheduling one template.
type Result struct {
	Dates      []string    `json:"dates"`
	WorkoutIDs []uuid.UUID `json:"workout_ids"`
	Created    int         `json:"created"`
	Skipped    int         `json:"skipped"`
}

// Scheduler expands a template's recurrence and persists one instance per day.
type Scheduler struct {
	store        WorkoutStore
	expander     Expander
	instantiator Instantiator
	concurrency  int
	log          *slog.Logger
}

// NewScheduler creates a Scheduler. concurrency bounds parallel saves.
func NewScheduler(store WorkoutStore, expander Expander, instantiator Instantiator, concurrency int, log *slog.Logger) *Scheduler {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Scheduler{
		store:        store,
		expander:     expander,
		instantiator: instantiator,
		concurrency:  concurrency,
		log:          log,
	}
}

// Preview validates spec and returns the days it expands to.
func (s *Scheduler) Preview(spec RecurrenceSpec) ([]time.Time, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return s.expander.Expand(spec), nil
}

// Plan builds the instances for template without persisting them.
func (s *Scheduler) Plan(template models.Workout, spec RecurrenceSpec) ([]models.Workout, error) {
	if !template.Date.IsTemplate() {
		return nil, fmt.Errorf("%s: %w", template.ID, ErrNotTemplate)
	}
	dates, err := s.Preview(spec)
	if err != nil {
		return nil, err
	}
	instances := make([]models.Workout, len(dates))
	for i, d := range dates {
		instances[i] = s.instantiator.Instantiate(template, d)
	}
	return instances, nil
}

// Schedule loads the template, expands spec and saves every instance.
// Saves run in parallel; an id that already exists counts as skipped.
// An empty expansion is a valid no-op.
func (s *Scheduler) Schedule(ctx context.Context, templateID uuid.UUID, spec RecurrenceSpec) (*Result, error) {
	template, err := s.store.GetWorkout(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}

	instances, err := s.Plan(template, spec)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Dates:      make([]string, len(instances)),
		WorkoutIDs: make([]uuid.UUID, len(instances)),
	}
	if len(instances) == 0 {
		s.log.Info("recurrence expanded to no dates", "template", templateID, "cadence", spec.Cadence)
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, w := range instances {
		result.Dates[i] = w.Date.String()
		result.WorkoutIDs[i] = w.ID
		g.Go(func() error {
			inserted, err := s.store.SaveWorkout(gctx, w)
			if err != nil {
				return fmt.Errorf("saving instance for %s: %w", w.Date, err)
			}
			mu.Lock()
			if inserted {
				result.Created++
			} else {
				result.Skipped++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	s.log.Info("template scheduled",
		"template", templateID,
		"cadence", spec.Cadence,
		"dates", len(instances),
		"created", result.Created,
		"skipped", result.Skipped,
	)
	return result, nil
}
