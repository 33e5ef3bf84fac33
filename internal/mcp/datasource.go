package mcp

import (
	"context"

	"github.com/claude/liftplan/internal/catalog"
	"github.com/claude/liftplan/internal/models"
	"github.com/claude/liftplan/internal/remote"
	"github.com/claude/liftplan/internal/schedule"
	"github.com/claude/liftplan/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Both Local (direct
// store access) and *remote.Client (REST API) satisfy this interface.
type DataSource interface {
	GetWorkout(ctx context.Context, id uuid.UUID) (models.Workout, error)
	ListWorkouts(ctx context.Context, f storage.Filter) ([]models.Workout, error)
	ScheduleWorkout(ctx context.Context, templateID uuid.UUID, spec schedule.RecurrenceSpec) (*schedule.Result, error)
	SearchExercises(ctx context.Context, query string) ([]models.Exercise, error)
	Stats(ctx context.Context, f storage.Filter) (storage.Stats, error)
}

// Compile-time check: the REST client satisfies DataSource.
var _ DataSource = (*remote.Client)(nil)

// Local serves MCP tools straight from a store, catalog and scheduler.
type Local struct {
	storage.Store
	Catalog   *catalog.Catalog
	Scheduler *schedule.Scheduler
}

var _ DataSource = Local{}

func (l Local) ScheduleWorkout(ctx context.Context, templateID uuid.UUID, spec schedule.RecurrenceSpec) (*schedule.Result, error) {
	return l.Scheduler.Schedule(ctx, templateID, spec)
}

func (l Local) SearchExercises(_ context.Context, query string) ([]models.Exercise, error) {
	return l.Catalog.Search(query), nil
}

func (l Local) Stats(ctx context.Context, f storage.Filter) (storage.Stats, error) {
	workouts, err := l.ListWorkouts(ctx, f)
	if err != nil {
		return storage.Stats{}, err
	}
	return storage.ComputeStats(workouts), nil
}
