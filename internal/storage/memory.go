package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/claude/liftplan/internal/models"
	"github.com/google/uuid"
)

// Memory is an in-process Store indexed by id.
type Memory struct {
	mu       sync.RWMutex
	workouts map[uuid.UUID]models.Workout
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{workouts: make(map[uuid.UUID]models.Workout)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) GetWorkout(_ context.Context, id uuid.UUID) (models.Workout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workouts[id]
	if !ok {
		return models.Workout{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return w.Clone(), nil
}

func (m *Memory) SaveWorkout(_ context.Context, w models.Workout) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.workouts[w.ID]; exists {
		return false, nil
	}
	m.workouts[w.ID] = w.Clone()
	return true, nil
}

func (m *Memory) UpdateWorkout(_ context.Context, w models.Workout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.workouts[w.ID]; !exists {
		return fmt.Errorf("%s: %w", w.ID, ErrNotFound)
	}
	m.workouts[w.ID] = w.Clone()
	return nil
}

func (m *Memory) DeleteWorkout(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.workouts[id]; !exists {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	delete(m.workouts, id)
	return nil
}

// ListWorkouts returns matches ordered by date (templates first), then name.
func (m *Memory) ListWorkouts(_ context.Context, f Filter) ([]models.Workout, error) {
	m.mu.RLock()
	var out []models.Workout
	for _, w := range m.workouts {
		if f.Match(w) {
			out = append(out, w.Clone())
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(out, compareWorkouts)
	return out, nil
}

func compareWorkouts(a, b models.Workout) int {
	ad, aok := a.Date.Day()
	bd, bok := b.Date.Day()
	switch {
	case !aok && bok:
		return -1
	case aok && !bok:
		return 1
	case aok && bok:
		if c := ad.Compare(bd); c != 0 {
			return c
		}
	}
	if a.Name != b.Name {
		if a.Name < b.Name {
			return -1
		}
		return 1
	}
	return slices.Compare(a.ID[:], b.ID[:])
}
