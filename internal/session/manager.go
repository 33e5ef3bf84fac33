package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/claude/liftplan/internal/clock"
	"github.com/claude/liftplan/internal/models"
	"github.com/claude/liftplan/internal/schedule"
	"github.com/google/uuid"
)

var (
	ErrSessionInProgress = errors.New("workout already has a live session")
	ErrSessionNotFound   = errors.New("session not found")
)

// WorkoutStore is the persistence a Manager needs.
type WorkoutStore interface {
	GetWorkout(ctx context.Context, id uuid.UUID) (models.Workout, error)
	SaveWorkout(ctx context.Context, w models.Workout) (bool, error)
	UpdateWorkout(ctx context.Context, w models.Workout) error
}

// persistTimeout bounds the store write made when a session finishes.
const persistTimeout = 10 * time.Second

// Manager tracks live sessions, one per workout, and persists each
// workout when its session finishes. Abandoned sessions persist nothing.
type Manager struct {
	store   WorkoutStore
	machine Machine
	clock   clock.Clock
	logger  *slog.Logger

	mu        sync.Mutex
	sessions  map[uuid.UUID]*Handle
	byWorkout map[uuid.UUID]uuid.UUID
}

// NewManager creates a Manager.
func NewManager(store WorkoutStore, machine Machine, clk clock.Clock, logger *slog.Logger) *Manager {
	return &Manager{
		store:     store,
		machine:   machine,
		clock:     clk,
		logger:    logger,
		sessions:  make(map[uuid.UUID]*Handle),
		byWorkout: make(map[uuid.UUID]uuid.UUID),
	}
}

// Start opens a session for a stored workout. Starting from a template runs
// a fresh instance dated today; that instance is saved when the session
// finishes.
func (m *Manager) Start(ctx context.Context, workoutID uuid.UUID) (*Handle, error) {
	w, err := m.store.GetWorkout(ctx, workoutID)
	if err != nil {
		return nil, fmt.Errorf("loading workout: %w", err)
	}

	sid := uuid.New()
	stored := true
	if w.Date.IsTemplate() {
		w = schedule.Instantiator{Salt: "session/" + sid.String()}.Instantiate(w, m.clock.Now().Local())
		stored = false
	}
	return m.open(sid, w, stored)
}

// StartAdHoc opens a session for a workout that is not in the store yet.
func (m *Manager) StartAdHoc(w models.Workout) (*Handle, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return m.open(uuid.New(), w, false)
}

func (m *Manager) open(sid uuid.UUID, w models.Workout, stored bool) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byWorkout[w.ID]; ok {
		return nil, fmt.Errorf("%s (session %s): %w", w.ID, existing, ErrSessionInProgress)
	}

	h, err := NewHandle(sid, w, m.machine, m.clock, m.logger)
	if err != nil {
		return nil, err
	}
	m.sessions[sid] = h
	m.byWorkout[w.ID] = sid

	h.OnFinish(func(done models.Workout) {
		m.persist(done, stored)
		m.remove(sid)
	})

	m.logger.Info("session started", "session", sid, "workout", w.ID, "name", w.Name, "sets", models.TotalSets(w.Exercises))
	return h, nil
}

func (m *Manager) persist(w models.Workout, stored bool) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	var err error
	if stored {
		err = m.store.UpdateWorkout(ctx, w)
	} else {
		_, err = m.store.SaveWorkout(ctx, w)
	}
	if err != nil {
		m.logger.Error("persisting finished workout", "workout", w.ID, "error", err)
		return
	}
	m.logger.Info("finished workout saved", "workout", w.ID, "date", w.Date)
}

func (m *Manager) remove(sid uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.sessions[sid]
	if !ok {
		return
	}
	delete(m.sessions, sid)
	if m.byWorkout[h.WorkoutID()] == sid {
		delete(m.byWorkout, h.WorkoutID())
	}
}

// Get returns a live session.
func (m *Manager) Get(sid uuid.UUID) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.sessions[sid]
	if !ok {
		return nil, fmt.Errorf("%s: %w", sid, ErrSessionNotFound)
	}
	return h, nil
}

// Abandon discards a live session without persisting anything.
func (m *Manager) Abandon(sid uuid.UUID) error {
	h, err := m.Get(sid)
	if err != nil {
		return err
	}
	if err := h.Abandon(); err != nil {
		return err
	}
	m.remove(sid)
	return nil
}

// Summary describes a live session.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	WorkoutID uuid.UUID `json:"workout_id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// List returns the live sessions, oldest first.
func (m *Manager) List() []Summary {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.sessions))
	for _, h := range m.sessions {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	out := make([]Summary, 0, len(handles))
	for _, h := range handles {
		s := h.State()
		out = append(out, Summary{
			ID:        h.ID(),
			WorkoutID: s.Workout.ID,
			Name:      s.Workout.Name,
			Status:    s.Status,
			StartedAt: s.StartedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Shutdown abandons every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]uuid.UUID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Abandon(id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			m.logger.Warn("abandoning session on shutdown", "session", id, "error", err)
		}
	}
}
