package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftplan/internal/clock"
	"github.com/claude/liftplan/internal/models"
	"github.com/google/uuid"
)

// ErrAbandoned is returned by every action on an abandoned session.
var ErrAbandoned = errors.New("session was abandoned")

// TickInterval is the period of elapsed-time ticks.
const TickInterval = time.Second

// Handle is one live session. It serializes user actions and clock ticks
// through the Machine and keeps a ticker running only while active.
type Handle struct {
	id      uuid.UUID
	machine Machine
	clock   clock.Clock
	logger  *slog.Logger

	mu        sync.Mutex
	initial   State
	state     State
	events    []Event
	abandoned bool
	onFinish  []func(models.Workout)

	// Current ticker generation; nil while not active.
	ticker   clock.Ticker
	stopTick chan struct{}
	tickDone chan struct{}

	done     chan struct{}
	doneOnce sync.Once
}

// NewHandle starts a session for w at the clock's current time.
func NewHandle(id uuid.UUID, w models.Workout, machine Machine, clk clock.Clock, logger *slog.Logger) (*Handle, error) {
	s, err := NewState(w, clk.Now())
	if err != nil {
		return nil, err
	}
	h := &Handle{
		id:      id,
		machine: machine,
		clock:   clk,
		logger:  logger,
		initial: s,
		state:   s,
		done:    make(chan struct{}),
	}
	h.mu.Lock()
	h.startTicker()
	h.mu.Unlock()
	return h, nil
}

// ID returns the session id.
func (h *Handle) ID() uuid.UUID { return h.id }

// WorkoutID returns the id of the workout being run.
func (h *Handle) WorkoutID() uuid.UUID { return h.initial.Workout.ID }

// State returns the current snapshot.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Events returns the accepted events in order.
func (h *Handle) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// Initial returns the state the session started from.
func (h *Handle) Initial() State {
	return h.initial
}

// Done is closed once the session has finished (after finish callbacks ran)
// or was abandoned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// OnFinish registers fn to receive the completed workout. Callbacks run
// once, in registration order. Registering after finish runs fn immediately.
func (h *Handle) OnFinish(fn func(models.Workout)) {
	h.mu.Lock()
	if w, ok := h.state.Finished(); ok {
		h.mu.Unlock()
		fn(w)
		return
	}
	h.onFinish = append(h.onFinish, fn)
	h.mu.Unlock()
}

func (h *Handle) Bank(n int) (State, error) {
	return h.apply(Bank{N: n})
}

func (h *Handle) CompleteSet() (State, error) {
	return h.apply(CompleteSet{At: h.clock.Now()})
}

func (h *Handle) SkipSet() (State, error) {
	return h.apply(SkipSet{At: h.clock.Now()})
}

func (h *Handle) Pause() (State, error) {
	return h.apply(Pause{})
}

func (h *Handle) Resume() (State, error) {
	return h.apply(Resume{})
}

// Abandon discards the session. Finish callbacks never run.
func (h *Handle) Abandon() error {
	h.mu.Lock()
	if h.abandoned {
		h.mu.Unlock()
		return ErrAbandoned
	}
	if h.state.Status == StatusFinished {
		h.mu.Unlock()
		return ErrSessionFinished
	}
	h.abandoned = true
	h.onFinish = nil
	exited := h.stopTicker()
	h.mu.Unlock()

	waitTicker(exited)
	h.doneOnce.Do(func() { close(h.done) })
	h.logger.Info("session abandoned", "session", h.id, "workout", h.WorkoutID())
	return nil
}

func (h *Handle) apply(e Event) (State, error) {
	h.mu.Lock()
	if h.abandoned {
		s := h.state
		h.mu.Unlock()
		return s, ErrAbandoned
	}

	next, err := h.machine.Apply(h.state, e)
	if err != nil {
		h.mu.Unlock()
		return next, err
	}
	h.state = next
	h.events = append(h.events, e)

	var exited chan struct{}
	switch next.Status {
	case StatusActive:
		h.startTicker()
	default:
		exited = h.stopTicker()
	}

	finished, ok := next.Finished()
	var callbacks []func(models.Workout)
	if ok {
		callbacks = h.onFinish
		h.onFinish = nil
	}
	h.mu.Unlock()

	waitTicker(exited)
	if ok {
		h.logger.Info("session finished",
			"session", h.id,
			"workout", finished.ID,
			"duration_min", *finished.DurationMin,
			"calories", *finished.CaloriesBurned,
		)
		for _, fn := range callbacks {
			fn(finished.Clone())
		}
		h.doneOnce.Do(func() { close(h.done) })
	}
	return next, nil
}

// startTicker starts the tick goroutine if none is running. Caller holds mu.
func (h *Handle) startTicker() {
	if h.ticker != nil {
		return
	}
	t := h.clock.NewTicker(TickInterval)
	stop := make(chan struct{})
	exited := make(chan struct{})
	h.ticker, h.stopTick, h.tickDone = t, stop, exited

	go func() {
		defer close(exited)
		for {
			select {
			case <-stop:
				return
			case <-t.C():
				h.tick(stop)
			}
		}
	}()
}

// stopTicker stops the current ticker and returns a channel closed when its
// goroutine has exited. Caller holds mu.
func (h *Handle) stopTicker() chan struct{} {
	if h.ticker == nil {
		return nil
	}
	h.ticker.Stop()
	close(h.stopTick)
	exited := h.tickDone
	h.ticker, h.stopTick, h.tickDone = nil, nil, nil
	return exited
}

// tick applies a Tick if gen is still the live ticker generation.
func (h *Handle) tick(gen chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopTick != gen || h.abandoned {
		return
	}
	next, err := h.machine.Apply(h.state, Tick{})
	if err != nil {
		return
	}
	h.state = next
	h.events = append(h.events, Tick{})
}

func waitTicker(exited chan struct{}) {
	if exited != nil {
		<-exited
	}
}
