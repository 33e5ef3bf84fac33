package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/claude/liftplan/internal/calories"
	"github.com/claude/liftplan/internal/catalog"
	"github.com/claude/liftplan/internal/ingest/alpha"
	"github.com/claude/liftplan/internal/schedule"
	"github.com/claude/liftplan/internal/session"
	"github.com/claude/liftplan/internal/storage"
	"github.com/go-chi/chi/v5"
)

// Deps are the services the HTTP handlers call into.
type Deps struct {
	Store     storage.Store
	Scheduler *schedule.Scheduler
	Sessions  *session.Manager
	Catalog   *catalog.Catalog
	Estimator calories.Estimator
	Importer  *alpha.Importer
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store     storage.Store
	scheduler *schedule.Scheduler
	sessions  *session.Manager
	catalog   *catalog.Catalog
	estimator calories.Estimator
	importer  *alpha.Importer
	log       *slog.Logger
	apiKey    string
	router    chi.Router

	mu    sync.RWMutex
	whois WhoIser
}

// New creates a new Server with all routes configured.
func New(deps Deps, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		store:     deps.Store,
		scheduler: deps.Scheduler,
		sessions:  deps.Sessions,
		catalog:   deps.Catalog,
		estimator: deps.Estimator,
		importer:  deps.Importer,
		log:       log,
		apiKey:    apiKey,
		router:    chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches request identity from the dev user to the tailnet
// user behind each connection.
func (s *Server) SetTailscale(whois WhoIser) {
	s.mu.Lock()
	s.whois = whois
	s.mu.Unlock()
}

func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		whois := s.whois
		s.mu.RUnlock()
		if whois == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(whois, s.log)(next).ServeHTTP(w, r)
	})
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identity)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Reads (no auth; tsnet handles access)
		r.Get("/me", s.handleMe)
		r.Get("/exercises", s.handleSearchExercises)
		r.Get("/exercises/{id}", s.handleGetExercise)
		r.Get("/workouts", s.handleListWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Get("/stats", s.handleStats)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{sid}", s.handleGetSession)

		// Pure computations
		r.Post("/recurrence/preview", s.handlePreviewRecurrence)
		r.Post("/calories/estimate", s.handleEstimateCalories)

		// Writes (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/workouts", s.handleCreateWorkout)
			r.Put("/workouts/{id}", s.handleUpdateWorkout)
			r.Delete("/workouts/{id}", s.handleDeleteWorkout)
			r.Post("/workouts/{id}/schedule", s.handleScheduleWorkout)
			r.Post("/workouts/{id}/sessions", s.handleStartSession)
			r.Post("/templates/import", s.handleImportTemplates)
			r.Post("/sessions/{sid}/bank", s.handleBank)
			r.Post("/sessions/{sid}/complete", s.handleCompleteSet)
			r.Post("/sessions/{sid}/skip", s.handleSkipSet)
			r.Post("/sessions/{sid}/pause", s.handlePause)
			r.Post("/sessions/{sid}/resume", s.handleResume)
			r.Delete("/sessions/{sid}", s.handleAbandonSession)
		})
	})
}
