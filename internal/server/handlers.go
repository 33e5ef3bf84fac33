package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/liftplan/internal/ingest/alpha"
	"github.com/claude/liftplan/internal/models"
	"github.com/claude/liftplan/internal/schedule"
	"github.com/claude/liftplan/internal/session"
	"github.com/claude/liftplan/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleSearchExercises(w http.ResponseWriter, r *http.Request) {
	exercises := s.catalog.Search(r.URL.Query().Get("q"))
	if exercises == nil {
		exercises = []models.Exercise{}
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	ex, ok := s.catalog.Lookup(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "exercise not found"})
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	workouts, err := s.store.ListWorkouts(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if workouts == nil {
		workouts = []models.Workout{}
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	workout, err := s.store.GetWorkout(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

// saveResponse mirrors remote.SaveResponse.
type saveResponse struct {
	Inserted bool           `json:"inserted"`
	Workout  models.Workout `json:"workout"`
}

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	var workout models.Workout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if workout.ID == uuid.Nil {
		workout.ID = uuid.New()
	}
	if err := s.resolveExercises(&workout); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := workout.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	inserted, err := s.store.SaveWorkout(r.Context(), workout)
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	writeJSON(w, status, saveResponse{Inserted: inserted, Workout: workout})
}

func (s *Server) handleUpdateWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var workout models.Workout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if workout.ID != uuid.Nil && workout.ID != id {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "workout id does not match path"})
		return
	}
	workout.ID = id
	if err := s.resolveExercises(&workout); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := workout.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.store.UpdateWorkout(r.Context(), workout); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteWorkout(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolveExercises fills exercise descriptors from the catalog when only an
// id was sent, and assigns ids to new exercises and sets.
func (s *Server) resolveExercises(workout *models.Workout) error {
	for i := range workout.Exercises {
		ex := &workout.Exercises[i]
		if ex.ID == uuid.Nil {
			ex.ID = uuid.New()
		}
		if ex.Exercise.Name == "" {
			found, ok := s.catalog.Lookup(ex.Exercise.ID)
			if !ok {
				return fmt.Errorf("exercise %d: unknown catalog id %q", i, ex.Exercise.ID)
			}
			ex.Exercise = found
		}
		for j := range ex.Sets {
			if ex.Sets[j].ID == uuid.Nil {
				ex.Sets[j].ID = uuid.New()
			}
		}
	}
	return nil
}

func (s *Server) handleScheduleWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	spec, ok := decodeSpec(w, r)
	if !ok {
		return
	}
	result, err := s.scheduler.Schedule(r.Context(), id, spec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePreviewRecurrence(w http.ResponseWriter, r *http.Request) {
	spec, ok := decodeSpec(w, r)
	if !ok {
		return
	}
	dates, err := s.scheduler.Preview(spec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dates": schedule.FormatDates(dates),
		"count": len(dates),
	})
}

type estimateRequest struct {
	Exercises   []models.WorkoutExercise `json:"exercises"`
	DurationMin int                      `json:"duration_min"`
}

func (s *Server) handleEstimateCalories(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.DurationMin < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "duration_min must not be negative"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"calories": s.estimator.Estimate(req.Exercises, req.DurationMin),
	})
}

func (s *Server) handleImportTemplates(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "template import is not configured"})
		return
	}
	result, err := s.importer.Import(r.Context(), r.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	workouts, err := s.store.ListWorkouts(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, storage.ComputeStats(workouts))
}

func decodeSpec(w http.ResponseWriter, r *http.Request) (schedule.RecurrenceSpec, bool) {
	var req schedule.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return schedule.RecurrenceSpec{}, false
	}
	spec, err := req.Spec()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return schedule.RecurrenceSpec{}, false
	}
	return spec, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps domain errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, session.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, schedule.ErrNotTemplate),
		errors.Is(err, session.ErrSessionInProgress),
		errors.Is(err, session.ErrSessionFinished),
		errors.Is(err, session.ErrAbandoned),
		errors.Is(err, session.ErrNothingBanked),
		errors.Is(err, session.ErrNotActive),
		errors.Is(err, session.ErrNotPaused),
		errors.Is(err, session.ErrAlreadyComplete):
		status = http.StatusConflict
	case errors.Is(err, session.ErrInvalidReps),
		errors.Is(err, session.ErrNoSets),
		errors.Is(err, session.ErrTemplate),
		errors.Is(err, schedule.ErrMissingStart),
		errors.Is(err, schedule.ErrUnknownCadence),
		errors.Is(err, schedule.ErrInvalidWeekday),
		errors.Is(err, alpha.ErrInvalidExport):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseFilter reads kind, start, end, template_id and completed.
func parseFilter(r *http.Request) (storage.Filter, error) {
	q := r.URL.Query()
	var f storage.Filter

	switch kind := q.Get("kind"); kind {
	case "", models.KindTemplate, models.KindScheduled:
		f.Kind = kind
	default:
		return f, fmt.Errorf("kind must be %q or %q", models.KindTemplate, models.KindScheduled)
	}

	start, end, err := parseTimeRange(r)
	if err != nil {
		return f, err
	}
	f.Start, f.End = start, end

	if v := q.Get("template_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, fmt.Errorf("invalid template_id: %w", err)
		}
		f.TemplateID = &id
	}
	if v := q.Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("invalid completed: %w", err)
		}
		f.Completed = &b
	}
	return f, nil
}

// parseTimeRange reads optional start and end bounds. Both accept RFC3339 or
// a bare date in the local zone; a bare end date includes that whole day.
func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	if v := r.URL.Query().Get("start"); v != "" {
		start, err = time.Parse(time.RFC3339, v)
		if err != nil {
			start, err = time.ParseInLocation(models.DateLayout, v, time.Local)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
			}
		}
	}

	if v := r.URL.Query().Get("end"); v != "" {
		end, err = time.Parse(time.RFC3339, v)
		if err != nil {
			end, err = time.ParseInLocation(models.DateLayout, v, time.Local)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
			}
			// End of day for date-only
			end = end.AddDate(0, 0, 1)
		}
	}
	return start, end, nil
}
