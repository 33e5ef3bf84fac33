package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/claude/liftplan/internal/models"
	"github.com/claude/liftplan/internal/session"
	"github.com/google/uuid"
)

// sessionView is the JSON shape of a live session.
type sessionView struct {
	ID              uuid.UUID           `json:"id"`
	Status          session.Status      `json:"status"`
	ExerciseIndex   int                 `json:"exercise_index"`
	SetIndex        int                 `json:"set_index"`
	BankedReps      int                 `json:"banked_reps"`
	TargetReps      int                 `json:"target_reps"`
	ElapsedSeconds  int                 `json:"elapsed_seconds"`
	StartedAt       time.Time           `json:"started_at"`
	CurrentExercise *models.Exercise    `json:"current_exercise,omitempty"`
	Outcomes        [][]session.Outcome `json:"outcomes"`
	Workout         models.Workout      `json:"workout"`
}

func newSessionView(id uuid.UUID, st session.State) sessionView {
	v := sessionView{
		ID:             id,
		Status:         st.Status,
		ExerciseIndex:  st.ExerciseIndex,
		SetIndex:       st.SetIndex,
		BankedReps:     st.BankedReps,
		TargetReps:     st.TargetReps(),
		ElapsedSeconds: st.ElapsedSeconds,
		StartedAt:      st.StartedAt,
		Outcomes:       st.Outcomes,
		Workout:        st.Workout,
	}
	if ex, ok := st.Current(); ok {
		v.CurrentExercise = &ex.Exercise
	}
	return v
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	h, err := s.sessions.Start(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionView(h.ID(), h.State()))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(h.ID(), h.State()))
}

func (s *Server) handleBank(w http.ResponseWriter, r *http.Request) {
	var req struct {
		N int `json:"n"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.sessionAction(w, r, func(h *session.Handle) (session.State, error) {
		return h.Bank(req.N)
	})
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(w, r, (*session.Handle).CompleteSet)
}

func (s *Server) handleSkipSet(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(w, r, (*session.Handle).SkipSet)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(w, r, (*session.Handle).Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(w, r, (*session.Handle).Resume)
}

func (s *Server) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	sid, ok := pathUUID(w, r, "sid")
	if !ok {
		return
	}
	if err := s.sessions.Abandon(sid); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sessionFromPath(w http.ResponseWriter, r *http.Request) (*session.Handle, bool) {
	sid, ok := pathUUID(w, r, "sid")
	if !ok {
		return nil, false
	}
	h, err := s.sessions.Get(sid)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return h, true
}

func (s *Server) sessionAction(w http.ResponseWriter, r *http.Request, action func(*session.Handle) (session.State, error)) {
	h, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	st, err := action(h)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(h.ID(), st))
}
