package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/liftplan/internal/calories"
	"github.com/claude/liftplan/internal/catalog"
	"github.com/claude/liftplan/internal/clock"
	"github.com/claude/liftplan/internal/ingest/alpha"
	"github.com/claude/liftplan/internal/models"
	"github.com/claude/liftplan/internal/schedule"
	"github.com/claude/liftplan/internal/session"
	"github.com/claude/liftplan/internal/storage"
	"github.com/google/uuid"
)

const testAPIKey = "test-key"

type testEnv struct {
	srv   *Server
	store *storage.Memory
	clock *clock.Manual
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemory()
	clk := clock.NewManual(time.Date(2024, 1, 1, 18, 0, 0, 0, time.Local))
	est := calories.Default()
	sessions := session.NewManager(store, session.Machine{Estimator: est}, clk, log)
	t.Cleanup(sessions.Shutdown)

	srv := New(Deps{
		Store:     store,
		Scheduler: schedule.NewScheduler(store, schedule.DefaultExpander(), schedule.Instantiator{}, 2, log),
		Sessions:  sessions,
		Catalog:   catalog.Default(),
		Estimator: est,
		Importer:  alpha.NewImporter(store, catalog.Default(), log),
	}, testAPIKey, log)
	return &testEnv{srv: srv, store: store, clock: clk}
}

// do sends a request through the router. Writes carry the API key.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if method != http.MethodGet {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func legDay() models.Workout {
	return models.Workout{
		ID:   uuid.New(),
		Name: "Leg Day",
		Date: models.TemplateDate(),
		Exercises: []models.WorkoutExercise{{
			Exercise: models.Exercise{ID: "back-squat"},
			Sets:     []models.WorkoutSet{{Reps: 5}, {Reps: 5}},
		}},
	}
}

// TestWritesRequireAPIKey verifies write routes reject missing and wrong keys.
func TestWritesRequireAPIKey(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing key: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/workouts", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong key: status = %d, want 403", rec.Code)
	}
}

// TestWorkoutCRUD walks a template through create, read, update and delete.
func TestWorkoutCRUD(t *testing.T) {
	env := newTestEnv(t)
	tmpl := legDay()

	rec := env.do(t, http.MethodPost, "/api/v1/workouts", tmpl)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201 (%s)", rec.Code, rec.Body)
	}
	created := decode[saveResponse](t, rec)
	if !created.Inserted {
		t.Error("create reported not inserted")
	}
	ex := created.Workout.Exercises[0]
	if ex.Exercise.Name != "Back Squat" {
		t.Errorf("exercise not resolved from catalog: %+v", ex.Exercise)
	}
	if ex.ID == uuid.Nil || ex.Sets[0].ID == uuid.Nil {
		t.Error("exercise and set ids not assigned")
	}

	rec = env.do(t, http.MethodPost, "/api/v1/workouts", created.Workout)
	if rec.Code != http.StatusOK {
		t.Errorf("duplicate create: status = %d, want 200", rec.Code)
	}
	if decode[saveResponse](t, rec).Inserted {
		t.Error("duplicate create reported inserted")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/workouts/"+tmpl.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}
	got := decode[models.Workout](t, rec)
	if !got.Date.IsTemplate() {
		t.Errorf("date = %s, want template", got.Date)
	}

	got.Name = "Leg Day (heavy)"
	rec = env.do(t, http.MethodPut, "/api/v1/workouts/"+tmpl.ID.String(), got)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d (%s)", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/workouts?kind=template", nil)
	list := decode[[]models.Workout](t, rec)
	if len(list) != 1 || list[0].Name != "Leg Day (heavy)" {
		t.Errorf("list after update = %+v", list)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/workouts/"+tmpl.ID.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d, want 204", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/workouts/"+tmpl.ID.String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", rec.Code)
	}
}

// TestCreateWorkoutRejectsInvalid covers unknown catalog ids and missing names.
func TestCreateWorkoutRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)

	unknown := legDay()
	unknown.Exercises[0].Exercise.ID = "no-such-lift"
	if rec := env.do(t, http.MethodPost, "/api/v1/workouts", unknown); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown exercise: status = %d, want 400", rec.Code)
	}

	nameless := legDay()
	nameless.Name = ""
	if rec := env.do(t, http.MethodPost, "/api/v1/workouts", nameless); rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d, want 400", rec.Code)
	}

	mismatch := legDay()
	if rec := env.do(t, http.MethodPut, "/api/v1/workouts/"+uuid.NewString(), mismatch); rec.Code != http.StatusBadRequest {
		t.Errorf("id mismatch: status = %d, want 400", rec.Code)
	}
}

// TestScheduleWorkout expands a template and lists the created instances.
func TestScheduleWorkout(t *testing.T) {
	env := newTestEnv(t)
	tmpl := legDay()
	env.do(t, http.MethodPost, "/api/v1/workouts", tmpl)

	req := schedule.Request{StartDate: "2024-01-01", Days: []string{"mon", "wed"}, Cadence: "weekly"}
	rec := env.do(t, http.MethodPost, "/api/v1/workouts/"+tmpl.ID.String()+"/schedule", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("schedule: status = %d (%s)", rec.Code, rec.Body)
	}
	res := decode[schedule.Result](t, rec)
	if res.Created == 0 || res.Created != len(res.Dates) || res.Skipped != 0 {
		t.Errorf("result = created %d skipped %d dates %d", res.Created, res.Skipped, len(res.Dates))
	}
	if res.Dates[0] != "2024-01-01" || res.Dates[1] != "2024-01-03" {
		t.Errorf("first dates = %v", res.Dates[:2])
	}

	// A bare end date includes that day.
	rec = env.do(t, http.MethodGet, "/api/v1/workouts?kind=scheduled&start=2024-01-01&end=2024-01-07", nil)
	week := decode[[]models.Workout](t, rec)
	if len(week) != 2 {
		t.Errorf("first week has %d instances, want 2", len(week))
	}

	rec = env.do(t, http.MethodPost, "/api/v1/workouts/"+tmpl.ID.String()+"/schedule", req)
	again := decode[schedule.Result](t, rec)
	if again.Created != 0 || again.Skipped != res.Created {
		t.Errorf("rescheduling: created %d skipped %d, want 0 and %d", again.Created, again.Skipped, res.Created)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/workouts/"+week[0].ID.String()+"/schedule", req)
	if rec.Code != http.StatusConflict {
		t.Errorf("scheduling an instance: status = %d, want 409", rec.Code)
	}

	bad := schedule.Request{StartDate: "2024-01-01", Days: []string{"mon"}, Cadence: "daily"}
	rec = env.do(t, http.MethodPost, "/api/v1/workouts/"+tmpl.ID.String()+"/schedule", bad)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown cadence: status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/workouts/"+uuid.NewString()+"/schedule", req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown template: status = %d, want 404", rec.Code)
	}
}

// TestPreviewRecurrence returns dates without persisting anything.
func TestPreviewRecurrence(t *testing.T) {
	env := newTestEnv(t)

	req := schedule.Request{StartDate: "2024-01-01", Days: []string{"monday"}, Cadence: "monthly"}
	rec := env.do(t, http.MethodPost, "/api/v1/recurrence/preview", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body)
	}
	type preview struct {
		Dates []string `json:"dates"`
		Count int      `json:"count"`
	}
	body := decode[preview](t, rec)
	want := []string{"2024-01-01", "2024-02-05", "2024-03-04"}
	if body.Count != len(want) {
		t.Fatalf("count = %d, want %d (%v)", body.Count, len(want), body.Dates)
	}
	for i := range want {
		if body.Dates[i] != want[i] {
			t.Errorf("dates[%d] = %s, want %s", i, body.Dates[i], want[i])
		}
	}

	all, _ := env.store.ListWorkouts(context.Background(), storage.Filter{})
	if len(all) != 0 {
		t.Errorf("preview persisted %d workouts", len(all))
	}

	rec = env.do(t, http.MethodPost, "/api/v1/recurrence/preview", schedule.Request{Days: []string{"mon"}, Cadence: "weekly"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing start: status = %d, want 400", rec.Code)
	}
}

// TestEstimateCalories matches the configured estimator.
func TestEstimateCalories(t *testing.T) {
	env := newTestEnv(t)
	exercises := []models.WorkoutExercise{{
		Exercise: models.Exercise{ID: "running", Name: "Running", Category: "Cardio"},
		Sets:     []models.WorkoutSet{{Reps: 1}},
	}}

	rec := env.do(t, http.MethodPost, "/api/v1/calories/estimate", estimateRequest{Exercises: exercises, DurationMin: 30})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[map[string]int](t, rec)
	if want := calories.Default().Estimate(exercises, 30); got["calories"] != want {
		t.Errorf("calories = %d, want %d", got["calories"], want)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/calories/estimate", estimateRequest{DurationMin: -1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative duration: status = %d, want 400", rec.Code)
	}
}

// TestSessionFlow runs a scheduled workout to completion over HTTP.
func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t)
	inst := schedule.Instantiate(legDay(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local))
	inst.Exercises[0].Exercise = models.Exercise{ID: "back-squat", Name: "Back Squat", Category: "Strength"}
	if _, err := env.store.SaveWorkout(context.Background(), inst); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/workouts/"+inst.ID.String()+"/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: status = %d (%s)", rec.Code, rec.Body)
	}
	view := decode[sessionView](t, rec)
	if view.Status != session.StatusActive || view.TargetReps != 5 {
		t.Errorf("start view = %+v", view)
	}
	if view.CurrentExercise == nil || view.CurrentExercise.ID != "back-squat" {
		t.Errorf("current exercise = %+v", view.CurrentExercise)
	}
	base := "/api/v1/sessions/" + view.ID.String()

	if rec := env.do(t, http.MethodPost, "/api/v1/workouts/"+inst.ID.String()+"/sessions", nil); rec.Code != http.StatusConflict {
		t.Errorf("second start: status = %d, want 409", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, base+"/complete", nil); rec.Code != http.StatusConflict {
		t.Errorf("complete with nothing banked: status = %d, want 409", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, base+"/bank", map[string]int{"n": 0}); rec.Code != http.StatusBadRequest {
		t.Errorf("bank 0: status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, base+"/bank", map[string]int{"n": 8})
	if v := decode[sessionView](t, rec); v.BankedReps != 5 {
		t.Errorf("banked = %d, want clamp to 5", v.BankedReps)
	}
	rec = env.do(t, http.MethodPost, base+"/complete", nil)
	if v := decode[sessionView](t, rec); v.SetIndex != 1 || v.BankedReps != 0 {
		t.Errorf("after complete: set %d banked %d", v.SetIndex, v.BankedReps)
	}

	if rec := env.do(t, http.MethodPost, base+"/pause", nil); rec.Code != http.StatusOK {
		t.Errorf("pause: status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, base+"/pause", nil); rec.Code != http.StatusConflict {
		t.Errorf("second pause: status = %d, want 409", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, base+"/resume", nil); rec.Code != http.StatusOK {
		t.Errorf("resume: status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, base+"/skip", nil)
	final := decode[sessionView](t, rec)
	if final.Status != session.StatusFinished || !final.Workout.Completed {
		t.Fatalf("after last skip: status %s completed %v", final.Status, final.Workout.Completed)
	}

	if rec := env.do(t, http.MethodGet, base, nil); rec.Code != http.StatusNotFound {
		t.Errorf("finished session still live: status = %d", rec.Code)
	}

	stored, err := env.store.GetWorkout(context.Background(), inst.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Completed || stored.CaloriesBurned == nil || stored.EndTime == nil {
		t.Errorf("stored workout not completed: %+v", stored)
	}
	sets := stored.Exercises[0].Sets
	if !sets[0].Completed || sets[0].Reps != 5 || sets[1].Completed {
		t.Errorf("stored sets = %+v", sets)
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/workouts/"+inst.ID.String()+"/sessions", nil); rec.Code != http.StatusConflict {
		t.Errorf("restarting a completed workout: status = %d, want 409", rec.Code)
	}
}

// TestAbandonSession discards a session started from a template.
func TestAbandonSession(t *testing.T) {
	env := newTestEnv(t)
	tmpl := legDay()
	env.do(t, http.MethodPost, "/api/v1/workouts", tmpl)

	rec := env.do(t, http.MethodPost, "/api/v1/workouts/"+tmpl.ID.String()+"/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: status = %d (%s)", rec.Code, rec.Body)
	}
	view := decode[sessionView](t, rec)
	if view.Workout.TemplateID == nil || *view.Workout.TemplateID != tmpl.ID {
		t.Errorf("session workout is not an instance of the template: %+v", view.Workout.TemplateID)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/sessions", nil)
	if list := decode[[]session.Summary](t, rec); len(list) != 1 {
		t.Errorf("live sessions = %d, want 1", len(list))
	}

	if rec := env.do(t, http.MethodDelete, "/api/v1/sessions/"+view.ID.String(), nil); rec.Code != http.StatusNoContent {
		t.Errorf("abandon: status = %d, want 204", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/v1/sessions/"+view.ID.String(), nil); rec.Code != http.StatusNotFound {
		t.Errorf("second abandon: status = %d, want 404", rec.Code)
	}

	all, _ := env.store.ListWorkouts(context.Background(), storage.Filter{Kind: models.KindScheduled})
	if len(all) != 0 {
		t.Errorf("abandoned session persisted %d workouts", len(all))
	}
}

// TestImportTemplates posts an Alpha Progression export and re-imports it.
func TestImportTemplates(t *testing.T) {
	env := newTestEnv(t)
	export := `
"Pull";"2024-01-02 6:30 h";"0:55 hr"
"1. Deadlift · Barbell · 5 reps";"WU1 · 60 kg · 5 reps"
#;KG;REPS;RIR
1;140;5;2
2;140;5;1
"2. Face Pulls · Cable · 15 reps"
#;KG;REPS;RIR
1;20;15;2
`
	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/templates/import", bytes.NewBufferString(export))
		req.Header.Set("X-API-Key", testAPIKey)
		rec := httptest.NewRecorder()
		env.srv.ServeHTTP(rec, req)
		return rec
	}

	rec := post()
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body)
	}
	first := decode[alpha.Result](t, rec)
	if first.Created != 1 || len(first.TemplateIDs) != 1 {
		t.Fatalf("first import = %+v", first)
	}
	if len(first.Unmatched) != 1 || first.Unmatched[0] != "Face Pulls" {
		t.Errorf("unmatched = %v, want [Face Pulls]", first.Unmatched)
	}

	got, err := env.store.GetWorkout(context.Background(), first.TemplateIDs[0])
	if err != nil {
		t.Fatal(err)
	}
	if !got.Date.IsTemplate() || got.Exercises[0].Exercise.ID != "deadlift" {
		t.Errorf("stored template = %+v", got)
	}

	again := decode[alpha.Result](t, post())
	if again.Created != 0 || again.Skipped != 1 {
		t.Errorf("re-import = %+v", again)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/templates/import", bytes.NewBufferString("1;100;5;1\n"))
	req.Header.Set("X-API-Key", testAPIKey)
	bad := httptest.NewRecorder()
	env.srv.ServeHTTP(bad, req)
	if bad.Code != http.StatusBadRequest {
		t.Errorf("malformed export status = %d, want 400", bad.Code)
	}
}

// TestStatsEndpoint aggregates stored workouts.
func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	tmpl := legDay()
	env.do(t, http.MethodPost, "/api/v1/workouts", tmpl)
	env.do(t, http.MethodPost, "/api/v1/workouts/"+tmpl.ID.String()+"/schedule",
		schedule.Request{StartDate: "2024-01-01", Days: []string{"mon"}, Cadence: "monthly"})

	rec := env.do(t, http.MethodGet, "/api/v1/stats", nil)
	stats := decode[storage.Stats](t, rec)
	if stats.Templates != 1 || stats.Scheduled != 3 || stats.Completed != 0 {
		t.Errorf("stats = %+v", stats)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/stats?kind=bogus", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind: status = %d, want 400", rec.Code)
	}
}

// TestExerciseEndpoints searches and looks up the catalog.
func TestExerciseEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/exercises?q=squat", nil)
	found := decode[[]models.Exercise](t, rec)
	if len(found) == 0 {
		t.Fatal("search for squat found nothing")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/exercises/bench-press", nil)
	if ex := decode[models.Exercise](t, rec); ex.Name != "Bench Press" {
		t.Errorf("lookup = %+v", ex)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/exercises/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown exercise: status = %d, want 404", rec.Code)
	}
}

// TestParseTimeRange covers optional bounds and date-only ends.
func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{"none", "", time.Time{}, time.Time{}, false},
		{"dates", "start=2024-01-01&end=2024-01-07",
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), time.Date(2024, 1, 8, 0, 0, 0, 0, time.Local), false},
		{"rfc3339", "start=2024-01-01T10:00:00Z&end=2024-01-02T10:00:00Z",
			time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), false},
		{"bad start", "start=yesterday", time.Time{}, time.Time{}, true},
		{"bad end", "end=2024-13-01", time.Time{}, time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			start, end, err := parseTimeRange(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("range = [%s, %s), want [%s, %s)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}
