package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claude/liftplan/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ Store = (*DB)(nil)

const workoutColumns = `id, name, kind, scheduled_date, template_id, completed, duration_min,
	 start_time, end_time, calories_burned, notes, exercises`

// SaveWorkout inserts a workout row. Returns true if inserted, false if duplicate.
func (db *DB) SaveWorkout(ctx context.Context, w models.Workout) (bool, error) {
	row, err := models.NewWorkoutRow(w)
	if err != nil {
		return false, err
	}
	tag, err := db.Pool.Exec(ctx,
		`INSERT INTO workouts (`+workoutColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (id) DO NOTHING`,
		row.ID, row.Name, row.Kind, row.ScheduledDate, row.TemplateID, row.Completed,
		row.DurationMin, row.StartTime, row.EndTime, row.CaloriesBurned, row.Notes, row.Exercises)
	if err != nil {
		return false, fmt.Errorf("inserting workout: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateWorkout replaces every column of an existing workout.
func (db *DB) UpdateWorkout(ctx context.Context, w models.Workout) error {
	row, err := models.NewWorkoutRow(w)
	if err != nil {
		return err
	}
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workouts SET name = $2, kind = $3, scheduled_date = $4, template_id = $5,
		 completed = $6, duration_min = $7, start_time = $8, end_time = $9,
		 calories_burned = $10, notes = $11, exercises = $12, updated_at = NOW()
		 WHERE id = $1`,
		row.ID, row.Name, row.Kind, row.ScheduledDate, row.TemplateID, row.Completed,
		row.DurationMin, row.StartTime, row.EndTime, row.CaloriesBurned, row.Notes, row.Exercises)
	if err != nil {
		return fmt.Errorf("updating workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", w.ID, ErrNotFound)
	}
	return nil
}

// DeleteWorkout removes a workout by id.
func (db *DB) DeleteWorkout(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workouts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// GetWorkout retrieves a single workout by ID.
func (db *DB) GetWorkout(ctx context.Context, id uuid.UUID) (models.Workout, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = $1`, id)

	w, err := scanWorkout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Workout{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Workout{}, fmt.Errorf("querying workout: %w", err)
	}
	return w, nil
}

// ListWorkouts retrieves workouts matching f, templates first, then by date.
func (db *DB) ListWorkouts(ctx context.Context, f Filter) ([]models.Workout, error) {
	where, args := filterClause(f, func(n int) string { return fmt.Sprintf("$%d", n) })
	rows, err := db.Pool.Query(ctx,
		`SELECT `+workoutColumns+` FROM workouts`+where+`
		 ORDER BY scheduled_date ASC NULLS FIRST, name ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []models.Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// filterClause renders f as a WHERE clause; placeholder formats the n-th bind.
func filterClause(f Filter, placeholder func(n int) string) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.Replace(cond, "?", placeholder(len(args)), 1))
	}

	switch f.Kind {
	case models.KindTemplate, models.KindScheduled:
		add("kind = ?", f.Kind)
	}
	if f.hasRange() {
		conds = append(conds, "scheduled_date IS NOT NULL")
	}
	if !f.Start.IsZero() {
		add("scheduled_date >= ?", models.StartOfDay(f.Start))
	}
	if !f.End.IsZero() {
		// End is exclusive; a mid-day end still includes that calendar day.
		add("scheduled_date < ?", dateCeil(f.End))
	}
	if f.TemplateID != nil {
		add("template_id = ?", *f.TemplateID)
	}
	if f.Completed != nil {
		add("completed = ?", *f.Completed)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func dateCeil(end time.Time) time.Time {
	if day := models.StartOfDay(end); !day.Equal(end) {
		return day.AddDate(0, 0, 1)
	}
	return end
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkout(row rowScanner) (models.Workout, error) {
	var r models.WorkoutRow
	if err := row.Scan(&r.ID, &r.Name, &r.Kind, &r.ScheduledDate, &r.TemplateID, &r.Completed,
		&r.DurationMin, &r.StartTime, &r.EndTime, &r.CaloriesBurned, &r.Notes, &r.Exercises); err != nil {
		return models.Workout{}, err
	}
	return r.Workout()
}
