package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/liftplan/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// LocalDB is a single-file SQLite Store for running without Postgres.
// Dates are stored as YYYY-MM-DD text so lexical order is calendar order.
type LocalDB struct {
	db *sql.DB
}

var _ Store = (*LocalDB)(nil)

// OpenLocal opens (or creates) the SQLite database at path.
func OpenLocal(path string) (*LocalDB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening local db: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under parallel scheduling saves.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS workouts (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		kind            TEXT NOT NULL,
		scheduled_date  TEXT,
		template_id     TEXT,
		completed       INTEGER NOT NULL DEFAULT 0,
		duration_min    INTEGER,
		start_time      TEXT,
		end_time        TEXT,
		calories_burned INTEGER,
		notes           TEXT NOT NULL DEFAULT '',
		exercises       TEXT NOT NULL DEFAULT '[]',
		created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating workouts table: %w", err)
	}

	return &LocalDB{db: db}, nil
}

// Close closes the database.
func (l *LocalDB) Close() error {
	return l.db.Close()
}

func (l *LocalDB) SaveWorkout(ctx context.Context, w models.Workout) (bool, error) {
	args, err := localArgs(w)
	if err != nil {
		return false, err
	}
	res, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO workouts (`+workoutColumns+`)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	if err != nil {
		return false, fmt.Errorf("inserting workout: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *LocalDB) UpdateWorkout(ctx context.Context, w models.Workout) error {
	args, err := localArgs(w)
	if err != nil {
		return err
	}
	// id moves from first to last to match the WHERE clause.
	args = append(args[1:], args[0])
	res, err := l.db.ExecContext(ctx,
		`UPDATE workouts SET name = ?, kind = ?, scheduled_date = ?, template_id = ?,
		 completed = ?, duration_min = ?, start_time = ?, end_time = ?,
		 calories_burned = ?, notes = ?, exercises = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating workout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", w.ID, ErrNotFound)
	}
	return nil
}

func (l *LocalDB) DeleteWorkout(ctx context.Context, id uuid.UUID) error {
	res, err := l.db.ExecContext(ctx, `DELETE FROM workouts WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("deleting workout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

func (l *LocalDB) GetWorkout(ctx context.Context, id uuid.UUID) (models.Workout, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = ?`, id.String())
	w, err := scanLocalWorkout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Workout{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Workout{}, fmt.Errorf("querying workout: %w", err)
	}
	return w, nil
}

func (l *LocalDB) ListWorkouts(ctx context.Context, f Filter) ([]models.Workout, error) {
	where, args := filterClause(f, func(int) string { return "?" })
	for i, a := range args {
		switch v := a.(type) {
		case time.Time:
			args[i] = v.Format(models.DateLayout)
		case uuid.UUID:
			args[i] = v.String()
		}
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+workoutColumns+` FROM workouts`+where+`
		 ORDER BY scheduled_date IS NOT NULL, scheduled_date ASC, name ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []models.Workout
	for rows.Next() {
		w, err := scanLocalWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func localArgs(w models.Workout) ([]any, error) {
	row, err := models.NewWorkoutRow(w)
	if err != nil {
		return nil, err
	}
	var date, tmpl, start, end any
	if row.ScheduledDate != nil {
		date = row.ScheduledDate.Format(models.DateLayout)
	}
	if row.TemplateID != nil {
		tmpl = row.TemplateID.String()
	}
	if row.StartTime != nil {
		start = row.StartTime.Format(time.RFC3339Nano)
	}
	if row.EndTime != nil {
		end = row.EndTime.Format(time.RFC3339Nano)
	}
	return []any{
		row.ID.String(), row.Name, row.Kind, date, tmpl, row.Completed,
		row.DurationMin, start, end, row.CaloriesBurned, row.Notes, string(row.Exercises),
	}, nil
}

func scanLocalWorkout(row rowScanner) (models.Workout, error) {
	var (
		r              models.WorkoutRow
		id             string
		date, tmpl     sql.NullString
		start, end     sql.NullString
		duration, kcal sql.NullInt64
		exercises      string
	)
	if err := row.Scan(&id, &r.Name, &r.Kind, &date, &tmpl, &r.Completed,
		&duration, &start, &end, &kcal, &r.Notes, &exercises); err != nil {
		return models.Workout{}, err
	}

	var err error
	if r.ID, err = uuid.Parse(id); err != nil {
		return models.Workout{}, fmt.Errorf("parsing id: %w", err)
	}
	if date.Valid {
		d, err := time.ParseInLocation(models.DateLayout, date.String, time.Local)
		if err != nil {
			return models.Workout{}, fmt.Errorf("parsing scheduled_date: %w", err)
		}
		r.ScheduledDate = &d
	}
	if tmpl.Valid {
		t, err := uuid.Parse(tmpl.String)
		if err != nil {
			return models.Workout{}, fmt.Errorf("parsing template_id: %w", err)
		}
		r.TemplateID = &t
	}
	if r.StartTime, err = parseNullTime(start); err != nil {
		return models.Workout{}, err
	}
	if r.EndTime, err = parseNullTime(end); err != nil {
		return models.Workout{}, err
	}
	if duration.Valid {
		v := int(duration.Int64)
		r.DurationMin = &v
	}
	if kcal.Valid {
		v := int(kcal.Int64)
		r.CaloriesBurned = &v
	}
	r.Exercises = []byte(exercises)
	return r.Workout()
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp %q: %w", s.String, err)
	}
	return &t, nil
}
