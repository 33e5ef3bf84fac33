package alpha

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/claude/liftplan/internal/catalog"
	"github.com/claude/liftplan/internal/models"
	"github.com/google/uuid"
)

// templateNamespace seeds template ids so re-importing an export is a no-op.
var templateNamespace = uuid.MustParse("0b7c5a8e-3f1d-4c2a-9e6b-5d8f7a1c2e40")

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// ErrInvalidExport wraps every parse failure returned by Import.
var ErrInvalidExport = errors.New("invalid alpha export")

// TemplateStore is the persistence the importer needs.
type TemplateStore interface {
	SaveWorkout(ctx context.Context, w models.Workout) (bool, error)
}

// Result reports the outcome of an import.
type Result struct {
	SessionsParsed int         `json:"sessions_parsed"`
	Created        int         `json:"created"`
	Skipped        int         `json:"skipped"`
	TemplateIDs    []uuid.UUID `json:"template_ids"`
	Unmatched      []string    `json:"unmatched_exercises,omitempty"`
}

// Importer converts exports into templates and stores them.
type Importer struct {
	store   TemplateStore
	catalog *catalog.Catalog
	log     *slog.Logger
}

// NewImporter creates an Importer resolving exercise names against cat.
func NewImporter(store TemplateStore, cat *catalog.Catalog, log *slog.Logger) *Importer {
	return &Importer{store: store, catalog: cat, log: log}
}

// Import parses an export and saves one template per distinct session name.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExport, err)
	}

	templates, unmatched := Templates(sessions, im.catalog)
	result := &Result{
		SessionsParsed: len(sessions),
		TemplateIDs:    make([]uuid.UUID, 0, len(templates)),
		Unmatched:      unmatched,
	}
	for _, t := range templates {
		inserted, err := im.store.SaveWorkout(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("saving template %q: %w", t.Name, err)
		}
		if inserted {
			result.Created++
		} else {
			result.Skipped++
		}
		result.TemplateIDs = append(result.TemplateIDs, t.ID)
	}

	im.log.Info("alpha export imported",
		"sessions", len(sessions),
		"created", result.Created,
		"skipped", result.Skipped,
		"unmatched", len(unmatched),
	)
	return result, nil
}

// Templates builds one template per session name from the most recent
// session carrying it, in first-seen order. Exercise names that the catalog
// does not know are returned as unmatched and kept as custom exercises.
func Templates(sessions []Session, cat *catalog.Catalog) ([]models.Workout, []string) {
	latest := make(map[string]Session)
	var order []string
	for _, s := range sessions {
		prev, seen := latest[s.Name]
		if !seen {
			order = append(order, s.Name)
		}
		if !seen || s.Date.After(prev.Date) {
			latest[s.Name] = s
		}
	}

	var unmatched []string
	missing := make(map[string]bool)
	out := make([]models.Workout, 0, len(order))
	for _, name := range order {
		s := latest[name]
		w := models.Workout{
			ID:   uuid.NewSHA1(templateNamespace, []byte(name)),
			Name: name,
			Date: models.TemplateDate(),
		}
		for i, ex := range s.Exercises {
			desc, ok := resolve(cat, ex)
			if !ok && !missing[ex.Name] {
				missing[ex.Name] = true
				unmatched = append(unmatched, ex.Name)
			}
			exID := uuid.NewSHA1(w.ID, []byte(fmt.Sprintf("exercise/%d", i)))
			we := models.WorkoutExercise{ID: exID, Exercise: desc, Notes: exerciseNotes(ex)}
			for j, set := range ex.WorkingSets() {
				we.Sets = append(we.Sets, models.WorkoutSet{
					ID:       uuid.NewSHA1(exID, []byte(fmt.Sprintf("set/%d", j))),
					Reps:     ex.TargetReps,
					WeightKg: setWeight(set),
				})
			}
			w.Exercises = append(w.Exercises, we)
		}
		out = append(out, w)
	}
	return out, unmatched
}

// resolve finds the catalog entry whose name equals the exercise name,
// ignoring case and a trailing plural "s".
func resolve(cat *catalog.Catalog, ex Exercise) (models.Exercise, bool) {
	want := normalizeName(ex.Name)
	for _, c := range cat.All() {
		if normalizeName(c.Name) == want {
			return c, true
		}
	}
	category := "Strength"
	if strings.EqualFold(ex.Equipment, "Bodyweight") {
		category = "Bodyweight"
	}
	return models.Exercise{ID: slug(ex.Name), Name: ex.Name, Category: category}, false
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 3 {
			words[i] = strings.TrimSuffix(w, "s")
		}
	}
	return strings.Join(words, " ")
}

func slug(s string) string {
	return strings.Trim(nonSlugRe.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// setWeight returns the external load of a set; pure bodyweight is nil.
func setWeight(s Set) *float64 {
	if s.WeightKg == 0 {
		return nil
	}
	w := s.WeightKg
	return &w
}

func exerciseNotes(ex Exercise) string {
	var parts []string
	if ex.Equipment != "" {
		parts = append(parts, ex.Equipment)
	}
	if ex.Modifiers != "" {
		parts = append(parts, ex.Modifiers)
	}
	return strings.Join(parts, " · ")
}
