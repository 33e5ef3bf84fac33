package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/claude/liftplan/internal/models"
)

// TestDefaultLookup verifies built-in exercises resolve by id.
func TestDefaultLookup(t *testing.T) {
	c := Default()
	ex, ok := c.Lookup("bench-press")
	if !ok {
		t.Fatal("bench-press not found")
	}
	if ex.Name != "Bench Press" || ex.Category != "Strength" {
		t.Errorf("bench-press = %+v", ex)
	}
	if _, ok := c.Lookup("nope"); ok {
		t.Error("unknown id resolved")
	}
}

// TestSearch covers name, category and muscle-group matching.
func TestSearch(t *testing.T) {
	c := Default()
	tests := []struct {
		query   string
		wantIDs []string
	}{
		{"pull", []string{"lat-pulldown", "pull-up"}},
		{"CARDIO rope", []string{"jump-rope"}},
		{"hamstrings stretch", []string{"hamstring-stretch"}},
		{"core bodyweight", []string{"plank", "push-up"}},
		{"zumba", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := c.Search(tt.query)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Search(%q) returned %d results: %+v", tt.query, len(got), got)
			}
			for i, ex := range got {
				if ex.ID != tt.wantIDs[i] {
					t.Errorf("Search(%q)[%d] = %s, want %s", tt.query, i, ex.ID, tt.wantIDs[i])
				}
			}
		})
	}

	if all := c.Search("  "); len(all) != c.Len() {
		t.Errorf("blank query returned %d, want %d", len(all), c.Len())
	}
}

// TestSearchReturnsCopies ensures callers cannot mutate the catalog.
func TestSearchReturnsCopies(t *testing.T) {
	c := Default()
	got := c.Search("bench")
	got[0].MuscleGroups[0] = "changed"
	again, _ := c.Lookup("bench-press")
	if again.MuscleGroups[0] != "chest" {
		t.Errorf("catalog mutated through search result: %v", again.MuscleGroups)
	}
}

// TestNewRejectsDuplicates verifies id uniqueness.
func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]models.Exercise{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("err = %v, want ErrDuplicateID", err)
	}
	_, err = New([]models.Exercise{{Name: "Nameless"}})
	if !errors.Is(err, ErrMissingID) {
		t.Errorf("err = %v, want ErrMissingID", err)
	}
}

// TestLoadMergesOverBuiltin verifies a YAML file adds and replaces exercises.
func TestLoadMergesOverBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exercises.yaml")
	content := `
exercises:
  - id: kettlebell-swing
    name: Kettlebell Swing
    category: Strength
    muscle_groups: [glutes, hamstrings]
  - id: running
    name: Trail Running
    category: Cardio
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != Default().Len()+1 {
		t.Errorf("Len = %d, want %d", c.Len(), Default().Len()+1)
	}
	if ex, _ := c.Lookup("running"); ex.Name != "Trail Running" {
		t.Errorf("running not replaced: %+v", ex)
	}
	if _, ok := c.Lookup("kettlebell-swing"); !ok {
		t.Error("kettlebell-swing missing")
	}
}

// TestLoadMissingFile verifies a clear error for an unreadable file.
func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/exercises.yaml"); err == nil {
		t.Fatal("expected error")
	}
}
