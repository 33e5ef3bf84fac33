// Package catalog is the exercise library templates are built from.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/claude/liftplan/internal/models"
	"gopkg.in/yaml.v3"
)

var (
	ErrDuplicateID = errors.New("duplicate exercise id")
	ErrMissingID   = errors.New("exercise id is required")
)

// Catalog is an immutable, id-indexed set of exercises.
type Catalog struct {
	exercises []models.Exercise
	byID      map[string]int
}

// New builds a catalog, rejecting blank or repeated ids.
func New(exercises []models.Exercise) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(exercises))}
	for _, ex := range exercises {
		ex.ID = strings.TrimSpace(ex.ID)
		if ex.ID == "" {
			return nil, fmt.Errorf("%q: %w", ex.Name, ErrMissingID)
		}
		if _, dup := c.byID[ex.ID]; dup {
			return nil, fmt.Errorf("%s: %w", ex.ID, ErrDuplicateID)
		}
		c.byID[ex.ID] = len(c.exercises)
		c.exercises = append(c.exercises, ex)
	}
	sort.SliceStable(c.exercises, func(i, j int) bool { return c.exercises[i].Name < c.exercises[j].Name })
	for i, ex := range c.exercises {
		c.byID[ex.ID] = i
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(builtin)
	if err != nil {
		panic(err)
	}
	return c
}

type file struct {
	Exercises []models.Exercise `yaml:"exercises"`
}

// Load reads a YAML exercise list and merges it over the built-in catalog.
// Entries whose id matches a built-in exercise replace it.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	seen := make(map[string]bool, len(f.Exercises))
	for _, ex := range f.Exercises {
		if seen[ex.ID] {
			return nil, fmt.Errorf("%s: %w", ex.ID, ErrDuplicateID)
		}
		seen[ex.ID] = true
	}
	merged := append([]models.Exercise(nil), f.Exercises...)
	for _, ex := range builtin {
		if !seen[ex.ID] {
			merged = append(merged, ex)
		}
	}
	return New(merged)
}

// Len returns the number of exercises.
func (c *Catalog) Len() int { return len(c.exercises) }

// All returns every exercise sorted by name.
func (c *Catalog) All() []models.Exercise {
	return cloneAll(c.exercises)
}

// Lookup finds an exercise by id.
func (c *Catalog) Lookup(id string) (models.Exercise, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Exercise{}, false
	}
	return clone(c.exercises[i]), true
}

// Search returns exercises matching every whitespace-separated term of
// query. A term matches a name, category or muscle group substring,
// ignoring case. An empty query returns everything.
func (c *Catalog) Search(query string) []models.Exercise {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return c.All()
	}
	var out []models.Exercise
	for _, ex := range c.exercises {
		if matchesAll(ex, terms) {
			out = append(out, clone(ex))
		}
	}
	return out
}

func matchesAll(ex models.Exercise, terms []string) bool {
	fields := []string{strings.ToLower(ex.Name), strings.ToLower(ex.Category), strings.ToLower(ex.ID)}
	for _, mg := range ex.MuscleGroups {
		fields = append(fields, strings.ToLower(mg))
	}
	for _, term := range terms {
		found := false
		for _, f := range fields {
			if strings.Contains(f, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func clone(ex models.Exercise) models.Exercise {
	ex.MuscleGroups = append([]string(nil), ex.MuscleGroups...)
	return ex
}

func cloneAll(exs []models.Exercise) []models.Exercise {
	out := make([]models.Exercise, len(exs))
	for i, ex := range exs {
		out[i] = clone(ex)
	}
	return out
}
