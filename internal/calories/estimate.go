// Package calories estimates energy burned by a finished workout.
// The estimate is a deterministic heuristic, not a physiological model.
package calories

import (
	"math"
	"strings"

	"github.com/claude/liftplan/internal/models"
)

// Estimator computes kcal from exercise composition and duration.
type Estimator struct {
	BaseRate      float64 // kcal per minute
	CardioBonus   float64 // added per minute when any exercise is cardio
	StrengthBonus float64 // added per minute when any exercise is strength/bodyweight

	CardioCategories   []string
	CardioNameKeywords []string
	StrengthCategories []string

	PerSetIntensity float64
	MaxIntensity    float64
}

// Default returns the stock heuristic.
func Default() Estimator {
	return Estimator{
		BaseRate:           5,
		CardioBonus:        3,
		StrengthBonus:      2,
		CardioCategories:   []string{"cardio"},
		CardioNameKeywords: []string{"running", "cycling", "burpees"},
		StrengthCategories: []string{"strength", "bodyweight"},
		PerSetIntensity:    0.02,
		MaxIntensity:       1.5,
	}
}

// Estimate returns the rounded calorie estimate, never negative.
func (e Estimator) Estimate(exercises []models.WorkoutExercise, durationMinutes int) int {
	if durationMinutes <= 0 {
		return 0
	}

	rate := e.BaseRate
	if e.anyCardio(exercises) {
		rate += e.CardioBonus
	}
	if e.anyStrength(exercises) {
		rate += e.StrengthBonus
	}
	if rate <= 0 {
		return 0
	}

	intensity := 1 + e.PerSetIntensity*float64(models.TotalSets(exercises))
	if e.MaxIntensity > 0 {
		intensity = math.Min(e.MaxIntensity, intensity)
	}
	if intensity < 0 {
		intensity = 0
	}

	return int(math.Round(rate * float64(durationMinutes) * intensity))
}

func (e Estimator) anyCardio(exercises []models.WorkoutExercise) bool {
	for _, ex := range exercises {
		if containsFold(e.CardioCategories, ex.Exercise.Category) {
			return true
		}
		name := strings.ToLower(ex.Exercise.Name)
		for _, kw := range e.CardioNameKeywords {
			if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

func (e Estimator) anyStrength(exercises []models.WorkoutExercise) bool {
	for _, ex := range exercises {
		if containsFold(e.StrengthCategories, ex.Exercise.Category) {
			return true
		}
	}
	return false
}

func containsFold(set []string, v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
