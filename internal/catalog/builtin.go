package catalog

import "github.com/claude/liftplan/internal/models"

var builtin = []models.Exercise{
	{ID: "bench-press", Name: "Bench Press", Category: "Strength", MuscleGroups: []string{"chest", "triceps", "shoulders"}},
	{ID: "incline-dumbbell-press", Name: "Incline Dumbbell Press", Category: "Strength", MuscleGroups: []string{"chest", "shoulders"}},
	{ID: "overhead-press", Name: "Overhead Press", Category: "Strength", MuscleGroups: []string{"shoulders", "triceps"}},
	{ID: "back-squat", Name: "Back Squat", Category: "Strength", MuscleGroups: []string{"quads", "glutes", "core"}},
	{ID: "deadlift", Name: "Deadlift", Category: "Strength", MuscleGroups: []string{"hamstrings", "glutes", "back"}},
	{ID: "romanian-deadlift", Name: "Romanian Deadlift", Category: "Strength", MuscleGroups: []string{"hamstrings", "glutes"}},
	{ID: "barbell-row", Name: "Barbell Row", Category: "Strength", MuscleGroups: []string{"back", "biceps"}},
	{ID: "lat-pulldown", Name: "Lat Pulldown", Category: "Strength", MuscleGroups: []string{"back", "biceps"}},
	{ID: "bicep-curl", Name: "Bicep Curl", Category: "Strength", MuscleGroups: []string{"biceps"}},
	{ID: "tricep-pushdown", Name: "Tricep Pushdown", Category: "Strength", MuscleGroups: []string{"triceps"}},
	{ID: "lunge", Name: "Walking Lunge", Category: "Strength", MuscleGroups: []string{"quads", "glutes"}},
	{ID: "push-up", Name: "Push-up", Category: "Bodyweight", MuscleGroups: []string{"chest", "triceps", "core"}},
	{ID: "pull-up", Name: "Pull-up", Category: "Bodyweight", MuscleGroups: []string{"back", "biceps"}},
	{ID: "dip", Name: "Dip", Category: "Bodyweight", MuscleGroups: []string{"chest", "triceps"}},
	{ID: "plank", Name: "Plank", Category: "Bodyweight", MuscleGroups: []string{"core"}},
	{ID: "burpees", Name: "Burpees", Category: "Bodyweight", MuscleGroups: []string{"full body"}},
	{ID: "running", Name: "Running", Category: "Cardio", MuscleGroups: []string{"legs"}},
	{ID: "cycling", Name: "Cycling", Category: "Cardio", MuscleGroups: []string{"legs"}},
	{ID: "rowing", Name: "Rowing Machine", Category: "Cardio", MuscleGroups: []string{"back", "legs"}},
	{ID: "jump-rope", Name: "Jump Rope", Category: "Cardio", MuscleGroups: []string{"calves"}},
	{ID: "hip-stretch", Name: "Hip Flexor Stretch", Category: "Flexibility", MuscleGroups: []string{"hips"}},
	{ID: "hamstring-stretch", Name: "Hamstring Stretch", Category: "Flexibility", MuscleGroups: []string{"hamstrings"}},
}
