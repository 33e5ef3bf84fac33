// Package mcp exposes workout planning to MCP clients: recurrence previews,
// scheduling, calorie estimates and read access to stored workouts.
package mcp

import (
	"log/slog"

	"github.com/claude/liftplan/internal/calories"
	"github.com/claude/liftplan/internal/schedule"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
// Recurrence previews and calorie estimates are computed in-process with
// expander and estimator; everything else goes through ds.
func New(ds DataSource, expander schedule.Expander, estimator calories.Estimator, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftPlan", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftPlan workout planner. Preview and schedule recurring workouts from templates, inspect scheduled and completed workouts, search the exercise catalog and estimate calories."),
	)

	h := &handlers{ds: ds, expander: expander, estimator: estimator, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolPreviewRecurrence, Handler: h.previewRecurrence},
		server.ServerTool{Tool: toolScheduleWorkout, Handler: h.scheduleWorkout},
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolSearchExercises, Handler: h.searchExercises},
		server.ServerTool{Tool: toolEstimateCalories, Handler: h.estimateCalories},
		server.ServerTool{Tool: toolGetStats, Handler: h.getStats},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resUpcomingWorkouts, Handler: h.upcomingWorkouts},
		server.ServerResource{Resource: resTemplates, Handler: h.templates},
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds        DataSource
	expander  schedule.Expander
	estimator calories.Estimator
	log       *slog.Logger
}

// --- Resource definitions ---

var resUpcomingWorkouts = mcp.NewResource(
	"liftplan://upcoming_workouts",
	"Upcoming Workouts",
	mcp.WithResourceDescription("Scheduled workouts for today and the next 13 days that are not completed yet"),
	mcp.WithMIMEType("application/json"),
)

var resTemplates = mcp.NewResource(
	"liftplan://templates",
	"Workout Templates",
	mcp.WithResourceDescription("All workout templates that can be scheduled"),
	mcp.WithMIMEType("application/json"),
)

var resExerciseCatalog = mcp.NewResource(
	"liftplan://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("Every exercise in the catalog with category and muscle groups"),
	mcp.WithMIMEType("application/json"),
)
