package mcp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/claude/liftplan/internal/models"
	"github.com/claude/liftplan/internal/schedule"
	"github.com/claude/liftplan/internal/storage"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// parseRange parses optional start/end bounds. A bare end date includes
// that whole day.
func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if endStr != "" {
		end, err = time.ParseInLocation(models.DateLayout, endStr, time.Local)
		if err == nil {
			end = end.AddDate(0, 0, 1)
		} else if end, err = time.Parse(time.RFC3339, endStr); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.ParseInLocation(models.DateLayout, s, time.Local)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// parseSpec builds a recurrence spec from tool arguments. days is a comma
// separated list of weekday names, abbreviations or numbers.
func parseSpec(req mcp.CallToolRequest) (schedule.RecurrenceSpec, error) {
	startStr, err := req.RequireString("start_date")
	if err != nil {
		return schedule.RecurrenceSpec{}, schedule.ErrMissingStart
	}
	start, err := time.ParseInLocation(models.DateLayout, startStr, time.Local)
	if err != nil {
		return schedule.RecurrenceSpec{}, fmt.Errorf("start_date must be YYYY-MM-DD: %w", err)
	}
	days, err := schedule.ParseWeekdays(req.GetString("days", ""))
	if err != nil {
		return schedule.RecurrenceSpec{}, err
	}
	cadence, err := schedule.ParseCadence(req.GetString("cadence", string(schedule.Weekly)))
	if err != nil {
		return schedule.RecurrenceSpec{}, err
	}
	return schedule.RecurrenceSpec{StartDate: start, Days: days, Cadence: cadence}, nil
}

// --- Tool definitions ---

var toolPreviewRecurrence = mcp.NewTool("preview_recurrence",
	mcp.WithDescription("Expand a recurrence pattern into concrete dates without saving anything. Weekly repeats every week, fortnightly every other week, monthly uses the first matching days in a seven-day window from the start's day of month."),
	mcp.WithString("start_date", mcp.Required(), mcp.Description("First day of the pattern (YYYY-MM-DD)")),
	mcp.WithString("days", mcp.Required(), mcp.Description("Comma separated weekdays (e.g. 'mon,wed,fri' or '1,3,5')")),
	mcp.WithString("cadence", mcp.Description("Repeat cadence. Defaults to weekly."), mcp.Enum("weekly", "fortnightly", "monthly")),
)

var toolScheduleWorkout = mcp.NewTool("schedule_workout",
	mcp.WithDescription("Schedule a workout template on every date of a recurrence pattern. Dates already scheduled for the template are skipped."),
	mcp.WithString("template_id", mcp.Required(), mcp.Description("Template workout ID (UUID)")),
	mcp.WithString("start_date", mcp.Required(), mcp.Description("First day of the pattern (YYYY-MM-DD)")),
	mcp.WithString("days", mcp.Required(), mcp.Description("Comma separated weekdays (e.g. 'mon,thu')")),
	mcp.WithString("cadence", mcp.Description("Repeat cadence. Defaults to weekly."), mcp.Enum("weekly", "fortnightly", "monthly")),
)

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List workouts. Templates have no date; scheduled workouts carry a date and, once done, duration and calories."),
	mcp.WithString("kind", mcp.Description("Restrict to templates or scheduled workouts"), mcp.Enum("template", "scheduled")),
	mcp.WithString("start", mcp.Description("First scheduled date to include (YYYY-MM-DD)")),
	mcp.WithString("end", mcp.Description("Last scheduled date to include (YYYY-MM-DD)")),
	mcp.WithString("template_id", mcp.Description("Only instances of this template")),
	mcp.WithString("completed", mcp.Description("Filter by completion"), mcp.Enum("true", "false")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one workout with its exercises and sets."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout ID (UUID)")),
)

var toolSearchExercises = mcp.NewTool("search_exercises",
	mcp.WithDescription("Search the exercise catalog by name, category or muscle group. Every word must match."),
	mcp.WithString("query", mcp.Description("Search words (e.g. 'chest press'). Empty lists the whole catalog.")),
)

var toolEstimateCalories = mcp.NewTool("estimate_calories",
	mcp.WithDescription("Estimate calories burned by a workout over a duration, using the same heuristic applied when a session finishes."),
	mcp.WithString("workout_id", mcp.Required(), mcp.Description("Workout ID (UUID)")),
	mcp.WithString("duration_min", mcp.Description("Duration in whole minutes. Defaults to the workout's recorded duration.")),
)

var toolGetStats = mcp.NewTool("get_stats",
	mcp.WithDescription("Counts of templates, scheduled and completed workouts with total minutes, calories and set outcomes."),
	mcp.WithString("start", mcp.Description("First scheduled date to include (YYYY-MM-DD)")),
	mcp.WithString("end", mcp.Description("Last scheduled date to include (YYYY-MM-DD)")),
)

// --- Tool handlers ---

func (h *handlers) previewRecurrence(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spec, err := parseSpec(req)
	if err != nil {
		return mcp.NewToolResultError("invalid recurrence: " + err.Error()), nil
	}

	dates := schedule.FormatDates(h.expander.Expand(spec))
	result, err := mcp.NewToolResultJSON(map[string]any{
		"dates": dates,
		"count": len(dates),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) scheduleWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError("template_id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("invalid template_id: " + err.Error()), nil
	}
	spec, err := parseSpec(req)
	if err != nil {
		return mcp.NewToolResultError("invalid recurrence: " + err.Error()), nil
	}

	res, err := h.ds.ScheduleWorkout(ctx, id, spec)
	if err != nil {
		h.log.Error("mcp schedule_workout", "error", err)
		return mcp.NewToolResultError("scheduling failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(res)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := parseRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	f := storage.Filter{Kind: req.GetString("kind", ""), Start: start, End: end}

	if v := req.GetString("template_id", ""); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return mcp.NewToolResultError("invalid template_id: " + err.Error()), nil
		}
		f.TemplateID = &id
	}
	if v := req.GetString("completed", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return mcp.NewToolResultError("completed must be true or false"), nil
		}
		f.Completed = &b
	}

	workouts, err := h.ds.ListWorkouts(ctx, f)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, errResult := h.loadWorkout(ctx, req, "id")
	if errResult != nil {
		return errResult, nil
	}
	result, err := mcp.NewToolResultJSON(w)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) searchExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.SearchExercises(ctx, req.GetString("query", ""))
	if err != nil {
		h.log.Error("mcp search_exercises", "error", err)
		return mcp.NewToolResultError("search failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(exercises)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) estimateCalories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, errResult := h.loadWorkout(ctx, req, "workout_id")
	if errResult != nil {
		return errResult, nil
	}

	var minutes int
	if v := req.GetString("duration_min", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return mcp.NewToolResultError("duration_min must be a non-negative whole number"), nil
		}
		minutes = n
	} else if w.DurationMin != nil {
		minutes = *w.DurationMin
	} else {
		return mcp.NewToolResultError("duration_min is required for workouts without a recorded duration"), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"workout_id":   w.ID,
		"duration_min": minutes,
		"calories":     h.estimator.Estimate(w.Exercises, minutes),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := parseRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	stats, err := h.ds.Stats(ctx, storage.Filter{Start: start, End: end})
	if err != nil {
		h.log.Error("mcp get_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(stats)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// loadWorkout reads the workout named by the given argument. A non-nil
// result is the tool error to return.
func (h *handlers) loadWorkout(ctx context.Context, req mcp.CallToolRequest, arg string) (models.Workout, *mcp.CallToolResult) {
	idStr, err := req.RequireString(arg)
	if err != nil {
		return models.Workout{}, mcp.NewToolResultError(arg + " parameter is required")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return models.Workout{}, mcp.NewToolResultError("invalid " + arg + ": " + err.Error())
	}
	w, err := h.ds.GetWorkout(ctx, id)
	if err != nil {
		h.log.Error("mcp load workout", "id", id, "error", err)
		return models.Workout{}, mcp.NewToolResultError("query failed: " + err.Error())
	}
	return w, nil
}
