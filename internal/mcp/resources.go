package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/claude/liftplan/internal/models"
	"github.com/claude/liftplan/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// upcomingDays is the window covered by the upcoming_workouts resource.
const upcomingDays = 14

func (h *handlers) upcomingWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	today := models.StartOfDay(time.Now())
	open := false

	workouts, err := h.ds.ListWorkouts(ctx, storage.Filter{
		Kind:      models.KindScheduled,
		Start:     today,
		End:       today.AddDate(0, 0, upcomingDays),
		Completed: &open,
	})
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, workouts)
}

func (h *handlers) templates(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	workouts, err := h.ds.ListWorkouts(ctx, storage.Filter{Kind: models.KindTemplate})
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, workouts)
}

func (h *handlers) exerciseCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	exercises, err := h.ds.SearchExercises(ctx, "")
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, exercises)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
