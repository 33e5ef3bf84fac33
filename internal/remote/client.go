// Package remote talks to a LiftPlan server over its REST API. A Client is a
// storage.Store, so binaries running on another device can schedule and list
// workouts whose data lives on the server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftplan/internal/models"
	"github.com/claude/liftplan/internal/schedule"
	"github.com/claude/liftplan/internal/storage"
	"github.com/google/uuid"
)

// Client implements storage.Store by calling the LiftPlan REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ storage.Store = (*Client)(nil)

// New creates a Client targeting baseURL. apiKey is sent on write requests.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// do sends a request and decodes a JSON response into out when non-nil.
// It returns the response status so callers can tell 200 from 201.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, in, out any) (int, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("remote: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, fmt.Errorf("remote: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("remote: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, fmt.Errorf("remote: %s %s: %w", method, path, storage.ErrNotFound)
	case resp.StatusCode >= 300:
		return resp.StatusCode, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Message: errorMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("remote: decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// StatusError is a non-2xx response other than 404.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: %s %s returned %d: %s", e.Method, e.Path, e.Code, e.Message)
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

func workoutPath(id uuid.UUID) string {
	return "/api/v1/workouts/" + id.String()
}

func (c *Client) GetWorkout(ctx context.Context, id uuid.UUID) (models.Workout, error) {
	var w models.Workout
	if _, err := c.do(ctx, http.MethodGet, workoutPath(id), nil, nil, &w); err != nil {
		return models.Workout{}, err
	}
	return w, nil
}

// SaveResponse is the body returned by POST /api/v1/workouts.
type SaveResponse struct {
	Inserted bool           `json:"inserted"`
	Workout  models.Workout `json:"workout"`
}

func (c *Client) SaveWorkout(ctx context.Context, w models.Workout) (bool, error) {
	var resp SaveResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/workouts", nil, w, &resp); err != nil {
		return false, err
	}
	return resp.Inserted, nil
}

func (c *Client) UpdateWorkout(ctx context.Context, w models.Workout) error {
	_, err := c.do(ctx, http.MethodPut, workoutPath(w.ID), nil, w, nil)
	return err
}

func (c *Client) DeleteWorkout(ctx context.Context, id uuid.UUID) error {
	_, err := c.do(ctx, http.MethodDelete, workoutPath(id), nil, nil, nil)
	return err
}

// FilterParams encodes f as query parameters.
func FilterParams(f storage.Filter) url.Values {
	v := url.Values{}
	if f.Kind != "" {
		v.Set("kind", f.Kind)
	}
	if !f.Start.IsZero() {
		v.Set("start", f.Start.Format(time.RFC3339))
	}
	if !f.End.IsZero() {
		v.Set("end", f.End.Format(time.RFC3339))
	}
	if f.TemplateID != nil {
		v.Set("template_id", f.TemplateID.String())
	}
	if f.Completed != nil {
		v.Set("completed", strconv.FormatBool(*f.Completed))
	}
	return v
}

func (c *Client) ListWorkouts(ctx context.Context, f storage.Filter) ([]models.Workout, error) {
	var workouts []models.Workout
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/workouts", FilterParams(f), nil, &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

// ScheduleWorkout expands spec on the server and persists the instances there.
func (c *Client) ScheduleWorkout(ctx context.Context, templateID uuid.UUID, spec schedule.RecurrenceSpec) (*schedule.Result, error) {
	var res schedule.Result
	code, err := c.do(ctx, http.MethodPost, workoutPath(templateID)+"/schedule", nil, schedule.NewRequest(spec), &res)
	if code == http.StatusConflict {
		return nil, fmt.Errorf("%s: %w", templateID, schedule.ErrNotTemplate)
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SearchExercises queries the server's exercise catalog.
func (c *Client) SearchExercises(ctx context.Context, query string) ([]models.Exercise, error) {
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	var exercises []models.Exercise
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/exercises", params, nil, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// Stats returns aggregate counts for workouts matching f.
func (c *Client) Stats(ctx context.Context, f storage.Filter) (storage.Stats, error) {
	var s storage.Stats
	_, err := c.do(ctx, http.MethodGet, "/api/v1/stats", FilterParams(f), nil, &s)
	return s, err
}
