package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/shared"
)

// TaskInput is the body of task create and update calls.
type TaskInput struct {
	Title         string        `json:"title"`
	Notes         string        `json:"notes,omitempty"`
	CompletedDate models.Date   `json:"completedDate"`
	Revisions     []models.Date `json:"revisions"`
}

// StatusUpdate is the result of a revision status change.
type StatusUpdate struct {
	Revision     models.Revision
	PostponeInfo *models.PostponeInfo
}

// TasksClient calls the /tasks endpoints.
type TasksClient struct {
	api *APIService
}

func NewTasksClient(api *APIService) *TasksClient {
	return &TasksClient{api: api}
}

func (c *TasksClient) Create(ctx context.Context, in TaskInput) (*models.Task, error) {
	return c.task(ctx, http.MethodPost, "/tasks", in)
}

func (c *TasksClient) Update(ctx context.Context, id string, in TaskInput) (*models.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}
	return c.task(ctx, http.MethodPut, taskPath(id), in)
}

func (c *TasksClient) Get(ctx context.Context, id string) (*models.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}
	return c.task(ctx, http.MethodGet, taskPath(id), nil)
}

// UpdateSchedule replaces a saved task's revision dates.
func (c *TasksClient) UpdateSchedule(ctx context.Context, id string, revisions []models.Date) (*models.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}
	body := map[string][]models.Date{"revisions": revisions}
	return c.task(ctx, http.MethodPatch, taskPath(id)+"/schedule", body)
}

// UpdateRevisionStatus sets a revision's status. Postponing returns the new
// date in PostponeInfo.
func (c *TasksClient) UpdateRevisionStatus(ctx context.Context, taskID, revisionID string, status models.RevisionStatus) (*StatusUpdate, error) {
	if taskID == "" || revisionID == "" {
		return nil, fmt.Errorf("%w: task and revision id", shared.ErrMissingArgument)
	}

	path := taskPath(taskID) + "/revisions/" + url.PathEscape(revisionID) + "/complete"
	resp, err := c.api.Send(ctx, http.MethodPatch, path, map[string]models.RevisionStatus{"status": status})
	if err != nil {
		return nil, err
	}

	out := &StatusUpdate{}
	if err := resp.Decode(&out.Revision); err != nil {
		return nil, err
	}

	// postponeInfo sits beside the envelope, not inside data.
	var top struct {
		PostponeInfo *models.PostponeInfo `json:"postponeInfo"`
	}
	if err := json.Unmarshal(resp.Body, &top); err == nil && top.PostponeInfo != nil {
		out.PostponeInfo = top.PostponeInfo
	} else if err := json.Unmarshal(resp.Data, &top); err == nil {
		out.PostponeInfo = top.PostponeInfo
	}
	return out, nil
}

func (c *TasksClient) task(ctx context.Context, method, path string, body any) (*models.Task, error) {
	resp, err := c.api.Send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	var t models.Task
	if err := resp.Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}
