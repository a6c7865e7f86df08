package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskboard/domain"
)

// taskPatch is the full-field PATCH body. Comments are managed through their
// own endpoints and never sent back.
type taskPatch struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      domain.Status `json:"status"`
	AssignedTo  string        `json:"assignedTo"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
}

type statusPatch struct {
	Status domain.Status `json:"status"`
}

// ListTasks returns every task of a board in server order.
func (c *Client) ListTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	const op = "list_tasks"
	if boardID == "" {
		return nil, validationError(op, "board id is required")
	}
	tasks := []domain.Task{}
	q := url.Values{"boardId": []string{boardID}}
	err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/tasks?" + q.Encode(), out: &tasks})
	return tasks, err
}

// CreateTask creates a task; the server assigns its identifier.
func (c *Client) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	const op = "create_task"
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.Task{}, validationError(op, "title is required")
	}
	if in.BoardID == "" {
		return domain.Task{}, validationError(op, "board id is required")
	}
	in.Status = in.Status.Normalize()
	if !in.Status.Known() {
		return domain.Task{}, validationError(op, "unknown status "+string(in.Status))
	}
	var t domain.Task
	err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/tasks", body: in, out: &t})
	return t, err
}

// UpdateTask sends every editable field of t and returns the
// server-confirmed task.
func (c *Client) UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	const op = "update_task"
	if t.ID == "" {
		return domain.Task{}, validationError(op, "task id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return domain.Task{}, validationError(op, "title is required")
	}
	status := t.Status.Normalize()
	if !status.Known() {
		return domain.Task{}, validationError(op, "unknown status "+string(t.Status))
	}
	body := taskPatch{
		Title:       strings.TrimSpace(t.Title),
		Description: t.Description,
		Status:      status,
		AssignedTo:  t.AssignedTo,
		DueDate:     t.DueDate,
	}
	var out domain.Task
	err := c.do(ctx, request{op: op, method: http.MethodPatch, path: "/tasks/" + url.PathEscape(t.ID), body: body, out: &out})
	return out, err
}

// UpdateTaskStatus patches only the status, as done after a drag move.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) (domain.Task, error) {
	const op = "update_task_status"
	if taskID == "" {
		return domain.Task{}, validationError(op, "task id is required")
	}
	if !status.Known() {
		return domain.Task{}, validationError(op, "unknown status "+string(status))
	}
	var out domain.Task
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPatch,
		path:   "/tasks/" + url.PathEscape(taskID),
		body:   statusPatch{Status: status},
		out:    &out,
	})
	return out, err
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	const op = "delete_task"
	if taskID == "" {
		return validationError(op, "task id is required")
	}
	return c.do(ctx, request{op: op, method: http.MethodDelete, path: "/tasks/" + url.PathEscape(taskID)})
}
