package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"taskboard/domain"
)

// AddComment posts a comment and returns the task with its updated comment
// list.
func (c *Client) AddComment(ctx context.Context, taskID, text string) (domain.Task, error) {
	const op = "add_comment"
	text = strings.TrimSpace(text)
	if taskID == "" {
		return domain.Task{}, validationError(op, "task id is required")
	}
	if text == "" {
		return domain.Task{}, validationError(op, "comment text is required")
	}
	var t domain.Task
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/tasks/" + url.PathEscape(taskID) + "/comments",
		body:   map[string]string{"text": text},
		out:    &t,
	})
	return t, err
}

// DeleteComment removes a comment from a task.
func (c *Client) DeleteComment(ctx context.Context, taskID, commentID string) error {
	const op = "delete_comment"
	if taskID == "" || commentID == "" {
		return validationError(op, "task id and comment id are required")
	}
	return c.do(ctx, request{
		op:     op,
		method: http.MethodDelete,
		path:   "/tasks/" + url.PathEscape(taskID) + "/comments/" + url.PathEscape(commentID),
	})
}
