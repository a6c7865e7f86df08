package board

import (
	"fmt"
	"strings"
	"time"

	"taskboard/domain"
)

// Draft holds the task authoring form.
type Draft struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      domain.Status `json:"status,omitempty"`
	AssignedTo  string        `json:"assignedTo,omitempty"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
}

// NewDraft returns an empty form with the default status.
func NewDraft() Draft {
	return Draft{Status: domain.StatusTodo}
}

// Reset clears every field back to the defaults.
func (d *Draft) Reset() {
	*d = NewDraft()
}

// Validate checks the draft before it is sent to the server.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if s := d.Status.Normalize(); !s.Known() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, d.Status)
	}
	return nil
}

// Input converts the draft into a create request for boardID.
func (d Draft) Input(boardID string) domain.TaskInput {
	return domain.TaskInput{
		BoardID:     boardID,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Status:      d.Status.Normalize(),
		AssignedTo:  d.AssignedTo,
		DueDate:     d.DueDate,
	}
}
