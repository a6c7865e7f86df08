package domain

import "time"

// Status is the column a task belongs to.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

var statuses = [...]Status{StatusTodo, StatusInProgress, StatusDone}

// Statuses returns every known status in column order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses[:])
	return out
}

// Known reports whether s is one of the fixed statuses.
func (s Status) Known() bool {
	for _, k := range statuses {
		if s == k {
			return true
		}
	}
	return false
}

// Normalize maps the empty status to todo. Unknown values are returned as is.
func (s Status) Normalize() Status {
	if s == "" {
		return StatusTodo
	}
	return s
}

// Label is the human readable column title.
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// Task represents a single board item.
type Task struct {
	ID          string     `json:"_id"`
	BoardID     string     `json:"boardId,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status,omitempty"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Comments    []Comment  `json:"comments,omitempty"`

	// Editing is local view state and never leaves the client.
	Editing bool `json:"-"`
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	out := t
	if t.DueDate != nil {
		d := *t.DueDate
		out.DueDate = &d
	}
	if t.Comments != nil {
		out.Comments = make([]Comment, len(t.Comments))
		copy(out.Comments, t.Comments)
	}
	return out
}

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	BoardID     string     `json:"boardId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status,omitempty"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}
