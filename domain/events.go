package domain

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// Push event names as sent on the wire.
const (
	EventTaskUpdate    = "taskUpdate"
	EventCommentUpdate = "commentUpdate"
)

// Task change actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ErrMalformedEvent is returned by the decoders for payloads that cannot be
// applied to a board.
var ErrMalformedEvent = errors.New("malformed event")

// Event is a push notification scoped to one board. It is either a
// TaskChanged or a CommentChanged.
type Event interface {
	Board() string
	isEvent()
}

// TaskChanged carries either a full task or a deletion marker.
type TaskChanged struct {
	BoardID string
	Task    *Task
	Deleted bool
	TaskID  string
}

func (e TaskChanged) Board() string { return e.BoardID }
func (TaskChanged) isEvent()        {}

// ID returns the identifier of the affected task.
func (e TaskChanged) ID() string {
	if e.Task != nil && e.Task.ID != "" {
		return e.Task.ID
	}
	return e.TaskID
}

// CommentChanged carries the full task with its updated comment list.
type CommentChanged struct {
	BoardID string
	Task    Task
}

func (e CommentChanged) Board() string { return e.BoardID }
func (CommentChanged) isEvent()        {}

// Frame is the envelope used by the push transports.
type Frame struct {
	Event string                 `json:"event"`
	Data  sonic.NoCopyRawMessage `json:"data"`
}

type eventPayload struct {
	BoardID string `json:"boardId"`
	Action  string `json:"action,omitempty"`
	TaskID  string `json:"taskId,omitempty"`
	Task    *Task  `json:"task,omitempty"`
}

// DecodeFrame decodes an enveloped push frame.
func DecodeFrame(raw []byte) (Event, error) {
	var f Frame
	if err := sonic.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return DecodeEvent(f.Event, f.Data)
}

// DecodeEvent validates a named push payload and turns it into an Event.
func DecodeEvent(name string, data []byte) (Event, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty %s payload", ErrMalformedEvent, name)
	}
	var p eventPayload
	if err := sonic.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if p.BoardID == "" {
		return nil, fmt.Errorf("%w: missing boardId", ErrMalformedEvent)
	}

	switch name {
	case EventTaskUpdate:
		if p.Action == ActionDelete || p.Action == "deleted" {
			id := p.TaskID
			if id == "" && p.Task != nil {
				id = p.Task.ID
			}
			if id == "" {
				return nil, fmt.Errorf("%w: deletion without task id", ErrMalformedEvent)
			}
			return TaskChanged{BoardID: p.BoardID, Deleted: true, TaskID: id}, nil
		}
		task, err := validTask(p.Task)
		if err != nil {
			return nil, err
		}
		return TaskChanged{BoardID: p.BoardID, Task: &task, TaskID: task.ID}, nil
	case EventCommentUpdate:
		task, err := validTask(p.Task)
		if err != nil {
			return nil, err
		}
		return CommentChanged{BoardID: p.BoardID, Task: task}, nil
	default:
		return nil, fmt.Errorf("%w: unknown event %q", ErrMalformedEvent, name)
	}
}

// EncodeFrame builds the wire form of ev. It is the inverse of DecodeFrame.
func EncodeFrame(ev Event) ([]byte, error) {
	var (
		name string
		p    eventPayload
	)
	switch e := ev.(type) {
	case TaskChanged:
		name = EventTaskUpdate
		p = eventPayload{BoardID: e.BoardID, TaskID: e.ID(), Task: e.Task, Action: ActionUpdate}
		if e.Deleted {
			p.Action = ActionDelete
			p.Task = nil
		}
	case CommentChanged:
		name = EventCommentUpdate
		t := e.Task
		p = eventPayload{BoardID: e.BoardID, Task: &t}
	default:
		return nil, fmt.Errorf("%w: unsupported event %T", ErrMalformedEvent, ev)
	}
	data, err := sonic.Marshal(p)
	if err != nil {
		return nil, err
	}
	return sonic.Marshal(Frame{Event: name, Data: data})
}

func validTask(t *Task) (Task, error) {
	if t == nil {
		return Task{}, fmt.Errorf("%w: missing task", ErrMalformedEvent)
	}
	if t.ID == "" {
		return Task{}, fmt.Errorf("%w: task without id", ErrMalformedEvent)
	}
	out := *t
	out.Status = out.Status.Normalize()
	if !out.Status.Known() {
		return Task{}, fmt.Errorf("%w: task %s has unknown status %q", ErrMalformedEvent, t.ID, t.Status)
	}
	out.Editing = false
	return out, nil
}
