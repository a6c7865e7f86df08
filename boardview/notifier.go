package boardview

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

// Kind classifies a failure for display.
type Kind string

const (
	KindTransport    Kind = "transport"
	KindUnauthorized Kind = "unauthorized"
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindUnknown      Kind = "unknown"
)

// KindOf maps err onto the failure taxonomy.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return KindValidation
	case errors.Is(err, domain.ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return KindNotFound
	case errors.Is(err, domain.ErrTransport):
		return KindTransport
	default:
		return KindUnknown
	}
}

// Notification is a user facing failure report.
type Notification struct {
	Op      string `json:"op"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Notifier surfaces failures to the user. Notify must not block.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(Notification) {}

// Queue is a bounded Notifier that drops the oldest entry when full.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	max   int
}

// NewQueue returns a queue keeping at most max notifications.
func NewQueue(max int) *Queue {
	if max <= 0 {
		max = 32
	}
	return &Queue{max: max}
}

func (q *Queue) Notify(n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == q.max {
		q.items = q.items[1:]
	}
	q.items = append(q.items, n)
}

// Drain returns and clears the pending notifications.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// fail logs err, reports it and returns it unchanged.
func (v *View) fail(op string, err error) error {
	if err == nil || errors.Is(err, ErrClosed) {
		return err
	}
	kind := KindOf(err)
	entry := v.logger.WithError(err).WithFields(log.Fields{"op": op, "kind": kind})
	if kind == KindValidation {
		entry.Info("board intent rejected")
	} else {
		entry.Warn("board intent failed")
	}
	v.notifier.Notify(Notification{Op: op, Kind: kind, Message: err.Error()})
	return err
}
