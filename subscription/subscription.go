// Package subscription delivers board push events from the server.
package subscription

import (
	"context"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

// Handler receives decoded events for the subscribed board.
type Handler func(domain.Event)

// Channel opens push subscriptions scoped to a single board.
type Channel interface {
	Subscribe(ctx context.Context, boardID string, handler Handler) (Subscription, error)
}

// Subscription is a live push subscription. Close releases it; the handler
// is not called once Close has returned.
type Subscription interface {
	Close() error
}

// dispatcher filters and forwards frames to a handler until closed.
type dispatcher struct {
	boardID string
	handler Handler
	logger  *log.Entry
	closed  atomic.Bool
	mu      sync.Mutex
}

func newDispatcher(boardID string, handler Handler, logger *log.Logger, transport string) *dispatcher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &dispatcher{
		boardID: boardID,
		handler: handler,
		logger:  logger.WithFields(log.Fields{"board": boardID, "transport": transport}),
	}
}

func (d *dispatcher) frame(raw []byte) {
	ev, err := domain.DecodeFrame(raw)
	if err != nil {
		d.logger.WithError(err).Warn("dropping push frame")
		return
	}
	if ev.Board() != d.boardID {
		d.logger.WithField("event_board", ev.Board()).Debug("ignoring event for another board")
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed.Load() {
		return
	}
	d.handler(ev)
}

// stop marks the dispatcher closed and waits for an in-flight handler call.
func (d *dispatcher) stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed.Swap(true)
}
