// Package boardview runs the currently opened board: it owns the reconciler,
// applies every mutation on a single loop goroutine, keeps the push
// subscription alive for as long as the view is open and reports failures to
// a notifier.
package boardview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"taskboard/board"
	"taskboard/domain"
	"taskboard/subscription"
)

// ErrClosed is returned by intents submitted after the view closed.
var ErrClosed = errors.New("board view closed")

// Remote is the board API surface the view needs.
type Remote interface {
	GetBoard(ctx context.Context, boardID string) (domain.Board, error)
	ListTasks(ctx context.Context, boardID string) ([]domain.Task, error)
	CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) (domain.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	AddComment(ctx context.Context, taskID, text string) (domain.Task, error)
	DeleteComment(ctx context.Context, taskID, commentID string) error
	InviteMember(ctx context.Context, boardID, email string) ([]domain.Member, error)
}

// evicter is implemented by caching remotes that should forget a board when
// the server reports a change.
type evicter interface {
	Evict(ctx context.Context, boardID string)
}

// State is an immutable copy of the view handed to listeners.
type State struct {
	Board   domain.Board  `json:"board"`
	Columns board.Grouped `json:"columns"`
	Version uint64        `json:"version"`
}

// Listener is called on the loop goroutine after every applied change. It
// must not block or call back into the view.
type Listener func(State)

// Options tune a View.
type Options struct {
	Logger   *log.Logger
	Notifier Notifier
	// Buffer is the capacity of the operation queue.
	Buffer int
}

type op struct {
	fn   func() bool
	done chan struct{}
}

// View is an opened board.
type View struct {
	boardID  string
	remote   Remote
	logger   *log.Entry
	notifier Notifier

	// owned by the loop goroutine
	rec     *board.Reconciler
	meta    domain.Board
	version uint64

	ops      chan op
	done     chan struct{}
	loopDone chan struct{}

	sub       subscription.Subscription
	closeOnce sync.Once

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// Open loads boardID, builds the grouped view and subscribes to its push
// events. The view closes when ctx ends or Close is called.
func Open(ctx context.Context, boardID string, remote Remote, channel subscription.Channel, opts Options) (*View, error) {
	if boardID == "" {
		return nil, fmt.Errorf("%w: board id is required", domain.ErrValidation)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	buf := opts.Buffer
	if buf <= 0 {
		buf = 64
	}

	v := &View{
		boardID:   boardID,
		remote:    remote,
		logger:    logger.WithField("board", boardID),
		notifier:  notifier,
		rec:       board.New(),
		ops:       make(chan op, buf),
		done:      make(chan struct{}),
		loopDone:  make(chan struct{}),
		listeners: make(map[int]Listener),
	}

	meta, tasks, err := v.load(ctx)
	if err != nil {
		return nil, err
	}
	v.meta = meta
	v.rec.Initialize(tasks)
	go v.loop()

	sub, err := channel.Subscribe(ctx, boardID, v.onEvent)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("subscribe board %s: %w", boardID, err)
	}
	v.sub = sub

	go func() {
		select {
		case <-ctx.Done():
			v.Close()
		case <-v.done:
		}
	}()
	v.logger.WithField("tasks", len(tasks)).Info("board opened")
	return v, nil
}

// BoardID returns the identifier of the opened board.
func (v *View) BoardID() string { return v.boardID }

// Done is closed once the view has shut down.
func (v *View) Done() <-chan struct{} { return v.loopDone }

// Close releases the push subscription and stops the loop. It is safe to call
// more than once and from any goroutine except a Listener.
func (v *View) Close() {
	v.closeOnce.Do(func() {
		close(v.done)
		if v.sub != nil {
			if err := v.sub.Close(); err != nil {
				v.logger.WithError(err).Warn("close push subscription")
			}
		}
		<-v.loopDone
		v.logger.Info("board closed")
	})
}

// Subscribe registers l and immediately sends it the current state. The
// returned func unregisters it.
func (v *View) Subscribe(l Listener) (func(), error) {
	v.lmu.Lock()
	id := v.nextID
	v.nextID++
	v.lmu.Unlock()

	err := v.run(func() bool {
		v.lmu.Lock()
		v.listeners[id] = l
		v.lmu.Unlock()
		l(v.state())
		return false
	})
	if err != nil {
		return func() {}, err
	}
	return func() {
		v.lmu.Lock()
		delete(v.listeners, id)
		v.lmu.Unlock()
	}, nil
}

// State returns a snapshot of the board and its columns.
func (v *View) State() (State, error) {
	var s State
	err := v.run(func() bool {
		s = v.state()
		return false
	})
	return s, err
}

// Task returns the current local copy of taskID.
func (v *View) Task(taskID string) (domain.Task, bool, error) {
	var (
		t  domain.Task
		ok bool
	)
	err := v.run(func() bool {
		t, ok = v.rec.Find(taskID)
		return false
	})
	return t, ok, err
}

func (v *View) loop() {
	defer close(v.loopDone)
	for {
		select {
		case <-v.done:
			return
		case o := <-v.ops:
			if o.fn() {
				v.version++
				v.publish()
			}
			if o.done != nil {
				close(o.done)
			}
		}
	}
}

// run executes fn on the loop and waits for it.
func (v *View) run(fn func() bool) error {
	o := op{fn: fn, done: make(chan struct{})}
	select {
	case <-v.done:
		return ErrClosed
	case v.ops <- o:
	}
	select {
	case <-o.done:
		return nil
	case <-v.loopDone:
		return ErrClosed
	}
}

func (v *View) state() State {
	return State{Board: v.meta, Columns: v.rec.Snapshot(), Version: v.version}
}

func (v *View) publish() {
	v.lmu.Lock()
	ls := make([]Listener, 0, len(v.listeners))
	for _, l := range v.listeners {
		ls = append(ls, l)
	}
	v.lmu.Unlock()
	if len(ls) == 0 {
		return
	}
	s := v.state()
	for _, l := range ls {
		l(s)
	}
}

func (v *View) onEvent(ev domain.Event) {
	if e, ok := v.remote.(evicter); ok {
		e.Evict(context.Background(), v.boardID)
	}
	err := v.run(func() bool {
		applied := v.rec.ApplyRemotePush(ev)
		if !applied {
			v.logger.WithField("event", fmt.Sprintf("%T", ev)).Debug("push event had no effect")
		}
		return applied
	})
	if err != nil && !errors.Is(err, ErrClosed) {
		v.logger.WithError(err).Warn("apply push event")
	}
}

func (v *View) load(ctx context.Context) (domain.Board, []domain.Task, error) {
	meta, err := v.remote.GetBoard(ctx, v.boardID)
	if err != nil {
		return domain.Board{}, nil, fmt.Errorf("load board %s: %w", v.boardID, err)
	}
	tasks, err := v.remote.ListTasks(ctx, v.boardID)
	if err != nil {
		return domain.Board{}, nil, fmt.Errorf("load tasks of board %s: %w", v.boardID, err)
	}
	return meta, tasks, nil
}
