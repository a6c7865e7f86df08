package boardview

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard/board"
	"taskboard/domain"
	"taskboard/subscription"
)

type fakeRemote struct {
	mu      sync.Mutex
	board   domain.Board
	tasks   []domain.Task
	nextID  int
	failAll error
	status  []domain.Status
	evicted int
	deleted []string
}

func (f *fakeRemote) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failAll
}

func (f *fakeRemote) GetBoard(ctx context.Context, boardID string) (domain.Board, error) {
	if err := f.err(); err != nil {
		return domain.Board{}, err
	}
	return f.board, nil
}

func (f *fakeRemote) ListTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Task(nil), f.tasks...), nil
}

func (f *fakeRemote) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	if err := f.err(); err != nil {
		return domain.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return domain.Task{ID: "new-" + string(rune('0'+f.nextID)), BoardID: in.BoardID, Title: in.Title, Status: in.Status}, nil
}

func (f *fakeRemote) UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if err := f.err(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (f *fakeRemote) UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) (domain.Task, error) {
	if err := f.err(); err != nil {
		return domain.Task{}, err
	}
	f.mu.Lock()
	f.status = append(f.status, status)
	f.mu.Unlock()
	return domain.Task{ID: taskID, Title: "from server", Status: status}, nil
}

func (f *fakeRemote) DeleteTask(ctx context.Context, taskID string) error {
	if err := f.err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.deleted = append(f.deleted, taskID)
	f.mu.Unlock()
	return nil
}

func (f *fakeRemote) AddComment(ctx context.Context, taskID, text string) (domain.Task, error) {
	if err := f.err(); err != nil {
		return domain.Task{}, err
	}
	return domain.Task{ID: taskID, Title: "x", Status: domain.StatusDone, Comments: []domain.Comment{{ID: "c9", Text: text}}}, nil
}

func (f *fakeRemote) DeleteComment(ctx context.Context, taskID, commentID string) error {
	return f.err()
}

func (f *fakeRemote) InviteMember(ctx context.Context, boardID, email string) ([]domain.Member, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return []domain.Member{{ID: "u1"}, {ID: "u2", Email: email}, {ID: "u2"}}, nil
}

func (f *fakeRemote) Evict(ctx context.Context, boardID string) {
	f.mu.Lock()
	f.evicted++
	f.mu.Unlock()
}

type fakeChannel struct {
	mu      sync.Mutex
	handler subscription.Handler
	closed  bool
	err     error
}

func (c *fakeChannel) Subscribe(ctx context.Context, boardID string, h subscription.Handler) (subscription.Subscription, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
	return c, nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) push(ev domain.Event) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	h(ev)
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func openView(t *testing.T, remote *fakeRemote, ch *fakeChannel, n Notifier) *View {
	t.Helper()
	v, err := Open(context.Background(), "b1", remote, ch, Options{Logger: quietLogger(), Notifier: n})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(v.Close)
	return v
}

func seeded() *fakeRemote {
	return &fakeRemote{
		board: domain.Board{ID: "b1", Name: "Board", CreatedBy: "owner"},
		tasks: []domain.Task{
			{ID: "1", Title: "a", Status: domain.StatusTodo},
			{ID: "2", Title: "b", Status: domain.StatusDone, Comments: []domain.Comment{{ID: "c1", AuthorID: "alice"}, {ID: "c2", AuthorID: "bob"}}},
			{ID: "3", Title: "c"},
		},
	}
}

func columns(t *testing.T, v *View) board.Grouped {
	t.Helper()
	s, err := v.State()
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	return s.Columns
}

func TestOpenGroupsTasks(t *testing.T) {
	v := openView(t, seeded(), &fakeChannel{}, nil)
	cols := columns(t, v)
	if got := cols.IDs(domain.StatusTodo); len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Fatalf("unexpected todo column %v", got)
	}
	if got := cols.IDs(domain.StatusDone); len(got) != 1 || got[0] != "2" {
		t.Fatalf("unexpected done column %v", got)
	}
	if len(cols[domain.StatusInProgress]) != 0 {
		t.Fatalf("expected empty in-progress column")
	}
}

func TestOpenFailures(t *testing.T) {
	remote := seeded()
	remote.failAll = domain.ErrTransport
	if _, err := Open(context.Background(), "b1", remote, &fakeChannel{}, Options{Logger: quietLogger()}); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if _, err := Open(context.Background(), "b1", seeded(), &fakeChannel{err: domain.ErrUnauthorized}, Options{Logger: quietLogger()}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestPushEventsApplied(t *testing.T) {
	remote := seeded()
	ch := &fakeChannel{}
	v := openView(t, remote, ch, nil)

	ch.push(domain.TaskChanged{BoardID: "b1", Deleted: true, TaskID: "1"})
	moved := domain.Task{ID: "3", Title: "c", Status: domain.StatusInProgress}
	ch.push(domain.TaskChanged{BoardID: "b1", Task: &moved})
	ch.push(domain.TaskChanged{BoardID: "b1", Task: &moved})

	cols := columns(t, v)
	if len(cols[domain.StatusTodo]) != 0 {
		t.Fatalf("expected empty todo column, got %v", cols.IDs(domain.StatusTodo))
	}
	if got := cols.IDs(domain.StatusInProgress); len(got) != 1 || got[0] != "3" {
		t.Fatalf("unexpected in-progress column %v", got)
	}
	remote.mu.Lock()
	evicted := remote.evicted
	remote.mu.Unlock()
	if evicted != 3 {
		t.Fatalf("expected cache eviction per event, got %d", evicted)
	}
}

func TestListenersSeeChanges(t *testing.T) {
	v := openView(t, seeded(), &fakeChannel{}, nil)
	states := make(chan State, 8)
	cancel, err := v.Subscribe(func(s State) { states <- s })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	first := <-states
	d := board.NewDraft()
	d.Title = "write tests"
	if _, err := v.CreateTask(context.Background(), &d); err != nil {
		t.Fatalf("create: %v", err)
	}
	select {
	case s := <-states:
		if s.Version != first.Version+1 {
			t.Fatalf("expected version bump, got %d after %d", s.Version, first.Version)
		}
		if got := s.Columns.IDs(domain.StatusTodo); len(got) != 3 {
			t.Fatalf("expected created task in todo, got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("listener not notified")
	}
	if d.Title != "" || d.Status != domain.StatusTodo {
		t.Fatalf("expected draft reset, got %+v", d)
	}
}

func TestCreateTaskValidationNotifies(t *testing.T) {
	q := NewQueue(4)
	v := openView(t, seeded(), &fakeChannel{}, q)
	d := board.NewDraft()
	if _, err := v.CreateTask(context.Background(), &d); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	notes := q.Drain()
	if len(notes) != 1 || notes[0].Kind != KindValidation || notes[0].Op != "create_task" {
		t.Fatalf("unexpected notifications %+v", notes)
	}
}

func TestMoveAcrossColumnsPatchesStatus(t *testing.T) {
	remote := seeded()
	v := openView(t, remote, &fakeChannel{}, nil)

	mv, ok, err := v.Move(context.Background(),
		board.Position{Status: domain.StatusTodo, Index: 0},
		&board.Position{Status: domain.StatusDone, Index: 0})
	if err != nil || !ok {
		t.Fatalf("move: ok=%v err=%v", ok, err)
	}
	if !mv.StatusChanged || mv.Task.ID != "1" {
		t.Fatalf("unexpected move %+v", mv)
	}
	remote.mu.Lock()
	status := append([]domain.Status(nil), remote.status...)
	remote.mu.Unlock()
	if len(status) != 1 || status[0] != domain.StatusDone {
		t.Fatalf("expected one status patch, got %v", status)
	}
	cols := columns(t, v)
	if got := cols.IDs(domain.StatusDone); len(got) != 2 || got[0] != "1" {
		t.Fatalf("expected moved task first in done, got %v", got)
	}
	if cols[domain.StatusDone][0].Title != "from server" {
		t.Fatalf("expected server copy to be stored, got %+v", cols[domain.StatusDone][0])
	}
}

func TestMoveWithinColumnSkipsNetwork(t *testing.T) {
	remote := seeded()
	v := openView(t, remote, &fakeChannel{}, nil)
	if _, ok, err := v.Move(context.Background(),
		board.Position{Status: domain.StatusTodo, Index: 0},
		&board.Position{Status: domain.StatusTodo, Index: 1}); err != nil || !ok {
		t.Fatalf("reorder: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := v.Move(context.Background(), board.Position{Status: domain.StatusTodo}, nil); ok {
		t.Fatal("cancelled drag must be a no-op")
	}
	remote.mu.Lock()
	n := len(remote.status)
	remote.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected no status patch, got %d", n)
	}
	if got := columns(t, v).IDs(domain.StatusTodo); got[0] != "3" || got[1] != "1" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestMoveFailureKeepsLocalState(t *testing.T) {
	remote := seeded()
	q := NewQueue(4)
	v := openView(t, remote, &fakeChannel{}, q)
	remote.mu.Lock()
	remote.failAll = domain.ErrTransport
	remote.mu.Unlock()

	_, ok, err := v.Move(context.Background(),
		board.Position{Status: domain.StatusTodo, Index: 0},
		&board.Position{Status: domain.StatusInProgress, Index: 0})
	if !ok || !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected applied move with transport error, ok=%v err=%v", ok, err)
	}
	if got := columns(t, v).IDs(domain.StatusInProgress); len(got) != 1 {
		t.Fatalf("expected optimistic move to stay, got %v", got)
	}
	if notes := q.Drain(); len(notes) != 1 || notes[0].Kind != KindTransport {
		t.Fatalf("unexpected notifications %+v", notes)
	}
}

func TestDeleteComment(t *testing.T) {
	v := openView(t, seeded(), &fakeChannel{}, nil)
	ctx := context.Background()

	if err := v.DeleteComment(ctx, "2", "c1", "bob"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for a stranger, got %v", err)
	}
	if err := v.DeleteComment(ctx, "2", "c1", "alice"); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if err := v.DeleteComment(ctx, "2", "c2", "owner"); err != nil {
		t.Fatalf("creator delete: %v", err)
	}
	if err := v.DeleteComment(ctx, "2", "c2", "owner"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	task, ok, _ := v.Task("2")
	if !ok || len(task.Comments) != 0 {
		t.Fatalf("expected no comments left, got %+v", task)
	}
}

func TestEditAndSave(t *testing.T) {
	v := openView(t, seeded(), &fakeChannel{}, nil)
	ctx := context.Background()

	if err := v.SetEditing("1", true); err != nil {
		t.Fatalf("set editing: %v", err)
	}
	title := "renamed"
	if err := v.Edit("1", board.TaskEdit{Title: &title}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	empty := " "
	if err := v.Edit("1", board.TaskEdit{Title: &empty}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	out, err := v.Save(ctx, "1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if out.Title != "renamed" {
		t.Fatalf("unexpected saved task %+v", out)
	}
	task, _, _ := v.Task("1")
	if task.Editing {
		t.Fatal("expected editing to end after save")
	}
	if err := v.SetEditing("missing", true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInviteAndComment(t *testing.T) {
	v := openView(t, seeded(), &fakeChannel{}, nil)
	ctx := context.Background()

	members, err := v.Invite(ctx, "x@y.z")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected unique members, got %+v", members)
	}
	s, _ := v.State()
	if len(s.Board.Members) != 2 {
		t.Fatalf("expected board members updated, got %+v", s.Board.Members)
	}

	if _, err := v.AddComment(ctx, "2", " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := v.AddComment(ctx, "2", "looks good"); err != nil {
		t.Fatalf("add comment: %v", err)
	}
	task, _, _ := v.Task("2")
	if len(task.Comments) != 1 || task.Comments[0].Text != "looks good" {
		t.Fatalf("unexpected comments %+v", task.Comments)
	}
}

func TestReloadRebuilds(t *testing.T) {
	remote := seeded()
	v := openView(t, remote, &fakeChannel{}, nil)
	remote.mu.Lock()
	remote.tasks = []domain.Task{{ID: "9", Title: "z", Status: domain.StatusDone}}
	remote.mu.Unlock()

	if err := v.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	cols := columns(t, v)
	if len(cols[domain.StatusTodo]) != 0 || len(cols.IDs(domain.StatusDone)) != 1 {
		t.Fatalf("unexpected columns after reload %+v", cols)
	}
}

func TestCloseReleasesSubscription(t *testing.T) {
	ch := &fakeChannel{}
	ctx, cancel := context.WithCancel(context.Background())
	v, err := Open(ctx, "b1", seeded(), ch, Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	cancel()
	select {
	case <-v.Done():
	case <-time.After(time.Second):
		t.Fatal("view did not close on context end")
	}
	if !ch.isClosed() {
		t.Fatal("expected subscription to be closed")
	}
	if _, err := v.State(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	// late push after close is dropped without blocking
	ch.push(domain.TaskChanged{BoardID: "b1", Deleted: true, TaskID: "1"})
}
