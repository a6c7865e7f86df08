// Package board keeps the grouped view of the tasks on the currently opened
// board and merges local edits, server confirmations, drag moves and push
// events into it.
package board

import (
	"slices"

	"taskboard/domain"
)

// Grouped maps every status to its ordered column of tasks.
type Grouped map[domain.Status][]domain.Task

// IDs returns the task identifiers of the column in order.
func (g Grouped) IDs(s domain.Status) []string {
	ids := make([]string, 0, len(g[s]))
	for _, t := range g[s] {
		ids = append(ids, t.ID)
	}
	return ids
}

// Position addresses a slot within a status column.
type Position struct {
	Status domain.Status `json:"status"`
	Index  int           `json:"index"`
}

// Move describes an applied drag move.
type Move struct {
	Task domain.Task `json:"task"`
	From Position    `json:"from"`
	To   Position    `json:"to"`
	// StatusChanged is set when the task switched columns and the server
	// must be told about its new status.
	StatusChanged bool `json:"statusChanged"`
}

// TaskEdit carries in-place edits made while a task is in editing mode.
// Nil fields are left untouched.
type TaskEdit struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	AssignedTo  *string `json:"assignedTo,omitempty"`
}

// Reconciler owns the grouped view state. It is not safe for concurrent use;
// callers serialize access (see boardview).
type Reconciler struct {
	buckets Grouped
}

// New returns a reconciler with an empty column for every status.
func New() *Reconciler {
	r := &Reconciler{}
	r.reset()
	return r
}

func (r *Reconciler) reset() {
	r.buckets = make(Grouped, len(domain.Statuses()))
	for _, s := range domain.Statuses() {
		r.buckets[s] = []domain.Task{}
	}
}

// Initialize rebuilds the grouping from scratch. Tasks without an ID or with
// an unknown status are skipped.
func (r *Reconciler) Initialize(tasks []domain.Task) {
	r.reset()
	for _, t := range tasks {
		if nt, ok := normalized(t); ok {
			r.upsert(nt)
		}
	}
}

// ApplyLocalCreate appends a server-created task to its column. It reports
// whether the task was accepted, which is the signal to reset the draft.
func (r *Reconciler) ApplyLocalCreate(task domain.Task) bool {
	t, ok := normalized(task)
	if !ok {
		return false
	}
	r.upsert(t)
	return true
}

// ApplyLocalDelete removes the task from whichever column holds it. A task
// that is already gone is not an error.
func (r *Reconciler) ApplyLocalDelete(taskID string) bool {
	return r.remove(taskID)
}

// ApplyLocalUpdate moves the server-confirmed task into the column of its
// confirmed status, wherever the stale local copy was.
func (r *Reconciler) ApplyLocalUpdate(task domain.Task) bool {
	t, ok := normalized(task)
	if !ok {
		return false
	}
	t.Editing = false
	r.upsert(t)
	return true
}

// ApplyDragMove applies a drag and drop gesture. A nil dest means the drag
// was cancelled.
func (r *Reconciler) ApplyDragMove(source Position, dest *Position) (Move, bool) {
	if dest == nil || source == *dest {
		return Move{}, false
	}
	if !source.Status.Known() || !dest.Status.Known() || dest.Index < 0 {
		return Move{}, false
	}
	col := r.buckets[source.Status]
	if source.Index < 0 || source.Index >= len(col) {
		return Move{}, false
	}

	task := col[source.Index]
	r.buckets[source.Status] = slices.Delete(col, source.Index, source.Index+1)

	target := r.buckets[dest.Status]
	idx := min(dest.Index, len(target))
	changed := source.Status != dest.Status
	if changed {
		task.Status = dest.Status
	}
	r.buckets[dest.Status] = slices.Insert(target, idx, task)

	return Move{
		Task:          task.Clone(),
		From:          source,
		To:            Position{Status: dest.Status, Index: idx},
		StatusChanged: changed,
	}, true
}

// ApplyRemotePush merges a push event. Malformed events are ignored.
func (r *Reconciler) ApplyRemotePush(ev domain.Event) bool {
	switch e := ev.(type) {
	case domain.TaskChanged:
		if e.Deleted {
			return r.remove(e.ID())
		}
		if e.Task == nil {
			return false
		}
		t, ok := normalized(*e.Task)
		if !ok {
			return false
		}
		if cur, _, found := r.find(t.ID); found {
			t.Editing = cur.Editing
		}
		r.upsert(t)
		return true
	case domain.CommentChanged:
		return r.replace(e.Task)
	default:
		return false
	}
}

// ApplyCommentAdd stores the server-confirmed task returned after posting a
// comment. Like a comment push it never moves the task between columns.
func (r *Reconciler) ApplyCommentAdd(task domain.Task) bool {
	return r.replace(task)
}

// ApplyCommentDelete drops commentID from the task's comment list.
func (r *Reconciler) ApplyCommentDelete(taskID, commentID string) bool {
	s, i, ok := r.locate(taskID)
	if !ok {
		return false
	}
	t := &r.buckets[s][i]
	n := len(t.Comments)
	t.Comments = slices.DeleteFunc(slices.Clone(t.Comments), func(c domain.Comment) bool {
		return c.ID == commentID
	})
	return len(t.Comments) != n
}

// SetEditing toggles the local editing flag of a task.
func (r *Reconciler) SetEditing(taskID string, editing bool) bool {
	s, i, ok := r.locate(taskID)
	if !ok {
		return false
	}
	r.buckets[s][i].Editing = editing
	return true
}

// ApplyLocalEdit changes task fields in place without touching its column.
func (r *Reconciler) ApplyLocalEdit(taskID string, edit TaskEdit) bool {
	s, i, ok := r.locate(taskID)
	if !ok {
		return false
	}
	t := &r.buckets[s][i]
	if edit.Title != nil {
		t.Title = *edit.Title
	}
	if edit.Description != nil {
		t.Description = *edit.Description
	}
	if edit.AssignedTo != nil {
		t.AssignedTo = *edit.AssignedTo
	}
	return true
}

// Find returns a copy of the task with the given ID.
func (r *Reconciler) Find(taskID string) (domain.Task, bool) {
	t, _, ok := r.find(taskID)
	return t, ok
}

// Len returns the number of tasks across all columns.
func (r *Reconciler) Len() int {
	n := 0
	for _, col := range r.buckets {
		n += len(col)
	}
	return n
}

// Snapshot returns a deep copy of the grouped state.
func (r *Reconciler) Snapshot() Grouped {
	out := make(Grouped, len(r.buckets))
	for s, col := range r.buckets {
		cp := make([]domain.Task, len(col))
		for i, t := range col {
			cp[i] = t.Clone()
		}
		out[s] = cp
	}
	return out
}

func (r *Reconciler) find(taskID string) (domain.Task, domain.Status, bool) {
	s, i, ok := r.locate(taskID)
	if !ok {
		return domain.Task{}, "", false
	}
	return r.buckets[s][i].Clone(), s, true
}

func (r *Reconciler) locate(taskID string) (domain.Status, int, bool) {
	if taskID == "" {
		return "", -1, false
	}
	for _, s := range domain.Statuses() {
		if i := indexOf(r.buckets[s], taskID); i >= 0 {
			return s, i, true
		}
	}
	return "", -1, false
}

// upsert keeps a task that already sits in its target column at its
// position and appends it otherwise. Copies elsewhere are dropped.
func (r *Reconciler) upsert(t domain.Task) {
	for _, s := range domain.Statuses() {
		if s == t.Status {
			continue
		}
		r.buckets[s] = deleteID(r.buckets[s], t.ID)
	}
	col := r.buckets[t.Status]
	if i := indexOf(col, t.ID); i >= 0 {
		col[i] = t
		return
	}
	r.buckets[t.Status] = append(col, t)
}

// replace swaps the stored copy of t for t in place. The column, and
// therefore the status, of the stored copy wins.
func (r *Reconciler) replace(task domain.Task) bool {
	s, i, ok := r.locate(task.ID)
	if !ok {
		return false
	}
	t := task.Clone()
	t.Status = s
	t.Editing = r.buckets[s][i].Editing
	r.buckets[s][i] = t
	return true
}

func (r *Reconciler) remove(taskID string) bool {
	if taskID == "" {
		return false
	}
	removed := false
	for _, s := range domain.Statuses() {
		before := len(r.buckets[s])
		r.buckets[s] = deleteID(r.buckets[s], taskID)
		removed = removed || len(r.buckets[s]) != before
	}
	return removed
}

func normalized(t domain.Task) (domain.Task, bool) {
	if t.ID == "" {
		return domain.Task{}, false
	}
	out := t.Clone()
	out.Status = out.Status.Normalize()
	if !out.Status.Known() {
		return domain.Task{}, false
	}
	return out, true
}

func indexOf(col []domain.Task, id string) int {
	return slices.IndexFunc(col, func(t domain.Task) bool { return t.ID == id })
}

func deleteID(col []domain.Task, id string) []domain.Task {
	return slices.DeleteFunc(col, func(t domain.Task) bool { return t.ID == id })
}
