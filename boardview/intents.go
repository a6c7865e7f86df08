package boardview

import (
	"context"
	"fmt"
	"strings"

	"taskboard/board"
	"taskboard/domain"
)

// CreateTask validates d, creates the task on the server and adds the
// confirmed task to its column. d is reset once the task is applied.
func (v *View) CreateTask(ctx context.Context, d *board.Draft) (domain.Task, error) {
	const op = "create_task"
	if d == nil {
		return domain.Task{}, v.fail(op, fmt.Errorf("%w: empty draft", domain.ErrValidation))
	}
	if err := d.Validate(); err != nil {
		return domain.Task{}, v.fail(op, err)
	}
	t, err := v.remote.CreateTask(ctx, d.Input(v.boardID))
	if err != nil {
		return domain.Task{}, v.fail(op, err)
	}
	var applied bool
	if err := v.run(func() bool {
		applied = v.rec.ApplyLocalCreate(t)
		return applied
	}); err != nil {
		return t, v.fail(op, err)
	}
	if applied {
		d.Reset()
	}
	return t, nil
}

// UpdateTask sends the full task and stores the server-confirmed copy.
func (v *View) UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	const op = "update_task"
	out, err := v.remote.UpdateTask(ctx, t)
	if err != nil {
		return domain.Task{}, v.fail(op, err)
	}
	if err := v.run(func() bool { return v.rec.ApplyLocalUpdate(out) }); err != nil {
		return out, v.fail(op, err)
	}
	return out, nil
}

// Save sends the local copy of a task being edited and leaves editing mode
// once the server confirms it.
func (v *View) Save(ctx context.Context, taskID string) (domain.Task, error) {
	t, ok, err := v.Task(taskID)
	if err != nil {
		return domain.Task{}, v.fail("save_task", err)
	}
	if !ok {
		return domain.Task{}, v.fail("save_task", fmt.Errorf("%w: task %s", domain.ErrNotFound, taskID))
	}
	return v.UpdateTask(ctx, t)
}

// DeleteTask deletes the task on the server and drops it locally.
func (v *View) DeleteTask(ctx context.Context, taskID string) error {
	const op = "delete_task"
	if err := v.remote.DeleteTask(ctx, taskID); err != nil {
		return v.fail(op, err)
	}
	return v.fail(op, v.run(func() bool { return v.rec.ApplyLocalDelete(taskID) }))
}

// Move applies a drag gesture. A nil dest cancels the drag. When the task
// changed columns the new status is sent to the server; a failed update is
// reported but not rolled back, the next reload or push repairs it.
func (v *View) Move(ctx context.Context, source board.Position, dest *board.Position) (board.Move, bool, error) {
	const op = "move_task"
	var (
		mv board.Move
		ok bool
	)
	if err := v.run(func() bool {
		mv, ok = v.rec.ApplyDragMove(source, dest)
		return ok
	}); err != nil {
		return board.Move{}, false, v.fail(op, err)
	}
	if !ok || !mv.StatusChanged {
		return mv, ok, nil
	}
	out, err := v.remote.UpdateTaskStatus(ctx, mv.Task.ID, mv.To.Status)
	if err != nil {
		return mv, true, v.fail(op, err)
	}
	// the task already sits in the column of its new status, so the server
	// copy replaces it without losing the chosen position
	if err := v.run(func() bool { return v.rec.ApplyLocalUpdate(out) }); err != nil {
		return mv, true, v.fail(op, err)
	}
	return mv, true, nil
}

// AddComment posts text on taskID and stores the returned task.
func (v *View) AddComment(ctx context.Context, taskID, text string) (domain.Task, error) {
	const op = "add_comment"
	if strings.TrimSpace(text) == "" {
		return domain.Task{}, v.fail(op, fmt.Errorf("%w: comment text is required", domain.ErrValidation))
	}
	t, err := v.remote.AddComment(ctx, taskID, text)
	if err != nil {
		return domain.Task{}, v.fail(op, err)
	}
	if err := v.run(func() bool { return v.rec.ApplyCommentAdd(t) }); err != nil {
		return t, v.fail(op, err)
	}
	return t, nil
}

// DeleteComment removes a comment. Only the board creator or the comment
// author may do so; userID is the acting user.
func (v *View) DeleteComment(ctx context.Context, taskID, commentID, userID string) error {
	const op = "delete_comment"
	var (
		meta    domain.Board
		comment domain.Comment
		found   bool
	)
	if err := v.run(func() bool {
		meta = v.meta
		if t, ok := v.rec.Find(taskID); ok {
			for _, c := range t.Comments {
				if c.ID == commentID {
					comment, found = c, true
					break
				}
			}
		}
		return false
	}); err != nil {
		return v.fail(op, err)
	}
	if !found {
		return v.fail(op, fmt.Errorf("%w: comment %s on task %s", domain.ErrNotFound, commentID, taskID))
	}
	if !domain.CanDeleteComment(meta, comment, userID) {
		return v.fail(op, fmt.Errorf("%w: only the board creator or the author may delete a comment", domain.ErrUnauthorized))
	}
	if err := v.remote.DeleteComment(ctx, taskID, commentID); err != nil {
		return v.fail(op, err)
	}
	return v.fail(op, v.run(func() bool { return v.rec.ApplyCommentDelete(taskID, commentID) }))
}

// SetEditing toggles the local editing mode of a task.
func (v *View) SetEditing(taskID string, editing bool) error {
	const op = "set_editing"
	var ok bool
	if err := v.run(func() bool {
		ok = v.rec.SetEditing(taskID, editing)
		return ok
	}); err != nil {
		return v.fail(op, err)
	}
	if !ok {
		return v.fail(op, fmt.Errorf("%w: task %s", domain.ErrNotFound, taskID))
	}
	return nil
}

// Edit changes fields of a task locally. Save sends them to the server.
func (v *View) Edit(taskID string, edit board.TaskEdit) error {
	const op = "edit_task"
	if edit.Title != nil && strings.TrimSpace(*edit.Title) == "" {
		return v.fail(op, fmt.Errorf("%w: title is required", domain.ErrValidation))
	}
	var ok bool
	if err := v.run(func() bool {
		ok = v.rec.ApplyLocalEdit(taskID, edit)
		return ok
	}); err != nil {
		return v.fail(op, err)
	}
	if !ok {
		return v.fail(op, fmt.Errorf("%w: task %s", domain.ErrNotFound, taskID))
	}
	return nil
}

// Invite adds a member by email and refreshes the board's member list.
func (v *View) Invite(ctx context.Context, email string) ([]domain.Member, error) {
	const op = "invite_member"
	members, err := v.remote.InviteMember(ctx, v.boardID, email)
	if err != nil {
		return nil, v.fail(op, err)
	}
	members = domain.UniqueMembers(members)
	if err := v.run(func() bool {
		v.meta.Members = members
		return true
	}); err != nil {
		return members, v.fail(op, err)
	}
	return members, nil
}

// Reload fetches the board and its tasks again and rebuilds the columns.
func (v *View) Reload(ctx context.Context) error {
	const op = "reload"
	if e, ok := v.remote.(evicter); ok {
		e.Evict(ctx, v.boardID)
	}
	meta, tasks, err := v.load(ctx)
	if err != nil {
		return v.fail(op, err)
	}
	return v.fail(op, v.run(func() bool {
		v.meta = meta
		v.rec.Initialize(tasks)
		return true
	}))
}
