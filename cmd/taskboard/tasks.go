package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taskboard/board"
	"taskboard/boardview"
	"taskboard/domain"
	"taskboard/render"
)

const dueLayout = "2006-01-02"

func parseDue(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dueLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: due date must look like %s", domain.ErrValidation, dueLayout)
	}
	return &t, nil
}

func (a *app) taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, update, move and delete tasks",
	}
	cmd.AddCommand(a.taskAddCmd(), a.taskUpdateCmd(), a.taskMoveCmd(), a.taskDeleteCmd(), a.taskShowCmd())
	return cmd
}

func (a *app) taskAddCmd() *cobra.Command {
	var (
		d   = board.NewDraft()
		due string
	)
	cmd := &cobra.Command{
		Use:   "add <board-id>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if d.DueDate, err = parseDue(due); err != nil {
				return err
			}
			if err := d.Validate(); err != nil {
				return err
			}
			sess, err := a.session()
			if err != nil {
				return err
			}
			t, err := a.remote(a.client(sess)).CreateTask(cmd.Context(), d.Input(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&d.Title, "title", "", "task title")
	cmd.Flags().StringVar(&d.Description, "description", "", "task description")
	cmd.Flags().StringVar((*string)(&d.Status), "status", string(domain.StatusTodo), "todo, in-progress or done")
	cmd.Flags().StringVar(&d.AssignedTo, "assignee", "", "member ID to assign")
	cmd.Flags().StringVar(&due, "due", "", "due date ("+dueLayout+")")
	return cmd
}

func (a *app) taskUpdateCmd() *cobra.Command {
	var title, description, status, assignee, due string
	cmd := &cobra.Command{
		Use:   "update <board-id> <task-id>",
		Short: "Change task fields; unset flags keep their value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			remote := a.remote(a.client(sess))
			t, err := findTask(cmd, remote, args[0], args[1])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("title") {
				t.Title = title
			}
			if flags.Changed("description") {
				t.Description = description
			}
			if flags.Changed("status") {
				t.Status = domain.Status(status)
			}
			if flags.Changed("assignee") {
				t.AssignedTo = assignee
			}
			if flags.Changed("due") {
				if t.DueDate, err = parseDue(due); err != nil {
					return err
				}
			}
			out, err := remote.UpdateTask(cmd.Context(), t)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %q in %s\n", out.ID, out.Title, out.Status.Normalize().Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&status, "status", "", "todo, in-progress or done")
	cmd.Flags().StringVar(&assignee, "assignee", "", "member ID to assign")
	cmd.Flags().StringVar(&due, "due", "", "due date ("+dueLayout+")")
	return cmd
}

func (a *app) taskMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <task-id> <status>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			out, err := a.remote(a.client(sess)).UpdateTaskStatus(cmd.Context(), args[0], domain.Status(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s moved to %s\n", out.ID, out.Status.Normalize().Label())
			return nil
		},
	}
}

func (a *app) taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			return a.remote(a.client(sess)).DeleteTask(cmd.Context(), args[0])
		},
	}
}

func (a *app) taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <board-id> <task-id>",
		Short: "Print a task with its comments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			t, err := findTask(cmd, a.remote(a.client(sess)), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s [%s]\n", t.Title, t.Status.Normalize().Label())
			if t.Description != "" {
				fmt.Fprintln(out, t.Description)
			}
			fmt.Fprintln(out, render.Comments(t))
			return nil
		},
	}
}

func (a *app) commentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Add or delete task comments",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <task-id> <text>",
		Short: "Comment on a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			t, err := a.remote(a.client(sess)).AddComment(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Comments(t))
			return nil
		},
	}, &cobra.Command{
		Use:   "delete <board-id> <task-id> <comment-id>",
		Short: "Delete a comment you wrote, or any comment on a board you created",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			remote := a.remote(a.client(sess))
			b, err := remote.GetBoard(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t, err := findTask(cmd, remote, args[0], args[1])
			if err != nil {
				return err
			}
			for _, c := range t.Comments {
				if c.ID != args[2] {
					continue
				}
				if !domain.CanDeleteComment(b, c, sess.UserID) {
					return fmt.Errorf("%w: only the board creator or the author may delete this comment", domain.ErrUnauthorized)
				}
				return remote.DeleteComment(cmd.Context(), t.ID, c.ID)
			}
			return fmt.Errorf("%w: comment %s", domain.ErrNotFound, args[2])
		},
	})
	return cmd
}

func (a *app) inviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite <board-id> <email>",
		Short: "Invite a user to a board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			members, err := a.remote(a.client(sess)).InviteMember(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			for _, m := range domain.UniqueMembers(members) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", m.ID, m.Name, m.Email)
			}
			return nil
		},
	}
}

// findTask looks a task up through the board's task list, which is the
// only read the API offers.
func findTask(cmd *cobra.Command, remote boardview.Remote, boardID, taskID string) (domain.Task, error) {
	tasks, err := remote.ListTasks(cmd.Context(), boardID)
	if err != nil {
		return domain.Task{}, err
	}
	for _, t := range tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return domain.Task{}, fmt.Errorf("%w: task %s on board %s", domain.ErrNotFound, taskID, boardID)
}
