package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"taskboard/boardview"
	"taskboard/render"
	"taskboard/view"
)

const clearScreen = "\033[H\033[2J"

func (a *app) watchCmd() *cobra.Command {
	var serve, quiet bool
	cmd := &cobra.Command{
		Use:   "watch <board-id>",
		Short: "Keep a board open and redraw it on every change",
		Long: `Opens the board, subscribes to its push events and redraws the columns
whenever something changes. With --serve the board is also exposed on the
local view server (VIEW_ADDR) for browser or TUI front-ends.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			queue := boardview.NewQueue(64)
			v, err := boardview.Open(ctx, args[0], a.remote(a.client(sess)), a.channel(sess), boardview.Options{
				Logger:   a.logger,
				Notifier: queue,
				Buffer:   a.cfg.LoopBuffer,
			})
			if err != nil {
				return err
			}
			defer v.Close()

			if !quiet {
				redraw := make(chan boardview.State, 1)
				unsubscribe, err := v.Subscribe(func(s boardview.State) {
					select {
					case <-redraw:
					default:
					}
					redraw <- s
				})
				if err != nil {
					return err
				}
				defer unsubscribe()
				go draw(ctx, cmd.OutOrStdout(), redraw, queue, v.Done())
			}

			if serve {
				srv, err := view.New(v, view.Options{
					Token:         a.cfg.ViewToken,
					UserID:        sess.UserID,
					Notifications: queue,
					Logger:        a.logger,
				})
				if err != nil {
					return err
				}
				go func() {
					if err := srv.Start(a.cfg.ViewAddr); err != nil {
						a.logger.WithError(err).Error("view server stopped")
						v.Close()
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			select {
			case <-ctx.Done():
			case <-v.Done():
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "expose the board on the local view server")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "do not draw the board in the terminal")
	return cmd
}

// draw renders every state it receives along with any pending failure
// notifications.
func draw(ctx context.Context, w io.Writer, states <-chan boardview.State, queue *boardview.Queue, done <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case s := <-states:
			fmt.Fprint(w, clearScreen)
			fmt.Fprintln(w, render.Board(s.Board, s.Columns, render.Options{Members: s.Board.Members}))
			for _, n := range queue.Drain() {
				fmt.Fprintf(w, "! %s failed (%s): %s\n", n.Op, n.Kind, n.Message)
			}
		}
	}
}
