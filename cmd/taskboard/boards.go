package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"taskboard/board"
	"taskboard/render"
)

func (a *app) boardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boards",
		Short: "List, create and delete boards",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the boards you belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			boards, err := a.client(sess).ListBoards(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tMEMBERS")
			for _, b := range boards {
				fmt.Fprintf(w, "%s\t%s\t%d\n", b.ID, b.DisplayName(), len(b.Members))
			}
			return w.Flush()
		},
	}, &cobra.Command{
		Use:   "create <title>",
		Short: "Create a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			b, err := a.client(sess).CreateBoard(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), b.ID)
			return nil
		},
	}, &cobra.Command{
		Use:   "delete <board-id>",
		Short: "Delete a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			return a.client(sess).DeleteBoard(cmd.Context(), args[0])
		},
	})
	return cmd
}

func (a *app) boardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show or watch a single board",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <board-id>",
		Short: "Print the board columns once",
		Args:  cobra.ExactArgs(1),
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
			tasks, err := remote.ListTasks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			r := board.New()
			r.Initialize(tasks)
			fmt.Fprintln(cmd.OutOrStdout(), render.Board(b, r.Snapshot(), render.Options{Members: b.Members}))
			return nil
		},
	}, a.watchCmd())
	return cmd
}
