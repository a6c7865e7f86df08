package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskboard/session"
)

const envPassword = "TASKBOARD_PASSWORD"

func passwordFlag(cmd *cobra.Command, p *string) {
	cmd.Flags().StringVar(p, "password", "", "account password (defaults to $"+envPassword+")")
}

func resolvePassword(p string) string {
	if p != "" {
		return p
	}
	return os.Getenv(envPassword)
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.client(session.Session{}).Login(cmd.Context(), email, resolvePassword(password))
			if err != nil {
				return err
			}
			if err := a.store.Save(sess); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			a.logger.WithField("user", sess.UserID).Info("logged in")
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", displayUser(sess))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	passwordFlag(cmd, &password)
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client(session.Session{}).Register(cmd.Context(), name, email, resolvePassword(password)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "account created, run `taskboard login` to sign in")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	passwordFlag(cmd, &password)
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func displayUser(s session.Session) string {
	if s.Name != "" {
		return s.Name
	}
	return s.UserID
}
