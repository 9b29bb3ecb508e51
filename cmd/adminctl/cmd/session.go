package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanizio/eyegonal/internal/auth"
)

var errNotSignedIn = errors.New("not signed in")

func newLoginCmd(opts *options) *cobra.Command {
	var email string
	c := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := promptPassword(cmd, "Password: ")
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			return withAuth(opts, func(a *auth.Auth) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), auth.DefaultTimeout)
				defer cancel()
				if err := a.SignIn(ctx, email, pw); err != nil {
					return err
				}
				rec, _ := a.Admin()
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", rec.Email)
				return nil
			})
		},
	}
	c.Flags().StringVarP(&email, "email", "e", "", "administrator email")
	_ = c.MarkFlagRequired("email")
	return c
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAuth(opts, func(a *auth.Auth) error {
				a.SignOut()
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
				return nil
			})
		},
	}
}

func newWhoamiCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAuth(opts, func(a *auth.Auth) error {
				rec, ok := a.Admin()
				if !ok {
					return errNotSignedIn
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "email:      %s\n", rec.Email)
				fmt.Fprintf(out, "id:         %s\n", rec.ID)
				fmt.Fprintf(out, "created:    %s\n", rec.CreatedAt.Format(time.RFC3339))
				if rec.LastLogin != nil {
					fmt.Fprintf(out, "last login: %s\n", rec.LastLogin.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}
