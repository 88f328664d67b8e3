package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/mobile-api-client/internal/runtime"
	"github.com/tjfontaine/mobile-api-client/internal/session"
)

func loginCmd(e *env, flags *globalFlags) *cobra.Command {
	var token, refreshToken string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a bearer token and verify it against /me",
		Long: `Store a bearer token and verify it against /me.

The token is saved first so the request carries it. If the backend rejects
it, the stored credentials are cleared again.`,
		Example: `  demo login --token my-secret-token`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), flags, func(ctx context.Context, app *runtime.App) error {
				if err := app.Credentials.SaveTokens(ctx, token, refreshToken); err != nil {
					return err
				}

				me, err := app.API.Me(ctx)
				if err != nil {
					return err
				}

				user := session.User{ID: strconv.Itoa(me.ID), Email: me.Email, Name: me.Name}
				if err := app.Session.Login(ctx, user, token, refreshToken); err != nil {
					return err
				}

				fmt.Fprintf(e.stdout, "Logged in as %s <%s>\n", me.Name, me.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "access token")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "refresh token")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func logoutCmd(e *env, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), flags, func(ctx context.Context, app *runtime.App) error {
				if err := app.Session.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(e.stdout, "Logged out")
				return nil
			})
		},
	}
}

func whoamiCmd(e *env, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), flags, func(ctx context.Context, app *runtime.App) error {
				if err := app.Session.Load(ctx); err != nil {
					return err
				}
				return printJSON(e.stdout, app.Session.Current())
			})
		},
	}
}
