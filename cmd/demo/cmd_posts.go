package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/mobile-api-client/internal/api"
	"github.com/tjfontaine/mobile-api-client/internal/runtime"
)

var errInvalidID = errors.New("invalid id")

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, s)
	}
	return id, nil
}

func postsCmd(e *env, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "posts",
		Short: "List the first posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), flags, func(ctx context.Context, app *runtime.App) error {
				posts, err := app.API.GetPosts(ctx)
				if err != nil {
					return err
				}
				return printJSON(e.stdout, posts)
			})
		},
	}
}

func postCmd(e *env, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "post <id>",
		Short:   "Show one post",
		Example: `  demo post 1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return e.withApp(cmd.Context(), flags, func(ctx context.Context, app *runtime.App) error {
				post, err := app.API.GetPost(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(e.stdout, post)
			})
		},
	}
}

func createPostCmd(e *env, flags *globalFlags) *cobra.Command {
	var in api.NewPost

	cmd := &cobra.Command{
		Use:     "create-post",
		Short:   "Create a post",
		Example: `  demo create-post --user-id 1 --title "Hello" --body "World"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), flags, func(ctx context.Context, app *runtime.App) error {
				post, err := app.API.CreatePost(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(e.stdout, post)
			})
		},
	}

	cmd.Flags().IntVar(&in.UserID, "user-id", 1, "author user id")
	cmd.Flags().StringVar(&in.Title, "title", "", "post title")
	cmd.Flags().StringVar(&in.Body, "body", "", "post body")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// postUpdateFlags binds the optional fields of a post update.
type postUpdateFlags struct {
	userID int
	title  string
	body   string
}

func (f *postUpdateFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.userID, "user-id", 0, "author user id")
	cmd.Flags().StringVar(&f.title, "title", "", "post title")
	cmd.Flags().StringVar(&f.body, "body", "", "post body")
}

// update returns only the fields set on the command line.
func (f *postUpdateFlags) update(cmd *cobra.Command) api.PostUpdate {
	var u api.PostUpdate
	if cmd.Flags().Changed("user-id") {
		u.UserID = &f.userID
	}
	if cmd.Flags().Changed("title") {
		u.Title = &f.title
	}
	if cmd.Flags().Changed("body") {
		u.Body = &f.body
	}
	return u
}

func updatePostCmd(e *env, flags *globalFlags) *cobra.Command {
	return postUpdateCmd(e, flags, "update-post <id>", "Replace a post (PUT)", func(ctx context.Context, c *api.Client, id int, u api.PostUpdate) (api.Post, error) {
		return c.UpdatePost(ctx, id, u)
	})
}

func patchPostCmd(e *env, flags *globalFlags) *cobra.Command {
	return postUpdateCmd(e, flags, "patch-post <id>", "Change some fields of a post (PATCH)", func(ctx context.Context, c *api.Client, id int, u api.PostUpdate) (api.Post, error) {
		return c.PatchPost(ctx, id, u)
	})
}

func postUpdateCmd(e *env, flags *globalFlags, use, short string,
	apply func(context.Context, *api.Client, int, api.PostUpdate) (api.Post, error),
) *cobra.Command {
	f := &postUpdateFlags{}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			update := f.update(cmd)
			return e.withApp(cmd.Context(), flags, func(ctx context.Context, app *runtime.App) error {
				post, err := apply(ctx, app.API, id, update)
				if err != nil {
					return err
				}
				return printJSON(e.stdout, post)
			})
		},
	}
	f.register(cmd)

	return cmd
}

func deletePostCmd(e *env, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-post <id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return e.withApp(cmd.Context(), flags, func(ctx context.Context, app *runtime.App) error {
				if err := app.API.DeletePost(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(e.stdout, "Deleted post %d\n", id)
				return nil
			})
		},
	}
}

func usersCmd(e *env, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the first users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), flags, func(ctx context.Context, app *runtime.App) error {
				users, err := app.API.GetUsers(ctx)
				if err != nil {
					return err
				}
				return printJSON(e.stdout, users)
			})
		},
	}
}

func meCmd(e *env, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Fetch the authenticated user from the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), flags, func(ctx context.Context, app *runtime.App) error {
				user, err := app.API.Me(ctx)
				if err != nil {
					return err
				}
				return printJSON(e.stdout, user)
			})
		},
	}
}
