package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/mobile-api-client/internal/runtime"
	"github.com/tjfontaine/mobile-api-client/internal/state"
)

func tasksCmd(e *env, flags *globalFlags) *cobra.Command {
	// withTasks loads the task list and runs fn on it.
	withTasks := func(cmd *cobra.Command, fn func(context.Context, *state.TaskStore) error) error {
		return e.withApp(cmd.Context(), flags, func(ctx context.Context, app *runtime.App) error {
			tasks, err := app.Tasks(ctx)
			if err != nil {
				return err
			}
			return fn(ctx, tasks)
		})
	}

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and edit the persisted task list",
		Example: `  demo tasks
  demo tasks add buy milk
  demo tasks toggle <id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTasks(cmd, func(ctx context.Context, tasks *state.TaskStore) error {
				printTasks(e, tasks.Tasks())
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE:  cmd.RunE,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <text>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTasks(cmd, func(ctx context.Context, tasks *state.TaskStore) error {
				task, err := tasks.Add(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(e.stdout, "Added %s\n", task.ID)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task between open and done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTasks(cmd, func(ctx context.Context, tasks *state.TaskStore) error {
				task, err := tasks.Toggle(ctx, args[0])
				if err != nil {
					return err
				}
				printTasks(e, []state.Task{task})
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTasks(cmd, func(ctx context.Context, tasks *state.TaskStore) error {
				if err := tasks.Remove(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(e.stdout, "Removed %s\n", args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear-completed",
		Short: "Remove every completed task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTasks(cmd, func(ctx context.Context, tasks *state.TaskStore) error {
				n, err := tasks.ClearCompleted(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(e.stdout, "Removed %d completed task(s)\n", n)
				return nil
			})
		},
	})

	return cmd
}

func printTasks(e *env, tasks []state.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(e.stdout, "No tasks")
		return
	}
	for _, t := range tasks {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(e.stdout, "[%s] %s  %s\n", mark, t.ID, t.Text)
	}
}

func counterCmd(e *env, flags *globalFlags) *cobra.Command {
	// counterOp builds a subcommand that applies op and prints the new value.
	counterOp := func(use, short string, op func(*state.Counter, context.Context) (int, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.withApp(cmd.Context(), flags, func(ctx context.Context, app *runtime.App) error {
					counter, err := app.Counter(ctx)
					if err != nil {
						return err
					}
					value, err := op(counter, ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(e.stdout, value)
					return nil
				})
			},
		}
	}

	show := func(c *state.Counter, _ context.Context) (int, error) {
		return c.Value(), nil
	}

	cmd := counterOp("counter", "Show the persisted counter", show)
	cmd.AddCommand(counterOp("show", "Show the persisted counter", show))
	cmd.AddCommand(counterOp("inc", "Increment the counter", (*state.Counter).Increment))
	cmd.AddCommand(counterOp("dec", "Decrement the counter", (*state.Counter).Decrement))
	cmd.AddCommand(counterOp("reset", "Reset the counter to zero", (*state.Counter).Reset))

	return cmd
}
