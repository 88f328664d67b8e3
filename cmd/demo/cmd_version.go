package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func versionCmd(e *env, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build and configured app version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(e.stdout, "demo %s (commit: %s)\n", version, commit)
			cfg, err := e.config(flags)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.stdout, "app %s %s\n", cfg.App.Name, cfg.App.Version)
			return nil
		},
	}
}
