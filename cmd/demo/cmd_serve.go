package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/mobile-api-client/internal/server"
)

func serveCmd(e *env, flags *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local posts and users backend",
		Long: `Run the local posts and users backend.

Point api.base_url at it (for example DEMO_API__BASE_URL=http://localhost:8080)
to exercise the client without network access. Bearer tokens accepted by /me
come from server.tokens; generate entries with the keygen command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.config(flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cfg.Server.Port <= 0 {
				return fmt.Errorf("%w: server.port must be positive", errConfig)
			}

			logger := e.newLogger(cfg)
			srv := server.New(server.Config{
				Port:           cfg.Server.Port,
				RequestTimeout: cfg.Server.RequestTimeout,
				RateLimitRPS:   cfg.Server.RateLimit.RPS,
				RateLimitBurst: cfg.Server.RateLimit.Burst,
				Tokens:         cfg.Server.Tokens,
			}, logger)

			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")

	return cmd
}
