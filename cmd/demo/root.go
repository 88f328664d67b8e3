package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tjfontaine/mobile-api-client/internal/config"
	"github.com/tjfontaine/mobile-api-client/internal/runtime"
	"github.com/tjfontaine/mobile-api-client/internal/telemetry"
)

var errConfig = errors.New("configuration error")

// env holds the injectable dependencies of every command.
type env struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func(path string) (*config.Config, error)
	appOptions []runtime.Option
}

func defaultEnv() *env {
	return &env{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		loadConfig: config.Load,
	}
}

// globalFlags are the persistent flags shared by all commands.
type globalFlags struct {
	configPath   string
	debug        bool
	printMetrics bool
}

func newRootCmd(e *env) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:     "demo",
		Short:   "Exercise the API client against a JSON REST backend",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.SetOut(e.stdout)
	root.SetErr(e.stderr)

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", config.DefaultPath, "config file path")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "log requests and responses")
	root.PersistentFlags().BoolVar(&flags.printMetrics, "metrics", false, "print client metrics after the command")

	root.AddCommand(postsCmd(e, flags))
	root.AddCommand(postCmd(e, flags))
	root.AddCommand(createPostCmd(e, flags))
	root.AddCommand(updatePostCmd(e, flags))
	root.AddCommand(patchPostCmd(e, flags))
	root.AddCommand(deletePostCmd(e, flags))
	root.AddCommand(usersCmd(e, flags))
	root.AddCommand(meCmd(e, flags))
	root.AddCommand(loginCmd(e, flags))
	root.AddCommand(logoutCmd(e, flags))
	root.AddCommand(whoamiCmd(e, flags))
	root.AddCommand(tasksCmd(e, flags))
	root.AddCommand(counterCmd(e, flags))
	root.AddCommand(serveCmd(e, flags))
	root.AddCommand(versionCmd(e, flags))

	return root
}

// config reads configuration and applies flag overrides.
func (e *env) config(flags *globalFlags) (*config.Config, error) {
	cfg, err := e.loadConfig(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	if flags.debug {
		cfg.API.Debug = true
	}
	if flags.printMetrics {
		cfg.Metrics.Enabled = true
	}
	return cfg, nil
}

// newLogger returns the JSON stderr logger for cfg.
func (e *env) newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.API.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(e.stderr, &slog.HandlerOptions{Level: level}))
}

// withApp builds an App, runs fn and releases the App.
func (e *env) withApp(ctx context.Context, flags *globalFlags, fn func(context.Context, *runtime.App) error) (err error) {
	cfg, err := e.config(flags)
	if err != nil {
		return err
	}
	logger := e.newLogger(cfg)

	shutdown := telemetry.ShutdownFunc(telemetry.Noop)
	if cfg.Telemetry.Enabled {
		shutdown, err = telemetry.InitTracer(cfg.App.Name, cfg.App.Version, e.stderr, logger)
		if err != nil {
			return fmt.Errorf("initialize tracer: %w", err)
		}
	}
	defer func() {
		if serr := shutdown(context.WithoutCancel(ctx)); serr != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", serr.Error()))
		}
	}()

	opts := append([]runtime.Option{
		runtime.WithConfig(cfg),
		runtime.WithLogger(logger),
	}, e.appOptions...)

	app, err := runtime.New(opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	err = fn(ctx, app)

	if flags.printMetrics && app.Registry() != nil {
		if merr := printMetrics(e.stderr, app.Registry()); merr != nil && err == nil {
			err = merr
		}
	}

	return err
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printMetrics writes one line per counter series and histogram.
func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				labels += fmt.Sprintf(" %s=%s", lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s%s count=%d sum=%g\n", mf.GetName(), labels, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}
