// Package runtime wires configuration, storage, the request pipeline and its
// default interceptors into a ready-to-use App.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/mobile-api-client/internal/api"
	"github.com/tjfontaine/mobile-api-client/internal/config"
	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
	"github.com/tjfontaine/mobile-api-client/internal/credentials"
	"github.com/tjfontaine/mobile-api-client/internal/interceptors"
	"github.com/tjfontaine/mobile-api-client/internal/pipeline"
	"github.com/tjfontaine/mobile-api-client/internal/session"
	"github.com/tjfontaine/mobile-api-client/internal/state"
	"github.com/tjfontaine/mobile-api-client/internal/storage/memory"
	"github.com/tjfontaine/mobile-api-client/internal/storage/sqlite"
)

// Storage namespaces used when both stores share one SQLite database.
const (
	SecureNamespace = "secure"
	StateNamespace  = "state"
)

// App owns every long-lived client component. Build it with New and release
// it with Close.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpClient *http.Client
	secure     ports.KeyValueStore
	state      ports.KeyValueStore
	registry   *prometheus.Registry
	refresher  interceptors.Refresher
	closers    []func() error

	Pipeline    *pipeline.Pipeline
	API         *api.Client
	Credentials *credentials.Store
	Session     *session.Session
	Metrics     *interceptors.Metrics
}

// New creates an App with the given options. A configuration is required
// (WithConfig or WithConfigFile).
func New(opts ...Option) (*App, error) {
	a := &App{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if a.cfg == nil {
		return nil, errors.New("config required (use WithConfig or WithConfigFile)")
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}

	if err := a.initStorage(); err != nil {
		return nil, err
	}

	a.Credentials = credentials.New(a.secure)
	a.Session = session.New(a.Credentials, a.logger)

	if a.registry == nil && a.cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
	}
	if a.registry != nil {
		a.Metrics = interceptors.NewMetrics(a.registry)
	}

	if a.refresher == nil && a.cfg.Auth.TokenURL != "" {
		a.refresher = credentials.NewOAuth2Refresher(a.cfg.Auth.TokenURL, a.cfg.Auth.ClientID, a.httpClient)
	}

	a.Pipeline = a.newPipeline()
	a.API = api.NewClient(a.Pipeline)

	a.logger.Debug("app initialized",
		slog.String("base_url", a.cfg.API.BaseURL),
		slog.String("storage", a.cfg.Storage.Type),
		slog.Bool("metrics", a.Metrics != nil),
		slog.Bool("refresh", a.refresher != nil),
	)

	return a, nil
}

// initStorage opens the configured backend for any store not supplied as an
// option.
func (a *App) initStorage() error {
	if a.secure != nil && a.state != nil {
		return nil
	}

	switch a.cfg.Storage.Type {
	case "sqlite":
		store, err := sqlite.New(a.cfg.Storage.SQLite.Path)
		if err != nil {
			return fmt.Errorf("open sqlite storage: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if a.secure == nil {
			a.secure = store.Namespace(SecureNamespace)
		}
		if a.state == nil {
			a.state = store.Namespace(StateNamespace)
		}
	case "memory", "":
		if a.secure == nil {
			a.secure = memory.New()
		}
		if a.state == nil {
			a.state = memory.New()
		}
	default:
		return fmt.Errorf("unknown storage type %q", a.cfg.Storage.Type)
	}

	return nil
}

// newPipeline builds the pipeline and installs the default interceptors.
func (a *App) newPipeline() *pipeline.Pipeline {
	p := pipeline.New(a.cfg.API.BaseURL,
		pipeline.WithHTTPClient(a.httpClient),
		pipeline.WithTimeout(a.cfg.API.Timeout()),
		pipeline.WithRetries(a.cfg.API.Retries),
		pipeline.WithDebug(a.cfg.API.Debug),
		pipeline.WithLogger(a.logger),
	)

	p.AddRequestInterceptor(interceptors.JSONHeaders())
	p.AddRequestInterceptor(interceptors.RequestID())
	if a.cfg.RateLimit.RPS > 0 {
		p.AddRequestInterceptor(interceptors.RateLimit(a.cfg.RateLimit.RPS, a.cfg.RateLimit.Burst))
	}
	p.AddRequestInterceptor(interceptors.Bearer(a.Credentials, a.logger))

	p.AddResponseInterceptor(interceptors.ResponseLogger(a.logger))
	if a.Metrics != nil {
		p.AddResponseInterceptor(a.Metrics)
		p.AddErrorInterceptor(a.Metrics)
	}

	p.AddErrorInterceptor(interceptors.ErrorLogger(a.logger))
	p.AddErrorInterceptor(interceptors.Unauthorized(a.Credentials, a.refresher, a.logger))

	return p
}

// Config returns the configuration the App was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Registry returns the metrics registry, or nil when metrics are disabled.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Tasks loads the persisted task list.
func (a *App) Tasks(ctx context.Context) (*state.TaskStore, error) {
	return state.LoadTaskStore(ctx, a.state)
}

// Counter loads the persisted counter.
func (a *App) Counter(ctx context.Context) (*state.Counter, error) {
	return state.LoadCounter(ctx, a.state)
}

// Close releases storage opened by New.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to close resource", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
