package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/mobile-api-client/internal/config"
	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
	"github.com/tjfontaine/mobile-api-client/internal/interceptors"
)

// Option is a functional option for configuring an App.
type Option func(*App) error

// WithConfigFile loads configuration from path, with DEMO_ environment
// overrides applied on top.
func WithConfigFile(path string) Option {
	return func(a *App) error {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a.cfg = cfg
		return nil
	}
}

// WithConfig uses an already loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) error {
		if cfg == nil {
			return errors.New("nil config")
		}
		a.cfg = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithHTTPClient sets the HTTP client used by the pipeline and the token
// refresher.
func WithHTTPClient(client *http.Client) Option {
	return func(a *App) error {
		a.httpClient = client
		return nil
	}
}

// WithSecureStore sets the store holding credentials, bypassing the
// configured storage type.
func WithSecureStore(kv ports.KeyValueStore) Option {
	return func(a *App) error {
		a.secure = kv
		return nil
	}
}

// WithStateStore sets the store holding persisted tasks and counter state,
// bypassing the configured storage type.
func WithStateStore(kv ports.KeyValueStore) Option {
	return func(a *App) error {
		a.state = kv
		return nil
	}
}

// WithRegistry sets the Prometheus registry metrics are registered with and
// enables metrics regardless of configuration.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) error {
		a.registry = reg
		return nil
	}
}

// WithRefresher sets the token refresher used after a 401, overriding the
// OAuth2 refresher built from auth.token_url.
func WithRefresher(r interceptors.Refresher) Option {
	return func(a *App) error {
		a.refresher = r
		return nil
	}
}
