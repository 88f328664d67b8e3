// Package server is a small JSON REST backend with the same surface as the
// demo API the client talks to. It backs local development (demo serve) and
// end-to-end tests.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/mobile-api-client/internal/auth"
)

// Config configures the stub backend.
type Config struct {
	Port           int
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	Tokens         []auth.Token
}

// Server serves the posts and users API from memory.
type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
	auth   *auth.Authenticator
	store  *store
	http   *http.Server
}

// New builds the router. Data starts from the built-in seed on every New.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		Router: chi.NewRouter(),
		Port:   cfg.Port,
		logger: logger,
		auth:   auth.NewAuthenticator(cfg.Tokens),
		store:  newStore(),
	}

	r := s.Router

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
	r.Use(TimeoutMiddleware(cfg.RequestTimeout))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "demo-backend")
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found", CodeNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "HTTP_405")
	})

	s.routes(r)

	return s
}

// ServeHTTP makes the server usable with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// Start listens on the configured port and serves until Shutdown is called
// or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until Shutdown is called or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.http = &http.Server{
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
		}
	})
	defer stop()

	s.logger.Info("starting server",
		slog.String("addr", ln.Addr().String()),
		slog.Int("tokens", s.auth.Len()),
	)

	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops a running server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
