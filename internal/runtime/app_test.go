package runtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/mobile-api-client/internal/auth"
	"github.com/tjfontaine/mobile-api-client/internal/config"
	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
	"github.com/tjfontaine/mobile-api-client/internal/server"
	"github.com/tjfontaine/mobile-api-client/internal/session"
)

const testToken = "token-for-user-3"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	backend := server.New(server.Config{
		Tokens: []auth.Token{{Hash: auth.HashToken(testToken), UserID: 3}},
	}, discardLogger())
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		API:     config.APIConfig{BaseURL: baseURL, TimeoutMS: 5000},
		Storage: config.StorageConfig{Type: "memory"},
	}
}

func newApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	app, err := New(append([]Option{WithLogger(discardLogger())}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app
}

func TestApp_New_RequiresConfig(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected error without config")
	}
	if err.Error() != "config required (use WithConfig or WithConfigFile)" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestApp_New_UnknownStorage(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.Storage.Type = "redis"
	if _, err := New(WithConfig(cfg)); err == nil {
		t.Fatal("expected error for unknown storage type")
	}
}

func TestApp_AuthenticatedCall(t *testing.T) {
	srv := newBackend(t)
	reg := prometheus.NewRegistry()
	app := newApp(t, WithConfig(testConfig(srv.URL)), WithHTTPClient(srv.Client()), WithRegistry(reg))
	ctx := context.Background()

	if !app.Pipeline.HasInterceptors() {
		t.Fatal("default interceptors not installed")
	}

	if err := app.Session.Login(ctx, session.User{ID: "3", Email: "Nathan@yesenia.net"}, testToken, ""); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	me, err := app.API.Me(ctx)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if me.ID != 3 {
		t.Errorf("Me().ID = %d, want 3", me.ID)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var responses float64
	for _, mf := range families {
		if mf.GetName() == "api_client_responses_total" {
			for _, m := range mf.GetMetric() {
				responses += m.GetCounter().GetValue()
			}
		}
	}
	if responses != 1 {
		t.Errorf("api_client_responses_total = %v, want 1", responses)
	}
}

func TestApp_UnauthorizedClearsSession(t *testing.T) {
	srv := newBackend(t)
	app := newApp(t, WithConfig(testConfig(srv.URL)), WithHTTPClient(srv.Client()))
	ctx := context.Background()

	if err := app.Session.Login(ctx, session.User{ID: "3", Email: "a@b.c"}, "stale", ""); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	_, err := app.API.Me(ctx)
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("Me() error = %v, want 401", err)
	}

	if err := app.Session.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if app.Session.Current().Authenticated {
		t.Error("session still authenticated after 401")
	}
}

func TestApp_RefreshFromTokenURL(t *testing.T) {
	srv := newBackend(t)

	var refreshes atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("refresh_token") != "refresh-1" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		refreshes.Add(1)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"`+testToken+`","token_type":"bearer","refresh_token":"refresh-2","expires_in":3600}`)
	}))
	t.Cleanup(tokenSrv.Close)

	cfg := testConfig(srv.URL)
	cfg.Auth = config.AuthConfig{TokenURL: tokenSrv.URL, ClientID: "demo"}
	app := newApp(t, WithConfig(cfg))
	ctx := context.Background()

	if err := app.Credentials.SaveTokens(ctx, "stale", "refresh-1"); err != nil {
		t.Fatalf("SaveTokens() error = %v", err)
	}

	if _, err := app.API.Me(ctx); err == nil {
		t.Fatal("first Me() should fail with the stale token")
	}
	if refreshes.Load() != 1 {
		t.Fatalf("refreshes = %d, want 1", refreshes.Load())
	}

	access, _ := app.Credentials.AccessToken(ctx)
	refresh, _ := app.Credentials.RefreshToken(ctx)
	if access != testToken || refresh != "refresh-2" {
		t.Errorf("stored tokens = %q/%q", access, refresh)
	}

	me, err := app.API.Me(ctx)
	if err != nil {
		t.Fatalf("second Me() error = %v", err)
	}
	if me.ID != 3 {
		t.Errorf("Me().ID = %d, want 3", me.ID)
	}
}

func TestApp_StalledTokenEndpointHonorsDeadline(t *testing.T) {
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(apiSrv.Close)

	release := make(chan struct{})
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(tokenSrv.Close)
	t.Cleanup(func() { close(release) })

	cfg := testConfig(apiSrv.URL)
	cfg.Auth = config.AuthConfig{TokenURL: tokenSrv.URL, ClientID: "demo"}
	app := newApp(t, WithConfig(cfg))

	if err := app.Credentials.SaveTokens(context.Background(), "stale", "refresh-1"); err != nil {
		t.Fatalf("SaveTokens() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := app.API.GetPost(ctx, 1)
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("GetPost() still blocked on the token endpoint after 3s")
	}

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("GetPost() error = %v, want 401", err)
	}
	if refresh, _ := app.Credentials.RefreshToken(context.Background()); refresh != "" {
		t.Errorf("refresh token = %q after failed refresh, want cleared", refresh)
	}
}

func TestApp_SQLiteStoragePersists(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.Storage = config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "demo.db")},
	}
	ctx := context.Background()

	app, err := New(WithConfig(cfg), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tasks, err := app.Tasks(ctx)
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if _, err := tasks.Add(ctx, "write tests"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	counter, err := app.Counter(ctx)
	if err != nil {
		t.Fatalf("Counter() error = %v", err)
	}
	if _, err := counter.Increment(ctx); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if err := app.Credentials.SaveTokens(ctx, "access", "refresh"); err != nil {
		t.Fatalf("SaveTokens() error = %v", err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened := newApp(t, WithConfig(cfg))

	tasks, err = reopened.Tasks(ctx)
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if got := tasks.Tasks(); len(got) != 1 || got[0].Text != "write tests" {
		t.Errorf("Tasks() = %+v", got)
	}
	counter, err = reopened.Counter(ctx)
	if err != nil {
		t.Fatalf("Counter() error = %v", err)
	}
	if counter.Value() != 1 {
		t.Errorf("Value() = %d, want 1", counter.Value())
	}
	if access, _ := reopened.Credentials.AccessToken(ctx); access != "access" {
		t.Errorf("AccessToken() = %q, want access", access)
	}
}

func TestApp_MetricsDisabledByDefault(t *testing.T) {
	app := newApp(t, WithConfig(testConfig("http://localhost")))
	if app.Metrics != nil || app.Registry() != nil {
		t.Error("metrics should be disabled without config or registry")
	}
}
