package interceptors

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
	"github.com/tjfontaine/mobile-api-client/internal/credentials"
	"github.com/tjfontaine/mobile-api-client/internal/storage/memory"
)

func newDescriptor() domain.Descriptor {
	return domain.Descriptor{Method: http.MethodGet, Path: "/posts", Header: make(http.Header)}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// failingProvider is a credential store that cannot be read.
type failingProvider struct{ cleared bool }

func (f *failingProvider) AccessToken(context.Context) (string, error) {
	return "", errors.New("keychain locked")
}
func (f *failingProvider) RefreshToken(context.Context) (string, error) {
	return "", errors.New("keychain locked")
}
func (f *failingProvider) SaveTokens(context.Context, string, string) error { return nil }
func (f *failingProvider) Clear(context.Context) error {
	f.cleared = true
	return nil
}

type stubRefresher struct {
	access, refresh string
	err             error
	calls           int
}

func (s *stubRefresher) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	s.calls++
	return s.access, s.refresh, s.err
}

func TestJSONHeaders(t *testing.T) {
	ctx := context.Background()

	d, err := JSONHeaders().InterceptRequest(ctx, newDescriptor())
	if err != nil {
		t.Fatalf("InterceptRequest() error = %v", err)
	}
	if d.Header.Get("Content-Type") != "application/json" || d.Header.Get("Accept") != "application/json" {
		t.Errorf("headers = %v", d.Header)
	}

	custom := newDescriptor()
	custom.Header.Set("Accept", "text/csv")
	d, _ = JSONHeaders().InterceptRequest(ctx, custom)
	if d.Header.Get("Accept") != "text/csv" {
		t.Errorf("Accept = %q, caller header overwritten", d.Header.Get("Accept"))
	}
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()

	d, _ := RequestID().InterceptRequest(ctx, newDescriptor())
	if _, err := uuid.Parse(d.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("%s = %q is not a UUID: %v", RequestIDHeader, d.Header.Get(RequestIDHeader), err)
	}

	preset := newDescriptor()
	preset.Header.Set(RequestIDHeader, "fixed")
	d, _ = RequestID().InterceptRequest(ctx, preset)
	if d.Header.Get(RequestIDHeader) != "fixed" {
		t.Errorf("%s = %q, want fixed", RequestIDHeader, d.Header.Get(RequestIDHeader))
	}
}

func TestBearer(t *testing.T) {
	ctx := context.Background()
	store := credentials.New(memory.New())

	tests := []struct {
		name   string
		token  string
		preset string
		want   string
	}{
		{name: "no token", want: ""},
		{name: "token", token: "abc", want: "Bearer abc"},
		{name: "caller header wins", token: "abc", preset: "Basic xyz", want: "Basic xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = store.Clear(ctx)
			if tt.token != "" {
				_ = store.SaveTokens(ctx, tt.token, "")
			}
			d := newDescriptor()
			if tt.preset != "" {
				d.Header.Set("Authorization", tt.preset)
			}

			got, err := Bearer(store, discardLogger()).InterceptRequest(ctx, d)
			if err != nil {
				t.Fatalf("InterceptRequest() error = %v", err)
			}
			if got.Header.Get("Authorization") != tt.want {
				t.Errorf("Authorization = %q, want %q", got.Header.Get("Authorization"), tt.want)
			}
		})
	}
}

func TestBearer_StoreFailureIsTolerated(t *testing.T) {
	d, err := Bearer(&failingProvider{}, discardLogger()).InterceptRequest(context.Background(), newDescriptor())
	if err != nil {
		t.Fatalf("InterceptRequest() error = %v, want nil", err)
	}
	if d.Header.Get("Authorization") != "" {
		t.Errorf("Authorization = %q, want empty", d.Header.Get("Authorization"))
	}
}

func TestUnauthorized(t *testing.T) {
	unauthorized := domain.NewAPIError("Unauthorized").WithStatus(http.StatusUnauthorized).WithCode("HTTP_401")

	tests := []struct {
		name        string
		err         *domain.APIError
		refresh     string
		refresher   *stubRefresher
		wantAccess  string
		wantRefresh string
		wantUser    bool
		wantCalls   int
	}{
		{
			name:        "other status untouched",
			err:         domain.NewAPIError("Not Found").WithStatus(http.StatusNotFound),
			wantAccess:  "old-access",
			wantUser:    true,
		},
		{
			name:     "401 without refresh token clears everything",
			err:      unauthorized,
			wantUser: false,
		},
		{
			name:        "401 with refresh token but no refresher keeps credentials",
			err:         unauthorized,
			refresh:     "r1",
			wantAccess:  "old-access",
			wantRefresh: "r1",
			wantUser:    true,
		},
		{
			name:        "401 refresh succeeds",
			err:         unauthorized,
			refresh:     "r1",
			refresher:   &stubRefresher{access: "new-access", refresh: "r2"},
			wantAccess:  "new-access",
			wantRefresh: "r2",
			wantUser:    true,
			wantCalls:   1,
		},
		{
			name:      "401 refresh fails clears everything",
			err:       unauthorized,
			refresh:   "r1",
			refresher: &stubRefresher{err: errors.New("invalid_grant")},
			wantUser:  false,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := credentials.New(memory.New())
			_ = store.SaveTokens(ctx, "old-access", tt.refresh)
			_ = store.SaveUserInfo(ctx, credentials.UserInfo{ID: "1", Email: "a@example.com"})

			var refresher Refresher
			if tt.refresher != nil {
				refresher = tt.refresher
			}

			if err := Unauthorized(store, refresher, discardLogger()).InterceptError(ctx, tt.err); err != nil {
				t.Fatalf("InterceptError() error = %v", err)
			}

			access, _ := store.AccessToken(ctx)
			refresh, _ := store.RefreshToken(ctx)
			_, hasUser, _ := store.UserInfo(ctx)

			if access != tt.wantAccess {
				t.Errorf("access = %q, want %q", access, tt.wantAccess)
			}
			if refresh != tt.wantRefresh {
				t.Errorf("refresh = %q, want %q", refresh, tt.wantRefresh)
			}
			if hasUser != tt.wantUser {
				t.Errorf("user info present = %v, want %v", hasUser, tt.wantUser)
			}
			if tt.refresher != nil && tt.refresher.calls != tt.wantCalls {
				t.Errorf("refresh calls = %d, want %d", tt.refresher.calls, tt.wantCalls)
			}
		})
	}
}

func TestUnauthorized_UnreadableStoreStillClears(t *testing.T) {
	p := &failingProvider{}
	apiErr := domain.NewAPIError("Unauthorized").WithStatus(http.StatusUnauthorized)

	if err := Unauthorized(p, nil, discardLogger()).InterceptError(context.Background(), apiErr); err != nil {
		t.Fatalf("InterceptError() error = %v", err)
	}
	if !p.cleared {
		t.Error("Clear() not called")
	}
}

// stallingRefresher blocks until ctx is done.
type stallingRefresher struct{}

func (stallingRefresher) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	<-ctx.Done()
	return "", "", ctx.Err()
}

func TestUnauthorized_ExpiredRefreshStillClears(t *testing.T) {
	store := credentials.New(memory.New())
	_ = store.SaveTokens(context.Background(), "old-access", "r1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	apiErr := domain.NewAPIError("Unauthorized").WithStatus(http.StatusUnauthorized)
	if err := Unauthorized(store, stallingRefresher{}, discardLogger()).InterceptError(ctx, apiErr); err != nil {
		t.Fatalf("InterceptError() error = %v", err)
	}

	if refresh, _ := store.RefreshToken(context.Background()); refresh != "" {
		t.Errorf("refresh = %q, want cleared", refresh)
	}
}

func TestUnauthorized_NoRefresherLogsLoginRequired(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	store := credentials.New(memory.New())
	_ = store.SaveTokens(context.Background(), "old-access", "r1")

	apiErr := domain.NewAPIError("Unauthorized").WithStatus(http.StatusUnauthorized)
	if err := Unauthorized(store, nil, logger).InterceptError(context.Background(), apiErr); err != nil {
		t.Fatalf("InterceptError() error = %v", err)
	}
	if !strings.Contains(buf.String(), "login required") {
		t.Errorf("log output = %q, want login required", buf.String())
	}
}

func TestRateLimit(t *testing.T) {
	ctx := context.Background()

	unlimited := RateLimit(0, 0)
	for i := 0; i < 100; i++ {
		if _, err := unlimited.InterceptRequest(ctx, newDescriptor()); err != nil {
			t.Fatalf("unlimited InterceptRequest() error = %v", err)
		}
	}

	limited := RateLimit(1, 1)
	if _, err := limited.InterceptRequest(ctx, newDescriptor()); err != nil {
		t.Fatalf("first InterceptRequest() error = %v", err)
	}

	// The bucket is empty; the next wait exceeds the deadline.
	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if _, err := limited.InterceptRequest(tctx, newDescriptor()); err == nil {
		t.Error("second InterceptRequest() error = nil, want rate limit error")
	}
}

func TestErrorLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	apiErr := domain.NewAPIError("Unauthorized").WithStatus(http.StatusUnauthorized).WithCode("HTTP_401")
	if err := ErrorLogger(logger).InterceptError(context.Background(), apiErr); err != nil {
		t.Fatalf("InterceptError() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"api request failed", "status=401", "code=HTTP_401", "token missing or expired"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestErrorHint(t *testing.T) {
	tests := []struct {
		err  *domain.APIError
		want string
	}{
		{domain.ErrTimeout(nil), "request timed out"},
		{domain.ErrNetwork(errors.New("down")), "network unavailable"},
		{domain.NewAPIError("x").WithStatus(403), "access denied"},
		{domain.NewAPIError("x").WithStatus(404), "resource not found"},
		{domain.NewAPIError("x").WithStatus(429), "rate limited by server"},
		{domain.NewAPIError("x").WithStatus(502), "server error"},
		{domain.NewAPIError("x").WithStatus(400), ""},
	}

	for _, tt := range tests {
		if got := errorHint(tt.err); got != tt.want {
			t.Errorf("errorHint(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestResponseLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	resp := &domain.RawResponse{StatusCode: 200, URL: "http://api.test/posts", Duration: time.Millisecond}
	got, err := ResponseLogger(logger).InterceptResponse(context.Background(), resp)
	if err != nil || got != resp {
		t.Fatalf("InterceptResponse() = %v, %v", got, err)
	}
	if !strings.Contains(buf.String(), "status=200") {
		t.Errorf("log output %q missing status", buf.String())
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	ctx := context.Background()

	_, _ = m.InterceptResponse(ctx, &domain.RawResponse{StatusCode: 200, Duration: 50 * time.Millisecond})
	_, _ = m.InterceptResponse(ctx, &domain.RawResponse{StatusCode: 404, Duration: 10 * time.Millisecond})
	_ = m.InterceptError(ctx, domain.ErrTimeout(nil))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(mfs) != 3 {
		t.Fatalf("expected 3 metric families, got %d", len(mfs))
	}

	for _, mf := range mfs {
		switch mf.GetName() {
		case "api_client_responses_total":
			if len(mf.GetMetric()) != 2 {
				t.Errorf("responses series = %d, want 2", len(mf.GetMetric()))
			}
		case "api_client_request_duration_seconds":
			if c := mf.GetMetric()[0].GetHistogram().GetSampleCount(); c != 2 {
				t.Errorf("duration samples = %d, want 2", c)
			}
		case "api_client_errors_total":
			labels := mf.GetMetric()[0].GetLabel()
			got := map[string]string{}
			for _, l := range labels {
				got[l.GetName()] = l.GetValue()
			}
			if got["kind"] != "timeout" || got["code"] != domain.CodeTimeout {
				t.Errorf("error labels = %v", got)
			}
		default:
			t.Errorf("unexpected metric family %q", mf.GetName())
		}
	}
}
