package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
)

const (
	// DefaultTimeout bounds each attempt when no timeout is configured.
	DefaultTimeout = 30 * time.Second

	// DefaultBackoffBase is the wait before the first retry; it doubles after
	// every failed attempt.
	DefaultBackoffBase = time.Second

	// MaxBackoff caps the wait between two attempts.
	MaxBackoff = 5 * time.Minute

	minObserverBudget = time.Second
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHTTPClient sets the HTTP client used for every attempt.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Pipeline) {
		if client != nil {
			p.client = client
		}
	}
}

// WithTimeout sets the default per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithRetries sets the default number of retries after the first attempt.
func WithRetries(n int) Option {
	return func(p *Pipeline) {
		p.retries = max(n, 0)
	}
}

// WithBackoffBase sets the wait before the first retry.
func WithBackoffBase(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.backoffBase = d
		}
	}
}

// WithDebug enables request/response debug logging.
func WithDebug(enabled bool) Option {
	return func(p *Pipeline) {
		p.debug = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline executes HTTP calls against a single base URL. It holds no
// per-request state and is safe for concurrent use.
type Pipeline struct {
	baseURL     string
	client      *http.Client
	timeout     time.Duration
	retries     int
	backoffBase time.Duration
	debug       bool
	logger      *slog.Logger
	sleep       sleepFunc

	requestChain  chain[ports.RequestInterceptor]
	responseChain chain[ports.ResponseInterceptor]
	errorChain    chain[ports.ErrorInterceptor]
}

// New creates a pipeline for baseURL. The default HTTP client is traced
// with OpenTelemetry.
func New(baseURL string, opts ...Option) *Pipeline {
	p := &Pipeline{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout:     DefaultTimeout,
		backoffBase: DefaultBackoffBase,
		logger:      slog.Default(),
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BaseURL returns the URL every request path is appended to.
func (p *Pipeline) BaseURL() string {
	return p.baseURL
}

// Do executes d and decodes a successful JSON response into out, which may be
// nil to discard the body. Any failure is returned as a *domain.APIError after
// the error interceptors have observed it.
func (p *Pipeline) Do(ctx context.Context, d domain.Descriptor, out any) error {
	resp, err := p.send(ctx, d)
	if err != nil {
		return p.fail(ctx, err)
	}

	if !resp.OK() {
		return p.fail(ctx, classifyHTTPError(resp))
	}

	if apiErr := decodeBody(resp, out); apiErr != nil {
		return p.fail(ctx, apiErr)
	}

	if p.debug {
		p.logger.Debug("api response",
			slog.String("url", resp.URL),
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", resp.Duration),
		)
	}

	return nil
}

// send runs the request chain, the attempts and the response chain.
func (p *Pipeline) send(ctx context.Context, d domain.Descriptor) (*domain.RawResponse, error) {
	d = p.normalize(d)

	d, err := p.runRequestInterceptors(ctx, d)
	if err != nil {
		return nil, err
	}

	url := p.baseURL + d.Path

	if p.debug {
		p.logger.Debug("api request",
			slog.String("method", d.Method),
			slog.String("url", url),
			slog.Any("headers", redact(d.Header)),
		)
	}

	resp, err := retryWithBackoff(ctx, d.Retries, p.backoffBase, p.sleep,
		func(attempt int) (*domain.RawResponse, error) {
			if attempt > 0 && p.debug {
				p.logger.Debug("retrying request",
					slog.String("url", url),
					slog.Int("attempt", attempt+1),
				)
			}
			return p.attempt(ctx, url, d)
		},
		func(err error) bool {
			if ctx.Err() != nil {
				return false
			}
			var apiErr *domain.APIError
			return errors.As(err, &apiErr) && apiErr.Retryable()
		},
	)
	if err != nil {
		return nil, err
	}

	return p.runResponseInterceptors(ctx, resp)
}

// normalize fills defaults on a copy of d.
func (p *Pipeline) normalize(d domain.Descriptor) domain.Descriptor {
	d = d.Clone()
	if d.Method == "" {
		d.Method = http.MethodGet
	}
	if d.Timeout <= 0 {
		d.Timeout = p.timeout
	}
	if d.Retries < 0 {
		d.Retries = 0
	}
	return d
}

// attempt performs a single network round trip bounded by d.Timeout. The
// body is read inside the budget so a stalled body counts as a timeout.
func (p *Pipeline) attempt(ctx context.Context, url string, d domain.Descriptor) (*domain.RawResponse, error) {
	actx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	var body io.Reader
	if d.Body != nil {
		body = bytes.NewReader(d.Body)
	}

	req, err := http.NewRequestWithContext(actx, d.Method, url, body)
	if err != nil {
		return nil, domain.ErrNetwork(err)
	}
	if d.Header != nil {
		req.Header = d.Header.Clone()
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, actx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, actx, err)
	}

	return &domain.RawResponse{
		StatusCode: resp.StatusCode,
		Status:     statusText(resp),
		Header:     resp.Header,
		Body:       data,
		URL:        url,
		Duration:   time.Since(start),
	}, nil
}

// transportError classifies a pre-response failure. Only the attempt's own
// deadline counts as a timeout; a cancelled caller context is a transport
// failure.
func transportError(ctx, attemptCtx context.Context, err error) *domain.APIError {
	if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return domain.ErrTimeout(err)
	}
	return domain.ErrNetwork(err)
}

func (p *Pipeline) runRequestInterceptors(ctx context.Context, d domain.Descriptor) (domain.Descriptor, error) {
	current := d
	for _, e := range p.requestChain.snapshot() {
		next, err := e.value.InterceptRequest(ctx, current.Clone())
		if err != nil {
			return current, fmt.Errorf("request interceptor: %w", err)
		}
		current = next
	}
	return current, nil
}

func (p *Pipeline) runResponseInterceptors(ctx context.Context, resp *domain.RawResponse) (*domain.RawResponse, error) {
	current := resp
	for _, e := range p.responseChain.snapshot() {
		next, err := e.value.InterceptResponse(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("response interceptor: %w", err)
		}
		if next != nil {
			current = next
		}
	}
	return current, nil
}

// fail normalizes err, lets every error interceptor observe it once and
// returns it.
func (p *Pipeline) fail(ctx context.Context, err error) *domain.APIError {
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		apiErr = domain.ErrNetwork(err)
	}

	ictx, cancel := p.observerContext(ctx)
	defer cancel()
	for _, e := range p.errorChain.snapshot() {
		p.observeError(ictx, e.value, apiErr)
	}

	return apiErr
}

// observerContext detaches the error chain from ctx cancellation so observers
// such as credential clearing still run after the caller gave up. The chain is
// bounded by the attempt timeout, shortened to the caller's remaining deadline
// but never below minObserverBudget.
func (p *Pipeline) observerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	budget := p.timeout
	if dl, ok := ctx.Deadline(); ok {
		budget = min(budget, max(time.Until(dl), minObserverBudget))
	} else if ctx.Err() != nil {
		budget = min(budget, minObserverBudget)
	}
	return context.WithTimeout(context.WithoutCancel(ctx), budget)
}

// observeError runs one error interceptor on a copy of apiErr, logging and
// swallowing whatever it returns or panics with.
func (p *Pipeline) observeError(ctx context.Context, i ports.ErrorInterceptor, apiErr *domain.APIError) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("error interceptor panicked",
				slog.Any("panic", r),
				slog.String("code", apiErr.Code),
			)
		}
	}()

	errCopy := *apiErr
	errCopy.Data = bytes.Clone(apiErr.Data)
	if err := i.InterceptError(ctx, &errCopy); err != nil {
		p.logger.Warn("error interceptor failed",
			slog.String("error", err.Error()),
			slog.String("code", apiErr.Code),
		)
	}
}

// redact returns headers safe for logging.
func redact(h http.Header) http.Header {
	out := h.Clone()
	if out.Get("Authorization") != "" {
		out.Set("Authorization", "[redacted]")
	}
	return out
}
