package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
)

// RequestOption adjusts a descriptor while it is being built.
type RequestOption func(*domain.Descriptor)

// Timeout overrides the per-attempt timeout for one call.
func Timeout(d time.Duration) RequestOption {
	return func(desc *domain.Descriptor) {
		desc.Timeout = d
	}
}

// Retries overrides the retry count for one call.
func Retries(n int) RequestOption {
	return func(desc *domain.Descriptor) {
		desc.Retries = n
	}
}

// Header sets a request header for one call.
func Header(key, value string) RequestOption {
	return func(desc *domain.Descriptor) {
		desc.Header.Set(key, value)
	}
}

// Body sets an already serialized request body.
func Body(b []byte) RequestOption {
	return func(desc *domain.Descriptor) {
		desc.Body = b
	}
}

// NewRequest builds a descriptor carrying the pipeline defaults, then applies
// opts.
func (p *Pipeline) NewRequest(method, path string, opts ...RequestOption) domain.Descriptor {
	d := domain.Descriptor{
		Method:  method,
		Path:    path,
		Header:  make(http.Header),
		Timeout: p.timeout,
		Retries: p.retries,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Execute runs d and decodes the response as T.
func Execute[T any](ctx context.Context, p *Pipeline, d domain.Descriptor) (T, error) {
	var out T
	if err := p.Do(ctx, d, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Get issues a GET request.
func Get[T any](ctx context.Context, p *Pipeline, path string, opts ...RequestOption) (T, error) {
	return Execute[T](ctx, p, p.NewRequest(http.MethodGet, path, opts...))
}

// Delete issues a DELETE request.
func Delete[T any](ctx context.Context, p *Pipeline, path string, opts ...RequestOption) (T, error) {
	return Execute[T](ctx, p, p.NewRequest(http.MethodDelete, path, opts...))
}

// Post issues a POST request with body serialized as JSON.
func Post[T any](ctx context.Context, p *Pipeline, path string, body any, opts ...RequestOption) (T, error) {
	return withJSONBody[T](ctx, p, http.MethodPost, path, body, opts)
}

// Put issues a PUT request with body serialized as JSON.
func Put[T any](ctx context.Context, p *Pipeline, path string, body any, opts ...RequestOption) (T, error) {
	return withJSONBody[T](ctx, p, http.MethodPut, path, body, opts)
}

// Patch issues a PATCH request with body serialized as JSON.
func Patch[T any](ctx context.Context, p *Pipeline, path string, body any, opts ...RequestOption) (T, error) {
	return withJSONBody[T](ctx, p, http.MethodPatch, path, body, opts)
}

// withJSONBody encodes body and executes the call. An encoding failure is a
// failure before any response, so it goes through the error chain like one.
func withJSONBody[T any](ctx context.Context, p *Pipeline, method, path string, body any, opts []RequestOption) (T, error) {
	var zero T

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return zero, p.fail(ctx, fmt.Errorf("encode request body: %w", err))
		}
		opts = append([]RequestOption{Body(data)}, opts...)
	}

	return Execute[T](ctx, p, p.NewRequest(method, path, opts...))
}
