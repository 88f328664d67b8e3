// Package ports defines the core interfaces for the request pipeline.
// This file contains the interceptor interfaces for request/response mutation
// and failure observation.
package ports

import (
	"context"

	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
)

// RequestInterceptor transforms a request descriptor before it is sent.
// Interceptors run in registration order, each seeing the previous output.
type RequestInterceptor interface {
	InterceptRequest(ctx context.Context, d domain.Descriptor) (domain.Descriptor, error)
}

// ResponseInterceptor transforms a response before it is classified.
type ResponseInterceptor interface {
	InterceptResponse(ctx context.Context, resp *domain.RawResponse) (*domain.RawResponse, error)
}

// ErrorInterceptor observes a terminal failure. Returned errors are logged by
// the pipeline and never replace the original failure.
type ErrorInterceptor interface {
	InterceptError(ctx context.Context, err *domain.APIError) error
}

// RequestInterceptorFunc adapts a function to RequestInterceptor.
type RequestInterceptorFunc func(ctx context.Context, d domain.Descriptor) (domain.Descriptor, error)

func (f RequestInterceptorFunc) InterceptRequest(ctx context.Context, d domain.Descriptor) (domain.Descriptor, error) {
	return f(ctx, d)
}

// ResponseInterceptorFunc adapts a function to ResponseInterceptor.
type ResponseInterceptorFunc func(ctx context.Context, resp *domain.RawResponse) (*domain.RawResponse, error)

func (f ResponseInterceptorFunc) InterceptResponse(ctx context.Context, resp *domain.RawResponse) (*domain.RawResponse, error) {
	return f(ctx, resp)
}

// ErrorInterceptorFunc adapts a function to ErrorInterceptor.
type ErrorInterceptorFunc func(ctx context.Context, err *domain.APIError) error

func (f ErrorInterceptorFunc) InterceptError(ctx context.Context, err *domain.APIError) error {
	return f(ctx, err)
}
