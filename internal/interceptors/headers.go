package interceptors

import (
	"context"

	"github.com/google/uuid"

	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
)

// RequestIDHeader carries the per-call id set by RequestID.
const RequestIDHeader = "X-Request-ID"

// DefaultHeaders sets each header in defaults unless the request already
// carries it.
func DefaultHeaders(defaults map[string]string) ports.RequestInterceptor {
	return ports.RequestInterceptorFunc(func(ctx context.Context, d domain.Descriptor) (domain.Descriptor, error) {
		for k, v := range defaults {
			if d.Header.Get(k) == "" {
				d.Header.Set(k, v)
			}
		}
		return d, nil
	})
}

// JSONHeaders declares JSON request and response bodies.
func JSONHeaders() ports.RequestInterceptor {
	return DefaultHeaders(map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	})
}

// RequestID tags every request with a fresh UUID unless one is already set.
// The same id is sent on every retry of the call.
func RequestID() ports.RequestInterceptor {
	return ports.RequestInterceptorFunc(func(ctx context.Context, d domain.Descriptor) (domain.Descriptor, error) {
		if d.Header.Get(RequestIDHeader) == "" {
			d.Header.Set(RequestIDHeader, uuid.New().String())
		}
		return d, nil
	})
}
