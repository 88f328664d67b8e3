package interceptors

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
)

// RateLimit delays each call so at most rps calls per second leave the
// client, with bursts of up to burst. A zero or negative rps disables the
// limit. A burst below one defaults to rps rounded down, at least 1.
func RateLimit(rps float64, burst int) ports.RequestInterceptor {
	if rps <= 0 {
		return ports.RequestInterceptorFunc(func(ctx context.Context, d domain.Descriptor) (domain.Descriptor, error) {
			return d, nil
		})
	}
	if burst <= 0 {
		burst = max(int(rps), 1)
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return ports.RequestInterceptorFunc(func(ctx context.Context, d domain.Descriptor) (domain.Descriptor, error) {
		if err := limiter.Wait(ctx); err != nil {
			return d, fmt.Errorf("rate limit: %w", err)
		}
		return d, nil
	})
}
