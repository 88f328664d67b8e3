package server

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware rejects requests beyond rps (with bursts up to burst)
// with a JSON 429. A non-positive rps disables it.
func RateLimitMiddleware(rps float64, burst int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rps <= 0 {
			return next
		}
		if burst <= 0 {
			burst = max(int(rps), 1)
		}
		limiter := rate.NewLimiter(rate.Limit(rps), burst)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "Too many requests", CodeRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
