package interceptors

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
)

// ResponseLogger logs every response at debug level.
func ResponseLogger(logger *slog.Logger) ports.ResponseInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return ports.ResponseInterceptorFunc(func(ctx context.Context, resp *domain.RawResponse) (*domain.RawResponse, error) {
		logger.DebugContext(ctx, "response received",
			slog.String("url", resp.URL),
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", resp.Duration),
		)
		return resp, nil
	})
}

// ErrorLogger logs each failed call once with a short hint for the common
// failure classes.
func ErrorLogger(logger *slog.Logger) ports.ErrorInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return ports.ErrorInterceptorFunc(func(ctx context.Context, apiErr *domain.APIError) error {
		attrs := []any{
			slog.String("code", apiErr.Code),
			slog.String("message", apiErr.Message),
		}
		if apiErr.HasStatus() {
			attrs = append(attrs, slog.Int("status", apiErr.Status))
		}
		if hint := errorHint(apiErr); hint != "" {
			attrs = append(attrs, slog.String("hint", hint))
		}
		logger.WarnContext(ctx, "api request failed", attrs...)
		return nil
	})
}

func errorHint(apiErr *domain.APIError) string {
	switch apiErr.Code {
	case domain.CodeTimeout:
		return "request timed out"
	case domain.CodeNetworkError:
		return "network unavailable"
	case domain.CodeDecodeError:
		return "unexpected response body"
	}

	switch {
	case apiErr.Status == http.StatusUnauthorized:
		return "token missing or expired"
	case apiErr.Status == http.StatusForbidden:
		return "access denied"
	case apiErr.Status == http.StatusNotFound:
		return "resource not found"
	case apiErr.Status == http.StatusTooManyRequests:
		return "rate limited by server"
	case apiErr.Status >= 500:
		return "server error"
	}
	return ""
}
