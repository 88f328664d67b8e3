package interceptors

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
)

// Bearer attaches the stored access token as "Authorization: Bearer <token>".
// A failing credential store is logged and the request proceeds without the
// header. A caller-supplied Authorization header is left alone.
func Bearer(creds ports.CredentialProvider, logger *slog.Logger) ports.RequestInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return ports.RequestInterceptorFunc(func(ctx context.Context, d domain.Descriptor) (domain.Descriptor, error) {
		if d.Header.Get("Authorization") != "" {
			return d, nil
		}

		token, err := creds.AccessToken(ctx)
		if err != nil {
			logger.Warn("failed to read access token",
				slog.String("error", err.Error()),
				slog.String("path", d.Path),
			)
			return d, nil
		}
		if token != "" {
			d.Header.Set("Authorization", "Bearer "+token)
		}
		return d, nil
	})
}

// Refresher exchanges a refresh token for a new access token. A non-empty
// returned refresh token replaces the stored one.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken, newRefreshToken string, err error)
}

// Unauthorized reacts to 401 responses. With a refresher and a stored refresh
// token it tries to obtain a new token pair for subsequent calls; otherwise,
// or when the refresh fails, it clears every stored credential. The failed
// call itself is never replayed.
func Unauthorized(creds ports.CredentialProvider, refresher Refresher, logger *slog.Logger) ports.ErrorInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return ports.ErrorInterceptorFunc(func(ctx context.Context, apiErr *domain.APIError) error {
		if apiErr.Status != http.StatusUnauthorized {
			return nil
		}

		refreshToken, err := creds.RefreshToken(ctx)
		if err != nil {
			logger.Warn("failed to read refresh token", slog.String("error", err.Error()))
		}

		if refresher != nil && refreshToken != "" {
			access, rotated, err := refresher.Refresh(ctx, refreshToken)
			if err == nil {
				logger.Info("access token refreshed")
				return creds.SaveTokens(ctx, access, rotated)
			}
			logger.Warn("token refresh failed", slog.String("error", err.Error()))
			// The refresh may have used up ctx; clearing is local.
			ctx = context.WithoutCancel(ctx)
		} else if refreshToken != "" {
			// Keep the pair for a refresh flow outside this process.
			logger.Info("login required: no token refresher configured")
			return nil
		}

		logger.Info("clearing stored credentials after 401")
		return creds.Clear(ctx)
	})
}
