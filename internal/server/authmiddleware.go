package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tjfontaine/mobile-api-client/internal/auth"
)

type userIDKey struct{}

// AuthMiddleware requires a valid bearer token and injects the user id it
// belongs to. Failures are answered with a JSON 401.
func AuthMiddleware(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractBearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error(), CodeUnauthorized)
				return
			}

			userID, err := authenticator.ValidateToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token", CodeUnauthorized)
				return
			}

			AddLogField(r.Context(), "user_id", strconv.Itoa(userID))
			ctx := context.WithValue(r.Context(), userIDKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID retrieves the authenticated user id from context.
func GetUserID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(userIDKey{}).(int)
	return id, ok
}
