package ports

import "context"

// KeyValueStore is an asynchronous, fallible string key-value capability.
// Secure credential storage and persisted app state both sit behind it.
type KeyValueStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// CredentialProvider supplies and clears the stored access/refresh token pair.
type CredentialProvider interface {
	// AccessToken returns the access token, or "" when none is stored.
	AccessToken(ctx context.Context) (string, error)

	// RefreshToken returns the refresh token, or "" when none is stored.
	RefreshToken(ctx context.Context) (string, error)

	// SaveTokens stores a new pair. An empty refresh token leaves the stored
	// refresh token untouched.
	SaveTokens(ctx context.Context, accessToken, refreshToken string) error

	// Clear removes all stored credentials and user info.
	Clear(ctx context.Context) error
}
