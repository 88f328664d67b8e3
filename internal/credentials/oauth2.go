package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// DefaultRefreshTimeout bounds a token exchange made with the default client.
const DefaultRefreshTimeout = 30 * time.Second

// OAuth2Refresher exchanges a refresh token at an OAuth2 token endpoint.
type OAuth2Refresher struct {
	config *oauth2.Config
	client *http.Client
}

// NewOAuth2Refresher creates a refresher for tokenURL. A nil client is
// replaced by one limited to DefaultRefreshTimeout.
func NewOAuth2Refresher(tokenURL, clientID string, client *http.Client) *OAuth2Refresher {
	if client == nil {
		client = &http.Client{Timeout: DefaultRefreshTimeout}
	}
	return &OAuth2Refresher{
		config: &oauth2.Config{
			ClientID: clientID,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: client,
	}
}

// Refresh returns a new access token and, when the server rotates it, a new
// refresh token. An unrotated refresh token is returned as "".
func (r *OAuth2Refresher) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	if refreshToken == "" {
		return "", "", errors.New("no refresh token")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)

	// A token with no access token is never valid, so the source refreshes.
	tok, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return "", "", fmt.Errorf("refresh token: %w", err)
	}

	rotated := tok.RefreshToken
	if rotated == refreshToken {
		rotated = ""
	}
	return tok.AccessToken, rotated, nil
}
