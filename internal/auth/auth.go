package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrInvalidToken is returned for a token that matches no configured hash.
var ErrInvalidToken = errors.New("invalid token")

// Token maps a hashed bearer token to the user it authenticates.
type Token struct {
	Hash        string `koanf:"token_hash"`
	UserID      int    `koanf:"user_id"`
	Description string `koanf:"description"`
}

// Authenticator validates bearer tokens against their SHA-256 hashes.
type Authenticator struct {
	tokens map[string]Token // hash -> token
}

// NewAuthenticator creates an authenticator for the given tokens.
func NewAuthenticator(tokens []Token) *Authenticator {
	a := &Authenticator{
		tokens: make(map[string]Token, len(tokens)),
	}
	for _, t := range tokens {
		a.tokens[strings.ToLower(t.Hash)] = t
	}
	return a
}

// ValidateToken returns the user id the token belongs to.
func (a *Authenticator) ValidateToken(token string) (int, error) {
	keyHash := HashToken(token)

	t, ok := a.tokens[keyHash]
	if !ok {
		return 0, ErrInvalidToken
	}

	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare([]byte(keyHash), []byte(strings.ToLower(t.Hash))) != 1 {
		return 0, ErrInvalidToken
	}

	return t.UserID, nil
}

// Len returns the number of configured tokens.
func (a *Authenticator) Len() int {
	return len(a.tokens)
}

// ExtractBearerToken extracts the token from the Authorization header
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	// Support "Bearer <token>" format
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	if strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("unsupported authorization scheme")
	}

	return parts[1], nil
}

// HashToken creates a SHA-256 hash of a token for storage in config
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
