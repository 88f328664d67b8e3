// Package session tracks whether a user is signed in, backed by the
// credential store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tjfontaine/mobile-api-client/internal/credentials"
)

// ErrMissingToken is returned by Login when no access token is given.
var ErrMissingToken = errors.New("access token is required")

// User is the signed-in identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// State is a snapshot of the session.
type State struct {
	Authenticated bool   `json:"authenticated"`
	User          *User  `json:"user,omitempty"`
	AccessToken   string `json:"-"`
	RefreshToken  string `json:"-"`
}

// Session is the in-process view of the stored credentials.
type Session struct {
	creds  *credentials.Store
	logger *slog.Logger

	mu    sync.RWMutex
	state State
}

// New creates an unauthenticated session over creds. Call Load to restore a
// previous sign-in.
func New(creds *credentials.Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{creds: creds, logger: logger}
}

// Current returns a snapshot of the session.
func (s *Session) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Login stores the tokens and identity and marks the session authenticated.
func (s *Session) Login(ctx context.Context, user User, accessToken, refreshToken string) error {
	if accessToken == "" {
		return ErrMissingToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.creds.SaveTokens(ctx, accessToken, refreshToken); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := s.creds.SaveUserInfo(ctx, credentials.UserInfo{ID: user.ID, Email: user.Email}); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	s.state = State{
		Authenticated: true,
		User:          &user,
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
	}
	s.logger.Info("login successful", slog.String("user_id", user.ID))
	return nil
}

// Logout removes the tokens and identity.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.creds.ClearTokens(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := s.creds.ClearUserInfo(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	s.state = State{}
	s.logger.Info("logout successful")
	return nil
}

// UpdateToken replaces the access token and, when refreshToken is not empty,
// the refresh token.
func (s *Session) UpdateToken(ctx context.Context, accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.creds.SaveTokens(ctx, accessToken, refreshToken); err != nil {
		return fmt.Errorf("update token: %w", err)
	}

	s.state.AccessToken = accessToken
	if refreshToken != "" {
		s.state.RefreshToken = refreshToken
	}
	return nil
}

// Load restores the session from storage. It is authenticated only when an
// access token, a user id and an email are all stored. A storage failure
// leaves the session unauthenticated and is returned.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.read(ctx)
	if err != nil {
		s.state = State{}
		s.logger.Error("failed to load auth state", slog.String("error", err.Error()))
		return err
	}

	s.state = st
	if !st.Authenticated {
		s.logger.Debug("no auth state found")
	}
	return nil
}

func (s *Session) read(ctx context.Context) (State, error) {
	access, err := s.creds.AccessToken(ctx)
	if err != nil {
		return State{}, err
	}
	refresh, err := s.creds.RefreshToken(ctx)
	if err != nil {
		return State{}, err
	}
	info, ok, err := s.creds.UserInfo(ctx)
	if err != nil {
		return State{}, err
	}

	if access == "" || !ok {
		return State{}, nil
	}
	return State{
		Authenticated: true,
		User:          &User{ID: info.ID, Email: info.Email},
		AccessToken:   access,
		RefreshToken:  refresh,
	}, nil
}
