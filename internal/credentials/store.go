// Package credentials keeps the signed-in user's tokens and identity in a
// key-value store.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
)

// Storage keys.
const (
	KeyAccessToken      = "access_token"
	KeyRefreshToken     = "refresh_token"
	KeyUserID           = "user_id"
	KeyUserEmail        = "user_email"
	KeyBiometricEnabled = "biometric_enabled"
)

// allKeys is every key ClearAll removes.
var allKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserID, KeyUserEmail, KeyBiometricEnabled}

// UserInfo identifies the signed-in user.
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Store reads and writes credentials through a KeyValueStore.
type Store struct {
	kv ports.KeyValueStore
}

var _ ports.CredentialProvider = (*Store)(nil)

// New creates a Store backed by kv.
func New(kv ports.KeyValueStore) *Store {
	return &Store{kv: kv}
}

func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyAccessToken)
}

func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyRefreshToken)
}

func (s *Store) SaveTokens(ctx context.Context, accessToken, refreshToken string) error {
	if err := s.kv.Set(ctx, KeyAccessToken, accessToken); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	if refreshToken == "" {
		return nil
	}
	if err := s.kv.Set(ctx, KeyRefreshToken, refreshToken); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// ClearTokens removes the access and refresh tokens only.
func (s *Store) ClearTokens(ctx context.Context) error {
	return s.deleteAll(ctx, KeyAccessToken, KeyRefreshToken)
}

// SaveUserInfo stores the user's id and email.
func (s *Store) SaveUserInfo(ctx context.Context, info UserInfo) error {
	if err := s.kv.Set(ctx, KeyUserID, info.ID); err != nil {
		return fmt.Errorf("save user id: %w", err)
	}
	if err := s.kv.Set(ctx, KeyUserEmail, info.Email); err != nil {
		return fmt.Errorf("save user email: %w", err)
	}
	return nil
}

// UserInfo returns the stored identity. ok is false unless both the id and
// the email are present.
func (s *Store) UserInfo(ctx context.Context) (info UserInfo, ok bool, err error) {
	if info.ID, err = s.get(ctx, KeyUserID); err != nil {
		return UserInfo{}, false, err
	}
	if info.Email, err = s.get(ctx, KeyUserEmail); err != nil {
		return UserInfo{}, false, err
	}
	if info.ID == "" || info.Email == "" {
		return UserInfo{}, false, nil
	}
	return info, true, nil
}

// ClearUserInfo removes the stored identity.
func (s *Store) ClearUserInfo(ctx context.Context) error {
	return s.deleteAll(ctx, KeyUserID, KeyUserEmail)
}

// SetBiometricEnabled records the biometric unlock preference.
func (s *Store) SetBiometricEnabled(ctx context.Context, enabled bool) error {
	return s.kv.Set(ctx, KeyBiometricEnabled, strconv.FormatBool(enabled))
}

// BiometricEnabled reports the biometric unlock preference, false when unset.
func (s *Store) BiometricEnabled(ctx context.Context) (bool, error) {
	v, err := s.get(ctx, KeyBiometricEnabled)
	if err != nil || v == "" {
		return false, err
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", KeyBiometricEnabled, err)
	}
	return enabled, nil
}

// Clear removes every credential key. It satisfies ports.CredentialProvider.
func (s *Store) Clear(ctx context.Context) error {
	return s.deleteAll(ctx, allKeys...)
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	return v, nil
}

// deleteAll attempts every key and reports all failures.
func (s *Store) deleteAll(ctx context.Context, keys ...string) error {
	var errs []error
	for _, k := range keys {
		if err := s.kv.Delete(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}
