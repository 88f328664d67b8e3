// Package storage holds helpers shared by the key-value store implementations
// in the memory and sqlite subpackages.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
)

// ErrNotFound is returned by LoadJSON when the key does not exist.
var ErrNotFound = errors.New("storage: key not found")

// KeyValueStore is re-exported from core/ports for convenience.
type KeyValueStore = ports.KeyValueStore

// LoadJSON reads key from kv and unmarshals it into v.
func LoadJSON(ctx context.Context, kv KeyValueStore, key string, v any) error {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

// SaveJSON marshals v and stores it under key.
func SaveJSON(ctx context.Context, kv KeyValueStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
