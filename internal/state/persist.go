// Package state holds the small pieces of app state persisted between runs:
// the task list and the counter.
package state

import (
	"context"
	"errors"

	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
	"github.com/tjfontaine/mobile-api-client/internal/storage"
)

// Storage keys.
const (
	TaskStorageKey    = "task-storage"
	CounterStorageKey = "counter-storage"
)

// ErrNotFound is returned when an operation names a task that does not exist.
var ErrNotFound = errors.New("task not found")

// snapshot is the persisted envelope.
type snapshot[T any] struct {
	State   T   `json:"state"`
	Version int `json:"version"`
}

// load reads key into a zero-initialized T, treating a missing key as empty.
func load[T any](ctx context.Context, kv ports.KeyValueStore, key string) (T, error) {
	var snap snapshot[T]
	err := storage.LoadJSON(ctx, kv, key, &snap)
	if errors.Is(err, storage.ErrNotFound) {
		var zero T
		return zero, nil
	}
	return snap.State, err
}

func save[T any](ctx context.Context, kv ports.KeyValueStore, key string, v T) error {
	return storage.SaveJSON(ctx, kv, key, snapshot[T]{State: v})
}
