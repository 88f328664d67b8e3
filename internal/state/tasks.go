package state

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
)

// ErrEmptyText is returned when adding a task without text.
var ErrEmptyText = errors.New("task text is empty")

// Task is one to-do item.
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type taskState struct {
	Tasks []Task `json:"tasks"`
}

// TaskStore is a persisted, ordered task list. Every mutation is written
// through before it becomes visible; a failed write leaves the list as it
// was.
type TaskStore struct {
	mu    sync.RWMutex
	kv    ports.KeyValueStore
	tasks []Task
}

// LoadTaskStore reads the task list from kv.
func LoadTaskStore(ctx context.Context, kv ports.KeyValueStore) (*TaskStore, error) {
	st, err := load[taskState](ctx, kv, TaskStorageKey)
	if err != nil {
		return nil, err
	}
	return &TaskStore{kv: kv, tasks: st.Tasks}, nil
}

// Tasks returns a copy of the list in insertion order.
func (s *TaskStore) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

// Add appends a new incomplete task.
func (s *TaskStore) Add(ctx context.Context, text string) (Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, ErrEmptyText
	}

	task := Task{ID: uuid.NewString(), Text: text}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(slices.Clone(s.tasks), task)
	if err := s.commit(ctx, next); err != nil {
		return Task{}, err
	}
	return task, nil
}

// Remove deletes the task with id.
func (s *TaskStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	return s.commit(ctx, slices.Delete(slices.Clone(s.tasks), i, i+1))
}

// Toggle flips the completion flag of the task with id and returns it.
func (s *TaskStore) Toggle(ctx context.Context, id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return Task{}, ErrNotFound
	}

	next := slices.Clone(s.tasks)
	next[i].Completed = !next[i].Completed
	if err := s.commit(ctx, next); err != nil {
		return Task{}, err
	}
	return next[i], nil
}

// ClearCompleted removes every completed task and reports how many were
// removed.
func (s *TaskStore) ClearCompleted(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.DeleteFunc(slices.Clone(s.tasks), func(t Task) bool { return t.Completed })
	removed := len(s.tasks) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := s.commit(ctx, next); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *TaskStore) index(id string) int {
	return slices.IndexFunc(s.tasks, func(t Task) bool { return t.ID == id })
}

// commit persists next and then publishes it. Callers hold s.mu.
func (s *TaskStore) commit(ctx context.Context, next []Task) error {
	if err := save(ctx, s.kv, TaskStorageKey, taskState{Tasks: next}); err != nil {
		return err
	}
	s.tasks = next
	return nil
}
