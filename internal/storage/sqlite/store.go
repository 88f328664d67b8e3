package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
)

// DefaultNamespace is used by the Store's own KeyValueStore methods.
const DefaultNamespace = "default"

// Store is a SQLite-backed key-value store. Keys are partitioned into
// namespaces so secure credentials and app state can share one file.
type Store struct {
	db *sql.DB
}

var _ ports.KeyValueStore = (*Store)(nil)

// New opens (or creates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (namespace, key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_kv_updated ON kv(updated_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// Namespace returns a KeyValueStore view restricted to ns.
func (s *Store) Namespace(ns string) *Bucket {
	return &Bucket{store: s, namespace: ns}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	return s.get(ctx, DefaultNamespace, key)
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.set(ctx, DefaultNamespace, key, value)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.delete(ctx, DefaultNamespace, key)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(ctx context.Context, ns, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`, ns, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s/%s: %w", ns, key, err)
	}

	return value, true, nil
}

func (s *Store) set(ctx context.Context, ns, key, value string) error {
	query := `INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
	          ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, ns, key, value, time.Now()); err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", ns, key, err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, ns, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE namespace = ? AND key = ?`, ns, key); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", ns, key, err)
	}
	return nil
}

func (s *Store) keys(ctx context.Context, ns string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE namespace = ? ORDER BY key ASC`, ns)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", ns, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Bucket is one namespace of a Store.
type Bucket struct {
	store     *Store
	namespace string
}

var _ ports.KeyValueStore = (*Bucket)(nil)

func (b *Bucket) Get(ctx context.Context, key string) (string, bool, error) {
	return b.store.get(ctx, b.namespace, key)
}

func (b *Bucket) Set(ctx context.Context, key, value string) error {
	return b.store.set(ctx, b.namespace, key, value)
}

func (b *Bucket) Delete(ctx context.Context, key string) error {
	return b.store.delete(ctx, b.namespace, key)
}

// Keys lists the keys in the namespace in ascending order.
func (b *Bucket) Keys(ctx context.Context) ([]string, error) {
	return b.store.keys(ctx, b.namespace)
}
