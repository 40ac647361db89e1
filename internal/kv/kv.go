// Package kv provides the durable local key-value storage the offline queue
// persists into. Values are opaque strings; a completed Set survives a crash.
package kv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Store is the storage contract consumed by the offline package.
type Store interface {
	// Get returns the value for key, or ok=false when absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	RemoveMany(ctx context.Context, keys []string) error
	Close() error
}

// Open opens the backend named by backend ("badger" or "sqlite") under dir.
func Open(backend, dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	switch backend {
	case "badger", "":
		return NewBadgerStore(filepath.Join(dir, "badger"))
	case "sqlite":
		return NewSQLiteStore(filepath.Join(dir, "offline.db"))
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
