package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Guizzs26/scorebook-sync/internal/kv"
)

var (
	// ErrCorruptState is returned when a persisted value cannot be decoded.
	// The stored value is left untouched.
	ErrCorruptState = errors.New("corrupt offline state")
	// ErrStorage wraps failures of the underlying key-value store.
	ErrStorage = errors.New("offline storage failure")
)

// loadJSON decodes key into out. A missing key leaves out untouched and reports false.
func loadJSON(ctx context.Context, store kv.Store, key string, out any) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %w", ErrStorage, key, err)
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", ErrCorruptState, key, err)
	}
	return true, nil
}

func saveJSON(ctx context.Context, store kv.Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStorage, key, err)
	}
	return nil
}

func removeKeys(ctx context.Context, store kv.Store, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := store.RemoveMany(ctx, keys); err != nil {
		return fmt.Errorf("%w: remove: %w", ErrStorage, err)
	}
	return nil
}
