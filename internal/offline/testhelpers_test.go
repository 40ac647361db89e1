package offline

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Guizzs26/scorebook-sync/internal/kv"
)

func newTestKV(t *testing.T) kv.Store {
	t.Helper()
	st, err := kv.NewMemoryBadgerStore()
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestManager(t *testing.T) (*Manager, kv.Store) {
	t.Helper()
	st := newTestKV(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(NewActionStore(st), NewSnapshotCache(st), NewConflictLedger(st), logger), st
}

func timeAt(ms int64) time.Time {
	return time.UnixMilli(ms)
}
