package offline

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Guizzs26/scorebook-sync/internal/kv"
	"github.com/Guizzs26/scorebook-sync/internal/models"
)

const (
	keyActions  = "offline_actions"
	keySequence = "offline_sequence"
	keyLastSync = "offline_last_sync"
)

// ActionStore is the persisted, ordered log of pending mutations. Every call
// writes through to the key-value store before returning.
type ActionStore struct {
	kv  kv.Store
	now func() time.Time
	mu  sync.Mutex
}

func NewActionStore(store kv.Store) *ActionStore {
	return &ActionStore{kv: store, now: time.Now}
}

// Append assigns the next sequence number and id to draft and persists it.
// The counter is written before the list so a crash between the two writes
// can skip a number but never reuse one.
func (s *ActionStore) Append(ctx context.Context, draft models.PendingAction) (models.PendingAction, error) {
	if !draft.Kind.Valid() {
		return models.PendingAction{}, fmt.Errorf("append action: invalid kind %q", draft.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var seq int64
	if _, err := loadJSON(ctx, s.kv, keySequence, &seq); err != nil {
		return models.PendingAction{}, fmt.Errorf("append action: %w", err)
	}
	var actions []models.PendingAction
	if _, err := loadJSON(ctx, s.kv, keyActions, &actions); err != nil {
		return models.PendingAction{}, fmt.Errorf("append action: %w", err)
	}
	for _, a := range actions {
		seq = max(seq, a.SequenceNumber)
	}
	seq++

	if draft.CreatedAtMillis == 0 {
		draft.CreatedAtMillis = s.now().UnixMilli()
	}
	draft.SequenceNumber = seq
	draft.ID = models.ActionID(draft.CreatedAtMillis, seq)

	if err := saveJSON(ctx, s.kv, keySequence, seq); err != nil {
		return models.PendingAction{}, fmt.Errorf("append action: %w", err)
	}
	if err := saveJSON(ctx, s.kv, keyActions, append(actions, draft)); err != nil {
		return models.PendingAction{}, fmt.Errorf("append action: %w", err)
	}
	return draft, nil
}

// ListPending returns the pending actions ordered by sequence number.
func (s *ActionStore) ListPending(ctx context.Context) ([]models.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *ActionStore) load(ctx context.Context) ([]models.PendingAction, error) {
	var actions []models.PendingAction
	if _, err := loadJSON(ctx, s.kv, keyActions, &actions); err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	slices.SortStableFunc(actions, func(a, b models.PendingAction) int {
		switch {
		case a.SequenceNumber < b.SequenceNumber:
			return -1
		case a.SequenceNumber > b.SequenceNumber:
			return 1
		}
		return 0
	})
	return actions, nil
}

// Remove drops the action with the given id. Unknown ids are a no-op.
func (s *ActionStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("remove action: %w", err)
	}
	idx := slices.IndexFunc(actions, func(a models.PendingAction) bool { return a.ID == id })
	if idx < 0 {
		return nil
	}
	if err := saveJSON(ctx, s.kv, keyActions, slices.Delete(actions, idx, idx+1)); err != nil {
		return fmt.Errorf("remove action: %w", err)
	}
	return nil
}

// Clear drops every pending action. The sequence counter is kept.
func (s *ActionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeKeys(ctx, s.kv, keyActions)
}

// RecordSyncTime stores the wall-clock time of the latest sync pass.
func (s *ActionStore) RecordSyncTime(ctx context.Context, t time.Time) error {
	return saveJSON(ctx, s.kv, keyLastSync, t.UnixMilli())
}

// LastSyncMillis returns 0 when no pass has run yet.
func (s *ActionStore) LastSyncMillis(ctx context.Context) (int64, error) {
	var ms int64
	if _, err := loadJSON(ctx, s.kv, keyLastSync, &ms); err != nil {
		return 0, err
	}
	return ms, nil
}

// ForgetSyncTime clears the recorded last sync time.
func (s *ActionStore) ForgetSyncTime(ctx context.Context) error {
	return removeKeys(ctx, s.kv, keyLastSync)
}
