package offline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Guizzs26/scorebook-sync/internal/models"
)

func draft(kind models.ActionKind, matchID string) models.PendingAction {
	return models.PendingAction{Kind: kind, TargetMatchID: matchID, Payload: json.RawMessage(`{}`)}
}

func TestActionStore_AppendMonotonicAcrossRestart(t *testing.T) {
	ctx := context.Background()
	st := newTestKV(t)

	var seqs []int64
	store := NewActionStore(st)
	for i := 0; i < 3; i++ {
		a, err := store.Append(ctx, draft(models.KindAddBall, "M1"))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		seqs = append(seqs, a.SequenceNumber)
	}

	// Simulated restart: a fresh store over the same durable storage.
	store = NewActionStore(st)
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	for i := 0; i < 2; i++ {
		a, err := store.Append(ctx, draft(models.KindUpdateMatch, "M1"))
		if err != nil {
			t.Fatalf("append after restart %d: %v", i, err)
		}
		seqs = append(seqs, a.SequenceNumber)
	}

	for i := 1; i < len(seqs); i++ {
		if seqs[i] <= seqs[i-1] {
			t.Fatalf("sequence not strictly increasing: %v", seqs)
		}
	}
}

func TestActionStore_AppendAssignsID(t *testing.T) {
	ctx := context.Background()
	store := NewActionStore(newTestKV(t))

	a, err := store.Append(ctx, models.PendingAction{Kind: models.KindAddBall, TargetMatchID: "M1", CreatedAtMillis: 1700000000000})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if a.ID != "action_1700000000000_1" {
		t.Errorf("id: got %q", a.ID)
	}
}

func TestActionStore_AppendRejectsUnknownKind(t *testing.T) {
	store := NewActionStore(newTestKV(t))
	if _, err := store.Append(context.Background(), draft("Teleport", "M1")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestActionStore_ListPendingOrdersBySequence(t *testing.T) {
	ctx := context.Background()
	st := newTestKV(t)

	seeded := []models.PendingAction{
		{ID: "a3", Kind: models.KindAddBall, SequenceNumber: 3},
		{ID: "a1", Kind: models.KindAddBall, SequenceNumber: 1},
		{ID: "a2", Kind: models.KindAddBall, SequenceNumber: 2},
	}
	raw, _ := json.Marshal(seeded)
	if err := st.Set(ctx, keyActions, string(raw)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := NewActionStore(st).ListPending(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"a1", "a2", "a3"}
	for i, a := range got {
		if a.ID != want[i] {
			t.Fatalf("order: got %v at %d, want %v", a.ID, i, want[i])
		}
	}

	// Allocation continues past the highest seeded number even without a counter.
	next, err := NewActionStore(st).Append(ctx, draft(models.KindAddBall, "M1"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if next.SequenceNumber != 4 {
		t.Errorf("next sequence: got %d, want 4", next.SequenceNumber)
	}
}

func TestActionStore_RemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewActionStore(newTestKV(t))

	a1, _ := store.Append(ctx, draft(models.KindAddBall, "M1"))
	a2, _ := store.Append(ctx, draft(models.KindAddBall, "M1"))

	for i := 0; i < 2; i++ {
		if err := store.Remove(ctx, a1.ID); err != nil {
			t.Fatalf("remove #%d: %v", i, err)
		}
	}
	if err := store.Remove(ctx, "action_never_inserted"); err != nil {
		t.Fatalf("remove unknown: %v", err)
	}

	pending, err := store.ListPending(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != a2.ID {
		t.Fatalf("pending: got %+v, want only %s", pending, a2.ID)
	}
}

func TestActionStore_CorruptStateIsSurfaced(t *testing.T) {
	ctx := context.Background()
	st := newTestKV(t)
	if err := st.Set(ctx, keyActions, "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := NewActionStore(st)

	if _, err := store.ListPending(ctx); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("list: got %v, want ErrCorruptState", err)
	}
	if _, err := store.Append(ctx, draft(models.KindAddBall, "M1")); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("append: got %v, want ErrCorruptState", err)
	}

	raw, _, _ := st.Get(ctx, keyActions)
	if raw != "{not json" {
		t.Errorf("corrupt value overwritten: %q", raw)
	}
}

func TestActionStore_SyncTime(t *testing.T) {
	ctx := context.Background()
	store := NewActionStore(newTestKV(t))

	if ms, err := store.LastSyncMillis(ctx); err != nil || ms != 0 {
		t.Fatalf("initial: ms=%d err=%v", ms, err)
	}
	if err := store.RecordSyncTime(ctx, timeAt(1700000000123)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if ms, _ := store.LastSyncMillis(ctx); ms != 1700000000123 {
		t.Errorf("last sync: got %d", ms)
	}
	if err := store.ForgetSyncTime(ctx); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if ms, _ := store.LastSyncMillis(ctx); ms != 0 {
		t.Errorf("after forget: got %d", ms)
	}
}
