package offline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Guizzs26/scorebook-sync/internal/models"
)

func TestSnapshotCache_PutMatchOverwrites(t *testing.T) {
	ctx := context.Background()
	cache := NewSnapshotCache(newTestKV(t))

	if err := cache.PutMatch(ctx, models.Document{"id": "M1", "totalRuns": 10.0, "venue": "Lord's"}); err != nil {
		t.Fatalf("put 1: %v", err)
	}
	if err := cache.PutMatch(ctx, models.Document{"id": "M1", "totalRuns": 14.0}); err != nil {
		t.Fatalf("put 2: %v", err)
	}

	got, ok, err := cache.GetMatch(ctx, "M1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if _, merged := got["venue"]; merged {
		t.Errorf("second write was merged with the first: %v", got)
	}
	if got["totalRuns"] != 14.0 {
		t.Errorf("totalRuns: got %v", got["totalRuns"])
	}
}

func TestSnapshotCache_GetMissing(t *testing.T) {
	cache := NewSnapshotCache(newTestKV(t))
	if _, ok, err := cache.GetMatch(context.Background(), "nope"); ok || err != nil {
		t.Fatalf("missing: ok=%v err=%v", ok, err)
	}
}

func TestSnapshotCache_PutMatchRequiresID(t *testing.T) {
	cache := NewSnapshotCache(newTestKV(t))
	if err := cache.PutMatch(context.Background(), models.Document{"venue": "Eden"}); err == nil {
		t.Fatal("expected error for snapshot without id")
	}
}

func TestSnapshotCache_AppendBallConcurrent(t *testing.T) {
	ctx := context.Background()
	cache := NewSnapshotCache(newTestKV(t))

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := cache.AppendBall(ctx, "M1", models.Document{"id": fmt.Sprintf("b%d", i)}); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	balls, err := cache.GetBalls(ctx, "M1")
	if err != nil {
		t.Fatalf("get balls: %v", err)
	}
	if len(balls) != n {
		t.Fatalf("lost updates: got %d balls, want %d", len(balls), n)
	}
}

func TestSnapshotCache_BallsKeepOrder(t *testing.T) {
	ctx := context.Background()
	cache := NewSnapshotCache(newTestKV(t))
	for _, id := range []string{"b1", "b2", "b3"} {
		if err := cache.AppendBall(ctx, "M1", models.Document{"id": id}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	balls, _ := cache.GetBalls(ctx, "M1")
	for i, want := range []string{"b1", "b2", "b3"} {
		if balls[i].ID() != want {
			t.Errorf("ball %d: got %s, want %s", i, balls[i].ID(), want)
		}
	}
}

func TestSnapshotCache_UpdateMatch(t *testing.T) {
	ctx := context.Background()
	cache := NewSnapshotCache(newTestKV(t))

	called := false
	found, err := cache.UpdateMatch(ctx, "M1", func(d models.Document) models.Document {
		called = true
		return d
	})
	if err != nil || found || called {
		t.Fatalf("absent snapshot: found=%v called=%v err=%v", found, called, err)
	}

	_ = cache.PutMatch(ctx, models.Document{"id": "M1", "status": "live"})
	found, err = cache.UpdateMatch(ctx, "M1", func(d models.Document) models.Document {
		d["status"] = "completed"
		return d
	})
	if err != nil || !found {
		t.Fatalf("update: found=%v err=%v", found, err)
	}
	got, _, _ := cache.GetMatch(ctx, "M1")
	if got["status"] != "completed" {
		t.Errorf("status: got %v", got["status"])
	}
}

func TestSnapshotCache_Clear(t *testing.T) {
	ctx := context.Background()
	cache := NewSnapshotCache(newTestKV(t))
	_ = cache.PutMatch(ctx, models.Document{"id": "M1"})
	_ = cache.AppendBall(ctx, "M2", models.Document{"id": "b1"})

	ids, _ := cache.MatchIDs(ctx)
	if len(ids) != 2 {
		t.Fatalf("index: got %v", ids)
	}
	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := cache.GetMatch(ctx, "M1"); ok {
		t.Error("M1 snapshot survived clear")
	}
	if balls, _ := cache.GetBalls(ctx, "M2"); len(balls) != 0 {
		t.Errorf("M2 balls survived clear: %v", balls)
	}
}

func TestSnapshotCache_CorruptBalls(t *testing.T) {
	ctx := context.Background()
	st := newTestKV(t)
	_ = st.Set(ctx, keyBallsPrefix+"M1", "[{")
	cache := NewSnapshotCache(st)

	if _, err := cache.GetBalls(ctx, "M1"); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("get balls: got %v, want ErrCorruptState", err)
	}
	if err := cache.AppendBall(ctx, "M1", models.Document{"id": "b"}); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("append: got %v, want ErrCorruptState", err)
	}
}
