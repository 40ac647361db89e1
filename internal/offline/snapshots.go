package offline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Guizzs26/scorebook-sync/internal/kv"
	"github.com/Guizzs26/scorebook-sync/internal/models"
)

const (
	keyMatchPrefix   = "offline_snapshot_match_"
	keyBallsPrefix   = "offline_snapshot_balls_"
	keySnapshotIndex = "offline_snapshot_index"
)

// SnapshotCache holds the last-known full state of each match and its ball
// list. Writes replace the whole record; nothing is merged here.
type SnapshotCache struct {
	kv kv.Store

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
	indexMu sync.Mutex
}

func NewSnapshotCache(store kv.Store) *SnapshotCache {
	return &SnapshotCache{kv: store, locks: make(map[string]*sync.Mutex)}
}

// lockMatch serializes read-modify-write sequences on one match id.
func (c *SnapshotCache) lockMatch(matchID string) func() {
	c.locksMu.Lock()
	m, ok := c.locks[matchID]
	if !ok {
		m = &sync.Mutex{}
		c.locks[matchID] = m
	}
	c.locksMu.Unlock()

	m.Lock()
	return m.Unlock
}

func (c *SnapshotCache) PutMatch(ctx context.Context, snapshot models.Document) error {
	id := snapshot.ID()
	if id == "" {
		return errors.New("put match: snapshot has no id")
	}
	unlock := c.lockMatch(id)
	defer unlock()

	if err := saveJSON(ctx, c.kv, keyMatchPrefix+id, snapshot); err != nil {
		return fmt.Errorf("put match %s: %w", id, err)
	}
	return c.addToIndex(ctx, id)
}

// GetMatch returns the cached snapshot, or ok=false when none is stored.
func (c *SnapshotCache) GetMatch(ctx context.Context, matchID string) (models.Document, bool, error) {
	var doc models.Document
	found, err := loadJSON(ctx, c.kv, keyMatchPrefix+matchID, &doc)
	if err != nil {
		return nil, false, fmt.Errorf("get match %s: %w", matchID, err)
	}
	return doc, found, nil
}

// UpdateMatch applies fn to the cached snapshot under the match lock and
// stores the result. fn is not called when no snapshot exists.
func (c *SnapshotCache) UpdateMatch(ctx context.Context, matchID string, fn func(models.Document) models.Document) (bool, error) {
	unlock := c.lockMatch(matchID)
	defer unlock()

	var doc models.Document
	found, err := loadJSON(ctx, c.kv, keyMatchPrefix+matchID, &doc)
	if err != nil {
		return false, fmt.Errorf("update match %s: %w", matchID, err)
	}
	if !found {
		return false, nil
	}
	if err := saveJSON(ctx, c.kv, keyMatchPrefix+matchID, fn(doc)); err != nil {
		return false, fmt.Errorf("update match %s: %w", matchID, err)
	}
	return true, nil
}

func (c *SnapshotCache) AppendBall(ctx context.Context, matchID string, ball models.Document) error {
	unlock := c.lockMatch(matchID)
	defer unlock()

	var balls []models.Document
	if _, err := loadJSON(ctx, c.kv, keyBallsPrefix+matchID, &balls); err != nil {
		return fmt.Errorf("append ball to %s: %w", matchID, err)
	}
	if err := saveJSON(ctx, c.kv, keyBallsPrefix+matchID, append(balls, ball)); err != nil {
		return fmt.Errorf("append ball to %s: %w", matchID, err)
	}
	return c.addToIndex(ctx, matchID)
}

func (c *SnapshotCache) GetBalls(ctx context.Context, matchID string) ([]models.Document, error) {
	var balls []models.Document
	if _, err := loadJSON(ctx, c.kv, keyBallsPrefix+matchID, &balls); err != nil {
		return nil, fmt.Errorf("get balls for %s: %w", matchID, err)
	}
	return balls, nil
}

// MatchIDs lists every match with a cached snapshot or ball list.
func (c *SnapshotCache) MatchIDs(ctx context.Context) ([]string, error) {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	var ids []string
	if _, err := loadJSON(ctx, c.kv, keySnapshotIndex, &ids); err != nil {
		return nil, fmt.Errorf("snapshot index: %w", err)
	}
	return ids, nil
}

func (c *SnapshotCache) addToIndex(ctx context.Context, matchID string) error {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	var ids []string
	if _, err := loadJSON(ctx, c.kv, keySnapshotIndex, &ids); err != nil {
		return fmt.Errorf("snapshot index: %w", err)
	}
	if slices.Contains(ids, matchID) {
		return nil
	}
	return saveJSON(ctx, c.kv, keySnapshotIndex, append(ids, matchID))
}

// Clear removes every cached match and ball list. A corrupt index is dropped
// on its own; the snapshots it pointed at become unreachable.
func (c *SnapshotCache) Clear(ctx context.Context) error {
	ids, err := c.MatchIDs(ctx)
	if err != nil && !errors.Is(err, ErrCorruptState) {
		return err
	}

	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	keys := make([]string, 0, len(ids)*2+1)
	for _, id := range ids {
		keys = append(keys, keyMatchPrefix+id, keyBallsPrefix+id)
	}
	keys = append(keys, keySnapshotIndex)
	return removeKeys(ctx, c.kv, keys...)
}
