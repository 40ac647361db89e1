package offline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Guizzs26/scorebook-sync/internal/kv"
	"github.com/Guizzs26/scorebook-sync/internal/models"
)

const keyConflicts = "offline_conflicts"

// ConflictLedger stores actions the remote rejected as conflicting. Nothing in
// this module resolves them; Resolve only stamps the chosen resolution.
type ConflictLedger struct {
	kv  kv.Store
	now func() time.Time
	mu  sync.Mutex
}

func NewConflictLedger(store kv.Store) *ConflictLedger {
	return &ConflictLedger{kv: store, now: time.Now}
}

// Record stores rec. An unresolved record already holding the same action is
// replaced rather than duplicated, so a retried conflict appears once.
func (l *ConflictLedger) Record(ctx context.Context, rec models.ConflictRecord) error {
	if rec.Resolution == "" {
		rec.Resolution = models.ResolutionManualRequired
	}
	if rec.ServerActions == nil {
		rec.ServerActions = []models.PendingAction{}
	}
	if rec.RecordedAtMillis == 0 {
		rec.RecordedAtMillis = l.now().UnixMilli()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return fmt.Errorf("record conflict: %w", err)
	}

	replaced := false
	for i, existing := range records {
		if existing.Resolution != models.ResolutionManualRequired || existing.TargetMatchID != rec.TargetMatchID {
			continue
		}
		for _, a := range rec.Actions {
			if existing.References(a.ID) {
				records[i] = rec
				replaced = true
				break
			}
		}
		if replaced {
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}

	if err := saveJSON(ctx, l.kv, keyConflicts, records); err != nil {
		return fmt.Errorf("record conflict: %w", err)
	}
	return nil
}

func (l *ConflictLedger) List(ctx context.Context) ([]models.ConflictRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

func (l *ConflictLedger) load(ctx context.Context) ([]models.ConflictRecord, error) {
	var records []models.ConflictRecord
	if _, err := loadJSON(ctx, l.kv, keyConflicts, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// UnresolvedCount counts records still tagged ManualRequired.
func (l *ConflictLedger) UnresolvedCount(ctx context.Context) (int, error) {
	records, err := l.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range records {
		if r.Resolution == models.ResolutionManualRequired {
			n++
		}
	}
	return n, nil
}

// Resolve tags every record for matchID with resolution and the current time.
// It returns how many records were tagged. No action is replayed or dropped.
func (l *ConflictLedger) Resolve(ctx context.Context, matchID string, resolution models.Resolution) (int, error) {
	if !resolution.Valid() {
		return 0, fmt.Errorf("resolve conflicts: invalid resolution %q", resolution)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve conflicts: %w", err)
	}

	at := l.now().UnixMilli()
	n := 0
	for i := range records {
		if records[i].TargetMatchID != matchID {
			continue
		}
		records[i].Resolution = resolution
		records[i].ResolvedAtMillis = &at
		n++
	}
	if n == 0 {
		return 0, nil
	}
	if err := saveJSON(ctx, l.kv, keyConflicts, records); err != nil {
		return 0, fmt.Errorf("resolve conflicts: %w", err)
	}
	return n, nil
}

func (l *ConflictLedger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return removeKeys(ctx, l.kv, keyConflicts)
}
