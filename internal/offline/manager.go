package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Guizzs26/scorebook-sync/internal/commentary"
	"github.com/Guizzs26/scorebook-sync/internal/models"
)

// MatchFetcher reads the authoritative copy of a match from the remote API.
type MatchFetcher interface {
	GetMatch(ctx context.Context, matchID string) (models.Document, error)
}

// Manager is the enqueue API used by the scoring screens. Each Record call
// updates the snapshot cache for optimistic display and appends one action to
// the log; it never talks to the remote API.
type Manager struct {
	actions   *ActionStore
	snapshots *SnapshotCache
	conflicts *ConflictLedger
	logger    *slog.Logger

	deviceID string
	now      func() time.Time
}

func NewManager(actions *ActionStore, snapshots *SnapshotCache, conflicts *ConflictLedger, logger *slog.Logger) *Manager {
	return &Manager{
		actions:   actions,
		snapshots: snapshots,
		conflicts: conflicts,
		logger:    logger,
		// TODO: persist the device id once multi-device conflict detection needs a stable origin.
		deviceID: uuid.NewString(),
		now:      time.Now,
	}
}

func (m *Manager) DeviceID() string           { return m.deviceID }
func (m *Manager) Actions() *ActionStore      { return m.actions }
func (m *Manager) Snapshots() *SnapshotCache  { return m.snapshots }
func (m *Manager) Conflicts() *ConflictLedger { return m.conflicts }

// RecordBallAdded stores the ball in the local ball list and queues an AddBall
// action carrying the caller's fields.
func (m *Manager) RecordBallAdded(ctx context.Context, matchID string, fields models.Document) (string, error) {
	if matchID == "" {
		return "", errors.New("record ball added: empty match id")
	}
	ts := m.now().UnixMilli()

	ball := fields.Clone()
	ball["id"] = fmt.Sprintf("ball_%d_%s", ts, randomSuffix())
	ball["matchId"] = matchID
	ball["timestamp"] = ts
	if _, ok := ball["commentary"]; !ok {
		ball["commentary"] = commentary.ForBall(fields)
	}

	if err := m.snapshots.AppendBall(ctx, matchID, ball); err != nil {
		return "", fmt.Errorf("record ball added: %w", err)
	}

	action, err := m.enqueue(ctx, models.KindAddBall, matchID, fields, ts)
	if err != nil {
		return "", fmt.Errorf("record ball added: %w", err)
	}

	m.logger.Debug("Ball recorded offline", "match_id", matchID, "ball_id", ball["id"], "action_id", action.ID)
	return action.ID, nil
}

// RecordMatchUpdated shallow-merges partial into the cached snapshot when one
// exists and always queues an UpdateMatch action.
func (m *Manager) RecordMatchUpdated(ctx context.Context, matchID string, partial models.Document) (string, error) {
	if matchID == "" {
		return "", errors.New("record match updated: empty match id")
	}
	ts := m.now().UnixMilli()

	_, err := m.snapshots.UpdateMatch(ctx, matchID, func(doc models.Document) models.Document {
		doc.Merge(partial)
		return doc
	})
	if err != nil {
		// The action log is authoritative; a stale snapshot is only a display problem.
		m.logger.Warn("Snapshot merge failed, queueing update anyway", "match_id", matchID, "error", err)
	}

	action, err := m.enqueue(ctx, models.KindUpdateMatch, matchID, partial, ts)
	if err != nil {
		return "", fmt.Errorf("record match updated: %w", err)
	}
	return action.ID, nil
}

// RecordMatchCreated stores a snapshot under a local-only id and queues a
// CreateMatch action with the original fields. The remote mints its own id,
// so the local id does not survive sync.
func (m *Manager) RecordMatchCreated(ctx context.Context, fields models.Document) (actionID, localMatchID string, err error) {
	ts := m.now().UnixMilli()
	localMatchID = fmt.Sprintf("offline_match_%d_%s", ts, randomSuffix())

	snapshot := fields.Clone()
	snapshot["id"] = localMatchID
	snapshot["createdAt"] = ts
	snapshot["isOffline"] = true

	if err := m.snapshots.PutMatch(ctx, snapshot); err != nil {
		return "", "", fmt.Errorf("record match created: %w", err)
	}

	action, err := m.enqueue(ctx, models.KindCreateMatch, localMatchID, fields, ts)
	if err != nil {
		return "", "", fmt.Errorf("record match created: %w", err)
	}
	return action.ID, localMatchID, nil
}

func (m *Manager) enqueue(ctx context.Context, kind models.ActionKind, matchID string, payload models.Document, ts int64) (models.PendingAction, error) {
	if payload == nil {
		payload = models.Document{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return models.PendingAction{}, fmt.Errorf("encode payload: %w", err)
	}
	return m.actions.Append(ctx, models.PendingAction{
		Kind:            kind,
		TargetMatchID:   matchID,
		Payload:         raw,
		CreatedAtMillis: ts,
		OriginDeviceID:  m.deviceID,
	})
}

// RefreshMatch replaces the cached snapshot with the remote copy.
func (m *Manager) RefreshMatch(ctx context.Context, src MatchFetcher, matchID string) (models.Document, error) {
	doc, err := src.GetMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("refresh match %s: %w", matchID, err)
	}
	if doc.ID() == "" {
		doc["id"] = matchID
	}
	if err := m.snapshots.PutMatch(ctx, doc); err != nil {
		return nil, fmt.Errorf("refresh match %s: %w", matchID, err)
	}
	return doc, nil
}

// Status derives the offline status from the stores. online comes from the caller's probe.
func (m *Manager) Status(ctx context.Context, online bool) (models.OfflineStatus, error) {
	pending, err := m.actions.ListPending(ctx)
	if err != nil {
		return models.OfflineStatus{}, err
	}
	conflicts, err := m.conflicts.UnresolvedCount(ctx)
	if err != nil {
		return models.OfflineStatus{}, err
	}
	last, err := m.actions.LastSyncMillis(ctx)
	if err != nil {
		return models.OfflineStatus{}, err
	}
	return models.OfflineStatus{
		IsOnline:           online,
		PendingActionCount: len(pending),
		ConflictCount:      conflicts,
		LastSyncMillis:     last,
	}, nil
}

// ClearAll drops every pending action, snapshot and conflict record. The
// sequence counter survives.
func (m *Manager) ClearAll(ctx context.Context) error {
	var errs []error
	errs = append(errs,
		m.actions.Clear(ctx),
		m.actions.ForgetSyncTime(ctx),
		m.snapshots.Clear(ctx),
		m.conflicts.Clear(ctx),
	)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("clear offline data: %w", err)
	}
	m.logger.Info("Offline data cleared")
	return nil
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}
