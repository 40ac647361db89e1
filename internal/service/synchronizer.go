package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Guizzs26/scorebook-sync/internal/models"
	"github.com/Guizzs26/scorebook-sync/pkg/metrics"
)

var (
	// ErrSyncInProgress is returned, with a zero result, when a pass is already draining.
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrUnknownKind    = errors.New("unknown action kind")
)

// Queue is the pending action log the synchronizer drains
type Queue interface {
	ListPending(ctx context.Context) ([]models.PendingAction, error)
	Remove(ctx context.Context, id string) error
	RecordSyncTime(ctx context.Context, t time.Time) error
}

// Ledger receives conflict-classified actions
type Ledger interface {
	Record(ctx context.Context, rec models.ConflictRecord) error
}

// RemoteAPI is the subset of the score API used for replay
type RemoteAPI interface {
	AddBall(ctx context.Context, matchID string, fields json.RawMessage) (string, error)
	UpdateMatch(ctx context.Context, matchID string, fields json.RawMessage) error
	CreateMatch(ctx context.Context, fields json.RawMessage) (string, error)
}

// Probe answers whether the remote is reachable right now
type Probe interface {
	Probe(ctx context.Context) bool
}

type State int32

const (
	StateIdle State = iota
	StateProbing
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateProbing:
		return "probing"
	case StateDraining:
		return "draining"
	}
	return "idle"
}

// Synchronizer replays the pending action log against the score API, one
// action at a time in sequence order. It never retries within a pass and
// never schedules itself; callers decide when to sync again.
type Synchronizer struct {
	queue  Queue
	ledger Ledger
	api    RemoteAPI
	probe  Probe
	logger *slog.Logger
	now    func() time.Time

	running atomic.Bool
	state   atomic.Int32
}

func NewSynchronizer(q Queue, l Ledger, api RemoteAPI, p Probe, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		queue:  q,
		ledger: l,
		api:    api,
		probe:  p,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Synchronizer) State() State {
	return State(s.state.Load())
}

// SyncPending runs one pass: Idle -> Probing -> (Draining | Idle).
// Actions enqueued while the pass drains wait for the next call.
func (s *Synchronizer) SyncPending(ctx context.Context) (models.SyncResult, error) {
	var result models.SyncResult

	if !s.running.CompareAndSwap(false, true) {
		metrics.SyncPasses.WithLabelValues("skipped").Inc()
		return result, ErrSyncInProgress
	}
	defer func() {
		s.state.Store(int32(StateIdle))
		s.running.Store(false)
	}()

	s.state.Store(int32(StateProbing))
	if !s.probe.Probe(ctx) {
		s.logger.Info("Remote unreachable, skipping sync pass")
		metrics.SyncPasses.WithLabelValues("offline").Inc()
		return result, nil
	}

	s.state.Store(int32(StateDraining))
	start := s.now()
	defer s.recordPass(ctx, start, &result)

	actions, err := s.queue.ListPending(ctx)
	if err != nil {
		metrics.SyncPasses.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("fetch pending actions: %w", err)
	}
	if len(actions) > 0 {
		s.logger.Info("Draining pending actions", "count", len(actions))
	}

	for i, a := range actions {
		select {
		case <-ctx.Done():
			s.logger.Warn("Sync pass canceled. Remaining actions stay queued.", "remaining", len(actions)-i)
			metrics.PendingActions.Set(float64(len(actions) - result.SuccessCount))
			metrics.SyncPasses.WithLabelValues("failed").Inc()
			return result, ctx.Err()
		default:
		}

		s.process(ctx, a, &result)
	}

	metrics.PendingActions.Set(float64(len(actions) - result.SuccessCount))
	metrics.SyncPasses.WithLabelValues("completed").Inc()
	return result, nil
}

func (s *Synchronizer) process(ctx context.Context, a models.PendingAction, result *models.SyncResult) {
	l := s.logger.With("action_id", a.ID, "kind", a.Kind, "match_id", a.TargetMatchID)
	kind := string(a.Kind)

	err := s.dispatch(ctx, a)
	switch {
	case err == nil:
		if rmErr := s.queue.Remove(ctx, a.ID); rmErr != nil {
			// Applied remotely but still queued; the next pass will send it again.
			l.Error("Action applied but could not be removed from the log", "error", rmErr)
			result.ErrorCount++
			metrics.SyncActions.WithLabelValues("error", kind).Inc()
			return
		}
		result.SuccessCount++
		metrics.SyncActions.WithLabelValues("success", kind).Inc()

	case errors.Is(err, models.ErrConflict):
		l.Warn("Remote rejected action as conflicting", "error", err)
		rec := models.ConflictRecord{
			TargetMatchID: a.TargetMatchID,
			Actions:       []models.PendingAction{a},
			Reason:        err.Error(),
		}
		if recErr := s.ledger.Record(ctx, rec); recErr != nil {
			l.Error("Failed to write conflict record", "error", recErr)
		}
		result.ConflictCount++
		metrics.SyncActions.WithLabelValues("conflict", kind).Inc()

	default:
		l.Error("Remote call failed, action stays queued", "error", err)
		result.ErrorCount++
		metrics.SyncActions.WithLabelValues("error", kind).Inc()
	}
}

func (s *Synchronizer) dispatch(ctx context.Context, a models.PendingAction) error {
	switch a.Kind {
	case models.KindAddBall:
		_, err := s.api.AddBall(ctx, a.TargetMatchID, a.Payload)
		return err
	case models.KindUpdateMatch:
		return s.api.UpdateMatch(ctx, a.TargetMatchID, a.Payload)
	case models.KindCreateMatch:
		_, err := s.api.CreateMatch(ctx, a.Payload)
		return err
	case models.KindDeleteMatch:
		// No remote delete exists; the action is acknowledged and dropped.
		s.logger.Debug("DeleteMatch has no remote counterpart, dropping", "action_id", a.ID)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
}

// recordPass stores the pass time and emits telemetry. It runs for every pass
// that reached the drain phase, including empty and failed ones.
func (s *Synchronizer) recordPass(ctx context.Context, start time.Time, result *models.SyncResult) {
	if err := s.queue.RecordSyncTime(context.WithoutCancel(ctx), start); err != nil {
		s.logger.Error("Failed to record last sync time", "error", err)
	}
	elapsed := s.now().Sub(start)
	metrics.SyncDuration.Observe(elapsed.Seconds())
	metrics.LastSyncTimestamp.Set(float64(start.Unix()))

	s.logger.Info("Sync pass telemetry",
		"success", result.SuccessCount,
		"conflicts", result.ConflictCount,
		"errors", result.ErrorCount,
		"duration_ms", elapsed.Milliseconds(),
	)
}
