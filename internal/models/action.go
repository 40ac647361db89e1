package models

import (
	"encoding/json"
	"fmt"
)

// ActionKind is the closed set of mutations the offline queue records.
type ActionKind string

const (
	KindAddBall     ActionKind = "AddBall"
	KindUpdateMatch ActionKind = "UpdateMatch"
	KindCreateMatch ActionKind = "CreateMatch"
	KindDeleteMatch ActionKind = "DeleteMatch"
)

func (k ActionKind) Valid() bool {
	switch k {
	case KindAddBall, KindUpdateMatch, KindCreateMatch, KindDeleteMatch:
		return true
	}
	return false
}

// PendingAction is one queued mutation. It is never modified after Append.
type PendingAction struct {
	ID              string          `json:"id"`
	Kind            ActionKind      `json:"kind"`
	TargetMatchID   string          `json:"targetMatchId"`
	Payload         json.RawMessage `json:"payload"`
	CreatedAtMillis int64           `json:"createdAtMillis"`
	OriginDeviceID  string          `json:"originDeviceId"` // regenerated per process
	SequenceNumber  int64           `json:"sequenceNumber"`
}

// ActionID formats the identifier assigned at enqueue time.
func ActionID(createdAtMillis, seq int64) string {
	return fmt.Sprintf("action_%d_%d", createdAtMillis, seq)
}

// SyncResult summarises one Synchronizer pass.
type SyncResult struct {
	SuccessCount  int `json:"successCount"`
	ConflictCount int `json:"conflictCount"`
	ErrorCount    int `json:"errorCount"`
}

// OfflineStatus is derived on demand and never stored.
type OfflineStatus struct {
	IsOnline           bool  `json:"isOnline"`
	PendingActionCount int   `json:"pendingActionCount"`
	ConflictCount      int   `json:"conflictCount"`
	LastSyncMillis     int64 `json:"lastSyncMillis"`
}
