package models

// Resolution tags a ConflictRecord. Only ManualRequired is ever set automatically.
type Resolution string

const (
	ResolutionManualRequired Resolution = "ManualRequired"
	ResolutionKeepLocal      Resolution = "KeepLocal"
	ResolutionKeepServer     Resolution = "KeepServer"
	ResolutionDiscard        Resolution = "Discard"
)

func (r Resolution) Valid() bool {
	switch r {
	case ResolutionManualRequired, ResolutionKeepLocal, ResolutionKeepServer, ResolutionDiscard:
		return true
	}
	return false
}

// ConflictRecord holds actions the remote rejected as conflicting.
type ConflictRecord struct {
	TargetMatchID    string          `json:"targetMatchId"`
	Actions          []PendingAction `json:"actions"`
	ServerActions    []PendingAction `json:"serverActions"` // never populated
	Resolution       Resolution      `json:"resolution"`
	ResolvedAtMillis *int64          `json:"resolvedAtMillis,omitempty"`
	RecordedAtMillis int64           `json:"recordedAtMillis"`
	Reason           string          `json:"reason,omitempty"`
}

// References reports whether the record carries the given action.
func (c ConflictRecord) References(actionID string) bool {
	for _, a := range c.Actions {
		if a.ID == actionID {
			return true
		}
	}
	return false
}
