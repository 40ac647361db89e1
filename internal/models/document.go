package models

import "time"

// Document is a denormalized match or ball as held by the document store.
type Document map[string]any

func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge overwrites top-level fields of d with those of partial, in place.
func (d Document) Merge(partial Document) {
	for k, v := range partial {
		d[k] = v
	}
}

// MatchEvent types published for in-game notifications.
const (
	EventBallAdded    = "ball_added"
	EventMatchUpdated = "match_updated"
	EventMatchCreated = "match_created"
)

// MatchEvent is the broker message emitted after a remote mutation succeeds.
type MatchEvent struct {
	EventID   string    `json:"event_id"`
	MatchID   string    `json:"match_id"`
	Type      string    `json:"type"`
	Data      Document  `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}
