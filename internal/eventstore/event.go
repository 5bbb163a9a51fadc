package eventstore

import (
	"encoding/json"
	"time"
)

// timestampLayout is RFC3339 UTC with a zero-padded nanosecond fraction.
// The fixed width keeps lexicographic ordering of encoded timestamps
// identical to chronological ordering, which the index keys rely on.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTimestamp renders t in the store's canonical timestamp encoding.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Event is a single ingested event record.
//
// (EventID, Timestamp) form the composite identity. Delivered transitions
// false to true exactly once; TTL is set only at that transition.
type Event struct {
	EventID   string          `json:"event_id"`
	Timestamp string          `json:"timestamp"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Source    string          `json:"source,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Delivered bool            `json:"delivered"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
	// TTL is the absolute expiry instant (unix seconds); zero until the
	// event is acknowledged.
	TTL int64 `json:"ttl,omitempty"`
}
