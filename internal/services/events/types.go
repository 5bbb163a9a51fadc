package eventsvc

import (
	"encoding/json"
	"fmt"

	"github.com/rzbill/pulse/internal/eventstore"
)

// IngestRequest carries the client-supplied fields of a new event.
type IngestRequest struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Source    string          `json:"source,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// IngestResult reports the outcome of an ingest call. Duplicate is true
// when the content matched a prior submission inside the dedup window;
// EventID then cites the original event.
type IngestResult struct {
	EventID   string
	Timestamp string
	Duplicate bool
	Message   string
}

// InboxPage is one page of undelivered events plus pagination metadata.
type InboxPage struct {
	Events     []eventstore.Event
	NextCursor string
	HasMore    bool
	// TotalUndelivered is a best-effort signal: the page size when this
	// is the last page, otherwise limit+1 as a lower bound. It is not an
	// exact count.
	TotalUndelivered int
}

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
