package eventsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	cfgpkg "github.com/rzbill/pulse/internal/config"
	"github.com/rzbill/pulse/internal/dedup"
	"github.com/rzbill/pulse/internal/eventstore"
	logpkg "github.com/rzbill/pulse/pkg/log"
)

// Service sequences validation, deduplication, persistence, and
// acknowledgment. One instance is constructed at startup and shared by
// all request handlers.
type Service struct {
	store  *eventstore.Store
	cache  *dedup.Cache
	cfg    cfgpkg.Config
	logger logpkg.Logger

	// now and newID are injectable for tests.
	now   func() time.Time
	newID func() string
}

// New constructs the orchestrator.
func New(store *eventstore.Store, cache *dedup.Cache, cfg cfgpkg.Config, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	return &Service{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		logger: logger.With(logpkg.Component("events")),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// validate applies the request-shape rules for ingestion.
func (s *Service) validate(req *IngestRequest) error {
	if req.EventType == "" {
		return &ValidationError{Field: "event_type", Reason: "must not be empty"}
	}
	if len(req.EventType) > s.cfg.MaxEventTypeLength {
		return &ValidationError{Field: "event_type", Reason: "exceeds maximum length"}
	}
	if len(req.Payload) == 0 {
		return &ValidationError{Field: "payload", Reason: "is required"}
	}
	if len(req.Payload) > s.cfg.MaxPayloadBytes {
		return &ValidationError{Field: "payload", Reason: "exceeds maximum size"}
	}
	var payloadObj map[string]json.RawMessage
	if err := json.Unmarshal(req.Payload, &payloadObj); err != nil {
		return &ValidationError{Field: "payload", Reason: "must be a JSON object"}
	}
	if len(req.Metadata) > 0 {
		var metaObj map[string]json.RawMessage
		if err := json.Unmarshal(req.Metadata, &metaObj); err != nil {
			return &ValidationError{Field: "metadata", Reason: "must be a JSON object"}
		}
	}
	return nil
}

// Ingest accepts a new event. The event ID and timestamp are generated
// before the dedup check so a duplicate response still carries a
// timestamp; on a dedup hit the store write is skipped entirely and the
// original event ID is returned.
func (s *Service) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	eventID := s.newID()
	timestamp := eventstore.FormatTimestamp(s.now())

	if existingID, dup := s.cache.CheckAndAdd(req.EventType, req.Payload, eventID); dup {
		s.logger.Info("duplicate event suppressed",
			logpkg.Str("event_type", req.EventType),
			logpkg.Str("original_event_id", existingID))
		return &IngestResult{
			EventID:   existingID,
			Timestamp: timestamp,
			Duplicate: true,
			Message:   "Event successfully ingested (duplicate detected)",
		}, nil
	}

	ev := &eventstore.Event{
		EventID:   eventID,
		Timestamp: timestamp,
		EventType: req.EventType,
		Payload:   req.Payload,
		Source:    req.Source,
		Metadata:  req.Metadata,
		Delivered: false,
		CreatedAt: timestamp,
		UpdatedAt: timestamp,
	}
	if err := s.store.Create(ctx, ev); err != nil {
		return nil, err
	}

	s.logger.Debug("event ingested",
		logpkg.Str("event_id", eventID),
		logpkg.Str("event_type", req.EventType))
	return &IngestResult{
		EventID:   eventID,
		Timestamp: timestamp,
		Message:   "Event successfully ingested",
	}, nil
}

// Get fetches a single event; (nil, nil) when absent.
func (s *Service) Get(eventID, timestamp string) (*eventstore.Event, error) {
	return s.store.Get(eventID, timestamp)
}

// ListInbox returns one page of undelivered events. The limit is clamped
// to [1, MaxInboxLimit] and a cursor that fails to decode is treated as
// no cursor at all.
func (s *Service) ListInbox(limit int, cursor string) (*InboxPage, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultInboxLimit
	}
	if limit > s.cfg.MaxInboxLimit {
		limit = s.cfg.MaxInboxLimit
	}

	cur := eventstore.DecodeCursor(cursor)
	events, next, err := s.store.ListUndelivered(limit, cur)
	if err != nil {
		return nil, err
	}

	page := &InboxPage{
		Events:           events,
		HasMore:          next != nil,
		TotalUndelivered: len(events),
	}
	if next != nil {
		page.NextCursor = next.Encode()
		// More pages exist, so report at least one full page beyond.
		page.TotalUndelivered = limit + 1
	}
	return page, nil
}

// Acknowledge marks an event delivered. The bool result is false when
// the event does not exist; repeating an acknowledgment succeeds.
func (s *Service) Acknowledge(ctx context.Context, eventID, timestamp string) (bool, error) {
	ev, err := s.store.MarkDelivered(ctx, eventID, timestamp, s.cfg.EventTTL())
	if err != nil {
		return false, err
	}
	if ev == nil {
		return false, nil
	}
	s.logger.Debug("event acknowledged", logpkg.Str("event_id", eventID))
	return true, nil
}
