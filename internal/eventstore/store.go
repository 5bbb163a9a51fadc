package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/pulse/internal/storage/pebble"
)

// ErrNotFound is returned by operations that require an existing event.
var ErrNotFound = errors.New("event not found")

// Store provides the create/list/acknowledge lifecycle over Pebble.
type Store struct {
	db *pebblestore.DB

	// mu serializes mutations so the record and its index entry always
	// move together.
	mu sync.Mutex

	// now is the clock; overridable in tests.
	now func() time.Time
}

// Open returns a Store over the given database.
func Open(db *pebblestore.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Create persists a new event record and its undelivered index entry as
// a single atomic batch.
func (s *Store) Create(ctx context.Context, ev *Event) error {
	val, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(KeyRecord(ev.EventID, ev.Timestamp), val, nil); err != nil {
		return err
	}
	if err := b.Set(KeyIndex(ev.Delivered, ev.Timestamp, ev.EventID), nil, nil); err != nil {
		return err
	}
	return s.db.CommitBatch(ctx, b)
}

// Get performs a point lookup. Absence is not an error: a missing event
// returns (nil, nil).
func (s *Store) Get(eventID, timestamp string) (*Event, error) {
	val, err := s.db.Get(KeyRecord(eventID, timestamp))
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var ev Event
	if err := json.Unmarshal(val, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListUndelivered returns up to limit undelivered events ordered by
// timestamp ascending, starting after the cursor position. When more
// results remain it returns a continuation cursor, otherwise nil.
func (s *Store) ListUndelivered(limit int, cur *Cursor) ([]Event, *Cursor, error) {
	if limit <= 0 {
		return nil, nil, errors.New("eventstore: limit must be positive")
	}

	prefix := KeyIndexPrefix(false)
	lower := prefix
	if cur != nil {
		// Exclusive resume: the smallest key strictly after the cursor
		// position.
		lower = append(KeyIndex(false, cur.Timestamp, cur.EventID), 0x00)
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, nil, err
	}
	defer iter.Close()

	events := make([]Event, 0, limit)
	var next *Cursor
	for ok := iter.First(); ok; ok = iter.Next() {
		ts, id, okKey := parseIndexKey(iter.Key())
		if !okKey {
			continue
		}
		if len(events) == limit {
			// One entry beyond the page exists, so the page is not the
			// last one.
			last := events[limit-1]
			next = &Cursor{EventID: last.EventID, Timestamp: last.Timestamp}
			break
		}
		ev, err := s.Get(id, ts)
		if err != nil {
			return nil, nil, err
		}
		if ev == nil {
			continue
		}
		events = append(events, *ev)
	}
	return events, next, nil
}

// MarkDelivered transitions an event to delivered, refreshes updated_at,
// and stamps the retention TTL. It is idempotent: acknowledging an
// already-delivered event returns the record unchanged. A missing event
// returns (nil, nil).
func (s *Store) MarkDelivered(ctx context.Context, eventID, timestamp string, retention time.Duration) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.Get(eventID, timestamp)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, nil
	}
	if ev.Delivered {
		return ev, nil
	}

	now := s.now()
	ev.Delivered = true
	ev.UpdatedAt = FormatTimestamp(now)
	ev.TTL = now.Add(retention).Unix()

	val, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(KeyRecord(ev.EventID, ev.Timestamp), val, nil); err != nil {
		return nil, err
	}
	if err := b.Delete(KeyIndex(false, ev.Timestamp, ev.EventID), nil); err != nil {
		return nil, err
	}
	if err := b.Set(KeyIndex(true, ev.Timestamp, ev.EventID), nil, nil); err != nil {
		return nil, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	return ev, nil
}
