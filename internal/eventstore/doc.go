// Package eventstore implements Pulse's append-only event store and the
// cursor-based delivery protocol over Pebble.
//
// # Keyspace
//
// Keys are lexicographically ordered for efficient range scans:
//   - ev/e/{event_id}/{timestamp}           (event records, JSON)
//   - ev/x/{0|1}/{timestamp}/{event_id}     (delivery-status index)
//
// The index partition 0 holds undelivered events, partition 1 delivered
// ones; within a partition entries sort by timestamp. Timestamps are
// fixed-width RFC3339 UTC with a nanosecond fraction so lexicographic
// order equals chronological order.
//
// # Protocol
//
//	s := eventstore.Open(db)
//	_ = s.Create(ctx, ev)                       // record + undelivered index, one batch
//	ev, _ := s.Get(id, ts)                      // point lookup; nil means not found
//	evs, next, _ := s.ListUndelivered(50, cur)  // oldest-first page + continuation cursor
//	ev, _ = s.MarkDelivered(ctx, id, ts, 30*24*time.Hour) // idempotent
//
// MarkDelivered moves the index entry from partition 0 to 1 and stamps a
// TTL; SweepExpired later removes delivered records whose TTL elapsed.
package eventstore
