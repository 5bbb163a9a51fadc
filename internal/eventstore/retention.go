package eventstore

import (
	"context"
	"time"

	"github.com/cockroachdb/pebble"
)

// SweepExpired removes delivered events whose TTL elapsed before now.
// Deletes are committed in batches of up to batchLimit records so a large
// backlog cannot hold one giant batch open. Returns the number of events
// removed.
func (s *Store) SweepExpired(ctx context.Context, now time.Time, batchLimit int) (int, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}
	cutoff := now.Unix()

	prefix := KeyIndexPrefix(true)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	deleted := 0
	for ok := iter.First(); ok; {
		s.mu.Lock()
		b := s.db.NewBatch()
		n := 0
		for ok && n < batchLimit {
			ts, id, okKey := parseIndexKey(iter.Key())
			if okKey {
				ev, err := s.Get(id, ts)
				if err != nil {
					b.Close()
					s.mu.Unlock()
					return deleted, err
				}
				if ev != nil && ev.TTL > 0 && ev.TTL <= cutoff {
					if err := b.Delete(KeyRecord(id, ts), nil); err != nil {
						b.Close()
						s.mu.Unlock()
						return deleted, err
					}
					if err := b.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
						b.Close()
						s.mu.Unlock()
						return deleted, err
					}
					deleted++
					n++
				}
			}
			ok = iter.Next()
		}
		if n > 0 {
			if err := s.db.CommitBatch(ctx, b); err != nil {
				b.Close()
				s.mu.Unlock()
				return deleted, err
			}
		}
		b.Close()
		s.mu.Unlock()
	}
	return deleted, nil
}
