package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

type entry struct {
	eventID string
	expiry  time.Time
}

// Cache tracks event fingerprints within a time window to detect
// duplicate submissions. Expired entries are cleaned up lazily on each
// check; there is no background task.
type Cache struct {
	window time.Duration

	mu    sync.Mutex
	cache map[string]entry

	// now is the clock; overridable in tests.
	now func() time.Time
}

// New returns a Cache with the given deduplication window.
func New(window time.Duration) *Cache {
	return &Cache{
		window: window,
		cache:  make(map[string]entry),
		now:    time.Now,
	}
}

// Fingerprint computes the content fingerprint for an event.
//
// The payload is decoded and re-encoded through Go maps so that object
// keys are sorted recursively; two payloads differing only in key order
// produce the same fingerprint.
func Fingerprint(eventType string, payload []byte) (string, error) {
	var decoded interface{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return "", err
		}
	}
	canonical, err := json.Marshal(map[string]interface{}{
		"event_type": eventType,
		"payload":    decoded,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// CheckAndAdd checks whether semantically identical content was submitted
// within the trailing window. On a hit it returns the original event ID
// and true; on a miss it records candidateID under the fingerprint and
// returns ("", false).
//
// A payload that is not valid JSON is never deduplicated.
func (c *Cache) CheckAndAdd(eventType string, payload []byte, candidateID string) (string, bool) {
	fingerprint, err := Fingerprint(eventType, payload)
	if err != nil {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.cleanupExpired(now)

	if e, ok := c.cache[fingerprint]; ok {
		return e.eventID, true
	}

	c.cache[fingerprint] = entry{eventID: candidateID, expiry: now.Add(c.window)}
	return "", false
}

// cleanupExpired removes entries whose expiry has passed. Caller holds mu.
func (c *Cache) cleanupExpired(now time.Time) {
	for k, e := range c.cache {
		if e.expiry.Before(now) {
			delete(c.cache, k)
		}
	}
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Clear removes all cached entries. Intended for tests and admin resets.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]entry)
}
