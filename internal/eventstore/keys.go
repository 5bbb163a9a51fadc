package eventstore

import "bytes"

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - ev/e/{event_id}/{timestamp}
// - ev/x/{0|1}/{timestamp}/{event_id}

var (
	sep          = byte('/')
	recordPrefix = []byte("ev/e/")
	indexPrefix  = []byte("ev/x/")
)

func deliveredByte(delivered bool) byte {
	if delivered {
		return '1'
	}
	return '0'
}

// KeyRecord builds the primary record key for an event.
func KeyRecord(eventID, timestamp string) []byte {
	k := make([]byte, 0, len(recordPrefix)+len(eventID)+len(timestamp)+1)
	k = append(k, recordPrefix...)
	k = append(k, eventID...)
	k = append(k, sep)
	k = append(k, timestamp...)
	return k
}

// KeyIndex builds the delivery-status index key for an event.
func KeyIndex(delivered bool, timestamp, eventID string) []byte {
	k := make([]byte, 0, len(indexPrefix)+len(timestamp)+len(eventID)+3)
	k = append(k, indexPrefix...)
	k = append(k, deliveredByte(delivered))
	k = append(k, sep)
	k = append(k, timestamp...)
	k = append(k, sep)
	k = append(k, eventID...)
	return k
}

// KeyIndexPrefix returns the range prefix covering one delivery-status
// partition of the index.
func KeyIndexPrefix(delivered bool) []byte {
	k := make([]byte, 0, len(indexPrefix)+2)
	k = append(k, indexPrefix...)
	k = append(k, deliveredByte(delivered))
	k = append(k, sep)
	return k
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix, for use as an iterator upper bound.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil // prefix is all 0xff; no upper bound
}

// parseIndexKey extracts (timestamp, eventID) from an index key. The
// second return is false when the key does not match the expected shape.
func parseIndexKey(key []byte) (string, string, bool) {
	prefixLen := len(indexPrefix) + 2 // status byte + separator
	if len(key) <= prefixLen {
		return "", "", false
	}
	rest := key[prefixLen:]
	i := bytes.LastIndexByte(rest, sep)
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return string(rest[:i]), string(rest[i+1:]), true
}
