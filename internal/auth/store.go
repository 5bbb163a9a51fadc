package auth

import (
	"encoding/json"
	"errors"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/pulse/internal/storage/pebble"
)

var (
	// ErrInvalidKey means no stored key matches the presented secret.
	ErrInvalidKey = errors.New("invalid API key")
	// ErrKeyRevoked means the matching key was revoked.
	ErrKeyRevoked = errors.New("API key has been revoked")
	// ErrKeyInactive means the matching key is inactive.
	ErrKeyInactive = errors.New("API key is inactive")
)

var keyPrefix = []byte("ak/k/")

func keyRecordKey(keyID string) []byte {
	k := make([]byte, 0, len(keyPrefix)+len(keyID))
	k = append(k, keyPrefix...)
	k = append(k, keyID...)
	return k
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// Store persists API key records in Pebble.
type Store struct {
	db *pebblestore.DB
}

// OpenStore returns a Store over the given database.
func OpenStore(db *pebblestore.DB) *Store {
	return &Store{db: db}
}

// Put writes a key record.
func (s *Store) Put(k *Key) error {
	b, err := json.Marshal(k)
	if err != nil {
		return err
	}
	return s.db.Set(keyRecordKey(k.KeyID), b)
}

// GetByID loads a key record; a missing key returns (nil, nil).
func (s *Store) GetByID(keyID string) (*Key, error) {
	val, err := s.db.Get(keyRecordKey(keyID))
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var k Key
	if err := json.Unmarshal(val, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// List returns all key records.
func (s *Store) List() ([]Key, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: prefixUpperBound(keyPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var keys []Key
	for ok := iter.First(); ok; ok = iter.Next() {
		var k Key
		if err := json.Unmarshal(iter.Value(), &k); err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Authenticate resolves a bearer secret to its key record.
//
// Every stored key is checked against the secret. Revoked and inactive
// keys are recognized but rejected with a distinct error so the caller
// can surface 403 rather than 401.
func (s *Store) Authenticate(secret string) (*Key, error) {
	keys, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := range keys {
		k := &keys[i]
		if !VerifySecret(secret, k.KeyHash) {
			continue
		}
		switch k.Status {
		case StatusRevoked:
			return nil, ErrKeyRevoked
		case StatusInactive:
			return nil, ErrKeyInactive
		}
		return k, nil
	}
	return nil, ErrInvalidKey
}
