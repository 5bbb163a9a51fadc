package auth

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// Key statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusRevoked  = "revoked"
)

// Key is a stored API key record. The plaintext secret is never stored;
// only its bcrypt hash is.
type Key struct {
	KeyID             string   `json:"key_id"`
	KeyHash           string   `json:"key_hash"`
	Status            string   `json:"status"`
	RateLimit         int      `json:"rate_limit"`
	AllowedEventTypes []string `json:"allowed_event_types,omitempty"`
	CreatedAt         string   `json:"created_at"`
	LastUsedAt        string   `json:"last_used_at,omitempty"`
	Description       string   `json:"description,omitempty"`
}

// AllowsEventType reports whether the key may ingest the given event
// type. An empty allow-list permits all types.
func (k *Key) AllowsEventType(eventType string) bool {
	if len(k.AllowedEventTypes) == 0 {
		return true
	}
	for _, t := range k.AllowedEventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// GenerateSecret returns a new random URL-safe secret (64 characters).
func GenerateSecret() (string, error) {
	var raw [48]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashSecret produces an irreversible bcrypt hash of the secret.
func HashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// VerifySecret reports whether secret matches the stored hash.
func VerifySecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
