package eventstore

import (
	"encoding/base64"
	"encoding/json"
)

// Cursor round-trips the position of the last item of a page. Callers
// must treat the encoded form as opaque.
type Cursor struct {
	EventID   string `json:"event_id"`
	Timestamp string `json:"timestamp"`
	Delivered bool   `json:"delivered"`
}

// Encode serializes the cursor into an opaque token.
func (c *Cursor) Encode() string {
	if c == nil {
		return ""
	}
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses an opaque token produced by Encode. Any malformed
// input yields nil, which callers treat as "start from the beginning";
// a corrupt cursor must never fail a request.
func DecodeCursor(s string) *Cursor {
	if s == "" {
		return nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil
	}
	if c.EventID == "" || c.Timestamp == "" {
		return nil
	}
	return &c
}
