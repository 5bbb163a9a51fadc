package config

import (
	"encoding/json"
	"os"
	"time"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// DedupWindowSeconds is the trailing window during which identical
	// event content is treated as a duplicate submission.
	DedupWindowSeconds int `json:"dedupWindowSeconds"`
	// DefaultRateLimitPerMinute applies to keys created without an
	// explicit limit.
	DefaultRateLimitPerMinute int `json:"defaultRateLimitPerMinute"`
	// MaxPayloadBytes caps the serialized event payload size.
	MaxPayloadBytes int `json:"maxPayloadBytes"`
	// MaxEventTypeLength caps the event_type field length.
	MaxEventTypeLength int `json:"maxEventTypeLength"`
	// DefaultInboxLimit is the page size when the caller omits limit.
	DefaultInboxLimit int `json:"defaultInboxLimit"`
	// MaxInboxLimit is the largest accepted page size.
	MaxInboxLimit int `json:"maxInboxLimit"`
	// EventTTLDays is the retention period applied once an event is
	// acknowledged as delivered.
	EventTTLDays int `json:"eventTtlDays"`
	// RetentionSweepSeconds is the interval between sweeps that remove
	// delivered events whose TTL elapsed. 0 disables the sweeper.
	RetentionSweepSeconds int `json:"retentionSweepSeconds"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DedupWindowSeconds:        300,
		DefaultRateLimitPerMinute: 100,
		MaxPayloadBytes:           256 << 10,
		MaxEventTypeLength:        255,
		DefaultInboxLimit:         50,
		MaxInboxLimit:             200,
		EventTTLDays:              30,
		RetentionSweepSeconds:     300,
	}
}

// DedupWindow returns the deduplication window as a duration.
func (c Config) DedupWindow() time.Duration {
	return time.Duration(c.DedupWindowSeconds) * time.Second
}

// EventTTL returns the post-delivery retention period as a duration.
func (c Config) EventTTL() time.Duration {
	return time.Duration(c.EventTTLDays) * 24 * time.Hour
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
