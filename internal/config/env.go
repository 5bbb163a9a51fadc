package config

import (
	"os"
	"strconv"
)

// FromEnv overlays PULSE_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	overlayInt("PULSE_DEDUP_WINDOW_SECONDS", &cfg.DedupWindowSeconds)
	overlayInt("PULSE_DEFAULT_RATE_LIMIT_PER_MINUTE", &cfg.DefaultRateLimitPerMinute)
	overlayInt("PULSE_MAX_PAYLOAD_BYTES", &cfg.MaxPayloadBytes)
	overlayInt("PULSE_MAX_EVENT_TYPE_LENGTH", &cfg.MaxEventTypeLength)
	overlayInt("PULSE_DEFAULT_INBOX_LIMIT", &cfg.DefaultInboxLimit)
	overlayInt("PULSE_MAX_INBOX_LIMIT", &cfg.MaxInboxLimit)
	overlayInt("PULSE_EVENT_TTL_DAYS", &cfg.EventTTLDays)
	overlayInt("PULSE_RETENTION_SWEEP_SECONDS", &cfg.RetentionSweepSeconds)
}

func overlayInt(env string, dst *int) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
