package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rzbill/pulse/internal/auth"
	"github.com/rzbill/pulse/internal/eventstore"
	"github.com/rzbill/pulse/internal/ratelimit"
	eventsvc "github.com/rzbill/pulse/internal/services/events"
	logpkg "github.com/rzbill/pulse/pkg/log"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "storage unavailable", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticate resolves the bearer credential. A nil return means the
// response has already been written.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) *auth.Key {
	header := r.Header.Get("Authorization")
	secret, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || secret == "" {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing or malformed Authorization header", nil)
		return nil
	}
	key, err := s.keys.Authenticate(secret)
	switch {
	case err == nil:
		s.touchKey(key)
		return key
	case errors.Is(err, auth.ErrKeyRevoked), errors.Is(err, auth.ErrKeyInactive):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error(), nil)
	case errors.Is(err, auth.ErrInvalidKey):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid API key", nil)
	default:
		s.logger.Error("authenticate failed", logpkg.Err(err))
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "credential store unavailable", nil)
	}
	return nil
}

// touchKey records last use, best effort.
func (s *Server) touchKey(key *auth.Key) {
	key.LastUsedAt = time.Now().UTC().Format(time.RFC3339)
	if err := s.keys.Put(key); err != nil {
		s.logger.Warn("update last_used_at failed",
			logpkg.Str("key_id", key.KeyID), logpkg.Err(err))
	}
}

// checkRateLimit admits one request for the key, writing a 429 with
// Retry-After when the quota is spent.
func (s *Server) checkRateLimit(w http.ResponseWriter, key *auth.Key) bool {
	limit := key.RateLimit
	if limit <= 0 {
		limit = s.rt.Config().DefaultRateLimitPerMinute
	}
	if err := s.limiter.Check(key.KeyID, limit); err != nil {
		var rlErr *ratelimit.Error
		if errors.As(err, &rlErr) {
			w.Header().Set("Retry-After", strconv.Itoa(rlErr.RetryAfter))
			writeError(w, http.StatusTooManyRequests, codeRateLimit, err.Error(),
				map[string]int{"retry_after": rlErr.RetryAfter})
			return false
		}
		writeError(w, http.StatusInternalServerError, codeInternalError, "rate limit check failed", nil)
		return false
	}
	return true
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	key := s.authenticate(w, r)
	if key == nil {
		return
	}
	if !s.checkRateLimit(w, key) {
		return
	}

	var req eventsvc.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "request body must be JSON", nil)
		return
	}
	if !key.AllowsEventType(req.EventType) {
		writeError(w, http.StatusForbidden, codeForbidden,
			"API key is not allowed to publish this event type",
			map[string]string{"event_type": req.EventType})
		return
	}

	res, err := s.events.Ingest(r.Context(), &req)
	if err != nil {
		var vErr *eventsvc.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, codeValidation, vErr.Error(),
				map[string]string{"field": vErr.Field})
			return
		}
		s.logger.Error("ingest failed", logpkg.Err(err))
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "event could not be persisted", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "accepted",
		"event_id":  res.EventID,
		"timestamp": res.Timestamp,
		"message":   res.Message,
	})
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	key := s.authenticate(w, r)
	if key == nil {
		return
	}
	if !s.checkRateLimit(w, key) {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > s.rt.Config().MaxInboxLimit {
			writeError(w, http.StatusBadRequest, codeValidation,
				"limit must be an integer between 1 and "+strconv.Itoa(s.rt.Config().MaxInboxLimit), nil)
			return
		}
		limit = n
	}

	page, err := s.events.ListInbox(limit, r.URL.Query().Get("cursor"))
	if err != nil {
		s.logger.Error("inbox scan failed", logpkg.Err(err))
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "inbox unavailable", nil)
		return
	}
	events := page.Events
	if events == nil {
		events = []eventstore.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"pagination": map[string]any{
			"next_cursor":       page.NextCursor,
			"has_more":          page.HasMore,
			"total_undelivered": page.TotalUndelivered,
		},
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := s.authenticate(w, r)
	if key == nil {
		return
	}

	eventID := r.PathValue("event_id")
	timestamp := r.URL.Query().Get("timestamp")
	if timestamp == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "timestamp query parameter is required", nil)
		return
	}
	ev, err := s.events.Get(eventID, timestamp)
	if err != nil {
		s.logger.Error("event lookup failed", logpkg.Err(err))
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "event store unavailable", nil)
		return
	}
	if ev == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "event not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	key := s.authenticate(w, r)
	if key == nil {
		return
	}

	eventID := r.PathValue("event_id")
	timestamp := r.URL.Query().Get("timestamp")
	if timestamp == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "timestamp query parameter is required", nil)
		return
	}
	ok, err := s.events.Acknowledge(r.Context(), eventID, timestamp)
	if err != nil {
		s.logger.Error("acknowledge failed", logpkg.Err(err))
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "event store unavailable", nil)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "event not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
