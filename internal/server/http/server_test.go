package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rzbill/pulse/internal/auth"
	cfgpkg "github.com/rzbill/pulse/internal/config"
	"github.com/rzbill/pulse/internal/runtime"
	pebblestore "github.com/rzbill/pulse/internal/storage/pebble"
)

type fixture struct {
	ts     *httptest.Server
	rt     *runtime.Runtime
	secret string
}

func newFixture(t *testing.T, mutate func(*auth.Key)) *fixture {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeAlways,
		Config:  cfgpkg.Default(),
	})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })

	secret, err := auth.GenerateSecret()
	if err != nil {
		t.Fatalf("secret: %v", err)
	}
	hash, err := auth.HashSecret(secret)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	key := &auth.Key{
		KeyID:     "test-key",
		KeyHash:   hash,
		Status:    auth.StatusActive,
		RateLimit: 100,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if mutate != nil {
		mutate(key)
	}
	if err := rt.OpenKeyStore().Put(key); err != nil {
		t.Fatalf("put key: %v", err)
	}

	srv := New(rt, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{ts: ts, rt: rt, secret: secret}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, f.ts.URL+path, rd)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.secret)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, b
}

func decode(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode %q: %v", b, err)
	}
	return m
}

func TestStatusNeedsNoAuth(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := http.Get(f.ts.URL + "/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}

func TestAuthRejections(t *testing.T) {
	f := newFixture(t, nil)

	// no header at all
	resp, err := http.Post(f.ts.URL+"/events", "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing header: got %d", resp.StatusCode)
	}

	// wrong secret
	req, _ := http.NewRequest(http.MethodPost, f.ts.URL+"/events", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad secret: got %d", resp.StatusCode)
	}
}

func TestRevokedKeyForbidden(t *testing.T) {
	f := newFixture(t, func(k *auth.Key) { k.Status = auth.StatusRevoked })
	resp, body := f.do(t, http.MethodPost, "/events",
		`{"event_type":"user.signup","payload":{"a":1}}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("revoked: got %d (%s)", resp.StatusCode, body)
	}
	m := decode(t, body)
	if m["error_code"] != "FORBIDDEN" {
		t.Fatalf("error_code: %v", m["error_code"])
	}
}

func TestIngestAndDuplicate(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodPost, "/events",
		`{"event_type":"user.signup","payload":{"user_id":"123","plan":"pro"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first post: %d (%s)", resp.StatusCode, body)
	}
	first := decode(t, body)
	if first["status"] != "accepted" || first["event_id"] == "" {
		t.Fatalf("unexpected body: %v", first)
	}

	// identical content with reordered keys
	resp, body = f.do(t, http.MethodPost, "/events",
		`{"event_type":"user.signup","payload":{"plan":"pro","user_id":"123"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dup post: %d (%s)", resp.StatusCode, body)
	}
	second := decode(t, body)
	if second["event_id"] != first["event_id"] {
		t.Fatalf("duplicate should cite original id: %v vs %v", second["event_id"], first["event_id"])
	}

	// only one record should be in the inbox
	resp, body = f.do(t, http.MethodGet, "/events/inbox", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("inbox: %d", resp.StatusCode)
	}
	inbox := decode(t, body)
	if n := len(inbox["events"].([]any)); n != 1 {
		t.Fatalf("inbox should hold one event, got %d", n)
	}
}

func TestIngestValidationError(t *testing.T) {
	f := newFixture(t, nil)
	resp, body := f.do(t, http.MethodPost, "/events",
		`{"event_type":"","payload":{"a":1}}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400, got %d (%s)", resp.StatusCode, body)
	}
	m := decode(t, body)
	if m["error_code"] != "VALIDATION_ERROR" {
		t.Fatalf("error_code: %v", m["error_code"])
	}
}

func TestIngestDisallowedEventType(t *testing.T) {
	f := newFixture(t, func(k *auth.Key) { k.AllowedEventTypes = []string{"billing.charge"} })
	resp, body := f.do(t, http.MethodPost, "/events",
		`{"event_type":"user.signup","payload":{"a":1}}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("want 403, got %d (%s)", resp.StatusCode, body)
	}
}

func TestRateLimitThirdRequest(t *testing.T) {
	f := newFixture(t, func(k *auth.Key) { k.RateLimit = 2 })

	for i := 0; i < 2; i++ {
		resp, body := f.do(t, http.MethodPost, "/events",
			fmt.Sprintf(`{"event_type":"t","payload":{"n":%d}}`, i))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: %d (%s)", i, resp.StatusCode, body)
		}
	}
	resp, body := f.do(t, http.MethodPost, "/events",
		`{"event_type":"t","payload":{"n":3}}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("third request: %d (%s)", resp.StatusCode, body)
	}
	retry, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || retry < 1 || retry > 60 {
		t.Fatalf("Retry-After out of range: %q", resp.Header.Get("Retry-After"))
	}
	m := decode(t, body)
	if m["error_code"] != "RATE_LIMIT_EXCEEDED" {
		t.Fatalf("error_code: %v", m["error_code"])
	}
}

func TestInboxLimitValidation(t *testing.T) {
	f := newFixture(t, nil)
	for _, q := range []string{"limit=0", "limit=1000", "limit=abc"} {
		resp, body := f.do(t, http.MethodGet, "/events/inbox?"+q, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: want 400, got %d (%s)", q, resp.StatusCode, body)
		}
	}
}

func TestInboxInvalidCursorStillOK(t *testing.T) {
	f := newFixture(t, nil)
	resp, body := f.do(t, http.MethodGet, "/events/inbox?cursor=not-json", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d (%s)", resp.StatusCode, body)
	}
	m := decode(t, body)
	if _, ok := m["pagination"].(map[string]any); !ok {
		t.Fatalf("pagination block missing: %v", m)
	}
}

func TestGetAndAcknowledge(t *testing.T) {
	f := newFixture(t, nil)
	_, body := f.do(t, http.MethodPost, "/events",
		`{"event_type":"user.signup","payload":{"user_id":"9"}}`)
	posted := decode(t, body)
	id := posted["event_id"].(string)
	ts := posted["timestamp"].(string)

	resp, body := f.do(t, http.MethodGet, "/events/"+id+"?timestamp="+ts, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: %d (%s)", resp.StatusCode, body)
	}

	// timestamp is required
	resp, _ = f.do(t, http.MethodGet, "/events/"+id, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing timestamp: %d", resp.StatusCode)
	}

	resp, _ = f.do(t, http.MethodDelete, "/events/"+id+"?timestamp="+ts, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("ack: %d", resp.StatusCode)
	}
	// acknowledgment is idempotent
	resp, _ = f.do(t, http.MethodDelete, "/events/"+id+"?timestamp="+ts, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("repeat ack: %d", resp.StatusCode)
	}

	resp, _ = f.do(t, http.MethodDelete, "/events/absent?timestamp="+ts, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("absent ack: %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodGet, "/events/absent?timestamp="+ts, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("absent get: %d", resp.StatusCode)
	}
}
