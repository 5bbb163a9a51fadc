package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestLimiter() (*Limiter, *time.Time) {
	l := New()
	now := time.Date(2025, 11, 11, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestExactlyLimitAllowed(t *testing.T) {
	l, _ := newTestLimiter()
	const limit = 5
	for i := 0; i < limit; i++ {
		if err := l.Check("key-a", limit); err != nil {
			t.Fatalf("call %d should pass: %v", i+1, err)
		}
	}
	err := l.Check("key-a", limit)
	if err == nil {
		t.Fatalf("call %d should be rejected", limit+1)
	}
	var rlErr *Error
	if !errors.As(err, &rlErr) {
		t.Fatalf("unexpected error type: %v", err)
	}
	if rlErr.RetryAfter < 1 || rlErr.RetryAfter > 60 {
		t.Fatalf("retry_after out of range: %d", rlErr.RetryAfter)
	}
}

func TestWindowReset(t *testing.T) {
	l, now := newTestLimiter()
	if err := l.Check("k", 1); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := l.Check("k", 1); err == nil {
		t.Fatalf("second within window should fail")
	}
	*now = now.Add(61 * time.Second)
	if err := l.Check("k", 1); err != nil {
		t.Fatalf("after window elapsed: %v", err)
	}
}

func TestRetryAfterShrinks(t *testing.T) {
	l, now := newTestLimiter()
	_ = l.Check("k", 1)
	*now = now.Add(50 * time.Second)
	err := l.Check("k", 1)
	var rlErr *Error
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if rlErr.RetryAfter != 10 {
		t.Fatalf("want retry_after 10, got %d", rlErr.RetryAfter)
	}
}

func TestRetryAfterFloorsAtOne(t *testing.T) {
	l, now := newTestLimiter()
	_ = l.Check("k", 1)
	*now = now.Add(59*time.Second + 900*time.Millisecond)
	err := l.Check("k", 1)
	var rlErr *Error
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if rlErr.RetryAfter != 1 {
		t.Fatalf("want retry_after 1, got %d", rlErr.RetryAfter)
	}
}

func TestKeysAreIsolated(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < 3; i++ {
		_ = l.Check("a", 3)
	}
	if err := l.Check("a", 3); err == nil {
		t.Fatalf("key a should be exhausted")
	}
	if err := l.Check("b", 3); err != nil {
		t.Fatalf("key b should be unaffected: %v", err)
	}
}

func TestClockSkewFailsOpen(t *testing.T) {
	l, now := newTestLimiter()
	_ = l.Check("k", 1)
	// clock moves backwards; treat as a new window rather than wedging
	*now = now.Add(-5 * time.Minute)
	if err := l.Check("k", 1); err != nil {
		t.Fatalf("negative elapsed should reset window: %v", err)
	}
}

func TestResetKey(t *testing.T) {
	l, _ := newTestLimiter()
	_ = l.Check("k", 1)
	if err := l.Check("k", 1); err == nil {
		t.Fatalf("should be limited")
	}
	l.ResetKey("k")
	if err := l.Check("k", 1); err != nil {
		t.Fatalf("after reset: %v", err)
	}
}

func TestClearAll(t *testing.T) {
	l, _ := newTestLimiter()
	_ = l.Check("a", 1)
	_ = l.Check("b", 1)
	l.ClearAll()
	if err := l.Check("a", 1); err != nil {
		t.Fatalf("a after clear: %v", err)
	}
	if err := l.Check("b", 1); err != nil {
		t.Fatalf("b after clear: %v", err)
	}
}

func TestConcurrentChecksNeverOveradmit(t *testing.T) {
	l := New()
	const limit = 10
	const attempts = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Check("k", limit); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if admitted != limit {
		t.Fatalf("want exactly %d admitted, got %d", limit, admitted)
	}
}
