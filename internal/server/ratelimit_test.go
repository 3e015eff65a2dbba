package server

import (
	"testing"
	"time"
)

func TestRateLimiterRefill(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("expected first two requests to be allowed")
	}
	if rl.Allow("a") {
		t.Fatal("expected third request to be rejected")
	}
	if !rl.Allow("b") {
		t.Fatal("expected other clients to have their own bucket")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("expected bucket to refill after the window")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()
	rl.now = func() time.Time { return now }

	rl.Allow("stale")
	now = now.Add(2 * time.Hour)
	rl.Allow("fresh")
	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.clients["stale"]; ok {
		t.Fatal("expected stale bucket to be removed")
	}
	if _, ok := rl.clients["fresh"]; !ok {
		t.Fatal("expected fresh bucket to be kept")
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Stop()
	rl.Stop()
}
