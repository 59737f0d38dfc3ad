package httpmiddleware

import (
	"testing"
	"time"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	rl := NewRateLimiter(2)
	now := time.Now()

	if !rl.allow("1.2.3.4", now) {
		t.Fatalf("first request denied")
	}
	if !rl.allow("1.2.3.4", now) {
		t.Fatalf("second request denied within burst")
	}
	if rl.allow("1.2.3.4", now) {
		t.Errorf("request allowed past burst")
	}

	// 30s at 2/min refills exactly one token
	later := now.Add(30 * time.Second)
	if !rl.allow("1.2.3.4", later) {
		t.Errorf("request denied after refill")
	}
	if rl.allow("1.2.3.4", later) {
		t.Errorf("refill granted more than one token")
	}
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(1)
	now := time.Now()

	if !rl.allow("10.0.0.1", now) {
		t.Fatalf("first client denied")
	}
	if rl.allow("10.0.0.1", now) {
		t.Fatalf("first client allowed past limit")
	}
	if !rl.allow("10.0.0.2", now) {
		t.Errorf("second client throttled by first client's bucket")
	}
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	rl := NewRateLimiter(5)
	now := time.Now()

	rl.allow("10.0.0.1", now)
	rl.allow("10.0.0.2", now.Add(staleAfter))

	later := now.Add(2*staleAfter + time.Minute)
	rl.allow("10.0.0.3", later)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.clients["10.0.0.1"]; ok {
		t.Errorf("idle client not swept")
	}
	if _, ok := rl.clients["10.0.0.3"]; !ok {
		t.Errorf("active client swept")
	}
}
