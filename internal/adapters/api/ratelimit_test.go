package api

import (
	"sync"
	"testing"
	"time"
)

func testLimiter(limit int, window time.Duration) (*RateLimiter, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(map[RateCategory]RatePolicy{
		RateRegistration: {Limit: limit, Window: window},
	})
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiterWindow(t *testing.T) {
	rl, now := testLimiter(5, 60*time.Second)

	for i := 0; i < 5; i++ {
		d := rl.Allow("ip:1.2.3.4", RateRegistration)
		if !d.Allowed {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}

	// 6th request in the same window is rejected.
	d := rl.Allow("ip:1.2.3.4", RateRegistration)
	if d.Allowed {
		t.Fatal("6th request should be rejected")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > 60*time.Second {
		t.Errorf("retryAfter out of range: %v", d.RetryAfter)
	}

	// After the window elapses the counter resets.
	*now = now.Add(61 * time.Second)
	if d := rl.Allow("ip:1.2.3.4", RateRegistration); !d.Allowed {
		t.Error("request after window expiry should be admitted")
	}
}

func TestRateLimiterRetryAfterShrinks(t *testing.T) {
	rl, now := testLimiter(1, 60*time.Second)

	rl.Allow("k", RateRegistration)
	*now = now.Add(45 * time.Second)
	d := rl.Allow("k", RateRegistration)
	if d.Allowed {
		t.Fatal("expected rejection")
	}
	if d.RetryAfter != 15*time.Second {
		t.Errorf("expected 15s retryAfter, got %v", d.RetryAfter)
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl, _ := testLimiter(1, time.Minute)

	if d := rl.Allow("ip:1.1.1.1", RateRegistration); !d.Allowed {
		t.Fatal("first key should be admitted")
	}
	if d := rl.Allow("ip:1.1.1.1", RateRegistration); d.Allowed {
		t.Fatal("first key should now be exhausted")
	}
	if d := rl.Allow("ip:2.2.2.2", RateRegistration); !d.Allowed {
		t.Error("second key must have its own budget")
	}
}

func TestRateLimiterUnknownCategory(t *testing.T) {
	rl, _ := testLimiter(1, time.Minute)
	for i := 0; i < 100; i++ {
		if d := rl.Allow("k", RateCategory("unconfigured")); !d.Allowed {
			t.Fatal("unconfigured categories must always admit")
		}
	}
}

func TestRateLimiterRemaining(t *testing.T) {
	rl, _ := testLimiter(3, time.Minute)

	if d := rl.Allow("k", RateRegistration); d.Remaining != 2 {
		t.Errorf("expected remaining 2, got %d", d.Remaining)
	}
	rl.Allow("k", RateRegistration)
	if d := rl.Allow("k", RateRegistration); d.Remaining != 0 {
		t.Errorf("expected remaining 0, got %d", d.Remaining)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl, now := testLimiter(5, time.Minute)

	rl.Allow("stale", RateRegistration)
	*now = now.Add(2 * time.Minute)
	rl.Allow("fresh", RateRegistration)
	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.windows["registration:stale"]; ok {
		t.Error("expired window should be swept")
	}
	if _, ok := rl.windows["registration:fresh"]; !ok {
		t.Error("live window must survive the sweep")
	}
}

func TestRateLimiterConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(map[RateCategory]RatePolicy{
		RateAPI: {Limit: 1000, Window: time.Minute},
	})

	var wg sync.WaitGroup
	admitted := make([]int, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if rl.Allow("shared", RateAPI).Allowed {
					admitted[g]++
				}
			}
		}(g)
	}
	wg.Wait()

	total := 0
	for _, n := range admitted {
		total += n
	}
	// 1600 attempts against a budget of 1000: no lost updates means
	// exactly the budget is admitted.
	if total != 1000 {
		t.Errorf("expected exactly 1000 admitted, got %d", total)
	}
}
