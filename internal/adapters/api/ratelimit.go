package api

import (
	"sync"
	"time"
)

// RateCategory groups endpoints sharing a rate-limit policy.
type RateCategory string

const (
	RateRegistration RateCategory = "registration"
	RateAPI          RateCategory = "api"
	RateAdmin        RateCategory = "admin"
)

// RatePolicy is a fixed request budget per window.
type RatePolicy struct {
	Limit  int
	Window time.Duration
}

// DefaultRatePolicies gives registration a deliberately tighter budget
// than general API traffic to blunt automated sign-up abuse.
func DefaultRatePolicies() map[RateCategory]RatePolicy {
	return map[RateCategory]RatePolicy{
		RateRegistration: {Limit: 10, Window: 10 * time.Minute},
		RateAPI:          {Limit: 60, Window: time.Minute},
		RateAdmin:        {Limit: 120, Window: time.Minute},
	}
}

// Decision is the outcome of an admission check. RetryAfter is the time
// left in the current window and the only counter detail exposed to
// clients.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type rateWindow struct {
	count int
	start time.Time
}

// RateLimiter tracks fixed-window request counts per (identity, category)
// key. Counters live only in process memory: rate limiting here is
// best-effort backpressure, not a security boundary, and deliberately does
// not survive restarts or span multiple instances.
type RateLimiter struct {
	mu       sync.Mutex
	windows  map[string]*rateWindow
	policies map[RateCategory]RatePolicy
	now      func() time.Time
}

// NewRateLimiter builds a limiter over the given per-category policies.
func NewRateLimiter(policies map[RateCategory]RatePolicy) *RateLimiter {
	return &RateLimiter{
		windows:  make(map[string]*rateWindow),
		policies: policies,
		now:      time.Now,
	}
}

// Allow admits or rejects one request for the identity under the category.
// Categories without a configured policy are always admitted.
func (rl *RateLimiter) Allow(identity string, category RateCategory) Decision {
	policy, ok := rl.policies[category]
	if !ok || policy.Limit <= 0 {
		return Decision{Allowed: true}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	key := string(category) + ":" + identity
	w, exists := rl.windows[key]
	if !exists || now.Sub(w.start) >= policy.Window {
		// Window elapsed: counter resets, no carry-over.
		w = &rateWindow{start: now}
		rl.windows[key] = w
	}

	w.count++
	remaining := policy.Limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	if w.count > policy.Limit {
		return Decision{
			Allowed:    false,
			Limit:      policy.Limit,
			RetryAfter: w.start.Add(policy.Window).Sub(now),
		}
	}
	return Decision{Allowed: true, Limit: policy.Limit, Remaining: remaining}
}

// Cleanup removes expired windows so the map does not grow without bound.
// A window past its policy duration would be reset on the next Allow
// anyway, so removal never loses live counts.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	longest := time.Duration(0)
	for _, p := range rl.policies {
		if p.Window > longest {
			longest = p.Window
		}
	}

	now := rl.now()
	for key, w := range rl.windows {
		if now.Sub(w.start) >= longest {
			delete(rl.windows, key)
		}
	}
}

// SweepLoop runs Cleanup on the given interval until stop is closed.
func (rl *RateLimiter) SweepLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Cleanup()
		case <-stop:
			return
		}
	}
}
