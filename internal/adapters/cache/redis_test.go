package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/consentgate/consentgate/internal/core/domain"
)

func TestRedisCache_SetGet(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewRedisCache(mr.Addr(), "", 0)
	ctx := context.Background()

	token := "abc123"
	site := &domain.Site{
		ID:     "site-1",
		Domain: "shop.example",
		Status: domain.StatusActive,
	}

	if got, ok := cache.GetSite(ctx, token); ok || got != nil {
		t.Errorf("expected miss on empty cache, got %+v", got)
	}

	cache.SetSite(ctx, token, site, 5*time.Minute)

	got, ok := cache.GetSite(ctx, token)
	if !ok {
		t.Fatal("expected cache hit after SetSite")
	}
	if got.ID != site.ID || got.Domain != site.Domain || got.Status != site.Status {
		t.Errorf("cached site does not match: %+v", got)
	}

	// The raw token must never appear in a Redis key.
	for _, key := range mr.Keys() {
		if strings.Contains(key, token) {
			t.Errorf("raw token leaked into redis key %q", key)
		}
		if !strings.HasPrefix(key, keyPrefix) {
			t.Errorf("unexpected key %q", key)
		}
	}
}

func TestRedisCache_TTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewRedisCache(mr.Addr(), "", 0)
	ctx := context.Background()

	cache.SetSite(ctx, "tok", &domain.Site{ID: "site-1"}, time.Minute)

	mr.FastForward(2 * time.Minute)

	if _, ok := cache.GetSite(ctx, "tok"); ok {
		t.Error("expected miss after TTL expiry")
	}
}

func TestRedisCache_Invalidate(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	cache := NewRedisCache(mr.Addr(), "", 0)
	ctx := context.Background()

	cache.SetSite(ctx, "tok", &domain.Site{ID: "site-1"}, time.Minute)

	if err := cache.Invalidate(ctx, "tok"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, ok := cache.GetSite(ctx, "tok"); ok {
		t.Error("expected miss after Invalidate")
	}

	// Invalidating an absent token is not an error.
	if err := cache.Invalidate(ctx, "never-set"); err != nil {
		t.Errorf("Invalidate of absent token failed: %v", err)
	}
}

func TestRedisCache_Ping(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	cache := NewRedisCache(mr.Addr(), "", 0)
	if err := cache.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	mr.Close()
	if err := cache.Ping(context.Background()); err == nil {
		t.Error("expected Ping failure after server shutdown")
	}
}
