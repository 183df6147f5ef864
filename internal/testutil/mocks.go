package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/consentgate/consentgate/internal/core/domain"
)

// FakeTokenCache implements ports.TokenCache in memory for testing.
type FakeTokenCache struct {
	mu          sync.Mutex
	sites       map[string]*domain.Site
	Invalidated []string
}

func NewFakeTokenCache() *FakeTokenCache {
	return &FakeTokenCache{sites: make(map[string]*domain.Site)}
}

func (c *FakeTokenCache) GetSite(_ context.Context, token string) (*domain.Site, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	site, ok := c.sites[token]
	return site, ok
}

func (c *FakeTokenCache) SetSite(_ context.Context, token string, site *domain.Site, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sites[token] = site
}

func (c *FakeTokenCache) Invalidate(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sites, token)
	c.Invalidated = append(c.Invalidated, token)
	return nil
}

func (c *FakeTokenCache) Ping(_ context.Context) error { return nil }
