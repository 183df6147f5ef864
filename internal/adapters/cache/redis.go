// Package cache provides a Redis-backed read-through cache for
// token-to-site resolution.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/consentgate/consentgate/internal/core/domain"
)

const keyPrefix = "site_tok:"

// RedisCache stores resolved site rows keyed by a digest of their token.
// The raw token is never written to Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the given Redis instance.
func NewRedisCache(addr string, password string, db int) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: rdb}
}

// GetSite returns the cached site for a token. Misses and transport
// errors both read as (nil, false): the caller falls through to the
// repository either way.
func (r *RedisCache) GetSite(ctx context.Context, token string) (*domain.Site, bool) {
	val, err := r.client.Get(ctx, tokenKey(token)).Bytes()
	if err != nil {
		return nil, false
	}
	var site domain.Site
	if err := json.Unmarshal(val, &site); err != nil {
		return nil, false
	}
	return &site, true
}

// SetSite caches a resolved site under its token digest. Failures are
// silent: the cache is an optimization, not a source of truth.
func (r *RedisCache) SetSite(ctx context.Context, token string, site *domain.Site, ttl time.Duration) {
	data, err := json.Marshal(site)
	if err != nil {
		return
	}
	r.client.Set(ctx, tokenKey(token), data, ttl)
}

// Invalidate drops the cached row for a token after its site changed.
func (r *RedisCache) Invalidate(ctx context.Context, token string) error {
	return r.client.Del(ctx, tokenKey(token)).Err()
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}
