package tools

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// resultCache memoizes a tool's Result on (toolName, canonical input JSON)
// for tools with positive CacheTTLMillis and SideEffects=false.
// Expired entries are evicted lazily, on next lookup, never by a
// background sweep.
type resultCache interface {
	get(ctx context.Context, key string) (Result, bool)
	set(ctx context.Context, key string, r Result, ttl time.Duration)
}

// memCache is the default, dependency-free cache used when no Redis
// client is configured — a single process doesn't need distributed
// memoization, and tests shouldn't require a live Redis.
type memCache struct {
	mu sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result Result
	expires time.Time
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]cacheEntry)}
}

func (c *memCache) get(_ context.Context, key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return Result{}, false
	}
	return e.result, true
}

func (c *memCache) set(_ context.Context, key string, r Result, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: r, expires: time.Now().Add(ttl)}
}

// redisCache shares tool-result memoization across process instances,
// applied here to tool results rather than session/chat state.
type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing go-redis client for tool-result caching.
func NewRedisCache(client *redis.Client) resultCache {
	return &redisCache{client: client, prefix: "tradeagent:toolcache:"}
}

func (c *redisCache) get(ctx context.Context, key string) (Result, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return Result{}, false
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, false
	}
	return r, true
}

func (c *redisCache) set(ctx context.Context, key string, r Result, ttl time.Duration) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}
