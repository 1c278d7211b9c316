package location

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Cache stores resolved locations. Postal data is effectively static, so entries live for hours.
type Cache interface {
	Get(ctx context.Context, key string) (Resolved, bool, error)
	Set(ctx context.Context, key string, loc Resolved, ttl time.Duration) error
}

// CachedResolver consults a cache before delegating to another resolver.
// Cache failures never fail a lookup.
type CachedResolver struct {
	next   Resolver
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedResolver(next Resolver, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedResolver{next: next, cache: cache, ttl: ttl, logger: logger.With("component", "location.cache")}
}

func (r *CachedResolver) Resolve(ctx context.Context, q Query) (Resolved, error) {
	if err := q.Validate(); err != nil {
		return Resolved{}, err
	}
	key := q.CacheKey()

	loc, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("location cache read failed", "key", key, "error", err)
	} else if ok {
		r.logger.Debug("location cache hit", "key", key)
		return loc, nil
	}

	loc, err = r.next.Resolve(ctx, q)
	if err != nil {
		return Resolved{}, err
	}
	if err := r.cache.Set(ctx, key, loc, r.ttl); err != nil {
		r.logger.Warn("location cache write failed", "key", key, "error", err)
	}
	return loc, nil
}

// MemoryCache is a process-local TTL cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	loc     Resolved
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Resolved, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return Resolved{}, false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		return Resolved{}, false, nil
	}
	return e.loc, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, loc Resolved, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}
	c.entries[key] = memoryEntry{loc: loc, expires: expires}
	return nil
}

// ValkeyCache stores entries as JSON strings under a key prefix.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = "beefinder:location"
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

func (c *ValkeyCache) Get(ctx context.Context, key string) (Resolved, bool, error) {
	payload, err := c.client.Do(ctx, c.client.B().Get().Key(c.key(key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return Resolved{}, false, nil
		}
		return Resolved{}, false, err
	}
	var loc Resolved
	if err := json.Unmarshal([]byte(payload), &loc); err != nil {
		return Resolved{}, false, err
	}
	return loc, true, nil
}

func (c *ValkeyCache) Set(ctx context.Context, key string, loc Resolved, ttl time.Duration) error {
	payload, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	builder := c.client.B().Set().Key(c.key(key)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return c.client.Do(ctx, cmd).Error()
}

func (c *ValkeyCache) key(k string) string {
	return c.prefix + ":" + k
}

var (
	_ Resolver = (*CachedResolver)(nil)
	_ Cache    = (*MemoryCache)(nil)
	_ Cache    = (*ValkeyCache)(nil)
)
