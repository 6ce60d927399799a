package cache

import (
	"context"
	"strings"
	"time"

	"github.com/flexprice/ispbilling/internal/config"
	"github.com/flexprice/ispbilling/internal/logger"
	goCache "github.com/patrickmn/go-cache"
)

// DefaultExpiration is used when the configuration does not set a TTL
const DefaultExpiration = 30 * time.Minute

// DefaultCleanupInterval is how often expired items are removed from the cache
const DefaultCleanupInterval = 1 * time.Hour

// InMemoryCache implements the Cache interface using github.com/patrickmn/go-cache
type InMemoryCache struct {
	cache   *goCache.Cache
	enabled bool
	ttl     time.Duration
	logger  *logger.Logger
}

// NewInMemoryCache builds the process-local cache. A disabled cache misses on every read.
func NewInMemoryCache(cfg *config.Configuration, log *logger.Logger) Cache {
	ttl := DefaultExpiration
	if cfg.Cache.TTLMinutes > 0 {
		ttl = time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	}
	log.Infow("initializing cache", "enabled", cfg.Cache.Enabled, "ttl", ttl.String())

	return &InMemoryCache{
		cache:   goCache.New(ttl, DefaultCleanupInterval),
		enabled: cfg.Cache.Enabled,
		ttl:     ttl,
		logger:  log,
	}
}

// Get retrieves a value from the cache
func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if !c.enabled {
		return nil, false
	}
	finish := startSpan(ctx, "get", key)
	value, found := c.cache.Get(key)
	finish(found)
	return value, found
}

// Set adds a value to the cache with the specified expiration
func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.enabled {
		return
	}
	if expiration == 0 {
		expiration = c.ttl
	}
	c.cache.Set(key, value, expiration)
}

// Delete removes a key from the cache
func (c *InMemoryCache) Delete(_ context.Context, key string) {
	if !c.enabled {
		return
	}
	c.cache.Delete(key)
}

// DeleteByPrefix removes all keys with the given prefix
func (c *InMemoryCache) DeleteByPrefix(_ context.Context, prefix string) {
	if !c.enabled {
		return
	}
	for k := range c.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			c.cache.Delete(k)
		}
	}
}

// Flush removes all items from the cache
func (c *InMemoryCache) Flush(_ context.Context) {
	c.cache.Flush()
}
