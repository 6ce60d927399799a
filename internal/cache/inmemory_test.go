package cache

import (
	"context"
	"testing"
	"time"

	"github.com/flexprice/ispbilling/internal/config"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/stretchr/testify/assert"
)

func newTestCache(enabled bool) Cache {
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = enabled
	return NewInMemoryCache(cfg, logger.NewNopLogger())
}

func TestInMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(true)

	key := GenerateKey(PrefixTaxRate, "tenant", "tax_1")
	assert.Equal(t, "taxrate:v1::tenant:tax_1", key)

	c.Set(ctx, key, "vat", 0)
	v, ok := c.Get(ctx, key)
	assert.True(t, ok)
	assert.Equal(t, "vat", v)

	c.Delete(ctx, key)
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestInMemoryCache_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(true)

	c.Set(ctx, GenerateKey(PrefixTaxRate, "a"), 1, time.Minute)
	c.Set(ctx, GenerateKey(PrefixTaxRate, "b"), 2, time.Minute)
	c.Set(ctx, GenerateKey(PrefixOffer, "a"), 3, time.Minute)

	c.DeleteByPrefix(ctx, PrefixTaxRate)

	_, ok := c.Get(ctx, GenerateKey(PrefixTaxRate, "a"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, GenerateKey(PrefixOffer, "a"))
	assert.True(t, ok)
}

func TestInMemoryCache_Disabled(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(false)

	c.Set(ctx, "k", "v", 0)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}
