package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemCache_GetSetAndLazyExpiry(t *testing.T) {
	c := newMemCache()
	ctx := context.Background()

	_, hit := c.get(ctx, "k")
	assert.False(t, hit)

	c.set(ctx, "k", Ok(map[string]any{"v": 1}), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, hit = c.get(ctx, "k")
	assert.False(t, hit, "expired entry must be evicted on lookup")
}

func TestMemCache_ReturnsFreshEntry(t *testing.T) {
	c := newMemCache()
	ctx := context.Background()
	c.set(ctx, "k", Ok(map[string]any{"v": 42}), time.Minute)

	got, hit := c.get(ctx, "k")
	assert.True(t, hit)
	assert.Equal(t, 42, got.Data["v"])
}
