package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		c := NewMemoryCache()
		defer func() { _ = c.Close() }()

		require.NoError(t, c.Set(ctx, "key", "value", time.Minute))

		value, err := c.Get(ctx, "key")
		require.NoError(t, err)
		assert.Equal(t, "value", value)
	})

	t.Run("missing key returns cache miss", func(t *testing.T) {
		c := NewMemoryCache()
		defer func() { _ = c.Close() }()

		_, err := c.Get(ctx, "nothere")
		require.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("expired entry returns cache miss", func(t *testing.T) {
		c := NewMemoryCache()
		defer func() { _ = c.Close() }()

		require.NoError(t, c.Set(ctx, "key", "value", 10*time.Millisecond))
		time.Sleep(20 * time.Millisecond)

		_, err := c.Get(ctx, "key")
		require.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("delete removes entry", func(t *testing.T) {
		c := NewMemoryCache()
		defer func() { _ = c.Close() }()

		require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
		require.NoError(t, c.Del(ctx, "key"))

		_, err := c.Get(ctx, "key")
		require.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
	})
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "link:abc123", LinkKey("abc123"))
	assert.Equal(t, "rate_limit:198.51.100.1", RateLimitKey("198.51.100.1"))
}
