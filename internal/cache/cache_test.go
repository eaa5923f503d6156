package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bjaergning/rapport/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentCache_Memory(t *testing.T) {
	ctx := context.Background()
	c := NewDocumentCache(&config.CacheConfig{Type: config.CacheTypeMemory, TTL: time.Minute})

	_, err := c.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, 1, []byte("%PDF-one")))
	require.NoError(t, c.Set(ctx, 2, []byte("%PDF-two")))

	got, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-one"), got)

	require.NoError(t, c.Delete(ctx, 1))
	_, err = c.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrMiss)

	// deleting twice is fine
	require.NoError(t, c.Delete(ctx, 1))

	require.NoError(t, c.Clear(ctx))
	_, err = c.Get(ctx, 2)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestDocumentCache_DefaultsToMemory(t *testing.T) {
	c := NewDocumentCache(nil)
	assert.Equal(t, time.Hour, c.ttl)

	require.NoError(t, c.Set(context.Background(), 7, []byte("x")))
	got, err := c.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func TestDocumentCache_RedisClearKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = other.Close() })
	require.NoError(t, other.Set(ctx, "someone-elses:session", "abc", 0).Err())

	c := NewDocumentCache(&config.CacheConfig{
		Type:     config.CacheTypeRedis,
		RedisURL: "redis://" + mr.Addr() + "/0",
		TTL:      time.Minute,
	})
	assert.Equal(t, "redis", c.GetType())

	require.NoError(t, c.Set(ctx, 1, []byte("%PDF-one")))
	require.NoError(t, c.Set(ctx, 2, []byte("%PDF-two")))

	got, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-one"), got)

	require.NoError(t, c.Clear(ctx))

	_, err = c.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrMiss)
	_, err = c.Get(ctx, 2)
	assert.ErrorIs(t, err, ErrMiss)

	value, err := other.Get(ctx, "someone-elses:session").Result()
	require.NoError(t, err)
	assert.Equal(t, "abc", value)
}

func TestDocumentCache_Stats(t *testing.T) {
	ctx := context.Background()
	c := NewDocumentCache(&config.CacheConfig{Type: config.CacheTypeMemory, TTL: time.Minute})
	assert.Equal(t, "go-cache", c.GetType())

	require.NoError(t, c.Set(ctx, 1, []byte("x")))
	_, _ = c.Get(ctx, 1)
	_, _ = c.Get(ctx, 2)

	stats := c.GetStats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.Miss)
	assert.Equal(t, 1, stats.SetSuccess)
}
