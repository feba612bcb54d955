package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/aftershock/internal/config"
)

func TestRedisCache_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := newRedisCache(db)
	ctx := context.Background()

	t.Run("hit returns value", func(t *testing.T) {
		mock.ExpectGet("aftershock:moralis:price").SetVal(`{"usdPrice":1.2}`)

		value, found, err := cache.Get(ctx, "moralis:price")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `{"usdPrice":1.2}`, string(value))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss is not an error", func(t *testing.T) {
		mock.ExpectGet("aftershock:missing").RedisNil()

		value, found, err := cache.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, value)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis error is wrapped", func(t *testing.T) {
		mock.ExpectGet("aftershock:broken").SetErr(redis.TxFailedErr)

		_, _, err := cache.Get(ctx, "broken")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis get")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisCache_SetAndDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := newRedisCache(db)
	ctx := context.Background()
	value := []byte(`[{"open":1}]`)

	mock.ExpectSet("aftershock:ohlcv", value, time.Minute).SetVal("OK")
	require.NoError(t, cache.Set(ctx, "ohlcv", value, time.Minute))

	mock.ExpectSet("aftershock:fail", value, time.Minute).SetErr(redis.TxFailedErr)
	err := cache.Set(ctx, "fail", value, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis set")

	// zero ttl never reaches redis
	require.NoError(t, cache.Set(ctx, "skip", value, 0))

	mock.ExpectDel("aftershock:ohlcv").SetVal(1)
	require.NoError(t, cache.Delete(ctx, "ohlcv"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTTLCache_GetSet(t *testing.T) {
	cache := NewTTLCache(10)
	defer cache.Close()
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	original := []byte("value")
	require.NoError(t, cache.Set(ctx, "k", original, time.Minute))
	original[0] = 'X'

	value, found, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", string(value), "stored value is a copy")

	require.NoError(t, cache.Delete(ctx, "k"))
	_, found, _ = cache.Get(ctx, "k")
	assert.False(t, found)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.InDelta(t, 1.0/3.0, stats.HitRatio(), 1e-9)
}

func TestTTLCache_Expiry(t *testing.T) {
	cache := NewTTLCache(10)
	defer cache.Close()
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), 30*time.Second))
	now = now.Add(31 * time.Second)

	_, found, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int64(0), cache.Stats().Entries)

	require.NoError(t, cache.Set(ctx, "zero", []byte("v"), 0))
	_, found, _ = cache.Get(ctx, "zero")
	assert.False(t, found)
}

func TestTTLCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewTTLCache(2)
	defer cache.Close()
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "a", []byte("1"), time.Hour))
	now = now.Add(time.Second)
	require.NoError(t, cache.Set(ctx, "b", []byte("2"), time.Hour))
	now = now.Add(time.Second)
	_, _, _ = cache.Get(ctx, "a")
	now = now.Add(time.Second)
	require.NoError(t, cache.Set(ctx, "c", []byte("3"), time.Hour))

	_, found, _ := cache.Get(ctx, "b")
	assert.False(t, found, "b was least recently used")
	_, found, _ = cache.Get(ctx, "a")
	assert.True(t, found)
	assert.Equal(t, int64(1), cache.Stats().Evictions)
}

func TestTTLCache_RemoveExpired(t *testing.T) {
	cache := NewTTLCache(10)
	defer cache.Close()
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "short", []byte("v"), time.Second))
	require.NoError(t, cache.Set(ctx, "long", []byte("v"), time.Hour))
	now = now.Add(time.Minute)
	cache.removeExpired()

	assert.Equal(t, int64(1), cache.Stats().Entries)
}

func TestNew(t *testing.T) {
	c, err := New(config.CacheConfig{Backend: "memory", MaxEntries: 5})
	require.NoError(t, err)
	assert.IsType(t, &TTLCache{}, c)
	require.NoError(t, c.Close())

	_, err = New(config.CacheConfig{Backend: "etcd"})
	require.Error(t, err)
}
