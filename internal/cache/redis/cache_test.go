package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daption-ciray/proapp/internal/cache"
	"github.com/Daption-ciray/proapp/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestRedis(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, testLogger()), mr
}

func sampleEntry() *cache.Entry {
	return &cache.Entry{
		Hits: []domain.Hit{
			{Product: domain.Product{ID: "p1", Brand: "Lenovo", Model: "IdeaPad", Price: 18999, Category: "Laptop"}, Score: 4.2},
		},
		Total:      1,
		Relaxation: domain.RelaxationNone,
	}
}

func TestCache_SetThenGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	c.Set(ctx, "search:laptop:[]", sampleEntry(), time.Hour)

	got, ok := c.Get(ctx, "search:laptop:[]")
	require.True(t, ok)
	require.Len(t, got.Hits, 1)
	assert.Equal(t, "p1", got.Hits[0].ID)
	assert.Equal(t, 4.2, got.Hits[0].Score)
	assert.Equal(t, domain.RelaxationNone, got.Relaxation)
	assert.Equal(t, time.Hour, mr.TTL("search:laptop:[]"))
}

func TestCache_DefaultTTL(t *testing.T) {
	c, mr := setupTestRedis(t)
	c.Set(context.Background(), "k", sampleEntry(), 0)
	assert.Equal(t, cache.DefaultTTL, mr.TTL("k"))
}

func TestCache_Expiry(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	c.Set(ctx, "k", sampleEntry(), time.Minute)
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestCache_MissingKey(t *testing.T) {
	c, _ := setupTestRedis(t)
	got, ok := c.Get(context.Background(), "absent")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("k", "{not json"))

	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestCache_ServerGoneIsMiss(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	mr.Close()

	c.Set(ctx, "k", sampleEntry(), time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestConnect_ReturnsRedisWhenReachable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := Connect(context.Background(), client, testLogger())
	_, isRedis := c.(*Cache)
	assert.True(t, isRedis)
}

func TestConnect_FallsBackToNop(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client := goredis.NewClient(&goredis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	c := Connect(context.Background(), client, testLogger())
	assert.IsType(t, cache.Nop{}, c)
}
