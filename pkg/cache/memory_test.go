package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string    `json:"name"`
	Value []float64 `json:"value"`
}

func TestMemoryCache_RoundTripStruct(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", sample{Name: "a", Value: []float64{1, 2}}, time.Minute))

	var got sample
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "a", got.Name)
	assert.Equal(t, []float64{1, 2}, got.Value)
}

func TestMemoryCache_MissAndExpiry(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	var s string
	assert.ErrorIs(t, c.Get(ctx, "absent", &s), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "short", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	assert.ErrorIs(t, c.Get(ctx, "short", &s), ErrCacheMiss)
}

func TestMemoryCache_DeleteByPattern(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ind:BTC:1h:1", "a", 0))
	require.NoError(t, c.Set(ctx, "ind:BTC:1h:2", "b", 0))
	require.NoError(t, c.Set(ctx, "ind:ETH:1h:1", "c", 0))

	require.NoError(t, c.DeleteByPattern(ctx, BuildPattern("ind:BTC:1h:")))

	var s string
	assert.ErrorIs(t, c.Get(ctx, "ind:BTC:1h:1", &s), ErrCacheMiss)
	assert.ErrorIs(t, c.Get(ctx, "ind:BTC:1h:2", &s), ErrCacheMiss)
	require.NoError(t, c.Get(ctx, "ind:ETH:1h:1", &s))
	assert.Equal(t, "c", s)
}

func TestMemoryCache_TryLock(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	ok, err := c.TryLock(ctx, "lock:BTC", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.TryLock(ctx, "lock:BTC", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, c.Unlock(ctx, "lock:BTC", "b"), ErrLockNotHeld)
	require.NoError(t, c.Unlock(ctx, "lock:BTC", "a"))
	ok, err = c.TryLock(ctx, "lock:BTC", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCache_UnlockAfterExpiryKeepsNewOwner(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	ok, err := c.TryLock(ctx, "lock:BTC", "a", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(20 * time.Millisecond)

	ok, err = c.TryLock(ctx, "lock:BTC", "b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, c.Unlock(ctx, "lock:BTC", "a"), ErrLockNotHeld)
	ok, err = c.TryLock(ctx, "lock:BTC", "c", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "b still holds the lock")
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemoryCache(WithMemoryMaxSize(2))
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, c.Set(ctx, "b", "2", 0))
	time.Sleep(time.Millisecond)
	var s string
	require.NoError(t, c.Get(ctx, "a", &s))
	time.Sleep(time.Millisecond)
	require.NoError(t, c.Set(ctx, "c", "3", 0))

	assert.Equal(t, 2, c.Len())
	assert.ErrorIs(t, c.Get(ctx, "b", &s), ErrCacheMiss)
}

func TestLayeredCache_FallsBackToRemote(t *testing.T) {
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote)
	defer lc.Close()
	ctx := context.Background()

	require.NoError(t, remote.Set(ctx, "k", sample{Name: "remote"}, time.Minute))
	var got sample
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, "remote", got.Name)
}
