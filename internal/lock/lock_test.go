package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis starts a miniredis server and a client connected to it.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisLock_ExclusiveOwner(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	r := NewRedis(client, time.Minute)

	locked, err := r.Lock(ctx, "event-1", "owner-a")
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = r.Lock(ctx, "event-1", "owner-b")
	require.NoError(t, err)
	assert.False(t, locked, "second owner must not take a held lock")

	val, err := mr.Get(Key("event-1"))
	require.NoError(t, err)
	assert.Equal(t, "owner-a", val)

	err = r.Unlock(ctx, "event-1", "owner-b")
	assert.ErrorIs(t, err, ErrNotHeld)
	assert.True(t, mr.Exists(Key("event-1")))

	require.NoError(t, r.Unlock(ctx, "event-1", "owner-a"))
	assert.False(t, mr.Exists(Key("event-1")))

	locked, err = r.Lock(ctx, "event-1", "owner-b")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestRedisLock_IndependentEvents(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	r := NewRedis(client, time.Minute)

	ok1, err := r.Lock(ctx, "event-1", "owner-a")
	require.NoError(t, err)
	ok2, err := r.Lock(ctx, "event-2", "owner-b")
	require.NoError(t, err)
	assert.True(t, ok1)
	assert.True(t, ok2)
}

func TestRedisLock_Expires(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	r := NewRedis(client, 5*time.Second)

	locked, err := r.Lock(ctx, "event-1", "owner-a")
	require.NoError(t, err)
	require.True(t, locked)
	assert.Equal(t, 5*time.Second, mr.TTL(Key("event-1")))

	mr.FastForward(6 * time.Second)

	locked, err = r.Lock(ctx, "event-1", "owner-b")
	require.NoError(t, err)
	assert.True(t, locked, "expired lock can be retaken")

	// The first owner's late unlock must not release the new holder.
	assert.ErrorIs(t, r.Unlock(ctx, "event-1", "owner-a"), ErrNotHeld)
	assert.True(t, mr.Exists(Key("event-1")))
}

func TestRedisLock_UnlockMissingKey(t *testing.T) {
	client, _ := setupTestRedis(t)
	r := NewRedis(client, 0)

	assert.Equal(t, DefaultTTL, r.TTL)
	assert.NoError(t, r.Unlock(context.Background(), "event-1", "owner-a"))
}

func TestRedisLock_ConcurrentAcquire(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	r := NewRedis(client, time.Minute)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ok, err := r.Lock(ctx, "event-1", string(rune('a'+id)))
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	ok, err := l.Lock(ctx, "event-1", "owner-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Lock(ctx, "event-1", "owner-b")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, l.Unlock(ctx, "event-1", "owner-b"), ErrNotHeld)
	require.NoError(t, l.Unlock(ctx, "event-1", "owner-a"))
	require.NoError(t, l.Unlock(ctx, "event-1", "owner-a"))

	ok, err = l.Lock(ctx, "event-1", "owner-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpiredEvent(t *testing.T) {
	event, ok := ExpiredEvent(Key("Carhw96gyHibRGutfWZXnmrA32HB82iJibXsmfjjcNsC"))
	assert.True(t, ok)
	assert.Equal(t, "Carhw96gyHibRGutfWZXnmrA32HB82iJibXsmfjjcNsC", event)

	_, ok = ExpiredEvent("seat_lock:abc")
	assert.False(t, ok)

	_, ok = ExpiredEvent(keyPrefix)
	assert.False(t, ok)
}
