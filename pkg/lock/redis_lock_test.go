package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestProductLock_LockUnlock(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	l := NewProductLock(client, "flash:lock:1", "holder-a", time.Second)
	require.NoError(t, l.Lock(ctx))

	held, err := l.IsHeld(ctx)
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, l.Unlock(ctx))

	held, err = l.IsHeld(ctx)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestProductLock_Contention(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	a := NewProductLock(client, "flash:lock:1", "holder-a", time.Second)
	b := NewProductLock(client, "flash:lock:1", "holder-b", time.Second)

	require.NoError(t, a.Lock(ctx))
	assert.ErrorIs(t, b.Lock(ctx), ErrLockFailed)

	// b must not be able to release a's lock
	assert.ErrorIs(t, b.Unlock(ctx), ErrLockNotHeld)

	require.NoError(t, a.Unlock(ctx))
	assert.NoError(t, b.Lock(ctx))
}

func TestProductLock_TryLockRetries(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	a := NewProductLock(client, "flash:lock:2", "holder-a", time.Second)
	b := NewProductLock(client, "flash:lock:2", "holder-b", time.Second)

	require.NoError(t, a.Lock(ctx))

	start := time.Now()
	err := b.TryLock(ctx, 3, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockFailed)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestProductLock_UnlockWithoutLock(t *testing.T) {
	client := setupRedis(t)
	l := NewProductLock(client, "flash:lock:3", "holder-a", time.Second)
	assert.ErrorIs(t, l.Unlock(context.Background()), ErrLockNotHeld)
}
