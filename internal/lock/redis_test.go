package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// needs a reachable redis; set REDIS_ADDR to run
func newTestLock(t *testing.T) *RedisLock {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	l, err := NewRedisLock(addr)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	return l
}

func TestRedisLockExclusive(t *testing.T) {
	l := newTestLock(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	release, ok, err := l.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	release()

	release2, ok, err := l.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestRedisLockReleaseKeepsForeignToken(t *testing.T) {
	l := newTestLock(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	release, ok, err := l.Lock(ctx, key, 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(100 * time.Millisecond)

	// expired and taken by someone else
	release2, ok, err := l.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	release()

	_, ok, err = l.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	release2()
}

func TestNewRedisLockUnreachable(t *testing.T) {
	_, err := NewRedisLock("127.0.0.1:1")
	assert.Error(t, err)
}
