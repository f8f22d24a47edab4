package lock

import (
	"context"
	"testing"
	"time"

	"github.com/bazaar/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisManager_Options(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	m := NewRedisManager(client,
		WithKeyPrefix("test:"),
		WithLease(5*time.Second),
		WithRetryInterval(10*time.Millisecond),
		WithLease(0),
	)
	assert.Equal(t, "test:", m.keyPrefix)
	assert.Equal(t, 5*time.Second, m.lease)
	assert.Equal(t, 10*time.Millisecond, m.retryInterval)
}

func TestRedisManager_BackendErrorIsNotTimeout(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	m := NewRedisManager(client)
	_, err := m.Acquire(context.Background(), "seller-number", time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrLockTimeout)
	assert.Contains(t, err.Error(), "failed to acquire lock seller-number")
}

func TestRedisManager_ClosedClient(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	require.NoError(t, client.Close())

	m := NewRedisManager(client)
	_, err := m.Acquire(context.Background(), "label-number", time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, redis.ErrClosed)
}

func TestRedisManager_CancelledBeforeAcquire(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRedisManager(client).Acquire(ctx, "seller-number", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
