//go:build integration

package lock

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bazaar/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedisContainer(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisManager_Integration(t *testing.T) {
	client := newRedisContainer(t)
	ctx := context.Background()
	a := NewRedisManager(client, WithRetryInterval(5*time.Millisecond))
	b := NewRedisManager(client, WithRetryInterval(5*time.Millisecond))

	release, err := a.Acquire(ctx, "seller-number", time.Second)
	require.NoError(t, err)

	_, err = b.Acquire(ctx, "seller-number", 50*time.Millisecond)
	assert.ErrorIs(t, err, shared.ErrLockTimeout)

	release()
	release()

	again, err := b.Acquire(ctx, "seller-number", time.Second)
	require.NoError(t, err)
	defer again()

	n, err := client.Exists(ctx, defaultKeyPrefix+"seller-number").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisManager_ReleaseKeepsForeignToken(t *testing.T) {
	client := newRedisContainer(t)
	ctx := context.Background()
	m := NewRedisManager(client, WithLease(50*time.Millisecond))

	release, err := m.Acquire(ctx, "label-number", time.Second)
	require.NoError(t, err)

	// lease expires and another holder takes the key
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, client.Set(ctx, defaultKeyPrefix+"label-number", "someone-else", time.Minute).Err())

	release()
	val, err := client.Get(ctx, defaultKeyPrefix+"label-number").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}
