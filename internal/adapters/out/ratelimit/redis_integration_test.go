//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisStore_Integration(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	store := NewRedisStore(client, 10, 3, testLogger())

	for i := 0; i < 3; i++ {
		assert.True(t, store.Allow(ctx, "ip:10.0.0.1"), "request %d should be allowed", i+1)
	}
	assert.False(t, store.Allow(ctx, "ip:10.0.0.1"))
	assert.True(t, store.Allow(ctx, "ip:10.0.0.2"), "keys are independent")
	assert.False(t, store.AllowN(ctx, "ip:10.0.0.3", 4))

	ttl, err := client.PTTL(ctx, keyPrefix+"ip:10.0.0.1").Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, 300*time.Millisecond)

	time.Sleep(400 * time.Millisecond)
	assert.True(t, store.Allow(ctx, "ip:10.0.0.1"), "window resets after expiry")
}

func TestRedisStore_SharedBetweenReplicas(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	a := NewRedisStore(client, 1, 2, testLogger())
	b := NewRedisStore(client, 1, 2, testLogger())

	assert.True(t, a.Allow(ctx, "global"))
	assert.True(t, b.Allow(ctx, "global"))
	assert.False(t, a.Allow(ctx, "global"))
}
