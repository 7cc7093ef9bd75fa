//go:build !wasm

package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// startRedis runs a throwaway Redis container. The test is skipped in
// -short mode or when no container runtime is reachable.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)
	return redis.NewClient(opts)
}

func TestRedis_GetSetAndChanges(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	writer := NewRedisFromClient(client, "test:")
	defer writer.Close()

	readerClient := redis.NewClient(client.Options())
	reader := NewRedisFromClient(readerClient, "test:")
	defer reader.Close()

	_, err := reader.Get(ctx, "groundhogg_contact_id")
	assert.ErrorIs(t, err, ErrNotFound)

	var mu sync.Mutex
	var got []Change
	cancel, err := reader.Subscribe(func(c Change) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, writer.Set(ctx, "groundhogg_contact_id", "12"))

	value, err := reader.Get(ctx, "groundhogg_contact_id")
	require.NoError(t, err)
	assert.Equal(t, "12", value)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0].Key == "groundhogg_contact_id" && got[0].Value == "12"
	}, 5*time.Second, 20*time.Millisecond)
	mu.Lock()
	assert.Equal(t, writer.Origin(), got[0].Origin)
	mu.Unlock()
}

func TestRedis_OwnWritesNotEchoed(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	backend := NewRedisFromClient(client, "echo:")
	defer backend.Close()

	var mu sync.Mutex
	var got []Change
	cancel, err := backend.Subscribe(func(c Change) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, backend.Set(ctx, "groundhogg_contact_id", "5"))

	other := NewRedisFromClient(redis.NewClient(client.Options()), "echo:")
	defer other.Close()
	require.NoError(t, other.Set(ctx, "groundhogg_contact_id", "9"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 5*time.Second, 20*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "9", got[0].Value)
	assert.Equal(t, other.Origin(), got[0].Origin)
}

func TestRedis_DeliverDropsOwnOrigin(t *testing.T) {
	backend := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "")
	defer backend.Close()

	var got []Change
	backend.subs[0] = func(c Change) { got = append(got, c) }

	backend.deliver(`{"key":"k","value":"5","origin":"` + backend.Origin() + `"}`)
	backend.deliver(`{"key":"k","value":"6","origin":"elsewhere"}`)
	backend.deliver(`{"key":"k","value":"7"}`)
	backend.deliver(`not json`)

	assert.Equal(t, []Change{
		{Key: "k", Value: "6", Origin: "elsewhere"},
		{Key: "k", Value: "7"},
	}, got)
}

func TestRedisConfig_FromEnv(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("GROUNDHOGG_REDIS_PREFIX", "site1:")

	cfg, err := NewRedisConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", cfg.Address())
	assert.Equal(t, "site1:", cfg.Prefix)

	t.Setenv("REDIS_PORT", "not-a-port")
	_, err = NewRedisConfigFromEnv()
	assert.Error(t, err)
}
