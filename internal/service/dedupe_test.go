package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/wabridge/relay-server-go/internal/redis"
)

func newTestRedis(t *testing.T) (*redisclient.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redisclient.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRedisDeduper(t *testing.T) {
	ctx := context.Background()

	t.Run("second claim of the same id is rejected", func(t *testing.T) {
		client, _ := newTestRedis(t)
		d := NewRedisDeduper(client, time.Hour)

		first, err := d.Claim(ctx, "shop1", "ABC1")
		require.NoError(t, err)
		second, err := d.Claim(ctx, "shop1", "ABC1")
		require.NoError(t, err)

		assert.True(t, first)
		assert.False(t, second)
	})

	t.Run("ids are scoped per instance", func(t *testing.T) {
		client, _ := newTestRedis(t)
		d := NewRedisDeduper(client, time.Hour)

		_, err := d.Claim(ctx, "shop1", "ABC1")
		require.NoError(t, err)
		claimed, err := d.Claim(ctx, "shop2", "ABC1")
		require.NoError(t, err)

		assert.True(t, claimed)
	})

	t.Run("claim expires after ttl", func(t *testing.T) {
		client, mr := newTestRedis(t)
		d := NewRedisDeduper(client, time.Minute)

		_, err := d.Claim(ctx, "shop1", "ABC1")
		require.NoError(t, err)
		mr.FastForward(2 * time.Minute)

		claimed, err := d.Claim(ctx, "shop1", "ABC1")
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("release allows reprocessing", func(t *testing.T) {
		client, _ := newTestRedis(t)
		d := NewRedisDeduper(client, time.Hour)

		_, err := d.Claim(ctx, "shop1", "ABC1")
		require.NoError(t, err)
		require.NoError(t, d.Release(ctx, "shop1", "ABC1"))

		claimed, err := d.Claim(ctx, "shop1", "ABC1")
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("empty id is always claimed", func(t *testing.T) {
		client, _ := newTestRedis(t)
		d := NewRedisDeduper(client, time.Hour)

		for i := 0; i < 2; i++ {
			claimed, err := d.Claim(ctx, "shop1", "")
			require.NoError(t, err)
			assert.True(t, claimed)
		}
	})

	t.Run("redis failure surfaces an error", func(t *testing.T) {
		client, mr := newTestRedis(t)
		d := NewRedisDeduper(client, time.Hour)
		mr.Close()

		_, err := d.Claim(ctx, "shop1", "ABC1")
		assert.Error(t, err)
	})
}
