package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-content-dashboard/internal/testutil"
)

func TestRedisCacheRepo_Set_Get_Delete(t *testing.T) {
	client, srv := testutil.SetupTestRedis(t)
	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		key := "stepcache:J1_step_1.json"
		value := []byte(`{"title":"x"}`)
		ttl := 5 * time.Minute

		require.NoError(t, repo.Set(ctx, key, value, ttl))

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, result)

		actualTTL := client.TTL(ctx, key).Val()
		assert.True(t, actualTTL > 0 && actualTTL <= ttl)
	})

	t.Run("get non-existent key", func(t *testing.T) {
		result, err := repo.Get(ctx, "non:existent:key")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("entries expire", func(t *testing.T) {
		key := "jobs:snapshot"
		require.NoError(t, repo.Set(ctx, key, []byte("[]"), time.Minute))

		srv.FastForward(2 * time.Minute)

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete existing key", func(t *testing.T) {
		key := "test:key:2"
		require.NoError(t, repo.Set(ctx, key, []byte("to be deleted"), time.Minute))

		deleted, err := repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.True(t, deleted)

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete non-existent key", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, "non:existent:key")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("exists", func(t *testing.T) {
		key := "test:key:3"
		exists, err := repo.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, repo.Set(ctx, key, []byte("exists test"), time.Minute))

		exists, err = repo.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("set TTL", func(t *testing.T) {
		key := "test:key:4"
		require.NoError(t, repo.Set(ctx, key, []byte("ttl test"), time.Minute))

		updated, err := repo.SetTTL(ctx, key, 2*time.Minute)
		require.NoError(t, err)
		assert.True(t, updated)

		actualTTL := client.TTL(ctx, key).Val()
		assert.True(t, actualTTL > time.Minute && actualTTL <= 2*time.Minute)
	})

	t.Run("set TTL on non-existent key", func(t *testing.T) {
		updated, err := repo.SetTTL(ctx, "non:existent:key", time.Minute)
		require.NoError(t, err)
		assert.False(t, updated)
	})

	t.Run("set if not exists", func(t *testing.T) {
		key := "test:key:5"
		wasSet, err := repo.SetIfNotExists(ctx, key, []byte("first"), time.Minute)
		require.NoError(t, err)
		assert.True(t, wasSet)

		wasSet, err = repo.SetIfNotExists(ctx, key, []byte("second"), time.Minute)
		require.NoError(t, err)
		assert.False(t, wasSet)

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), result)
	})

	t.Run("set if not exists clamps ttl", func(t *testing.T) {
		key := "test:key:6"
		wasSet, err := repo.SetIfNotExists(ctx, key, []byte("v"), 0)
		require.NoError(t, err)
		require.True(t, wasSet)
		assert.Equal(t, time.Second, srv.TTL(key))
	})

	t.Run("health check", func(t *testing.T) {
		assert.NoError(t, repo.Health(ctx))
	})
}

func TestRedisCacheRepo_Namespace(t *testing.T) {
	client, srv := testutil.SetupTestRedis(t)
	repo := NewRedisCacheRepo(client, WithNamespace(" content-dashboard: "))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "jobs:snapshot", []byte("[]"), time.Minute))

	assert.True(t, srv.Exists("content-dashboard:jobs:snapshot"))
	assert.False(t, srv.Exists("jobs:snapshot"))

	got, err := repo.Get(ctx, "jobs:snapshot")
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), got)

	plain := NewRedisCacheRepo(client, WithNamespace(""))
	got, err = plain.Get(ctx, "jobs:snapshot")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCacheRepo_Validation(t *testing.T) {
	client, _ := testutil.SetupTestRedis(t)
	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	err := repo.Set(ctx, "", []byte("value"), time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key cannot be empty")

	_, err = repo.Get(ctx, "")
	assert.ErrorContains(t, err, "key cannot be empty")

	_, err = repo.Delete(ctx, "")
	assert.ErrorContains(t, err, "key cannot be empty")

	_, err = repo.Exists(ctx, "")
	assert.ErrorContains(t, err, "key cannot be empty")

	_, err = repo.SetTTL(ctx, "", time.Minute)
	assert.ErrorContains(t, err, "key cannot be empty")

	_, err = repo.SetIfNotExists(ctx, "", []byte("value"), time.Minute)
	assert.ErrorContains(t, err, "key cannot be empty")
}
