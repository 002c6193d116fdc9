package redisstore_test

import (
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/statepersist/pkg/persister"
	"github.com/dmitrymomot/statepersist/pkg/persister/redisstore"
	"github.com/dmitrymomot/statepersist/pkg/redis"
	"github.com/dmitrymomot/statepersist/pkg/statemachine"
)

const (
	Draft     = statemachine.StringState("draft")
	Published = statemachine.StringState("published")
	Archived  = statemachine.StringState("archived")
)

type Article struct {
	Slug   string  `fsm:"id"`
	Status *string `fsm:"state"`
}

func startRedis(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	ctx := t.Context()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(container))
	})

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := redis.Connect(ctx, redis.Config{
		ConnectionURL:  url,
		RetryAttempts:  5,
		RetryInterval:  time.Second,
		ConnectTimeout: 30 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, redis.Healthcheck(client)(ctx))
	return client
}

func TestStore_Redis(t *testing.T) {
	client := startRedis(t)
	store := redisstore.MustNew(client, redisstore.DefaultConfig())
	p, err := persister.New([]statemachine.State{Draft, Published, Archived}, Draft, persister.MustStructAccessor[*Article](), store)
	require.NoError(t, err)

	t.Run("first transition from unset state and stale second caller", func(t *testing.T) {
		ctx := t.Context()
		require.NoError(t, store.Insert(ctx, "hello-world", ""))

		stored, err := store.LoadState(ctx, "hello-world")
		require.NoError(t, err)
		assert.Empty(t, stored)

		first := &Article{Slug: "hello-world"}
		require.NoError(t, p.SetCurrent(ctx, first, Draft, Published))
		require.NotNil(t, first.Status)
		assert.Equal(t, "published", *first.Status)

		second := &Article{Slug: "hello-world"}
		err = p.SetCurrent(ctx, second, Draft, Published)
		require.True(t, statemachine.IsStaleStateError(err))
		require.NotNil(t, second.Status)
		assert.Equal(t, "published", *second.Status)

		stored, err = store.LoadState(ctx, "hello-world")
		require.NoError(t, err)
		assert.Equal(t, "published", stored)
	})

	t.Run("explicit state must match", func(t *testing.T) {
		ctx := t.Context()
		require.NoError(t, store.Insert(ctx, "explicit", "published"))

		n, err := store.UpdateState(ctx, persister.Update{ID: "explicit", Expected: "draft", MatchAbsent: true, Next: "archived"})
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = store.UpdateState(ctx, persister.Update{ID: "explicit", Expected: "published", Next: "archived"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("missing key", func(t *testing.T) {
		ctx := t.Context()
		_, err := store.LoadState(ctx, "missing")
		assert.ErrorIs(t, err, persister.ErrNotFound)

		n, err := store.UpdateState(ctx, persister.Update{ID: "missing", Expected: "draft", MatchAbsent: true, Next: "published"})
		require.NoError(t, err)
		assert.Zero(t, n)

		exists, err := client.Exists(ctx, store.Key("missing")).Result()
		require.NoError(t, err)
		assert.Zero(t, exists, "a failed transition must not create the key")
	})

	t.Run("concurrent callers", func(t *testing.T) {
		ctx := t.Context()
		require.NoError(t, store.Insert(ctx, "race", ""))

		var succeeded atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		for range 10 {
			g.Go(func() error {
				article := &Article{Slug: "race"}
				err := p.SetCurrent(gctx, article, Draft, Published)
				if err == nil {
					succeeded.Add(1)
					return nil
				}
				if statemachine.IsStaleStateError(err) {
					return nil
				}
				return err
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int64(1), succeeded.Load())
	})

	t.Run("delete", func(t *testing.T) {
		ctx := t.Context()
		require.NoError(t, store.Insert(ctx, "gone", "archived"))
		require.NoError(t, store.Delete(ctx, "gone"))
		_, err := store.LoadState(ctx, "gone")
		assert.ErrorIs(t, err, persister.ErrNotFound)
	})
}
