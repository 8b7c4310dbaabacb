package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/pubflow/pkg/adapters/redis"
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	store := redis.NewFromClient(client)
	ports.RunReportStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := setup(t)

	store := redis.NewFromClient(client, redis.WithTTL(time.Second), redis.WithPrefix("test:"))
	ctx := context.Background()

	report := domain.NewExecutionReport("run-ttl", "client", nil)
	report.StartedAt = time.Now()
	require.NoError(t, store.Save(ctx, report))
	assert.True(t, mr.Exists("test:report:run-ttl"))

	_, err := store.Load(ctx, "run-ttl")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "run-ttl")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestRedisStore_ListPrunesOldEntries(t *testing.T) {
	_, client := setup(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Hour))
	ctx := context.Background()

	old := domain.NewExecutionReport("old", "client", nil)
	old.StartedAt = time.Now().Add(-2 * time.Hour)
	fresh := domain.NewExecutionReport("fresh", "client", nil)
	fresh.StartedAt = time.Now()
	require.NoError(t, store.Save(ctx, old))
	require.NoError(t, store.Save(ctx, fresh))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, ids)
}
