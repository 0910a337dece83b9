package redisstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashup/internal/reconciliation/application"
	reconciliation "cashup/internal/reconciliation/domain"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestAutosave_RoundTrip(t *testing.T) {
	client := testClient(t)
	store, err := NewAutosave(client, WithKeyPrefix("cashup:test:"), WithTTL(time.Minute))
	require.NoError(t, err)
	ctx := context.Background()
	t.Cleanup(func() { _ = store.Clear(ctx, "emp-1") })

	got, err := store.Get(ctx, "emp-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	draft := application.Draft{
		ID:         "draft-1",
		Date:       "2024-03-02",
		TotalSales: decimal.RequireFromString("1012.50"),
		Registers:  []reconciliation.DenominationCount{{Notes: reconciliation.Notes{Fifties: 2}}},
	}
	require.NoError(t, store.Set(ctx, "emp-1", draft))

	got, err = store.Get(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "draft-1", got.ID)
	assert.True(t, got.TotalSales.Equal(draft.TotalSales))
	assert.Equal(t, int64(2), got.Registers[0].Notes.Fifties)

	require.NoError(t, store.Clear(ctx, "emp-1"))
	got, err = store.Get(ctx, "emp-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLocker_SecondHolderIsRefused(t *testing.T) {
	client := testClient(t)
	locker, err := NewLocker(client, 5*time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	err = locker.WithLock(ctx, "cashup:test:lock", func(ctx context.Context) error {
		inner := locker.WithLock(ctx, "cashup:test:lock", func(context.Context) error { return nil })
		assert.True(t, errors.Is(inner, ErrLocked))
		return nil
	})
	require.NoError(t, err)
}

func TestNewAutosave_NilClient(t *testing.T) {
	_, err := NewAutosave(nil)
	assert.Error(t, err)
	_, err = NewLocker(nil, 0)
	assert.Error(t, err)
}
