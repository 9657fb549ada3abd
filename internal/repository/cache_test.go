package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

func newTestCache(t *testing.T) (*RedisOrderCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := newRedisOrderCache(client, time.Minute)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestRedisOrderCacheRoundTrip(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, cache.Ping(ctx))

	orders, gen, err := cache.GetByBuyer(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, orders)
	assert.Zero(t, gen)

	want := []models.Order{{ID: 1, BuyerID: 7, ProductID: 3, Quantity: 2, UnitPrice: decimal.RequireFromString("4.50")}}
	require.NoError(t, cache.SetByBuyer(ctx, 7, gen, want))
	assert.Equal(t, time.Minute, mr.TTL("buyer_orders:7:0"))

	orders, gen, err = cache.GetByBuyer(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, gen)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(3), orders[0].ProductID)
	assert.True(t, orders[0].UnitPrice.Equal(decimal.RequireFromString("4.50")))
}

func TestRedisOrderCacheInvalidateOutdatesPendingWrite(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, readGen, err := cache.GetByBuyer(ctx, 7)
	require.NoError(t, err)

	require.NoError(t, cache.InvalidateBuyer(ctx, 7))

	// A history read before the invalidation is written back late.
	require.NoError(t, cache.SetByBuyer(ctx, 7, readGen, []models.Order{}))

	orders, gen, err := cache.GetByBuyer(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, orders)
	assert.Equal(t, int64(1), gen)

	require.NoError(t, cache.SetByBuyer(ctx, 7, gen, []models.Order{{ID: 9}}))
	orders, _, err = cache.GetByBuyer(ctx, 7)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	// Other buyers keep their generation.
	_, other, err := cache.GetByBuyer(ctx, 8)
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestNoopOrderCacheAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c OrderCache = NoopOrderCache{}

	require.NoError(t, c.SetByBuyer(ctx, 1, 0, []models.Order{{ID: 1}}))
	orders, gen, err := c.GetByBuyer(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, orders)
	assert.Zero(t, gen)
	assert.NoError(t, c.InvalidateBuyer(ctx, 1))
}
