package provision

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, ttl), mr
}

func sampleRecommendation() Recommendation {
	return Recommendation{
		Amount: decimal.RequireFromString("210.00"),
		Breakdown: []BreakdownEntry{{
			Category:           Aging61To90,
			OutstandingBalance: decimal.RequireFromString("2000.00"),
			Rate:               decimal.RequireFromString("0.1"),
			Provision:          decimal.RequireFromString("200.00"),
		}},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	tenantID := uuid.New()
	ctx := context.Background()

	_, hit, err := cache.Get(ctx, tenantID)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, cache.Set(ctx, tenantID, sampleRecommendation()))

	got, hit, err := cache.Get(ctx, tenantID)
	require.NoError(t, err)
	require.True(t, hit)
	require.True(t, got.Amount.Equal(decimal.RequireFromString("210.00")))
	require.Len(t, got.Breakdown, 1)
	require.Equal(t, Aging61To90, got.Breakdown[0].Category)
}

func TestCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	tenantID := uuid.New()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, tenantID, sampleRecommendation()))
	require.NoError(t, cache.Invalidate(ctx, tenantID))

	_, hit, err := cache.Get(ctx, tenantID)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestCacheExpires(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	tenantID := uuid.New()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, tenantID, sampleRecommendation()))
	mr.FastForward(2 * time.Minute)

	_, hit, err := cache.Get(ctx, tenantID)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestCacheNilClientIsNoop(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	tenantID := uuid.New()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, tenantID, sampleRecommendation()))
	_, hit, err := cache.Get(ctx, tenantID)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, cache.Invalidate(ctx, tenantID))
}
