package provision

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestWarmRecommendationsFillsCache(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()
	repo := &memoryReceivableRepo{receivables: []Receivable{
		receivable(tenantA, "1000.00", 10),
		receivable(tenantB, "2000.00", 70),
	}}
	calc := newTestCalculator(repo)
	cache, _ := newTestCache(t, time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	warmer := NewWarmer(repo, calc, cache, logger)

	warmed, err := warmer.WarmRecommendations(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, warmed)

	rec, hit, err := cache.Get(context.Background(), tenantA)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "10.00", rec.Amount.StringFixed(2))

	rec, hit, err = cache.Get(context.Background(), tenantB)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "200.00", rec.Amount.StringFixed(2))
}

func TestWarmRecommendationsNothingUnpaid(t *testing.T) {
	repo := &memoryReceivableRepo{}
	calc := newTestCalculator(repo)
	cache, _ := newTestCache(t, time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	warmer := NewWarmer(repo, calc, cache, logger)

	warmed, err := warmer.WarmRecommendations(context.Background())
	require.NoError(t, err)
	require.Zero(t, warmed)
}
