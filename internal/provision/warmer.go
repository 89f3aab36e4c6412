package provision

import (
	"context"
	"log/slog"
)

// Warmer precomputes recommendations so dashboard reads hit the cache.
type Warmer struct {
	repo       Repository
	calculator *Calculator
	cache      *Cache
	logger     *slog.Logger
}

// NewWarmer constructs the recommendation warmer.
func NewWarmer(repo Repository, calculator *Calculator, cache *Cache, logger *slog.Logger) *Warmer {
	return &Warmer{repo: repo, calculator: calculator, cache: cache, logger: logger}
}

// WarmRecommendations recomputes and caches the recommendation for every
// tenant with unpaid receivables. Per-tenant failures are logged and counted,
// not propagated; a broken tenant must not starve the rest.
func (w *Warmer) WarmRecommendations(ctx context.Context) (int, error) {
	tenants, err := w.repo.ListTenantsWithUnpaid(ctx)
	if err != nil {
		return 0, err
	}
	warmed := 0
	for _, tenantID := range tenants {
		if err := ctx.Err(); err != nil {
			return warmed, err
		}
		rec, err := w.calculator.Recommend(ctx, tenantID)
		if err != nil {
			w.logger.Warn("provision warmup failed",
				slog.String("tenant_id", tenantID.String()),
				slog.Any("error", err))
			continue
		}
		if err := w.cache.Set(ctx, tenantID, rec); err != nil {
			w.logger.Warn("provision warmup cache write",
				slog.String("tenant_id", tenantID.String()),
				slog.Any("error", err))
			continue
		}
		warmed++
	}
	return warmed, nil
}
