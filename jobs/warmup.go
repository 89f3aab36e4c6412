package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/rentledger/rentledger/internal/jobs"
)

// RecommendationWarmer precomputes provision recommendations into the cache.
type RecommendationWarmer interface {
	WarmRecommendations(ctx context.Context) (int, error)
}

// HandleProvisionWarmupTask returns the Asynq handler for TaskTypeProvisionWarmup.
func HandleProvisionWarmupTask(warmer RecommendationWarmer, logger *slog.Logger, tracker *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		track := tracker.Track("provision_warmup")
		warmed, err := warmer.WarmRecommendations(ctx)
		if err != nil {
			return track.End(err)
		}
		logger.Info("provision warmup finished", slog.Int("tenants", warmed))
		return track.End(nil)
	}
}
