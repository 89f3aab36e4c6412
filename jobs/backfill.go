package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/rentledger/rentledger/internal/invoicing"
	jobmetrics "github.com/rentledger/rentledger/internal/jobs"
	"github.com/rentledger/rentledger/internal/observability"
)

// Backfiller is the slice of the invoicing service the backfill job needs.
type Backfiller interface {
	Backfill(ctx context.Context, tenantID uuid.UUID, batchSize int) (invoicing.BackfillResult, error)
	TenantsPendingBackfill(ctx context.Context) ([]uuid.UUID, error)
}

// HandleBackfillTask returns the Asynq handler for TaskTypeLedgerBackfill.
// An empty tenant ID in the payload runs the backfill for every tenant that
// still has unlinked invoices; the scheduler enqueues it that way.
func HandleBackfillTask(service Backfiller, logger *slog.Logger, metrics *observability.Metrics, tracker *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		track := tracker.Track("ledger_backfill")
		var payload BackfillPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return track.End(asynq.SkipRetry)
			}
		}

		var tenants []uuid.UUID
		if payload.TenantID != "" {
			tenantID, err := uuid.Parse(payload.TenantID)
			if err != nil {
				logger.Warn("backfill task has invalid tenant id", slog.String("tenant_id", payload.TenantID))
				return track.End(asynq.SkipRetry)
			}
			tenants = []uuid.UUID{tenantID}
		} else {
			var err error
			tenants, err = service.TenantsPendingBackfill(ctx)
			if err != nil {
				return track.End(err)
			}
		}

		for _, tenantID := range tenants {
			result, err := service.Backfill(ctx, tenantID, payload.BatchSize)
			metrics.AddBackfillInvoices("success", result.Success)
			metrics.AddBackfillInvoices("failed", result.Failed)
			metrics.AddBackfillInvoices("skipped", result.Skipped)
			if err != nil {
				return track.End(err)
			}
		}
		return track.End(nil)
	}
}
