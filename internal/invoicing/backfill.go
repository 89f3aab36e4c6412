package invoicing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rentledger/rentledger/internal/ledger"
)

const (
	defaultBatchSize  = 50
	defaultBatchDelay = time.Second
)

// BatchDelay pauses between backfill batches. The default sleeps for a fixed
// interval to bound load on the store; tests replace it.
type BatchDelay func(ctx context.Context) error

func sleepDelay(d time.Duration) BatchDelay {
	return func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

// WithBatchDelay overrides the inter-batch pause.
func WithBatchDelay(d time.Duration) Option {
	return func(s *Service) {
		s.batchDelay = sleepDelay(d)
	}
}

// WithBatchDelayFunc injects a custom pause, used by tests.
func WithBatchDelayFunc(fn BatchDelay) Option {
	return func(s *Service) {
		if fn != nil {
			s.batchDelay = fn
		}
	}
}

// Backfill scans the tenant for invoices without a journal link and links
// them in sequential batches, oldest invoice first. Per-invoice failures are
// counted, never propagated: one bad invoice must not halt the run. The
// returned result is valid even when the context is cancelled between
// batches; rerunning is safe because linked invoices drop out of the scan.
func (s *Service) Backfill(ctx context.Context, tenantID uuid.UUID, batchSize int) (BackfillResult, error) {
	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	invoices, err := s.repo.ListUnlinked(ctx, tenantID)
	if err != nil {
		return BackfillResult{}, err
	}
	result := BackfillResult{Total: len(invoices)}
	logger := s.logger.With(
		slog.String("tenant_id", tenantID.String()),
		slog.Int("total", result.Total),
		slog.Int("batch_size", batchSize))
	logger.Info("backfill started")

	for start := 0; start < len(invoices); start += batchSize {
		end := start + batchSize
		if end > len(invoices) {
			end = len(invoices)
		}
		for _, inv := range invoices[start:end] {
			switch _, err := s.LinkInvoice(ctx, inv); {
			case err == nil:
				result.Success++
			case errors.Is(err, ledger.ErrAlreadyLinked):
				// Another process got there first; not a failure.
				result.Skipped++
			default:
				result.Failed++
				logger.Warn("backfill invoice failed",
					slog.String("invoice_id", inv.ID.String()),
					slog.Any("error", err))
			}
		}
		if end < len(invoices) {
			if err := s.batchDelay(ctx); err != nil {
				logger.Info("backfill interrupted",
					slog.Int("success", result.Success),
					slog.Int("failed", result.Failed),
					slog.Int("skipped", result.Skipped))
				return result, err
			}
		}
	}

	logger.Info("backfill finished",
		slog.Int("success", result.Success),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped))
	return result, nil
}

// TenantsPendingBackfill lists tenants that still have unlinked invoices.
func (s *Service) TenantsPendingBackfill(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListTenantsWithUnlinked(ctx)
}
