package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/rentledger/rentledger/internal/invoicing"
	jobmetrics "github.com/rentledger/rentledger/internal/jobs"
	"github.com/rentledger/rentledger/internal/observability"
)

type stubBackfiller struct {
	pending []uuid.UUID
	results map[uuid.UUID]invoicing.BackfillResult
	err     error
	calls   []uuid.UUID
}

func (s *stubBackfiller) Backfill(ctx context.Context, tenantID uuid.UUID, batchSize int) (invoicing.BackfillResult, error) {
	s.calls = append(s.calls, tenantID)
	return s.results[tenantID], s.err
}

func (s *stubBackfiller) TenantsPendingBackfill(ctx context.Context) ([]uuid.UUID, error) {
	return s.pending, nil
}

func newBackfillHandler(service Backfiller) asynq.HandlerFunc {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()
	tracker := jobmetrics.NewMetrics(metrics.Registerer())
	return HandleBackfillTask(service, logger, metrics, tracker)
}

func TestBackfillTaskSingleTenant(t *testing.T) {
	tenantID := uuid.New()
	service := &stubBackfiller{results: map[uuid.UUID]invoicing.BackfillResult{
		tenantID: {Success: 3, Total: 3},
	}}
	handler := newBackfillHandler(service)

	task, err := NewBackfillTask(BackfillPayload{TenantID: tenantID.String(), BatchSize: 10})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, []uuid.UUID{tenantID}, service.calls)
}

func TestBackfillTaskFansOutToPendingTenants(t *testing.T) {
	tenants := []uuid.UUID{uuid.New(), uuid.New()}
	service := &stubBackfiller{pending: tenants, results: map[uuid.UUID]invoicing.BackfillResult{}}
	handler := newBackfillHandler(service)

	task, err := NewBackfillTask(BackfillPayload{})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, tenants, service.calls)
}

func TestBackfillTaskInvalidTenantSkipsRetry(t *testing.T) {
	service := &stubBackfiller{}
	handler := newBackfillHandler(service)

	task, err := NewBackfillTask(BackfillPayload{TenantID: "not-a-uuid"})
	require.NoError(t, err)
	err = handler(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, service.calls)
}

func TestBackfillTaskPropagatesFailure(t *testing.T) {
	tenantID := uuid.New()
	service := &stubBackfiller{
		results: map[uuid.UUID]invoicing.BackfillResult{},
		err:     errors.New("database unavailable"),
	}
	handler := newBackfillHandler(service)

	task, err := NewBackfillTask(BackfillPayload{TenantID: tenantID.String()})
	require.NoError(t, err)
	require.Error(t, handler(context.Background(), task))
}

func TestBackfillPayloadRoundTrip(t *testing.T) {
	tenantID := uuid.New()
	task, err := NewBackfillTask(BackfillPayload{TenantID: tenantID.String(), BatchSize: 25})
	require.NoError(t, err)
	require.Equal(t, TaskTypeLedgerBackfill, task.Type())

	var payload BackfillPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, tenantID.String(), payload.TenantID)
	require.Equal(t, 25, payload.BatchSize)
}
