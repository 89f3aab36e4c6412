package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLedgerBackfill links historical invoices to journal entries.
	TaskTypeLedgerBackfill = "ledger:backfill"
	// TaskTypeLedgerIntegrity verifies that posted entries stay balanced.
	TaskTypeLedgerIntegrity = "ledger:integrity"
	// TaskTypeProvisionWarmup precomputes provision recommendations.
	TaskTypeProvisionWarmup = "provision:warmup"
)

// BackfillPayload identifies the tenant whose invoices should be linked.
type BackfillPayload struct {
	TenantID  string `json:"tenant_id"`
	BatchSize int    `json:"batch_size,omitempty"`
}

// NewBackfillTask constructs an Asynq task for a tenant backfill run.
func NewBackfillTask(payload BackfillPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLedgerBackfill, data), nil
}

// NewIntegrityTask constructs the ledger integrity check task.
func NewIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskTypeLedgerIntegrity, nil)
}

// NewProvisionWarmupTask constructs the recommendation warmup task.
func NewProvisionWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeProvisionWarmup, nil)
}
