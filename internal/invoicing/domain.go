package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is the source document this package links into the ledger. A nil
// JournalEntryID means "not yet posted"; once set it is never overwritten.
type Invoice struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	CustomerID     uuid.UUID
	Amount         decimal.Decimal
	InvoiceDate    time.Time
	JournalEntryID *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Linked reports whether the invoice already carries a journal entry.
func (i Invoice) Linked() bool {
	return i.JournalEntryID != nil
}

// BackfillResult aggregates the outcome of one backfill run. Total is the
// count of unlinked invoices discovered at scan time; Skipped counts
// invoices another process linked while the run was in flight.
type BackfillResult struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}
