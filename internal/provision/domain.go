package provision

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivableStatus values this package cares about.
const StatusPaid = "PAID"

// Receivable is the read-only view of an unpaid rental receivable used for
// provision estimation. Owned by the billing subsystem.
type Receivable struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	RentalAmount decimal.Decimal
	FineAmount   decimal.Decimal
	AmountPaid   decimal.Decimal
	DueDate      time.Time
	Status       string
}

// Balance is the outstanding amount: rental plus fines minus what was paid.
func (r Receivable) Balance() decimal.Decimal {
	return r.RentalAmount.Add(r.FineAmount).Sub(r.AmountPaid)
}

// AgingCategory labels a days-overdue bucket.
type AgingCategory string

const (
	Aging0To30   AgingCategory = "0-30"
	Aging31To60  AgingCategory = "31-60"
	Aging61To90  AgingCategory = "61-90"
	Aging91To180 AgingCategory = "91-180"
	Aging180Plus AgingCategory = "180+"
)

// agingBucket pairs a bucket upper bound (inclusive, in days overdue) with
// its provision rate.
type agingBucket struct {
	category AgingCategory
	maxDays  int
	rate     decimal.Decimal
}

// Bucket boundaries and rates follow the house provisioning policy.
var agingBuckets = []agingBucket{
	{category: Aging0To30, maxDays: 30, rate: decimal.NewFromFloat(0.01)},
	{category: Aging31To60, maxDays: 60, rate: decimal.NewFromFloat(0.05)},
	{category: Aging61To90, maxDays: 90, rate: decimal.NewFromFloat(0.10)},
	{category: Aging91To180, maxDays: 180, rate: decimal.NewFromFloat(0.25)},
	{category: Aging180Plus, maxDays: -1, rate: decimal.NewFromFloat(0.50)},
}

// classify maps whole days overdue to its bucket. Receivables not yet due
// fall into the first bucket.
func classify(daysOverdue int) agingBucket {
	for _, b := range agingBuckets {
		if b.maxDays >= 0 && daysOverdue <= b.maxDays {
			return b
		}
	}
	return agingBuckets[len(agingBuckets)-1]
}

// BreakdownEntry is one aging bucket's contribution to the recommendation.
// Ephemeral, for reporting only.
type BreakdownEntry struct {
	Category           AgingCategory   `json:"aging_category"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	Rate               decimal.Decimal `json:"rate"`
	Provision          decimal.Decimal `json:"provision_amount"`
}

// Recommendation is the calculator output: the total recommended bad-debt
// provision and its per-bucket breakdown.
type Recommendation struct {
	Amount    decimal.Decimal  `json:"amount"`
	Breakdown []BreakdownEntry `json:"breakdown"`
}
