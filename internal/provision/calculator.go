package provision

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Calculator estimates the recommended bad-debt provision from the tenant's
// unpaid receivables. Pure read and compute, no writes.
type Calculator struct {
	repo Repository
	now  func() time.Time
}

// NewCalculator constructs the calculator.
func NewCalculator(repo Repository) *Calculator {
	return &Calculator{repo: repo, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (c *Calculator) WithNow(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Recommend buckets every unpaid receivable by whole days overdue, applies
// the bucket rate to its outstanding balance, and sums the buckets into the
// recommended amount rounded to two decimal places.
func (c *Calculator) Recommend(ctx context.Context, tenantID uuid.UUID) (Recommendation, error) {
	receivables, err := c.repo.ListUnpaid(ctx, tenantID)
	if err != nil {
		return Recommendation{}, err
	}
	asOf := c.now().UTC()

	totals := make(map[AgingCategory]*BreakdownEntry, len(agingBuckets))
	for _, rec := range receivables {
		balance := rec.Balance()
		if !balance.IsPositive() {
			continue
		}
		days := wholeDays(asOf.Sub(rec.DueDate))
		bucket := classify(days)
		entry, ok := totals[bucket.category]
		if !ok {
			entry = &BreakdownEntry{Category: bucket.category, Rate: bucket.rate}
			totals[bucket.category] = entry
		}
		entry.OutstandingBalance = entry.OutstandingBalance.Add(balance)
		entry.Provision = entry.Provision.Add(balance.Mul(bucket.rate))
	}

	rec := Recommendation{Amount: decimal.Zero}
	// Breakdown is reported in bucket order, empty buckets omitted.
	for _, b := range agingBuckets {
		entry, ok := totals[b.category]
		if !ok {
			continue
		}
		entry.Provision = entry.Provision.Round(2)
		rec.Breakdown = append(rec.Breakdown, *entry)
		rec.Amount = rec.Amount.Add(entry.Provision)
	}
	rec.Amount = rec.Amount.Round(2)
	return rec, nil
}

func wholeDays(d time.Duration) int {
	return int(d.Hours() / 24)
}
