package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	jobmetrics "github.com/rentledger/rentledger/internal/jobs"
)

// HandleIntegrityTask returns the Asynq handler for TaskTypeLedgerIntegrity.
// It sweeps every posted entry and reports any whose line sums disagree with
// each other or with the stored header totals. The posting path makes this
// impossible to produce, so any hit points at manual data surgery.
func HandleIntegrityTask(pool *pgxpool.Pool, logger *slog.Logger, tracker *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		track := tracker.Track("ledger_integrity")
		rows, err := pool.Query(ctx, `SELECT e.tenant_id, e.id, e.entry_number, e.total_debit, e.total_credit,
COALESCE(SUM(l.debit), 0) AS line_debit, COALESCE(SUM(l.credit), 0) AS line_credit
FROM journal_entries e
LEFT JOIN journal_lines l ON l.entry_id = e.id
GROUP BY e.tenant_id, e.id, e.entry_number, e.total_debit, e.total_credit
HAVING COALESCE(SUM(l.debit), 0) <> COALESCE(SUM(l.credit), 0)
   OR COALESCE(SUM(l.debit), 0) <> e.total_debit
   OR COALESCE(SUM(l.credit), 0) <> e.total_credit`)
		if err != nil {
			return track.End(err)
		}
		defer rows.Close()

		found := 0
		for rows.Next() {
			var tenantID, entryID string
			var number int64
			var totalDebit, totalCredit, lineDebit, lineCredit decimal.Decimal
			if err := rows.Scan(&tenantID, &entryID, &number, &totalDebit, &totalCredit, &lineDebit, &lineCredit); err != nil {
				return track.End(err)
			}
			found++
			tracker.AddImbalances(tenantID, 1)
			logger.Warn("unbalanced journal entry detected",
				slog.String("tenant_id", tenantID),
				slog.String("entry_id", entryID),
				slog.Int64("entry_number", number),
				slog.String("total_debit", totalDebit.StringFixed(2)),
				slog.String("total_credit", totalCredit.StringFixed(2)),
				slog.String("line_debit", lineDebit.StringFixed(2)),
				slog.String("line_credit", lineCredit.StringFixed(2)))
		}
		if err := rows.Err(); err != nil {
			return track.End(err)
		}
		if found == 0 {
			logger.Info("ledger integrity check clean")
		}
		return track.End(nil)
	}
}
