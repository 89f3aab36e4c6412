package provision

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides read access to receivables for provision estimation.
type Repository interface {
	ListUnpaid(ctx context.Context, tenantID uuid.UUID) ([]Receivable, error)
	ListTenantsWithUnpaid(ctx context.Context) ([]uuid.UUID, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed receivable reader.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListUnpaid(ctx context.Context, tenantID uuid.UUID) ([]Receivable, error) {
	rows, err := r.db.Query(ctx, `SELECT id, tenant_id, rental_amount, fine_amount, amount_paid, due_date, status
FROM receivables WHERE tenant_id=$1 AND status <> $2`, tenantID, StatusPaid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var receivables []Receivable
	for rows.Next() {
		var rec Receivable
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.RentalAmount, &rec.FineAmount, &rec.AmountPaid, &rec.DueDate, &rec.Status); err != nil {
			return nil, err
		}
		receivables = append(receivables, rec)
	}
	return receivables, rows.Err()
}

func (r *repository) ListTenantsWithUnpaid(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT tenant_id FROM receivables WHERE status <> $1`, StatusPaid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tenants []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}
