package invoicing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInvoiceNotFound indicates a missing invoice.
var ErrInvoiceNotFound = errors.New("invoicing: invoice not found")

// Repository provides read access to invoices. Linking is done inside the
// ledger posting transaction, not here.
type Repository interface {
	GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (Invoice, error)
	// ListUnlinked returns invoices without a journal entry, oldest first so
	// backfilled entry numbers follow document chronology.
	ListUnlinked(ctx context.Context, tenantID uuid.UUID) ([]Invoice, error)
	// ListTenantsWithUnlinked returns tenants that still have unlinked
	// invoices, used by the scheduled backfill job.
	ListTenantsWithUnlinked(ctx context.Context) ([]uuid.UUID, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed invoice repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (Invoice, error) {
	row := r.db.QueryRow(ctx, `SELECT id, tenant_id, customer_id, amount, invoice_date, journal_entry_id, created_at, updated_at
FROM invoices WHERE tenant_id=$1 AND id=$2`, tenantID, invoiceID)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

func (r *repository) ListUnlinked(ctx context.Context, tenantID uuid.UUID) ([]Invoice, error) {
	rows, err := r.db.Query(ctx, `SELECT id, tenant_id, customer_id, amount, invoice_date, journal_entry_id, created_at, updated_at
FROM invoices WHERE tenant_id=$1 AND journal_entry_id IS NULL ORDER BY invoice_date ASC, id ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *repository) ListTenantsWithUnlinked(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT tenant_id FROM invoices WHERE journal_entry_id IS NULL`)
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

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.CustomerID, &inv.Amount, &inv.InvoiceDate, &inv.JournalEntryID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}
