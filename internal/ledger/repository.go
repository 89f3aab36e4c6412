package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentledger/rentledger/internal/platform/db"
)

// Repository encapsulates DB operations for the ledger.
type Repository interface {
	ListEntries(ctx context.Context, tenantID uuid.UUID) ([]JournalEntry, error)
	GetEntryWithLines(ctx context.Context, tenantID, entryID uuid.UUID) (JournalEntry, error)
	// Tx operations are exposed via specific service methods.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a posting transaction.
type TxRepository interface {
	// NextEntryNumber reads max(entry_number)+1 for the tenant. The value is
	// only reserved once InsertEntry commits; the unique constraint on
	// (tenant_id, entry_number) turns concurrent allocation into
	// ErrNumberConflict, which the service retries.
	NextEntryNumber(ctx context.Context, tenantID uuid.UUID) (EntryNumber, error)
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error

	// LinkInvoice records the journal link onto an invoice, but only while
	// the invoice is still unlinked. Needed here for transaction context:
	// the link must commit or roll back together with the entry itself.
	LinkInvoice(ctx context.Context, tenantID, invoiceID, entryID uuid.UUID) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed ledger repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListEntries(ctx context.Context, tenantID uuid.UUID) ([]JournalEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, tenant_id, entry_number, entry_date, status, description, reference_type, reference_id, total_debit, total_credit, created_at, updated_at
FROM journal_entries WHERE tenant_id=$1 ORDER BY entry_number DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) GetEntryWithLines(ctx context.Context, tenantID, entryID uuid.UUID) (JournalEntry, error) {
	row := r.db.QueryRow(ctx, `SELECT id, tenant_id, entry_number, entry_date, status, description, reference_type, reference_id, total_debit, total_credit, created_at, updated_at
FROM journal_entries WHERE tenant_id=$1 AND id=$2`, tenantID, entryID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, entry_id, line_number, account_id, debit, credit, description, reference_type, reference_id
FROM journal_lines WHERE entry_id=$1 ORDER BY line_number ASC`, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.LineNumber, &line.AccountID, &line.Debit, &line.Credit, &line.Description, &line.ReferenceType, &line.ReferenceID); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) NextEntryNumber(ctx context.Context, tenantID uuid.UUID) (EntryNumber, error) {
	var next int64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(entry_number), 0) + 1 FROM journal_entries WHERE tenant_id=$1`, tenantID).Scan(&next)
	if err != nil {
		return 0, err
	}
	return EntryNumber(next), nil
}

func (r *txRepository) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (id, tenant_id, entry_number, entry_date, status, description, reference_type, reference_id, total_debit, total_credit)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING created_at, updated_at`,
		entry.ID, entry.TenantID, int64(entry.Number), entry.Date, entry.Status, entry.Description, entry.ReferenceType, entry.ReferenceID, entry.TotalDebit, entry.TotalCredit)
	if err := row.Scan(&entry.CreatedAt, &entry.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_journal_entries_tenant_number" {
			return JournalEntry{}, ErrNumberConflict
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, line_number, account_id, debit, credit, description, reference_type, reference_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			entryID, line.LineNumber, line.AccountID, line.Debit, line.Credit, line.Description, line.ReferenceType, line.ReferenceID); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) LinkInvoice(ctx context.Context, tenantID, invoiceID, entryID uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE invoices SET journal_entry_id=$3, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 AND journal_entry_id IS NULL`, tenantID, invoiceID, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// Either the invoice is gone or another caller linked it first.
		var exists bool
		if err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE tenant_id=$1 AND id=$2)`, tenantID, invoiceID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrInvoiceNotFound
		}
		return ErrAlreadyLinked
	}
	return nil
}

// scanEntry works for both pgx.Row and pgx.Rows.
func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	var number int64
	err := row.Scan(&e.ID, &e.TenantID, &number, &e.Date, &e.Status, &e.Description, &e.ReferenceType, &e.ReferenceID, &e.TotalDebit, &e.TotalCredit, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return JournalEntry{}, err
	}
	e.Number = EntryNumber(number)
	return e, nil
}

// accountRepository is the pgx-backed chart of accounts reader.
type accountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository constructs the account reader.
func NewAccountRepository(db *pgxpool.Pool) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) FindActiveByCodes(ctx context.Context, tenantID uuid.UUID, codes []string) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, tenant_id, code, name, is_active, created_at, updated_at
FROM accounts WHERE tenant_id=$1 AND code = ANY($2) AND is_active`, tenantID, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
