package provision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentledger/rentledger/internal/ledger"
)

// ErrInvalidAmount rejects non-positive provision or write-off amounts.
var ErrInvalidAmount = errors.New("provision: amount must be positive")

// LedgerPoster is the slice of the posting engine the poster needs.
type LedgerPoster interface {
	Post(ctx context.Context, input ledger.PostingInput) (ledger.JournalEntry, error)
}

// AccountSource resolves the fixed account pairs for provision postings.
type AccountSource interface {
	Provision(ctx context.Context, tenantID uuid.UUID) (ledger.ProvisionAccounts, error)
	WriteOff(ctx context.Context, tenantID uuid.UUID) (ledger.WriteOffAccounts, error)
}

// Poster creates the two fixed-shape bad-debt postings: provision creation
// and debt write-off. Both fail without partial effect when a required
// account is missing.
type Poster struct {
	accounts AccountSource
	poster   LedgerPoster
	logger   *slog.Logger
	now      func() time.Time
}

// NewPoster constructs the provision poster.
func NewPoster(accounts AccountSource, poster LedgerPoster, logger *slog.Logger) *Poster {
	return &Poster{accounts: accounts, poster: poster, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (p *Poster) WithNow(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// CreateProvision posts debit bad-debt expense / credit allowance for
// doubtful accounts.
func (p *Poster) CreateProvision(ctx context.Context, tenantID uuid.UUID, amount decimal.Decimal, description string) (ledger.JournalEntry, error) {
	if !amount.IsPositive() {
		return ledger.JournalEntry{}, ErrInvalidAmount
	}
	accounts, err := p.accounts.Provision(ctx, tenantID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	entry, err := p.poster.Post(ctx, ledger.PostingInput{
		TenantID:      tenantID,
		Date:          p.now().UTC(),
		Description:   description,
		ReferenceType: ledger.ReferenceProvision,
		Lines: []ledger.PostingLineInput{
			{AccountID: accounts.Expense.ID, Debit: amount, Description: "Bad debt expense"},
			{AccountID: accounts.Allowance.ID, Credit: amount, Description: "Allowance for doubtful accounts"},
		},
	})
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	p.logger.Info("provision posted",
		slog.String("tenant_id", tenantID.String()),
		slog.String("entry_number", entry.Number.String()),
		slog.String("amount", amount.StringFixed(2)))
	return entry, nil
}

// WriteOff posts debit allowance / credit accounts receivable for a
// customer's uncollectable debt.
func (p *Poster) WriteOff(ctx context.Context, tenantID, customerID uuid.UUID, amount decimal.Decimal, description string) (ledger.JournalEntry, error) {
	if !amount.IsPositive() {
		return ledger.JournalEntry{}, ErrInvalidAmount
	}
	accounts, err := p.accounts.WriteOff(ctx, tenantID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	entry, err := p.poster.Post(ctx, ledger.PostingInput{
		TenantID:      tenantID,
		Date:          p.now().UTC(),
		Description:   description,
		ReferenceType: ledger.ReferenceCustomer,
		ReferenceID:   customerID,
		Lines: []ledger.PostingLineInput{
			{AccountID: accounts.Allowance.ID, Debit: amount, Description: "Allowance for doubtful accounts", ReferenceType: ledger.ReferenceCustomer, ReferenceID: customerID},
			{AccountID: accounts.Receivable.ID, Credit: amount, Description: "Accounts receivable write-off", ReferenceType: ledger.ReferenceCustomer, ReferenceID: customerID},
		},
	})
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	p.logger.Info("write-off posted",
		slog.String("tenant_id", tenantID.String()),
		slog.String("customer_id", customerID.String()),
		slog.String("entry_number", entry.Number.String()),
		slog.String("amount", amount.StringFixed(2)))
	return entry, nil
}
