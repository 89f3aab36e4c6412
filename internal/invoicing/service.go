package invoicing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rentledger/rentledger/internal/ledger"
)

// Poster is the slice of the posting engine the linker needs.
type Poster interface {
	Post(ctx context.Context, input ledger.PostingInput) (ledger.JournalEntry, error)
}

// AccountSource resolves the invoice posting account pair.
type AccountSource interface {
	InvoicePosting(ctx context.Context, tenantID uuid.UUID) (ledger.InvoicePostingAccounts, error)
}

// Service links invoices to balanced journal entries and drives bulk
// backfill over invoices that never got one.
type Service struct {
	repo     Repository
	accounts AccountSource
	poster   Poster
	logger   *slog.Logger

	batchSize  int
	batchDelay BatchDelay
}

// Option tweaks service construction.
type Option func(*Service)

// WithBatchSize overrides the default backfill batch size.
func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// NewService constructs the invoice linking service.
func NewService(repo Repository, accounts AccountSource, poster Poster, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		accounts:   accounts,
		poster:     poster,
		logger:     logger,
		batchSize:  defaultBatchSize,
		batchDelay: sleepDelay(defaultBatchDelay),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LinkInvoice posts the double entry for one invoice (debit receivable for
// the full amount against the customer, credit rental revenue against the
// invoice) and records the journal link onto the invoice in the same
// transaction. Linking an already-linked invoice fails with
// ledger.ErrAlreadyLinked and leaves the original link intact.
func (s *Service) LinkInvoice(ctx context.Context, inv Invoice) (uuid.UUID, error) {
	if inv.Linked() {
		return uuid.Nil, ledger.ErrAlreadyLinked
	}
	accounts, err := s.accounts.InvoicePosting(ctx, inv.TenantID)
	if err != nil {
		return uuid.Nil, err
	}
	input := ledger.PostingInput{
		TenantID:      inv.TenantID,
		Date:          inv.InvoiceDate,
		Description:   fmt.Sprintf("Rental invoice %s", inv.ID),
		ReferenceType: ledger.ReferenceInvoice,
		ReferenceID:   inv.ID,
		Lines: []ledger.PostingLineInput{
			{
				AccountID:     accounts.Receivable.ID,
				Debit:         inv.Amount,
				Description:   "Accounts receivable",
				ReferenceType: ledger.ReferenceCustomer,
				ReferenceID:   inv.CustomerID,
			},
			{
				AccountID:     accounts.Revenue.ID,
				Credit:        inv.Amount,
				Description:   "Rental revenue",
				ReferenceType: ledger.ReferenceInvoice,
				ReferenceID:   inv.ID,
			},
		},
		Link: &ledger.InvoiceLink{InvoiceID: inv.ID},
	}
	entry, err := s.poster.Post(ctx, input)
	if err != nil {
		return uuid.Nil, err
	}
	s.logger.Info("invoice linked",
		slog.String("tenant_id", inv.TenantID.String()),
		slog.String("invoice_id", inv.ID.String()),
		slog.String("entry_id", entry.ID.String()),
		slog.String("entry_number", entry.Number.String()))
	return entry.ID, nil
}

// LinkInvoiceByID loads the invoice and links it.
func (s *Service) LinkInvoiceByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (uuid.UUID, error) {
	inv, err := s.repo.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return uuid.Nil, err
	}
	return s.LinkInvoice(ctx, inv)
}
