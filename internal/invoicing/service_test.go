package invoicing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rentledger/rentledger/internal/ledger"
)

type memoryInvoiceRepo struct {
	invoices map[uuid.UUID]Invoice
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{invoices: make(map[uuid.UUID]Invoice)}
}

func (r *memoryInvoiceRepo) add(tenantID uuid.UUID, amount string, age time.Duration) Invoice {
	inv := Invoice{
		ID:          uuid.New(),
		TenantID:    tenantID,
		CustomerID:  uuid.New(),
		Amount:      decimal.RequireFromString(amount),
		InvoiceDate: time.Now().UTC().Add(-age),
	}
	r.invoices[inv.ID] = inv
	return inv
}

func (r *memoryInvoiceRepo) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (Invoice, error) {
	inv, ok := r.invoices[invoiceID]
	if !ok || inv.TenantID != tenantID {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (r *memoryInvoiceRepo) ListUnlinked(ctx context.Context, tenantID uuid.UUID) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		if inv.TenantID == tenantID && !inv.Linked() {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceDate.Before(out[j].InvoiceDate) })
	return out, nil
}

func (r *memoryInvoiceRepo) ListTenantsWithUnlinked(ctx context.Context) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, inv := range r.invoices {
		if !inv.Linked() && !seen[inv.TenantID] {
			seen[inv.TenantID] = true
			out = append(out, inv.TenantID)
		}
	}
	return out, nil
}

// fakePoster mimics the posting engine's link semantics against the in-memory
// invoice store: posting with a link marks the invoice linked, and linking an
// already-linked invoice fails without posting.
type fakePoster struct {
	repo    *memoryInvoiceRepo
	posted  []ledger.PostingInput
	failFor map[uuid.UUID]error
	next    int64
}

func (p *fakePoster) Post(ctx context.Context, input ledger.PostingInput) (ledger.JournalEntry, error) {
	if input.Link != nil {
		if err, ok := p.failFor[input.Link.InvoiceID]; ok {
			return ledger.JournalEntry{}, err
		}
		inv, ok := p.repo.invoices[input.Link.InvoiceID]
		if !ok {
			return ledger.JournalEntry{}, ledger.ErrInvoiceNotFound
		}
		if inv.Linked() {
			return ledger.JournalEntry{}, ledger.ErrAlreadyLinked
		}
		entryID := uuid.New()
		inv.JournalEntryID = &entryID
		p.repo.invoices[inv.ID] = inv
		p.posted = append(p.posted, input)
		p.next++
		return ledger.JournalEntry{ID: entryID, Number: ledger.EntryNumber(p.next)}, nil
	}
	p.posted = append(p.posted, input)
	p.next++
	return ledger.JournalEntry{ID: uuid.New(), Number: ledger.EntryNumber(p.next)}, nil
}

type fixedAccounts struct {
	receivable uuid.UUID
	revenue    uuid.UUID
	err        error
}

func (a fixedAccounts) InvoicePosting(ctx context.Context, tenantID uuid.UUID) (ledger.InvoicePostingAccounts, error) {
	if a.err != nil {
		return ledger.InvoicePostingAccounts{}, a.err
	}
	return ledger.InvoicePostingAccounts{
		Receivable: ledger.Account{ID: a.receivable, Code: ledger.CodeAccountsReceivable},
		Revenue:    ledger.Account{ID: a.revenue, Code: ledger.CodeRentalRevenue},
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noDelay(ctx context.Context) error { return ctx.Err() }

func newTestService(repo *memoryInvoiceRepo, poster *fakePoster, opts ...Option) *Service {
	accounts := fixedAccounts{receivable: uuid.New(), revenue: uuid.New()}
	opts = append([]Option{WithBatchDelayFunc(noDelay)}, opts...)
	return NewService(repo, accounts, poster, testLogger(), opts...)
}

func TestLinkInvoicePostsBalancedPair(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	poster := &fakePoster{repo: repo}
	accounts := fixedAccounts{receivable: uuid.New(), revenue: uuid.New()}
	svc := NewService(repo, accounts, poster, testLogger(), WithBatchDelayFunc(noDelay))

	tenantID := uuid.New()
	inv := repo.add(tenantID, "1500.00", time.Hour)

	entryID, err := svc.LinkInvoiceByID(context.Background(), tenantID, inv.ID)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, entryID)
	require.Len(t, poster.posted, 1)

	input := poster.posted[0]
	require.Equal(t, ledger.ReferenceInvoice, input.ReferenceType)
	require.Equal(t, inv.ID, input.ReferenceID)
	require.NotNil(t, input.Link)
	require.Equal(t, inv.ID, input.Link.InvoiceID)
	require.Len(t, input.Lines, 2)
	require.Equal(t, accounts.receivable, input.Lines[0].AccountID)
	require.True(t, input.Lines[0].Debit.Equal(inv.Amount))
	require.Equal(t, inv.CustomerID, input.Lines[0].ReferenceID)
	require.Equal(t, accounts.revenue, input.Lines[1].AccountID)
	require.True(t, input.Lines[1].Credit.Equal(inv.Amount))
}

func TestLinkInvoiceIsIdempotent(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	poster := &fakePoster{repo: repo}
	svc := newTestService(repo, poster)

	tenantID := uuid.New()
	inv := repo.add(tenantID, "880.50", time.Hour)

	first, err := svc.LinkInvoiceByID(context.Background(), tenantID, inv.ID)
	require.NoError(t, err)

	_, err = svc.LinkInvoiceByID(context.Background(), tenantID, inv.ID)
	require.ErrorIs(t, err, ledger.ErrAlreadyLinked)
	// The original link survives and nothing was posted twice.
	require.Len(t, poster.posted, 1)
	require.Equal(t, first, *repo.invoices[inv.ID].JournalEntryID)
}

func TestLinkInvoiceNotFound(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, &fakePoster{repo: repo})

	_, err := svc.LinkInvoiceByID(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestLinkInvoiceMissingAccounts(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	tenantID := uuid.New()
	inv := repo.add(tenantID, "100.00", time.Hour)

	accErr := &ledger.MissingAccountsError{TenantID: tenantID, Missing: []string{ledger.CodeRentalRevenue}}
	svc := NewService(repo, fixedAccounts{err: accErr}, &fakePoster{repo: repo}, testLogger(), WithBatchDelayFunc(noDelay))

	_, err := svc.LinkInvoiceByID(context.Background(), tenantID, inv.ID)
	var missing *ledger.MissingAccountsError
	require.ErrorAs(t, err, &missing)
	require.False(t, repo.invoices[inv.ID].Linked())
}

func TestBackfillLinksEverything(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	poster := &fakePoster{repo: repo}
	svc := newTestService(repo, poster)

	tenantID := uuid.New()
	for i := 0; i < 7; i++ {
		repo.add(tenantID, "100.00", time.Duration(i)*time.Hour)
	}

	result, err := svc.Backfill(context.Background(), tenantID, 3)
	require.NoError(t, err)
	require.Equal(t, 7, result.Total)
	require.Equal(t, 7, result.Success)
	require.Zero(t, result.Failed)
	require.Zero(t, result.Skipped)
	require.Equal(t, result.Total, result.Success+result.Failed+result.Skipped)

	unlinked, err := repo.ListUnlinked(context.Background(), tenantID)
	require.NoError(t, err)
	require.Empty(t, unlinked)
}

func TestBackfillProcessesOldestFirst(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	poster := &fakePoster{repo: repo}
	svc := newTestService(repo, poster)

	tenantID := uuid.New()
	newest := repo.add(tenantID, "10.00", time.Hour)
	oldest := repo.add(tenantID, "20.00", 72*time.Hour)

	_, err := svc.Backfill(context.Background(), tenantID, 10)
	require.NoError(t, err)
	require.Len(t, poster.posted, 2)
	require.Equal(t, oldest.ID, poster.posted[0].Link.InvoiceID)
	require.Equal(t, newest.ID, poster.posted[1].Link.InvoiceID)
}

func TestBackfillCountsFailuresWithoutStopping(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	poster := &fakePoster{repo: repo, failFor: map[uuid.UUID]error{}}
	svc := newTestService(repo, poster)

	tenantID := uuid.New()
	bad := repo.add(tenantID, "100.00", 3*time.Hour)
	poster.failFor[bad.ID] = errors.New("account lookup failed")
	repo.add(tenantID, "100.00", 2*time.Hour)
	repo.add(tenantID, "100.00", time.Hour)

	result, err := svc.Backfill(context.Background(), tenantID, 2)
	require.NoError(t, err)
	require.Equal(t, 3, result.Total)
	require.Equal(t, 2, result.Success)
	require.Equal(t, 1, result.Failed)

	// The failed invoice stays unlinked and is picked up by the next run.
	delete(poster.failFor, bad.ID)
	rerun, err := svc.Backfill(context.Background(), tenantID, 2)
	require.NoError(t, err)
	require.Equal(t, 1, rerun.Total)
	require.Equal(t, 1, rerun.Success)
}

func TestBackfillSkipsConcurrentlyLinked(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	poster := &fakePoster{repo: repo, failFor: map[uuid.UUID]error{}}
	svc := newTestService(repo, poster)

	tenantID := uuid.New()
	raced := repo.add(tenantID, "100.00", 2*time.Hour)
	poster.failFor[raced.ID] = ledger.ErrAlreadyLinked
	repo.add(tenantID, "100.00", time.Hour)

	result, err := svc.Backfill(context.Background(), tenantID, 10)
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	require.Equal(t, 1, result.Success)
	require.Equal(t, 1, result.Skipped)
	require.Zero(t, result.Failed)
}

func TestBackfillRerunFindsNothing(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, &fakePoster{repo: repo})

	tenantID := uuid.New()
	repo.add(tenantID, "100.00", time.Hour)

	_, err := svc.Backfill(context.Background(), tenantID, 10)
	require.NoError(t, err)

	rerun, err := svc.Backfill(context.Background(), tenantID, 10)
	require.NoError(t, err)
	require.Zero(t, rerun.Total)
	require.Zero(t, rerun.Success)
}

func TestBackfillPausesBetweenBatchesOnly(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	poster := &fakePoster{repo: repo}

	delays := 0
	counting := func(ctx context.Context) error {
		delays++
		return ctx.Err()
	}
	accounts := fixedAccounts{receivable: uuid.New(), revenue: uuid.New()}
	svc := NewService(repo, accounts, poster, testLogger(), WithBatchDelayFunc(counting))

	tenantID := uuid.New()
	for i := 0; i < 5; i++ {
		repo.add(tenantID, "100.00", time.Duration(i)*time.Hour)
	}

	_, err := svc.Backfill(context.Background(), tenantID, 2)
	require.NoError(t, err)
	// Three batches of 2+2+1, so two pauses: never after the last batch.
	require.Equal(t, 2, delays)
}

func TestBackfillStopsOnCancelledContext(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	poster := &fakePoster{repo: repo}

	ctx, cancel := context.WithCancel(context.Background())
	cancelling := func(c context.Context) error {
		cancel()
		return c.Err()
	}
	accounts := fixedAccounts{receivable: uuid.New(), revenue: uuid.New()}
	svc := NewService(repo, accounts, poster, testLogger(), WithBatchDelayFunc(cancelling))

	tenantID := uuid.New()
	for i := 0; i < 4; i++ {
		repo.add(tenantID, "100.00", time.Duration(i)*time.Hour)
	}

	result, err := svc.Backfill(ctx, tenantID, 2)
	require.ErrorIs(t, err, context.Canceled)
	// The first batch completed before the interruption.
	require.Equal(t, 2, result.Success)
	require.Equal(t, 4, result.Total)
}

func TestTenantsPendingBackfill(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, &fakePoster{repo: repo})

	tenantA := uuid.New()
	repo.add(tenantA, "100.00", time.Hour)
	tenantB := uuid.New()
	inv := repo.add(tenantB, "100.00", time.Hour)
	entryID := uuid.New()
	inv.JournalEntryID = &entryID
	repo.invoices[inv.ID] = inv

	tenants, err := svc.TenantsPendingBackfill(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{tenantA}, tenants)
}
