package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// numberRetries bounds how often a posting transaction is replayed after a
// concurrent caller wins the same entry number.
const numberRetries = 3

// PostingRecorder observes successful postings, typically for metrics.
type PostingRecorder interface {
	AddPostedEntry(referenceType string)
}

// Service is the posting engine: it turns a validated set of lines into one
// journal entry header plus its lines, atomically.
type Service struct {
	repo     Repository
	logger   *slog.Logger
	recorder PostingRecorder
	now      func() time.Time
}

// NewService constructs the posting engine.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithRecorder attaches a posting observer.
func (s *Service) WithRecorder(recorder PostingRecorder) {
	s.recorder = recorder
}

// Post validates the input and creates the entry with all its lines in a
// single transaction. The entry number is allocated inside the same
// transaction; a lost race on the number replays the whole transaction.
func (s *Service) Post(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}

	var entry JournalEntry
	var err error
	for attempt := 0; attempt < numberRetries; attempt++ {
		entry, err = s.postOnce(ctx, input)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrNumberConflict) {
			return JournalEntry{}, err
		}
		s.logger.Warn("entry number conflict, retrying",
			slog.String("tenant_id", input.TenantID.String()),
			slog.Int("attempt", attempt+1))
	}
	if err != nil {
		return JournalEntry{}, fmt.Errorf("ledger: exhausted entry number retries: %w", err)
	}

	if s.recorder != nil {
		s.recorder.AddPostedEntry(entry.ReferenceType)
	}
	s.logger.Info("journal entry posted",
		slog.String("tenant_id", entry.TenantID.String()),
		slog.String("entry_id", entry.ID.String()),
		slog.String("entry_number", entry.Number.String()),
		slog.String("total", entry.TotalDebit.String()))
	return entry, nil
}

func (s *Service) postOnce(ctx context.Context, input PostingInput) (JournalEntry, error) {
	total := input.Total()
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextEntryNumber(ctx, input.TenantID)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, JournalEntry{
			ID:            uuid.New(),
			TenantID:      input.TenantID,
			Number:        number,
			Date:          input.Date,
			Status:        JournalStatusPosted,
			Description:   input.Description,
			ReferenceType: input.ReferenceType,
			ReferenceID:   input.ReferenceID,
			TotalDebit:    total,
			TotalCredit:   total,
		})
		if err != nil {
			return err
		}
		lines := toJournalLines(inserted.ID, input.Lines)
		if err := tx.InsertLines(ctx, inserted.ID, lines); err != nil {
			return err
		}
		if input.Link != nil {
			if err := tx.LinkInvoice(ctx, input.TenantID, input.Link.InvoiceID, inserted.ID); err != nil {
				return err
			}
		}
		inserted.Lines = lines
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// List returns the tenant's entries, newest first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]JournalEntry, error) {
	return s.repo.ListEntries(ctx, tenantID)
}

// Get returns one entry with its lines.
func (s *Service) Get(ctx context.Context, tenantID, entryID uuid.UUID) (JournalEntry, error) {
	return s.repo.GetEntryWithLines(ctx, tenantID, entryID)
}

func toJournalLines(entryID uuid.UUID, inputs []PostingLineInput) []JournalLine {
	lines := make([]JournalLine, len(inputs))
	for i, in := range inputs {
		lines[i] = JournalLine{
			EntryID:       entryID,
			LineNumber:    i + 1,
			AccountID:     in.AccountID,
			Debit:         in.Debit,
			Credit:        in.Credit,
			Description:   in.Description,
			ReferenceType: in.ReferenceType,
			ReferenceID:   in.ReferenceID,
		}
	}
	return lines
}
