package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostingLineInput describes a journal line for a posting request.
type PostingLineInput struct {
	AccountID     uuid.UUID
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Description   string
	ReferenceType string
	ReferenceID   uuid.UUID
}

// InvoiceLink requests that the posted entry be recorded onto an invoice in
// the same transaction. The link only succeeds while the invoice is still
// unlinked, which is what makes posting idempotent per invoice.
type InvoiceLink struct {
	InvoiceID uuid.UUID
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	TenantID      uuid.UUID
	Date          time.Time
	Description   string
	ReferenceType string
	ReferenceID   uuid.UUID
	Lines         []PostingLineInput
	Link          *InvoiceLink
}

// Validate ensures posting input meets the balance preconditions before any
// write happens. An unbalanced or malformed set of lines is never posted.
func (in PostingInput) Validate() error {
	if in.TenantID == uuid.Nil {
		return errors.New("ledger: tenant required")
	}
	if in.Date.IsZero() {
		return errors.New("ledger: entry date required")
	}
	if in.Description == "" {
		return errors.New("ledger: description required")
	}
	// A single line can never balance, so two is the effective minimum.
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for idx, line := range in.Lines {
		if line.AccountID == uuid.Nil {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return fmt.Errorf("ledger: line %d cannot be both debit and credit", idx)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return fmt.Errorf("ledger: line %d has no amount", idx)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: debit %s credit %s", ErrUnbalanced, debit, credit)
	}
	return nil
}

// Total returns the debit-side sum, which for a balanced input is the
// economic value of the entry.
func (in PostingInput) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range in.Lines {
		total = total.Add(line.Debit)
	}
	return total
}
