package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrEntryNotFound indicates a missing entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrAlreadyLinked indicates the source document already carries a journal link.
	ErrAlreadyLinked = errors.New("ledger: invoice already linked to a journal entry")
	// ErrInvoiceNotFound indicates the invoice to link does not exist.
	ErrInvoiceNotFound = errors.New("ledger: invoice not found")
	// ErrNumberConflict indicates a concurrent posting took the same entry number.
	ErrNumberConflict = errors.New("ledger: entry number already taken")
)

// MissingAccountsError reports chart-of-accounts codes that could not be
// resolved for a tenant. It is a configuration fault and is never retried.
type MissingAccountsError struct {
	TenantID uuid.UUID
	Missing  []string
}

func (e *MissingAccountsError) Error() string {
	return fmt.Sprintf("ledger: tenant %s missing accounts: %s", e.TenantID, strings.Join(e.Missing, ", "))
}
