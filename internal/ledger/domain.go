package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	// JournalStatusPosted is the only status this subsystem writes. Entries
	// are created directly in posted state; corrections are separate
	// reversing entries handled elsewhere.
	JournalStatusPosted JournalStatus = "POSTED"
)

// EntryNumber is the per-tenant monotonically increasing journal sequence.
type EntryNumber int64

// String renders the number zero-padded to six digits, the format carried on
// printed vouchers and statements.
func (n EntryNumber) String() string {
	return fmt.Sprintf("%06d", int64(n))
}

// JournalEntry captures posting metadata for one balanced entry.
type JournalEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Number        EntryNumber
	Date          time.Time
	Status        JournalStatus
	Description   string
	ReferenceType string
	ReferenceID   uuid.UUID
	TotalDebit    decimal.Decimal
	TotalCredit   decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Lines         []JournalLine
}

// JournalLine stores a single debit or credit against an account.
// Exactly one of Debit/Credit is non-zero.
type JournalLine struct {
	ID            int64
	EntryID       uuid.UUID
	LineNumber    int
	AccountID     uuid.UUID
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Description   string
	ReferenceType string
	ReferenceID   uuid.UUID
}

// Account models a chart of accounts node. Accounts are configured outside
// this subsystem and only ever read here.
type Account struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Code      string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Symbolic account codes this subsystem resolves per tenant.
const (
	CodeAccountsReceivable = "accounts_receivable"
	CodeRentalRevenue      = "rental_revenue"
	CodeBadDebtExpense     = "bad_debt_expense"
	CodeDoubtfulAllowance  = "allowance_for_doubtful_accounts"
)

// Reference types recorded on entries and lines.
const (
	ReferenceInvoice   = "invoice"
	ReferenceCustomer  = "customer"
	ReferenceProvision = "provision"
)
