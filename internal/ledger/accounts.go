package ledger

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository provides read access to a tenant's chart of accounts.
type AccountRepository interface {
	FindActiveByCodes(ctx context.Context, tenantID uuid.UUID, codes []string) ([]Account, error)
}

// AccountResolver maps symbolic account codes to a tenant's configured
// accounts. A missing code is a configuration fault, never defaulted:
// posting against the wrong account would corrupt the ledger.
type AccountResolver struct {
	repo AccountRepository
}

// NewAccountResolver constructs the resolver.
func NewAccountResolver(repo AccountRepository) *AccountResolver {
	return &AccountResolver{repo: repo}
}

// Resolve looks up every requested code and fails with MissingAccountsError
// when any are absent or inactive.
func (r *AccountResolver) Resolve(ctx context.Context, tenantID uuid.UUID, codes ...string) (map[string]Account, error) {
	accounts, err := r.repo.FindActiveByCodes(ctx, tenantID, codes)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]Account, len(accounts))
	for _, acc := range accounts {
		byCode[acc.Code] = acc
	}
	var missing []string
	for _, code := range codes {
		if _, ok := byCode[code]; !ok {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingAccountsError{TenantID: tenantID, Missing: missing}
	}
	return byCode, nil
}

// InvoicePostingAccounts is the closed account set for posting an invoice.
type InvoicePostingAccounts struct {
	Receivable Account
	Revenue    Account
}

// ProvisionAccounts is the closed account set for a bad-debt provision.
type ProvisionAccounts struct {
	Expense   Account
	Allowance Account
}

// WriteOffAccounts is the closed account set for a debt write-off.
type WriteOffAccounts struct {
	Allowance  Account
	Receivable Account
}

// InvoicePosting resolves the receivable/revenue pair used by invoice posting.
func (r *AccountResolver) InvoicePosting(ctx context.Context, tenantID uuid.UUID) (InvoicePostingAccounts, error) {
	byCode, err := r.Resolve(ctx, tenantID, CodeAccountsReceivable, CodeRentalRevenue)
	if err != nil {
		return InvoicePostingAccounts{}, err
	}
	return InvoicePostingAccounts{
		Receivable: byCode[CodeAccountsReceivable],
		Revenue:    byCode[CodeRentalRevenue],
	}, nil
}

// Provision resolves the expense/allowance pair used by provision creation.
func (r *AccountResolver) Provision(ctx context.Context, tenantID uuid.UUID) (ProvisionAccounts, error) {
	byCode, err := r.Resolve(ctx, tenantID, CodeBadDebtExpense, CodeDoubtfulAllowance)
	if err != nil {
		return ProvisionAccounts{}, err
	}
	return ProvisionAccounts{
		Expense:   byCode[CodeBadDebtExpense],
		Allowance: byCode[CodeDoubtfulAllowance],
	}, nil
}

// WriteOff resolves the allowance/receivable pair used by debt write-offs.
func (r *AccountResolver) WriteOff(ctx context.Context, tenantID uuid.UUID) (WriteOffAccounts, error) {
	byCode, err := r.Resolve(ctx, tenantID, CodeDoubtfulAllowance, CodeAccountsReceivable)
	if err != nil {
		return WriteOffAccounts{}, err
	}
	return WriteOffAccounts{
		Allowance:  byCode[CodeDoubtfulAllowance],
		Receivable: byCode[CodeAccountsReceivable],
	}, nil
}
