package loan

import "context"

// Repository is the Loan Store. Lookups of unknown loans return ErrNotFound.
type Repository interface {
	ListLoanIDs(ctx context.Context) ([]uint64, error)
	List(ctx context.Context) ([]Loan, error)
	GetByLoanID(ctx context.Context, loanID uint64) (*Loan, error)
	// GetByLoanIDForUpdate locks the loan row until the surrounding transaction ends.
	GetByLoanIDForUpdate(ctx context.Context, loanID uint64) (*Loan, error)
	Create(ctx context.Context, l *Loan) error
	Save(ctx context.Context, l *Loan) error

	GetLenders(ctx context.Context, loanID uint64) ([]Lender, error)
	AppendLender(ctx context.Context, ln *Lender) error
	SetLenders(ctx context.Context, loanID uint64, lenders []Lender) error

	// GetTotals returns the locked totals row, creating it zeroed when missing.
	GetTotals(ctx context.Context) (*Totals, error)
	SaveTotals(ctx context.Context, t *Totals) error

	// Purge removes every loan, lender and zeroes the totals.
	Purge(ctx context.Context) error
}
