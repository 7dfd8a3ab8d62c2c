package loan

import (
	"context"
	"errors"

	domainLoan "kidot-ledger/internal/domain/loan"
)

// IsLoanCompleted evaluates the completion predicate at the latest price.
// Unknown loans are never completed.
func (u *Usecase) IsLoanCompleted(ctx context.Context, loanID uint64) (bool, error) {
	px, err := u.latestPrice(ctx)
	if err != nil {
		return false, err
	}
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if errors.Is(err, domainLoan.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return l.IsCompleted(px), nil
}

// GetLoan returns a zero record for unknown loans.
func (u *Usecase) GetLoan(ctx context.Context, loanID uint64) (LoanDTO, error) {
	dto, err := u.LookupLoan(ctx, loanID)
	if errors.Is(err, domainLoan.ErrNotFound) {
		return LoanDTO{}, nil
	}
	if err != nil {
		return LoanDTO{}, err
	}
	return *dto, nil
}

// LookupLoan is GetLoan with an explicit ErrNotFound.
func (u *Usecase) LookupLoan(ctx context.Context, loanID uint64) (*LoanDTO, error) {
	px, err := u.latestPrice(ctx)
	if err != nil {
		return nil, err
	}
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	dto := toLoanDTO(l, px)
	return &dto, nil
}

func (u *Usecase) ListLoanIDs(ctx context.Context) ([]uint64, error) {
	ids, err := u.loans.ListLoanIDs(ctx)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uint64{}
	}
	return ids, nil
}

func (u *Usecase) ListLoans(ctx context.Context) ([]LoanDTO, error) {
	px, err := u.latestPrice(ctx)
	if err != nil {
		return nil, err
	}
	loans, err := u.loans.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]LoanDTO, 0, len(loans))
	for i := range loans {
		out = append(out, toLoanDTO(&loans[i], px))
	}
	return out, nil
}

// GetLenders returns an empty list for unknown loans.
func (u *Usecase) GetLenders(ctx context.Context, loanID uint64) ([]LenderDTO, error) {
	lenders, err := u.loans.GetLenders(ctx, loanID)
	if err != nil {
		return nil, err
	}
	out := make([]LenderDTO, 0, len(lenders))
	for _, ln := range lenders {
		out = append(out, LenderDTO{LenderAccount: ln.LenderAccount, LendAmount: ln.LendAmount})
	}
	return out, nil
}

// Ledger reports the four totals with the pot balance and the price in use.
func (u *Usecase) Ledger(ctx context.Context) (*LedgerDTO, error) {
	px, err := u.latestPrice(ctx)
	if err != nil {
		return nil, err
	}
	tot, err := u.loans.GetTotals(ctx)
	if err != nil {
		return nil, err
	}
	acc, err := u.Account(ctx, u.pot)
	if err != nil {
		return nil, err
	}
	return &LedgerDTO{
		Totals:      toTotalsDTO(tot),
		PotAccount:  u.pot,
		PotFree:     acc.Free,
		PotReserved: acc.Reserved,
		Price:       px,
	}, nil
}

func (u *Usecase) Account(ctx context.Context, account string) (*AccountDTO, error) {
	free, err := u.balances.FreeBalance(ctx, account)
	if err != nil {
		return nil, err
	}
	reserved, err := u.balances.ReservedBalance(ctx, account)
	if err != nil {
		return nil, err
	}
	return &AccountDTO{Account: account, Free: free, Reserved: reserved}, nil
}
