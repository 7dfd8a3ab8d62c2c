package loan

import (
	"context"
	"errors"

	"kidot-ledger/internal/domain/access"
	"kidot-ledger/internal/domain/currency"
	"kidot-ledger/internal/domain/events"
	domainLoan "kidot-ledger/internal/domain/loan"
	"kidot-ledger/internal/domain/uow"
	"kidot-ledger/pkg/amount"
)

// ResetAll wipes every loan, lender list and total, and resets the pot to
// the currency minimum balance. Holds of pending lenders are not released.
func (u *Usecase) ResetAll(ctx context.Context, caller string) error {
	if err := access.EnsureAdmin(u.auth, caller); err != nil {
		return err
	}
	err := u.mutate(ctx, func(r uow.Repos, out *outbox) error {
		if err := r.Loans.Purge(ctx); err != nil {
			return err
		}
		if err := r.Balances.MakeFreeBalanceBe(ctx, u.pot, r.Balances.MinimumBalance()); err != nil {
			return err
		}
		out.add(events.KindLoansReset, 0, caller, 0)
		return nil
	})
	if err != nil {
		return err
	}
	u.log.InfoContext(ctx, "loans reset", "caller", caller)
	return nil
}

// AddLoan registers a pending loan with target loanAmount (mKD$).
func (u *Usecase) AddLoan(ctx context.Context, caller string, loanID, loanAmount uint64) (*LoanDTO, error) {
	if err := access.EnsureAdmin(u.auth, caller); err != nil {
		return nil, err
	}
	if loanAmount > amount.Max {
		return nil, domainLoan.ErrOverflow
	}
	var dto LoanDTO
	err := u.mutate(ctx, func(r uow.Repos, out *outbox) error {
		_, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		switch {
		case err == nil:
			return domainLoan.ErrAlreadyExists
		case !errors.Is(err, domainLoan.ErrNotFound):
			return err
		}
		l := &domainLoan.Loan{
			LoanID:     loanID,
			LoanAmount: loanAmount,
			Status:     domainLoan.StatusPending,
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		out.add(events.KindLoanAdded, loanID, caller, loanAmount)
		out.onCommit(u.metrics.LoanAdded)
		dto = toLoanDTO(l, 0)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Endow sets an account's free balance. Operator helper for funding lenders
// and the pot.
func (u *Usecase) Endow(ctx context.Context, caller, account string, free uint64) (*AccountDTO, error) {
	if err := access.EnsureAdmin(u.auth, caller); err != nil {
		return nil, err
	}
	if err := access.EnsureSigned(account); err != nil {
		return nil, err
	}
	var dto *AccountDTO
	err := u.mutate(ctx, func(r uow.Repos, _ *outbox) error {
		if err := r.Balances.MakeFreeBalanceBe(ctx, account, free); err != nil {
			return err
		}
		reserved, err := r.Balances.ReservedBalance(ctx, account)
		if err != nil {
			return err
		}
		dto = &AccountDTO{Account: account, Free: free, Reserved: reserved}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Bootstrap creates the pot with the minimum balance when it does not exist.
func (u *Usecase) Bootstrap(ctx context.Context) error {
	return u.mutate(ctx, func(r uow.Repos, _ *outbox) error {
		err := r.Balances.DepositIntoExisting(ctx, u.pot, 0)
		if !errors.Is(err, currency.ErrAccountNotFound) {
			return err
		}
		u.log.InfoContext(ctx, "creating pot account", "account", u.pot, "balance", r.Balances.MinimumBalance())
		return r.Balances.MakeFreeBalanceBe(ctx, u.pot, r.Balances.MinimumBalance())
	})
}
