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

// Lend contributes value to a pending loan. Twice the value is held from the
// caller: one half funds the loan, the other the matching stake. Checks run
// in order: reservable balance, not completed, exists.
func (u *Usecase) Lend(ctx context.Context, caller string, loanID, value uint64) (*LendDTO, error) {
	if err := access.EnsureSigned(caller); err != nil {
		return nil, err
	}
	px, err := u.latestPrice(ctx)
	if err != nil {
		return nil, err
	}

	var dto *LendDTO
	err = u.mutate(ctx, func(r uow.Repos, out *outbox) error {
		ok, err := r.Balances.CanReserve(ctx, caller, value)
		if err != nil {
			return err
		}
		if !ok {
			return domainLoan.ErrInsufficientBalance
		}

		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil && !errors.Is(err, domainLoan.ErrNotFound) {
			return err
		}
		if l != nil && (l.Status != domainLoan.StatusPending || l.IsCompleted(px)) {
			return domainLoan.ErrAlreadyCompleted
		}
		if l == nil {
			return domainLoan.ErrNotFound
		}

		hold, err := amount.Double(value)
		if err != nil {
			return err
		}
		funded, err := amount.Add(l.FundedAmount, value)
		if err != nil {
			return err
		}
		tot, err := r.Loans.GetTotals(ctx)
		if err != nil {
			return err
		}
		reserved, err := amount.Add(tot.Reserved, hold)
		if err != nil {
			return err
		}

		if err := r.Balances.Reserve(ctx, caller, hold); err != nil {
			if errors.Is(err, currency.ErrInsufficientBalance) {
				return domainLoan.ErrInsufficientBalance
			}
			return err
		}
		if err := r.Loans.AppendLender(ctx, &domainLoan.Lender{LoanID: loanID, LenderAccount: caller, LendAmount: value}); err != nil {
			return err
		}
		l.FundedAmount = funded
		tot.Reserved = reserved
		out.add(events.KindLoanFunded, loanID, caller, value)

		settled := false
		if l.IsCompleted(px) {
			if err := u.settle(ctx, r, l, tot, out); err != nil {
				return err
			}
			settled = true
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		if err := r.Loans.SaveTotals(ctx, tot); err != nil {
			return err
		}

		dto = &LendDTO{LoanID: loanID, Lender: caller, Amount: value, Settled: settled, Loan: toLoanDTO(l, px)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.metrics.Lent(value)
	return dto, nil
}
