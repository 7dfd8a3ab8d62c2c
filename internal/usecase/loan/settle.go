package loan

import (
	"context"

	"kidot-ledger/internal/domain/events"
	domainLoan "kidot-ledger/internal/domain/loan"
	"kidot-ledger/internal/domain/uow"
	"kidot-ledger/pkg/amount"
)

// settle moves a completed loan's lender holds into the pot and shifts its
// value from reserved into funded and staked. The status guard makes it run
// at most once per loan. Callers persist l and tot.
func (u *Usecase) settle(ctx context.Context, r uow.Repos, l *domainLoan.Loan, tot *domainLoan.Totals, out *outbox) error {
	if err := l.MarkCompleted(); err != nil {
		return err
	}
	lenders, err := r.Loans.GetLenders(ctx, l.LoanID)
	if err != nil {
		return err
	}
	for _, ln := range lenders {
		hold, err := amount.Double(ln.LendAmount)
		if err != nil {
			return err
		}
		moved := r.Balances.RepatriateReserved(ctx, ln.LenderAccount, u.pot, hold)
		if err := u.bestEffort(ctx, out, "repatriate", moved, "loan_id", l.LoanID, "account", ln.LenderAccount, "amount", hold); err != nil {
			return err
		}
	}
	if err := l.MarkSettled(u.clock.Now()); err != nil {
		return err
	}

	total := l.FundedAmount
	hold, err := amount.Double(total)
	if err != nil {
		return err
	}
	if tot.Funded, err = amount.Add(tot.Funded, total); err != nil {
		return err
	}
	if tot.Staked, err = amount.Add(tot.Staked, total); err != nil {
		return err
	}
	if tot.Reserved, err = amount.Sub(tot.Reserved, hold); err != nil {
		return err
	}

	out.add(events.KindLoanFullyFunded, l.LoanID, "", total)
	out.onCommit(func() { u.metrics.Settled(total) })
	u.log.InfoContext(ctx, "loan fully funded", "loan_id", l.LoanID, "total", total, "lenders", len(lenders))
	return nil
}
