package loan

import (
	"context"

	"kidot-ledger/internal/domain/access"
	"kidot-ledger/internal/domain/events"
	domainLoan "kidot-ledger/internal/domain/loan"
	"kidot-ledger/internal/domain/uow"
	"kidot-ledger/pkg/amount"
)

// Payback runs one monthly cycle: the stake accrues its 1% reward into the
// pot, then every completed loan that is not fully repaid pays one
// installment back to its lenders. Lender transfers are best effort.
func (u *Usecase) Payback(ctx context.Context, caller string) (*PaybackReport, error) {
	if err := access.EnsureSigned(caller); err != nil {
		return nil, err
	}
	px, err := u.latestPrice(ctx)
	if err != nil {
		return nil, err
	}

	var report *PaybackReport
	err = u.mutate(ctx, func(r uow.Repos, out *outbox) error {
		rep := &PaybackReport{Installments: []Installment{}}
		tot, err := r.Loans.GetTotals(ctx)
		if err != nil {
			return err
		}

		if reward := tot.Staked / domainLoan.RewardDivisor; reward > 0 {
			staked, err := amount.Add(tot.Staked, reward)
			if err != nil {
				return err
			}
			deposited := r.Balances.DepositIntoExisting(ctx, u.pot, reward)
			if deposited == nil {
				tot.Staked = staked
				rep.Reward = reward
				out.add(events.KindStakeRewarded, 0, u.pot, reward)
				out.onCommit(func() { u.metrics.Rewarded(reward) })
			} else if err := u.bestEffort(ctx, out, "reward", deposited, "account", u.pot, "amount", reward); err != nil {
				return err
			}
		}

		loans, err := r.Loans.List(ctx)
		if err != nil {
			return err
		}
		for i := range loans {
			l := &loans[i]
			if !l.IsCompleted(px) {
				continue
			}
			changed := false
			if l.Status == domainLoan.StatusPending {
				// completed by a price move, not by a lend
				if err := u.settle(ctx, r, l, tot, out); err != nil {
					return err
				}
				rep.Settled = append(rep.Settled, l.LoanID)
				changed = true
			}
			inst, paid, err := u.repay(ctx, r, l, tot, out)
			if err != nil {
				return err
			}
			if paid {
				rep.Installments = append(rep.Installments, inst)
				changed = true
			}
			if changed {
				if err := r.Loans.Save(ctx, l); err != nil {
					return err
				}
			}
		}

		if err := r.Loans.SaveTotals(ctx, tot); err != nil {
			return err
		}
		report = rep
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.InfoContext(ctx, "payback run", "caller", caller, "reward", report.Reward, "installments", len(report.Installments))
	return report, nil
}

// repay pays one installment of l. It reports false when nothing is due.
func (u *Usecase) repay(ctx context.Context, r uow.Repos, l *domainLoan.Loan, tot *domainLoan.Totals, out *outbox) (Installment, bool, error) {
	inst := Installment{LoanID: l.LoanID}
	if l.PayedBackAmount >= l.FundedAmount {
		return inst, false, nil
	}
	installment := l.NextInstallment()
	if installment == 0 {
		return inst, false, nil
	}

	lenders, err := r.Loans.GetLenders(ctx, l.LoanID)
	if err != nil {
		return inst, false, err
	}
	var share uint64
	if len(lenders) > 0 {
		share = installment / uint64(len(lenders))
	}
	for _, ln := range lenders {
		// lendAmount/10 of the original contribution, then the equal staking share
		for _, part := range []struct {
			op  string
			amt uint64
		}{
			{"repay", ln.LendAmount / domainLoan.Installments},
			{"stake_share", share},
		} {
			if part.amt == 0 {
				continue
			}
			sent := r.Balances.Transfer(ctx, u.pot, ln.LenderAccount, part.amt)
			if err := u.bestEffort(ctx, out, part.op, sent, "loan_id", l.LoanID, "account", ln.LenderAccount, "amount", part.amt); err != nil {
				return inst, false, err
			}
		}
	}

	payed, err := amount.Add(l.PayedBackAmount, installment)
	if err != nil {
		return inst, false, err
	}
	staked, err := amount.Sub(tot.Staked, installment)
	if err != nil {
		return inst, false, err
	}
	funded, err := amount.Sub(tot.Funded, installment)
	if err != nil {
		return inst, false, err
	}
	payedBack, err := amount.Add(tot.PayedBack, installment)
	if err != nil {
		return inst, false, err
	}
	l.PayedBackAmount = payed
	tot.Staked, tot.Funded, tot.PayedBack = staked, funded, payedBack

	out.add(events.KindLoanPaidBack, l.LoanID, "", installment)
	out.onCommit(func() { u.metrics.PaidBack(installment) })

	inst.Amount = installment
	inst.Lenders = len(lenders)
	return inst, true, nil
}
