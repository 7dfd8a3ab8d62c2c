package loan

import (
	"time"

	"kidot-ledger/pkg/amount"
)

const (
	// UnitsPerKD converts mKD$ into KD$.
	UnitsPerKD uint64 = 1000
	// PriceScale is the fixed-point scale of oracle prices.
	PriceScale uint64 = 100_000_000
	// Installments is the number of monthly repayments per loan.
	Installments uint64 = 10
	// RewardDivisor yields the 1% monthly stake reward.
	RewardDivisor uint64 = 100
)

// ReferenceValue converts a funded amount into the reference currency.
// Both divisions truncate and run before the multiplication; the order
// changes results and must be kept.
func ReferenceValue(funded uint64, price int64) uint64 {
	if price <= 0 {
		return 0
	}
	return amount.MulSaturating(funded/UnitsPerKD, uint64(price)/PriceScale)
}

// IsCompleted reports whether the funded value reached the target at price.
// A zero target never completes.
func (l *Loan) IsCompleted(price int64) bool {
	if l == nil {
		return false
	}
	return l.LoanAmount > 0 && ReferenceValue(l.FundedAmount, price) >= l.LoanAmount
}

// Outstanding is what remains to be paid back.
func (l *Loan) Outstanding() uint64 {
	if l.PayedBackAmount >= l.FundedAmount {
		return 0
	}
	return l.FundedAmount - l.PayedBackAmount
}

// NextInstallment is FundedAmount/10 clamped to what is still outstanding.
func (l *Loan) NextInstallment() uint64 {
	return min(l.FundedAmount/Installments, l.Outstanding())
}

func (l *Loan) MarkCompleted() error {
	if l.Status != StatusPending {
		return ErrInvalidTransition
	}
	l.Status = StatusCompleted
	return nil
}

func (l *Loan) MarkSettled(at time.Time) error {
	if l.Status != StatusCompleted {
		return ErrInvalidTransition
	}
	l.Status = StatusSettled
	at = at.UTC()
	l.SettledAt = &at
	return nil
}
