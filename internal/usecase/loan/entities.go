package loan

import (
	"time"

	domainLoan "kidot-ledger/internal/domain/loan"
)

type LoanDTO struct {
	LoanID          uint64     `json:"loan_id"`
	LoanAmount      uint64     `json:"loan_amount"`
	FundedAmount    uint64     `json:"funded_amount"`
	PayedBackAmount uint64     `json:"payed_back_amount"`
	Status          string     `json:"status"`
	Completed       bool       `json:"completed"`
	SettledAt       *time.Time `json:"settled_at,omitempty"`
}

type LenderDTO struct {
	LenderAccount string `json:"lender_account"`
	LendAmount    uint64 `json:"lend_amount"`
}

type TotalsDTO struct {
	Reserved  uint64 `json:"reserved"`
	Funded    uint64 `json:"funded"`
	Staked    uint64 `json:"staked"`
	PayedBack uint64 `json:"payed_back"`
}

type LedgerDTO struct {
	Totals      TotalsDTO `json:"totals"`
	PotAccount  string    `json:"pot_account"`
	PotFree     uint64    `json:"pot_free"`
	PotReserved uint64    `json:"pot_reserved"`
	Price       int64     `json:"price"`
}

type AccountDTO struct {
	Account  string `json:"account"`
	Free     uint64 `json:"free"`
	Reserved uint64 `json:"reserved"`
}

type LendDTO struct {
	LoanID  uint64  `json:"loan_id"`
	Lender  string  `json:"lender"`
	Amount  uint64  `json:"amount"`
	Settled bool    `json:"settled"`
	Loan    LoanDTO `json:"loan"`
}

// Installment is one loan's share of a payback run.
type Installment struct {
	LoanID  uint64 `json:"loan_id"`
	Amount  uint64 `json:"amount"`
	Lenders int    `json:"lenders"`
}

type PaybackReport struct {
	Reward       uint64        `json:"reward"`
	Settled      []uint64      `json:"settled,omitempty"`
	Installments []Installment `json:"installments"`
}

func toLoanDTO(l *domainLoan.Loan, price int64) LoanDTO {
	if l == nil {
		return LoanDTO{}
	}
	return LoanDTO{
		LoanID:          l.LoanID,
		LoanAmount:      l.LoanAmount,
		FundedAmount:    l.FundedAmount,
		PayedBackAmount: l.PayedBackAmount,
		Status:          string(l.Status),
		Completed:       l.IsCompleted(price),
		SettledAt:       l.SettledAt,
	}
}

func toTotalsDTO(t *domainLoan.Totals) TotalsDTO {
	return TotalsDTO{Reserved: t.Reserved, Funded: t.Funded, Staked: t.Staked, PayedBack: t.PayedBack}
}
