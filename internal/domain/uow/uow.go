package uow

import (
	"context"

	"kidot-ledger/internal/domain/currency"
	"kidot-ledger/internal/domain/loan"
)

// Repos are bound to one transaction.
type Repos struct {
	Loans    loan.Repository
	Balances currency.Ledger
}

type UnitOfWork interface {
	// WithinTx commits when fn returns nil and rolls everything back otherwise.
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
