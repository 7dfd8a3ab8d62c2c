package loanmock

import (
	"context"

	domain "kidot-ledger/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset lookups return context.Canceled; unset writes are no-ops.
type Repo struct {
	ListLoanIDsFn          func(ctx context.Context) ([]uint64, error)
	ListFn                 func(ctx context.Context) ([]domain.Loan, error)
	GetByLoanIDFn          func(ctx context.Context, loanID uint64) (*domain.Loan, error)
	GetByLoanIDForUpdateFn func(ctx context.Context, loanID uint64) (*domain.Loan, error)
	CreateFn               func(ctx context.Context, l *domain.Loan) error
	SaveFn                 func(ctx context.Context, l *domain.Loan) error
	GetLendersFn           func(ctx context.Context, loanID uint64) ([]domain.Lender, error)
	AppendLenderFn         func(ctx context.Context, ln *domain.Lender) error
	SetLendersFn           func(ctx context.Context, loanID uint64, lenders []domain.Lender) error
	GetTotalsFn            func(ctx context.Context) (*domain.Totals, error)
	SaveTotalsFn           func(ctx context.Context, t *domain.Totals) error
	PurgeFn                func(ctx context.Context) error
}

func (m *Repo) ListLoanIDs(ctx context.Context) ([]uint64, error) {
	if m.ListLoanIDsFn != nil {
		return m.ListLoanIDsFn(ctx)
	}
	return nil, context.Canceled
}

func (m *Repo) List(ctx context.Context) ([]domain.Loan, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID uint64) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByLoanIDForUpdate(ctx context.Context, loanID uint64) (*domain.Loan, error) {
	if m.GetByLoanIDForUpdateFn != nil {
		return m.GetByLoanIDForUpdateFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetLenders(ctx context.Context, loanID uint64) ([]domain.Lender, error) {
	if m.GetLendersFn != nil {
		return m.GetLendersFn(ctx, loanID)
	}
	return []domain.Lender{}, nil
}

func (m *Repo) AppendLender(ctx context.Context, ln *domain.Lender) error {
	if m.AppendLenderFn != nil {
		return m.AppendLenderFn(ctx, ln)
	}
	return nil
}

func (m *Repo) SetLenders(ctx context.Context, loanID uint64, lenders []domain.Lender) error {
	if m.SetLendersFn != nil {
		return m.SetLendersFn(ctx, loanID, lenders)
	}
	return nil
}

func (m *Repo) GetTotals(ctx context.Context) (*domain.Totals, error) {
	if m.GetTotalsFn != nil {
		return m.GetTotalsFn(ctx)
	}
	return &domain.Totals{ID: domain.TotalsRowID}, nil
}

func (m *Repo) SaveTotals(ctx context.Context, t *domain.Totals) error {
	if m.SaveTotalsFn != nil {
		return m.SaveTotalsFn(ctx, t)
	}
	return nil
}

func (m *Repo) Purge(ctx context.Context) error {
	if m.PurgeFn != nil {
		return m.PurgeFn(ctx)
	}
	return nil
}
