package pricemock

import (
	"context"
	"sync/atomic"

	domain "kidot-ledger/internal/domain/price"
)

var (
	_ domain.Feed       = (*Feed)(nil)
	_ domain.Repository = (*Repo)(nil)
)

// Feed serves a settable fixed price.
type Feed struct {
	price atomic.Int64
	Err   error
}

func NewFeed(price int64) *Feed {
	f := &Feed{}
	f.price.Store(price)
	return f
}

func (f *Feed) Set(price int64) { f.price.Store(price) }

func (f *Feed) LatestPrice(context.Context) (int64, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	return f.price.Load(), nil
}

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn  func(ctx context.Context, q *domain.Quote) error
	LatestFn  func(ctx context.Context, pair string) (*domain.Quote, error)
	HistoryFn func(ctx context.Context, pair string, limit int) ([]domain.Quote, error)
}

func (m *Repo) Create(ctx context.Context, q *domain.Quote) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, q)
	}
	return nil
}

func (m *Repo) Latest(ctx context.Context, pair string) (*domain.Quote, error) {
	if m.LatestFn != nil {
		return m.LatestFn(ctx, pair)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) History(ctx context.Context, pair string, limit int) ([]domain.Quote, error) {
	if m.HistoryFn != nil {
		return m.HistoryFn(ctx, pair, limit)
	}
	return []domain.Quote{}, nil
}
