// Package pricefeed receives oracle prices and keeps their history.
package pricefeed

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"kidot-ledger/internal/domain/access"
	domainPrice "kidot-ledger/internal/domain/price"
)

var ErrInvalidInput = errors.New("exactly one of price or result is required")

// Cache keeps the latest price close to the engine.
type Cache interface {
	Put(ctx context.Context, price int64) error
}

type Usecase struct {
	pair  string
	repo  domainPrice.Repository
	cache Cache
	auth  access.Authorizer
	log   *slog.Logger
}

// NewUsecase: cache may be nil when running without redis.
func NewUsecase(pair string, repo domainPrice.Repository, cache Cache, auth access.Authorizer, log *slog.Logger) *Usecase {
	if log == nil {
		log = slog.Default()
	}
	return &Usecase{pair: pair, repo: repo, cache: cache, auth: auth, log: log}
}

func (u *Usecase) Pair() string { return u.pair }

// Submit stores a new price. Only administrators may feed prices.
func (u *Usecase) Submit(ctx context.Context, caller string, in SubmitInput) (*QuoteDTO, error) {
	if err := access.EnsureAdmin(u.auth, caller); err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(in.Result)
	if (in.Price == nil) == (raw == "") {
		return nil, ErrInvalidInput
	}

	var px int64
	if in.Price != nil {
		px = *in.Price
	} else {
		v, err := domainPrice.DecodeResult(raw)
		if err != nil {
			return nil, err
		}
		px = v
	}

	q := &domainPrice.Quote{Pair: u.pair, Price: px, RawResult: raw, SubmittedBy: caller}
	if err := u.repo.Create(ctx, q); err != nil {
		return nil, err
	}
	if u.cache != nil {
		if err := u.cache.Put(ctx, px); err != nil {
			// the feed falls back to history
			u.log.WarnContext(ctx, "price cache update failed", "pair", u.pair, "err", err)
		}
	}
	u.log.InfoContext(ctx, "price received", "pair", u.pair, "price", px, "caller", caller)
	return toDTO(q), nil
}

// Latest returns the newest quote or domain ErrNotFound.
func (u *Usecase) Latest(ctx context.Context) (*QuoteDTO, error) {
	q, err := u.repo.Latest(ctx, u.pair)
	if err != nil {
		return nil, err
	}
	return toDTO(q), nil
}

func (u *Usecase) History(ctx context.Context, limit int) ([]QuoteDTO, error) {
	qs, err := u.repo.History(ctx, u.pair, limit)
	if err != nil {
		return nil, err
	}
	out := make([]QuoteDTO, 0, len(qs))
	for i := range qs {
		out = append(out, *toDTO(&qs[i]))
	}
	return out, nil
}

func toDTO(q *domainPrice.Quote) *QuoteDTO {
	return &QuoteDTO{
		Pair:        q.Pair,
		Price:       q.Price,
		RawResult:   q.RawResult,
		SubmittedBy: q.SubmittedBy,
		ReceivedAt:  q.ReceivedAt,
	}
}
