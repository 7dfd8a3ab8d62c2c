// Package pricefeed serves the latest oracle price from redis, falling back
// to the stored quote history.
package pricefeed

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	domainPrice "kidot-ledger/internal/domain/price"

	"github.com/redis/go-redis/v9"
)

type Feed struct {
	rdb  *redis.Client
	repo domainPrice.Repository
	pair string
	log  *slog.Logger
}

// New builds a feed for pair. rdb may be nil.
func New(rdb *redis.Client, repo domainPrice.Repository, pair string, log *slog.Logger) *Feed {
	if log == nil {
		log = slog.Default()
	}
	return &Feed{rdb: rdb, repo: repo, pair: pair, log: log}
}

func (f *Feed) key() string { return "price:latest:" + f.pair }

func (f *Feed) Put(ctx context.Context, price int64) error {
	if f.rdb == nil {
		return nil
	}
	return f.rdb.Set(ctx, f.key(), strconv.FormatInt(price, 10), 0).Err()
}

// LatestPrice returns the most recent price, or 0 when none was ever
// received.
func (f *Feed) LatestPrice(ctx context.Context) (int64, error) {
	if f.rdb != nil {
		v, err := f.rdb.Get(ctx, f.key()).Result()
		switch {
		case err == nil:
			if px, perr := strconv.ParseInt(v, 10, 64); perr == nil {
				return px, nil
			}
			f.log.WarnContext(ctx, "bad cached price", "key", f.key(), "value", v)
		case !errors.Is(err, redis.Nil):
			f.log.WarnContext(ctx, "price cache read failed", "err", err)
		}
	}

	q, err := f.repo.Latest(ctx, f.pair)
	if errors.Is(err, domainPrice.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if perr := f.Put(ctx, q.Price); perr != nil {
		f.log.WarnContext(ctx, "price cache backfill failed", "err", perr)
	}
	return q.Price, nil
}
