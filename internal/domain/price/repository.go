package price

import "context"

type Repository interface {
	Create(ctx context.Context, q *Quote) error

	// Latest returns the most recent quote for pair, or ErrNotFound.
	Latest(ctx context.Context, pair string) (*Quote, error)

	// History returns up to limit quotes for pair, newest first.
	History(ctx context.Context, pair string, limit int) ([]Quote, error)
}

// Feed is the price capability consumed by the loan engine: the most
// recently received price, scaled by 10^8. No freshness guarantee.
type Feed interface {
	LatestPrice(ctx context.Context) (int64, error)
}
