package gormdb

import (
	"context"
	"errors"

	priceDomain "kidot-ledger/internal/domain/price"

	"gorm.io/gorm"
)

type PriceRepository struct{ db *gorm.DB }

func NewPriceRepository(db *gorm.DB) *PriceRepository { return &PriceRepository{db: db} }

func (r *PriceRepository) Create(ctx context.Context, q *priceDomain.Quote) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *PriceRepository) Latest(ctx context.Context, pair string) (*priceDomain.Quote, error) {
	var out priceDomain.Quote
	err := r.db.WithContext(ctx).
		Where("pair = ?", pair).
		Order("id DESC").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, priceDomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PriceRepository) History(ctx context.Context, pair string, limit int) ([]priceDomain.Quote, error) {
	out := []priceDomain.Quote{}
	q := r.db.WithContext(ctx).Where("pair = ?", pair).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
