package gormdb

import (
	"context"

	"kidot-ledger/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct {
	db       *gorm.DB
	accounts *AccountLedger
}

func NewGormUoW(db *gorm.DB, accounts *AccountLedger) *GormUoW {
	return &GormUoW{db: db, accounts: accounts}
}

func (u *GormUoW) repos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Loans:    &LoanRepository{db: tx},
		Balances: u.accounts.withTx(tx),
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(u.repos(tx))
	})
}
