package gormdb

import (
	"context"
	"errors"

	"kidot-ledger/internal/domain/currency"
	"kidot-ledger/pkg/amount"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountLedger keeps free and reserved balances in the accounts table.
type AccountLedger struct {
	db             *gorm.DB
	minimumBalance uint64
}

func NewAccountLedger(db *gorm.DB, minimumBalance uint64) *AccountLedger {
	return &AccountLedger{db: db, minimumBalance: minimumBalance}
}

func (r *AccountLedger) withTx(tx *gorm.DB) *AccountLedger {
	return &AccountLedger{db: tx, minimumBalance: r.minimumBalance}
}

func (r *AccountLedger) MinimumBalance() uint64 { return r.minimumBalance }

// lock loads who FOR UPDATE. Missing accounts yield ErrAccountNotFound.
func lockAccount(ctx context.Context, tx *gorm.DB, who string) (*currency.Account, error) {
	var acc currency.Account
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address = ?", who).
		First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, currency.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// lockOrNew is lockAccount, but returns an unsaved zero account when missing.
func lockOrNew(ctx context.Context, tx *gorm.DB, who string) (*currency.Account, error) {
	acc, err := lockAccount(ctx, tx, who)
	if errors.Is(err, currency.ErrAccountNotFound) {
		return &currency.Account{Address: who}, nil
	}
	return acc, err
}

func saveAccount(tx *gorm.DB, acc *currency.Account) error {
	if acc.CreatedAt.IsZero() {
		return tx.Create(acc).Error
	}
	return tx.Save(acc).Error
}

func (r *AccountLedger) Get(ctx context.Context, who string) (*currency.Account, error) {
	var acc currency.Account
	err := r.db.WithContext(ctx).Where("address = ?", who).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, currency.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *AccountLedger) FreeBalance(ctx context.Context, who string) (uint64, error) {
	acc, err := r.Get(ctx, who)
	if errors.Is(err, currency.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.Free, nil
}

func (r *AccountLedger) ReservedBalance(ctx context.Context, who string) (uint64, error) {
	acc, err := r.Get(ctx, who)
	if errors.Is(err, currency.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.Reserved, nil
}

func (r *AccountLedger) CanReserve(ctx context.Context, who string, value uint64) (bool, error) {
	free, err := r.FreeBalance(ctx, who)
	if err != nil {
		return false, err
	}
	return free >= value, nil
}

func (r *AccountLedger) Reserve(ctx context.Context, who string, value uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := lockAccount(ctx, tx, who)
		if errors.Is(err, currency.ErrAccountNotFound) {
			return currency.ErrInsufficientBalance
		}
		if err != nil {
			return err
		}
		if acc.Free < value {
			return currency.ErrInsufficientBalance
		}
		reserved, err := amount.Add(acc.Reserved, value)
		if err != nil {
			return err
		}
		acc.Free -= value
		acc.Reserved = reserved
		return tx.Save(acc).Error
	})
}

func (r *AccountLedger) RepatriateReserved(ctx context.Context, from, to string, value uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		src, err := lockAccount(ctx, tx, from)
		if err != nil {
			return err
		}
		if src.Reserved < value {
			return currency.ErrInsufficientReserve
		}
		if from == to {
			src.Reserved -= value
			free, err := amount.Add(src.Free, value)
			if err != nil {
				return err
			}
			src.Free = free
			return saveAccount(tx, src)
		}
		dst, err := lockOrNew(ctx, tx, to)
		if err != nil {
			return err
		}
		free, err := amount.Add(dst.Free, value)
		if err != nil {
			return err
		}
		src.Reserved -= value
		dst.Free = free
		if err := tx.Save(src).Error; err != nil {
			return err
		}
		return saveAccount(tx, dst)
	})
}

// Transfer moves free balance, creating the destination account if missing.
func (r *AccountLedger) Transfer(ctx context.Context, from, to string, value uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		src, err := lockAccount(ctx, tx, from)
		if errors.Is(err, currency.ErrAccountNotFound) {
			return currency.ErrInsufficientBalance
		}
		if err != nil {
			return err
		}
		if src.Free < value {
			return currency.ErrInsufficientBalance
		}
		if from == to || value == 0 {
			return nil
		}
		dst, err := lockOrNew(ctx, tx, to)
		if err != nil {
			return err
		}
		free, err := amount.Add(dst.Free, value)
		if err != nil {
			return err
		}
		src.Free -= value
		dst.Free = free
		if err := tx.Save(src).Error; err != nil {
			return err
		}
		return saveAccount(tx, dst)
	})
}

func (r *AccountLedger) DepositIntoExisting(ctx context.Context, who string, value uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := lockAccount(ctx, tx, who)
		if err != nil {
			return err
		}
		free, err := amount.Add(acc.Free, value)
		if err != nil {
			return err
		}
		acc.Free = free
		return tx.Save(acc).Error
	})
}

func (r *AccountLedger) MakeFreeBalanceBe(ctx context.Context, who string, value uint64) error {
	if value > amount.Max {
		return amount.ErrOverflow
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := lockOrNew(ctx, tx, who)
		if err != nil {
			return err
		}
		acc.Free = value
		return saveAccount(tx, acc)
	})
}
