// Package currency describes the balance ledger the loan engine consumes:
// free balances, reserved holds and transfers between accounts.
package currency

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInsufficientBalance = errors.New("currency: insufficient free balance")
	ErrInsufficientReserve = errors.New("currency: insufficient reserved balance")
	ErrAccountNotFound     = errors.New("currency: account not found")
)

// Account holds one address' free and reserved balance.
type Account struct {
	Address   string    `gorm:"primaryKey;column:address;size:64" json:"address"`
	Free      uint64    `gorm:"column:free;not null;default:0" json:"free"`
	Reserved  uint64    `gorm:"column:reserved;not null;default:0" json:"reserved"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }

// Ledger is the reservation/transfer capability.
type Ledger interface {
	CanReserve(ctx context.Context, who string, amount uint64) (bool, error)
	Reserve(ctx context.Context, who string, amount uint64) error
	// RepatriateReserved moves a reserved hold of from into the free balance of to.
	RepatriateReserved(ctx context.Context, from, to string, amount uint64) error
	Transfer(ctx context.Context, from, to string, amount uint64) error
	FreeBalance(ctx context.Context, who string) (uint64, error)
	ReservedBalance(ctx context.Context, who string) (uint64, error)
	// DepositIntoExisting credits an account that must already exist.
	DepositIntoExisting(ctx context.Context, who string, amount uint64) error
	// MakeFreeBalanceBe sets the free balance, creating the account if needed.
	MakeFreeBalanceBe(ctx context.Context, who string, amount uint64) error
	MinimumBalance() uint64
}

// IsBusinessFailure reports whether err is a balance rule violation rather
// than a storage failure.
func IsBusinessFailure(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientReserve) ||
		errors.Is(err, ErrAccountNotFound)
}
