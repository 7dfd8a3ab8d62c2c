// Package currencymock is an in-memory currency.Ledger for tests.
package currencymock

import (
	"context"
	"sync"

	"kidot-ledger/internal/domain/currency"
	"kidot-ledger/pkg/amount"
)

var _ currency.Ledger = (*Ledger)(nil)

type balance struct{ free, reserved uint64 }

// Ledger keeps balances in a map. Set FailFn to inject errors per op
// ("reserve", "repatriate", "transfer", "deposit", "set"); who is the
// destination for transfers and the source otherwise. A nil return falls
// through to the normal behaviour.
type Ledger struct {
	mu       sync.Mutex
	accounts map[string]*balance
	min      uint64

	FailFn func(op, who string, amt uint64) error
}

func New(minimumBalance uint64) *Ledger {
	return &Ledger{accounts: map[string]*balance{}, min: minimumBalance}
}

func (l *Ledger) fail(op, who string, amt uint64) error {
	if l.FailFn == nil {
		return nil
	}
	return l.FailFn(op, who, amt)
}

// Set endows who with a free balance, creating the account.
func (l *Ledger) Set(who string, free uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.get(who).free = free
}

// Exists reports whether who has an account.
func (l *Ledger) Exists(who string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.accounts[who]
	return ok
}

func (l *Ledger) get(who string) *balance {
	b, ok := l.accounts[who]
	if !ok {
		b = &balance{}
		l.accounts[who] = b
	}
	return b
}

func (l *Ledger) MinimumBalance() uint64 { return l.min }

func (l *Ledger) FreeBalance(_ context.Context, who string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.accounts[who]; ok {
		return b.free, nil
	}
	return 0, nil
}

func (l *Ledger) ReservedBalance(_ context.Context, who string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.accounts[who]; ok {
		return b.reserved, nil
	}
	return 0, nil
}

func (l *Ledger) CanReserve(ctx context.Context, who string, amt uint64) (bool, error) {
	free, err := l.FreeBalance(ctx, who)
	return free >= amt, err
}

func (l *Ledger) Reserve(_ context.Context, who string, amt uint64) error {
	if err := l.fail("reserve", who, amt); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.accounts[who]
	if !ok || b.free < amt {
		return currency.ErrInsufficientBalance
	}
	b.free -= amt
	b.reserved += amt
	return nil
}

func (l *Ledger) RepatriateReserved(_ context.Context, from, to string, amt uint64) error {
	if err := l.fail("repatriate", from, amt); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.accounts[from]
	if !ok {
		return currency.ErrAccountNotFound
	}
	if src.reserved < amt {
		return currency.ErrInsufficientReserve
	}
	dst := l.get(to)
	free, err := amount.Add(dst.free, amt)
	if err != nil {
		return err
	}
	src.reserved -= amt
	dst.free = free
	return nil
}

func (l *Ledger) Transfer(_ context.Context, from, to string, amt uint64) error {
	if err := l.fail("transfer", to, amt); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.accounts[from]
	if !ok || src.free < amt {
		return currency.ErrInsufficientBalance
	}
	dst := l.get(to)
	free, err := amount.Add(dst.free, amt)
	if err != nil {
		return err
	}
	src.free -= amt
	dst.free = free
	return nil
}

func (l *Ledger) DepositIntoExisting(_ context.Context, who string, amt uint64) error {
	if err := l.fail("deposit", who, amt); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.accounts[who]
	if !ok {
		return currency.ErrAccountNotFound
	}
	free, err := amount.Add(b.free, amt)
	if err != nil {
		return err
	}
	b.free = free
	return nil
}

func (l *Ledger) MakeFreeBalanceBe(_ context.Context, who string, amt uint64) error {
	if err := l.fail("set", who, amt); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.get(who).free = amt
	return nil
}
