// Package loan is the loan ledger engine: loan creation, lending, funding
// settlement and the monthly payback cycle. Every mutation runs serialized
// inside one database transaction.
package loan

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"kidot-ledger/internal/domain/access"
	"kidot-ledger/internal/domain/currency"
	"kidot-ledger/internal/domain/events"
	domainLoan "kidot-ledger/internal/domain/loan"
	"kidot-ledger/internal/domain/price"
	"kidot-ledger/internal/domain/uow"
	"kidot-ledger/pkg/id"

	"github.com/jonboulle/clockwork"
)

// Metrics observes ledger transitions. Implementations must be safe for
// concurrent use.
type Metrics interface {
	LoanAdded()
	Lent(amount uint64)
	Settled(total uint64)
	PaidBack(installment uint64)
	Rewarded(reward uint64)
	TransferFailed(op string)
	ObserveTotals(t domainLoan.Totals)
}

type nopMetrics struct{}

func (nopMetrics) LoanAdded() {}
func (nopMetrics) Lent(uint64) {}
func (nopMetrics) Settled(uint64) {}
func (nopMetrics) PaidBack(uint64) {}
func (nopMetrics) Rewarded(uint64) {}
func (nopMetrics) TransferFailed(string) {}
func (nopMetrics) ObserveTotals(domainLoan.Totals) {}

type Config struct {
	// PotAccount is the ledger's own pooled account.
	PotAccount string
	Auth       access.Authorizer
	Events     events.Publisher
	Metrics    Metrics
	Logger     *slog.Logger
	Clock      clockwork.Clock
}

type Usecase struct {
	mu sync.Mutex

	loans    domainLoan.Repository
	balances currency.Ledger
	uow      uow.UnitOfWork
	prices   price.Feed

	pot     string
	auth    access.Authorizer
	events  events.Publisher
	metrics Metrics
	log     *slog.Logger
	clock   clockwork.Clock
}

// NewUsecase: loans and balances serve reads, tx serves every mutation.
func NewUsecase(loans domainLoan.Repository, balances currency.Ledger, tx uow.UnitOfWork, prices price.Feed, cfg Config) *Usecase {
	u := &Usecase{
		loans:    loans,
		balances: balances,
		uow:      tx,
		prices:   prices,
		pot:      cfg.PotAccount,
		auth:     cfg.Auth,
		events:   cfg.Events,
		metrics:  cfg.Metrics,
		log:      cfg.Logger,
		clock:    cfg.Clock,
	}
	if u.events == nil {
		u.events = events.Nop{}
	}
	if u.metrics == nil {
		u.metrics = nopMetrics{}
	}
	if u.log == nil {
		u.log = slog.Default()
	}
	if u.clock == nil {
		u.clock = clockwork.NewRealClock()
	}
	return u
}

// PotAccount returns the pooled account address.
func (u *Usecase) PotAccount() string { return u.pot }

// outbox buffers events until the transaction commits.
type outbox struct {
	u     *Usecase
	evs   []events.Event
	hooks []func()
}

// onCommit defers fn until the transaction has committed.
func (o *outbox) onCommit(fn func()) { o.hooks = append(o.hooks, fn) }

func (o *outbox) add(kind events.Kind, loanID uint64, account string, amt uint64) {
	o.evs = append(o.evs, events.Event{
		ID:      id.NewID32(),
		Kind:    kind,
		LoanID:  loanID,
		Account: account,
		Amount:  amt,
		At:      o.u.clock.Now().UTC(),
	})
}

func (o *outbox) flush(ctx context.Context) {
	for _, fn := range o.hooks {
		fn()
	}
	if len(o.evs) == 0 {
		return
	}
	if err := o.u.events.Publish(ctx, o.evs...); err != nil {
		o.u.log.WarnContext(ctx, "publish events failed", "count", len(o.evs), "err", err)
	}
}

// mutate runs fn serialized and transactional; events are published after
// commit and dropped on rollback.
func (u *Usecase) mutate(ctx context.Context, fn func(r uow.Repos, out *outbox) error) error {
	if u.uow == nil {
		return errors.New("loan usecase: unit of work not configured")
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	out := &outbox{u: u}
	var totals *domainLoan.Totals
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := fn(r, out); err != nil {
			return err
		}
		t, err := r.Loans.GetTotals(ctx)
		if err != nil {
			return err
		}
		totals = t
		return nil
	})
	if err != nil {
		return err
	}
	if totals != nil {
		u.metrics.ObserveTotals(*totals)
	}
	out.flush(ctx)
	return nil
}

// bestEffort swallows currency rule failures of settlement and repayment
// transfers. Storage failures still abort the transition.
func (u *Usecase) bestEffort(ctx context.Context, out *outbox, op string, err error, attrs ...any) error {
	if err == nil {
		return nil
	}
	if !currency.IsBusinessFailure(err) {
		return err
	}
	out.onCommit(func() { u.metrics.TransferFailed(op) })
	u.log.WarnContext(ctx, "transfer skipped", append([]any{"op", op, "err", err}, attrs...)...)
	return nil
}

// latestPrice is read before the transaction starts so the feed never
// competes with it for a connection.
func (u *Usecase) latestPrice(ctx context.Context) (int64, error) {
	if u.prices == nil {
		return 0, nil
	}
	return u.prices.LatestPrice(ctx)
}
