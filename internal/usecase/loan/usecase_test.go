package loan

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"kidot-ledger/internal/adapter/repository/gormdb"
	"kidot-ledger/internal/domain/access"
	"kidot-ledger/internal/domain/events"
	domainLoan "kidot-ledger/internal/domain/loan"
	"kidot-ledger/internal/testutil/eventmock"
	"kidot-ledger/internal/testutil/pricemock"
	"kidot-ledger/internal/testutil/testdb"
	"kidot-ledger/pkg/amount"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const (
	admin    = "admin"
	pot      = "pot"
	unitPx   = int64(100_000_000)
	minimumB = uint64(1)
)

type countingMetrics struct {
	mu       sync.Mutex
	added    uint64
	lent     uint64
	settled  uint64
	paid     uint64
	rewarded uint64
	failed   map[string]int
	last     domainLoan.Totals
}

func (m *countingMetrics) LoanAdded() { m.mu.Lock(); m.added++; m.mu.Unlock() }
func (m *countingMetrics) Lent(v uint64) { m.mu.Lock(); m.lent += v; m.mu.Unlock() }
func (m *countingMetrics) Settled(v uint64) { m.mu.Lock(); m.settled += v; m.mu.Unlock() }
func (m *countingMetrics) PaidBack(v uint64) { m.mu.Lock(); m.paid += v; m.mu.Unlock() }
func (m *countingMetrics) Rewarded(v uint64) { m.mu.Lock(); m.rewarded += v; m.mu.Unlock() }

func (m *countingMetrics) ObserveTotals(t domainLoan.Totals) {
	m.mu.Lock()
	m.last = t
	m.mu.Unlock()
}

func (m *countingMetrics) TransferFailed(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed == nil {
		m.failed = map[string]int{}
	}
	m.failed[op]++
}

type harness struct {
	ctx      context.Context
	uc       *Usecase
	loans    *gormdb.LoanRepository
	accounts *gormdb.AccountLedger
	feed     *pricemock.Feed
	events   *eventmock.Recorder
	metrics  *countingMetrics
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testdb.Open(t)
	accounts := gormdb.NewAccountLedger(db, minimumB)
	loans := gormdb.NewLoanRepository(db)
	h := &harness{
		ctx:      context.Background(),
		loans:    loans,
		accounts: accounts,
		feed:     pricemock.NewFeed(unitPx),
		events:   &eventmock.Recorder{},
		metrics:  &countingMetrics{},
	}
	h.uc = NewUsecase(loans, accounts, gormdb.NewGormUoW(db, accounts), h.feed, Config{
		PotAccount: pot,
		Auth:       access.NewStaticAdmins(admin),
		Events:     h.events,
		Metrics:    h.metrics,
		Logger:     discardLogger(),
		Clock:      clockwork.NewFakeClock(),
	})
	require.NoError(t, h.uc.Bootstrap(h.ctx))
	return h
}

func (h *harness) endow(t *testing.T, who string, v uint64) {
	t.Helper()
	_, err := h.uc.Endow(h.ctx, admin, who, v)
	require.NoError(t, err)
}

func (h *harness) balance(t *testing.T, who string) (free, reserved uint64) {
	t.Helper()
	acc, err := h.uc.Account(h.ctx, who)
	require.NoError(t, err)
	return acc.Free, acc.Reserved
}

func (h *harness) totals(t *testing.T) TotalsDTO {
	t.Helper()
	l, err := h.uc.Ledger(h.ctx)
	require.NoError(t, err)
	return l.Totals
}

func (h *harness) addLoan(t *testing.T, id, target uint64) {
	t.Helper()
	_, err := h.uc.AddLoan(h.ctx, admin, id, target)
	require.NoError(t, err)
}

func TestBootstrap_CreatesPotOnce(t *testing.T) {
	h := newHarness(t)
	free, _ := h.balance(t, pot)
	require.Equal(t, minimumB, free)

	h.endow(t, pot, 50)
	require.NoError(t, h.uc.Bootstrap(h.ctx))
	free, _ = h.balance(t, pot)
	require.Equal(t, uint64(50), free, "bootstrap must not reset an existing pot")
}

func TestLend_TwoLendersCompleteAndSettle(t *testing.T) {
	h := newHarness(t)
	h.addLoan(t, 1, 1000)
	h.endow(t, "alice", 1_000_000)
	h.endow(t, "bob", 1_000_000)

	res, err := h.uc.Lend(h.ctx, "alice", 1, 500_000)
	require.NoError(t, err)
	require.False(t, res.Settled)

	done, err := h.uc.IsLoanCompleted(h.ctx, 1)
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, TotalsDTO{Reserved: 1_000_000}, h.totals(t))

	res, err = h.uc.Lend(h.ctx, "bob", 1, 500_000)
	require.NoError(t, err)
	require.True(t, res.Settled)

	done, err = h.uc.IsLoanCompleted(h.ctx, 1)
	require.NoError(t, err)
	require.True(t, done)

	full := h.events.OfKind(events.KindLoanFullyFunded)
	require.Len(t, full, 1)
	require.Equal(t, uint64(1), full[0].LoanID)
	require.Equal(t, uint64(1_000_000), full[0].Amount)
	require.Len(t, h.events.OfKind(events.KindLoanFunded), 2)

	for _, who := range []string{"alice", "bob"} {
		free, reserved := h.balance(t, who)
		require.Zero(t, free, who)
		require.Zero(t, reserved, who)
	}
	potFree, _ := h.balance(t, pot)
	require.Equal(t, minimumB+2_000_000, potFree)
	require.Equal(t, TotalsDTO{Funded: 1_000_000, Staked: 1_000_000}, h.totals(t))

	l, err := h.uc.LookupLoan(h.ctx, 1)
	require.NoError(t, err)
	require.Equal(t, string(domainLoan.StatusSettled), l.Status)
	require.NotNil(t, l.SettledAt)

	lenders, err := h.uc.GetLenders(h.ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []LenderDTO{{"alice", 500_000}, {"bob", 500_000}}, lenders)
	require.Equal(t, uint64(1_000_000), h.metrics.settled)
}

func TestLend_AfterSettlement_AlreadyCompleted(t *testing.T) {
	h := newHarness(t)
	h.addLoan(t, 1, 1000)
	h.endow(t, "alice", 5_000_000)
	_, err := h.uc.Lend(h.ctx, "alice", 1, 1_000_000)
	require.NoError(t, err)

	_, err = h.uc.Lend(h.ctx, "alice", 1, 10)
	require.ErrorIs(t, err, domainLoan.ErrAlreadyCompleted)

	free, reserved := h.balance(t, "alice")
	require.Equal(t, uint64(3_000_000), free)
	require.Zero(t, reserved)
	require.Len(t, h.events.OfKind(events.KindLoanFullyFunded), 1)
}

func TestLend_UnknownLoan_NotFound(t *testing.T) {
	h := newHarness(t)
	h.endow(t, "alice", 1_000)

	_, err := h.uc.Lend(h.ctx, "alice", 42, 100)
	require.ErrorIs(t, err, domainLoan.ErrNotFound)

	free, reserved := h.balance(t, "alice")
	require.Equal(t, uint64(1_000), free)
	require.Zero(t, reserved)
	require.Empty(t, h.events.OfKind(events.KindLoanFunded))
}

func TestLend_InsufficientBalance(t *testing.T) {
	cases := []struct {
		name  string
		free  uint64
		value uint64
	}{
		// the reservability check uses the contribution itself
		{"below contribution", 100, 200},
		// the hold is twice the contribution
		{"below double hold", 100, 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.addLoan(t, 1, 1000)
			h.endow(t, "alice", tc.free)

			_, err := h.uc.Lend(h.ctx, "alice", 1, tc.value)
			require.ErrorIs(t, err, domainLoan.ErrInsufficientBalance)

			lenders, err := h.uc.GetLenders(h.ctx, 1)
			require.NoError(t, err)
			require.Empty(t, lenders)
			require.Equal(t, TotalsDTO{}, h.totals(t))
			free, reserved := h.balance(t, "alice")
			require.Equal(t, tc.free, free)
			require.Zero(t, reserved)
		})
	}
}

func TestLend_CheckOrder(t *testing.T) {
	h := newHarness(t)
	// unknown loan and no balance: the balance check wins
	_, err := h.uc.Lend(h.ctx, "alice", 99, 10)
	require.ErrorIs(t, err, domainLoan.ErrInsufficientBalance)

	// unknown loan with balance
	h.endow(t, "alice", 100)
	_, err = h.uc.Lend(h.ctx, "alice", 99, 10)
	require.ErrorIs(t, err, domainLoan.ErrNotFound)
}

func TestLend_RequiresSignedCaller(t *testing.T) {
	h := newHarness(t)
	_, err := h.uc.Lend(h.ctx, "", 1, 10)
	require.ErrorIs(t, err, access.ErrUnauthorized)
	_, err = h.uc.Payback(h.ctx, "  ")
	require.ErrorIs(t, err, access.ErrUnauthorized)
}

func TestLend_Overflow(t *testing.T) {
	h := newHarness(t)
	h.addLoan(t, 1, 1000)
	h.endow(t, "whale", amount.Max)

	_, err := h.uc.Lend(h.ctx, "whale", 1, amount.Max)
	require.ErrorIs(t, err, domainLoan.ErrOverflow)
	free, reserved := h.balance(t, "whale")
	require.Equal(t, amount.Max, free)
	require.Zero(t, reserved)
}

func TestLend_BelowThresholdNeverCompletes(t *testing.T) {
	h := newHarness(t)
	const target = 1000
	h.feed.Set(3 * unitPx)
	h.addLoan(t, 1, target)
	h.endow(t, "alice", 10_000_000)

	// value = (funded/1000) * 3; stays below 1000 while funded < 334_000
	for i := 0; i < 33; i++ {
		_, err := h.uc.Lend(h.ctx, "alice", 1, 10_000)
		require.NoError(t, err)
		done, err := h.uc.IsLoanCompleted(h.ctx, 1)
		require.NoError(t, err)
		require.False(t, done, "funded=%d", (i+1)*10_000)
	}
	res, err := h.uc.Lend(h.ctx, "alice", 1, 4_000)
	require.NoError(t, err)
	require.True(t, res.Settled)
}

func TestAddLoan(t *testing.T) {
	h := newHarness(t)

	_, err := h.uc.AddLoan(h.ctx, "mallory", 1, 10)
	require.ErrorIs(t, err, access.ErrUnauthorized)

	dto, err := h.uc.AddLoan(h.ctx, admin, 1, 10)
	require.NoError(t, err)
	require.Equal(t, string(domainLoan.StatusPending), dto.Status)

	_, err = h.uc.AddLoan(h.ctx, admin, 1, 20)
	require.ErrorIs(t, err, domainLoan.ErrAlreadyExists)

	h.addLoan(t, 7, 0)
	ids, err := h.uc.ListLoanIDs(h.ctx)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 7}, ids)

	added := h.events.OfKind(events.KindLoanAdded)
	require.Len(t, added, 2)
	require.Equal(t, admin, added[0].Account)
}

func TestAddLoan_TargetAboveCeiling(t *testing.T) {
	h := newHarness(t)

	_, err := h.uc.AddLoan(h.ctx, admin, 1, math.MaxUint64)
	require.ErrorIs(t, err, domainLoan.ErrOverflow)
	_, err = h.uc.AddLoan(h.ctx, admin, 1, amount.Max+1)
	require.ErrorIs(t, err, domainLoan.ErrOverflow)

	ids, err := h.uc.ListLoanIDs(h.ctx)
	require.NoError(t, err)
	require.Empty(t, ids)
	require.Empty(t, h.events.OfKind(events.KindLoanAdded))

	dto, err := h.uc.AddLoan(h.ctx, admin, 1, amount.Max)
	require.NoError(t, err)
	require.Equal(t, amount.Max, dto.LoanAmount)
}

func TestAddLoan_ZeroTargetNeverCompletes(t *testing.T) {
	h := newHarness(t)
	h.addLoan(t, 1, 0)
	h.endow(t, "alice", 1_000_000)
	res, err := h.uc.Lend(h.ctx, "alice", 1, 400_000)
	require.NoError(t, err)
	require.False(t, res.Settled)
	done, _ := h.uc.IsLoanCompleted(h.ctx, 1)
	require.False(t, done)
}

func TestGetLoan_UnknownIsZeroRecord(t *testing.T) {
	h := newHarness(t)
	got, err := h.uc.GetLoan(h.ctx, 5)
	require.NoError(t, err)
	require.Equal(t, LoanDTO{}, got)

	_, err = h.uc.LookupLoan(h.ctx, 5)
	require.ErrorIs(t, err, domainLoan.ErrNotFound)

	lenders, err := h.uc.GetLenders(h.ctx, 5)
	require.NoError(t, err)
	require.Empty(t, lenders)

	done, err := h.uc.IsLoanCompleted(h.ctx, 5)
	require.NoError(t, err)
	require.False(t, done)
}

func TestResetAll(t *testing.T) {
	h := newHarness(t)
	h.addLoan(t, 1, 1000)
	h.addLoan(t, 2, 1000)
	h.endow(t, "alice", 3_000_000)
	_, err := h.uc.Lend(h.ctx, "alice", 1, 1_000_000)
	require.NoError(t, err)
	_, err = h.uc.Payback(h.ctx, "alice")
	require.NoError(t, err)

	require.ErrorIs(t, h.uc.ResetAll(h.ctx, "alice"), access.ErrUnauthorized)

	for i := 0; i < 2; i++ {
		require.NoError(t, h.uc.ResetAll(h.ctx, admin))
		ids, err := h.uc.ListLoanIDs(h.ctx)
		require.NoError(t, err)
		require.Empty(t, ids)
		require.Equal(t, TotalsDTO{}, h.totals(t))
		free, _ := h.balance(t, pot)
		require.Equal(t, minimumB, free)
		lenders, _ := h.uc.GetLenders(h.ctx, 1)
		require.Empty(t, lenders)
	}
	require.Len(t, h.events.OfKind(events.KindLoansReset), 2)

	// ids can be reused after a reset
	h.addLoan(t, 1, 5)
}

func TestPayback_InstallmentsAndReward(t *testing.T) {
	h := newHarness(t)
	h.addLoan(t, 1, 1000)
	h.endow(t, "alice", 1_000_000)
	h.endow(t, "bob", 1_000_000)
	_, err := h.uc.Lend(h.ctx, "alice", 1, 500_000)
	require.NoError(t, err)
	_, err = h.uc.Lend(h.ctx, "bob", 1, 500_000)
	require.NoError(t, err)

	rep, err := h.uc.Payback(h.ctx, "keeper")
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), rep.Reward)
	require.Equal(t, []Installment{{LoanID: 1, Amount: 100_000, Lenders: 2}}, rep.Installments)

	// 50_000 for the contribution plus 50_000 staking share each
	for _, who := range []string{"alice", "bob"} {
		free, _ := h.balance(t, who)
		require.Equal(t, uint64(100_000), free, who)
	}
	potFree, _ := h.balance(t, pot)
	require.Equal(t, minimumB+2_000_000+10_000-200_000, potFree)
	require.Equal(t, TotalsDTO{Funded: 900_000, Staked: 910_000, PayedBack: 100_000}, h.totals(t))

	l, err := h.uc.LookupLoan(h.ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(100_000), l.PayedBackAmount)
	require.Len(t, h.events.OfKind(events.KindStakeRewarded), 1)
	require.Len(t, h.events.OfKind(events.KindLoanPaidBack), 1)
}

func TestPayback_StopsWhenFullyRepaid(t *testing.T) {
	h := newHarness(t)
	h.addLoan(t, 1, 1000)
	h.endow(t, "alice", 2_000_000)
	_, err := h.uc.Lend(h.ctx, "alice", 1, 1_000_000)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		rep, err := h.uc.Payback(h.ctx, "keeper")
		require.NoError(t, err)
		require.Len(t, rep.Installments, 1, "run %d", i)
	}
	rep, err := h.uc.Payback(h.ctx, "keeper")
	require.NoError(t, err)
	require.Empty(t, rep.Installments)

	l, err := h.uc.LookupLoan(h.ctx, 1)
	require.NoError(t, err)
	require.Equal(t, l.FundedAmount, l.PayedBackAmount)
	tot := h.totals(t)
	require.Zero(t, tot.Funded)
	require.Equal(t, uint64(1_000_000), tot.PayedBack)
}

// A funded amount that is not a multiple of ten leaves a clamped eleventh
// installment. Lenders still receive lendAmount/10 in that cycle.
func TestPayback_ClampedLastInstallment(t *testing.T) {
	h := newHarness(t)
	h.endow(t, pot, 10_000_000)
	h.addLoan(t, 1, 1000)
	h.endow(t, "alice", 2_000_010)
	_, err := h.uc.Lend(h.ctx, "alice", 1, 1_000_005)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		rep, err := h.uc.Payback(h.ctx, "keeper")
		require.NoError(t, err)
		require.Equal(t, []Installment{{LoanID: 1, Amount: 100_000, Lenders: 1}}, rep.Installments, "run %d", i)
	}

	before, _ := h.balance(t, "alice")
	rep, err := h.uc.Payback(h.ctx, "keeper")
	require.NoError(t, err)
	require.Equal(t, []Installment{{LoanID: 1, Amount: 5, Lenders: 1}}, rep.Installments)
	after, _ := h.balance(t, "alice")
	require.Equal(t, uint64(100_000+5), after-before)

	rep, err = h.uc.Payback(h.ctx, "keeper")
	require.NoError(t, err)
	require.Empty(t, rep.Installments)
	require.Equal(t, uint64(1_000_005), h.totals(t).PayedBack)
}

func TestPayback_SettlesLoanCompletedByPriceMove(t *testing.T) {
	h := newHarness(t)
	h.addLoan(t, 1, 1000)
	h.endow(t, "alice", 1_000_010)
	_, err := h.uc.Lend(h.ctx, "alice", 1, 500_000)
	require.NoError(t, err)

	h.feed.Set(2 * unitPx)
	done, err := h.uc.IsLoanCompleted(h.ctx, 1)
	require.NoError(t, err)
	require.True(t, done)

	// no more contributions once the predicate holds
	_, err = h.uc.Lend(h.ctx, "alice", 1, 1)
	require.ErrorIs(t, err, domainLoan.ErrAlreadyCompleted)

	rep, err := h.uc.Payback(h.ctx, "keeper")
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, rep.Settled)
	require.Equal(t, []Installment{{LoanID: 1, Amount: 50_000, Lenders: 1}}, rep.Installments)

	_, reserved := h.balance(t, "alice")
	require.Zero(t, reserved)
	require.Len(t, h.events.OfKind(events.KindLoanFullyFunded), 1)

	// a second run never settles again
	rep, err = h.uc.Payback(h.ctx, "keeper")
	require.NoError(t, err)
	require.Empty(t, rep.Settled)
	require.Len(t, h.events.OfKind(events.KindLoanFullyFunded), 1)
}

func TestPayback_PriceDropSkipsLoan(t *testing.T) {
	h := newHarness(t)
	h.addLoan(t, 1, 1000)
	h.endow(t, "alice", 2_000_000)
	_, err := h.uc.Lend(h.ctx, "alice", 1, 1_000_000)
	require.NoError(t, err)

	h.feed.Set(unitPx / 2)
	rep, err := h.uc.Payback(h.ctx, "keeper")
	require.NoError(t, err)
	require.Empty(t, rep.Installments)
	require.Equal(t, uint64(10_000), rep.Reward)
}

func TestPayback_TransfersAreBestEffort(t *testing.T) {
	h := newHarness(t)
	h.addLoan(t, 1, 1000)
	h.endow(t, "alice", 1_000_000)
	h.endow(t, "bob", 1_000_000)
	_, _ = h.uc.Lend(h.ctx, "alice", 1, 500_000)
	_, _ = h.uc.Lend(h.ctx, "bob", 1, 500_000)

	// drain the pot so lender transfers cannot be paid
	h.endow(t, pot, 0)

	rep, err := h.uc.Payback(h.ctx, "keeper")
	require.NoError(t, err)
	require.Len(t, rep.Installments, 1)

	potFree, _ := h.balance(t, pot)
	require.Equal(t, uint64(10_000), potFree)
	for _, who := range []string{"alice", "bob"} {
		free, _ := h.balance(t, who)
		require.Zero(t, free, who)
	}
	// counters move regardless of the failed transfers
	require.Equal(t, TotalsDTO{Funded: 900_000, Staked: 910_000, PayedBack: 100_000}, h.totals(t))
	require.Equal(t, 2, h.metrics.failed["repay"])
	require.Equal(t, 2, h.metrics.failed["stake_share"])
}

func TestPayback_EmptyLedger(t *testing.T) {
	h := newHarness(t)
	rep, err := h.uc.Payback(h.ctx, "keeper")
	require.NoError(t, err)
	require.Zero(t, rep.Reward)
	require.Empty(t, rep.Installments)
	require.Empty(t, h.events.OfKind(events.KindStakeRewarded))
}

func TestEndow_AdminOnly(t *testing.T) {
	h := newHarness(t)
	_, err := h.uc.Endow(h.ctx, "alice", "alice", 10)
	require.ErrorIs(t, err, access.ErrUnauthorized)

	acc, err := h.uc.Endow(h.ctx, admin, "alice", 10)
	require.NoError(t, err)
	require.Equal(t, AccountDTO{Account: "alice", Free: 10}, *acc)
}

func TestLedger_ReportsPotAndPrice(t *testing.T) {
	h := newHarness(t)
	h.feed.Set(123)
	l, err := h.uc.Ledger(h.ctx)
	require.NoError(t, err)
	require.Equal(t, pot, l.PotAccount)
	require.Equal(t, minimumB, l.PotFree)
	require.Equal(t, int64(123), l.Price)
	require.Equal(t, TotalsDTO{}, l.Totals)
}
