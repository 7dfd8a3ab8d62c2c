package loan

import (
	"errors"
	"math/rand/v2"
	"testing"

	"kidot-ledger/internal/domain/access"
	domainLoan "kidot-ledger/internal/domain/loan"

	"github.com/stretchr/testify/require"
)

// checkConservation asserts that currency is only moved, never created or
// lost, apart from minted stake rewards, and that the four counters match
// the per-loan records.
func checkConservation(t *testing.T, h *harness, accounts []string, endowed, rewards uint64) {
	t.Helper()

	var held, reservedOnAccounts uint64
	for _, who := range accounts {
		free, reserved := h.balance(t, who)
		held += free + reserved
		reservedOnAccounts += reserved
	}
	require.Equal(t, endowed+rewards, held, "currency conservation")

	loans, err := h.loans.List(h.ctx)
	require.NoError(t, err)
	var pendingHold, outstanding, payedBack, settledFunded uint64
	for _, l := range loans {
		payedBack += l.PayedBackAmount
		switch l.Status {
		case domainLoan.StatusPending:
			pendingHold += 2 * l.FundedAmount
			require.Zero(t, l.PayedBackAmount, "pending loan %d repaid", l.LoanID)
		case domainLoan.StatusSettled:
			settledFunded += l.FundedAmount
			outstanding += l.FundedAmount - l.PayedBackAmount
			require.LessOrEqual(t, l.PayedBackAmount, l.FundedAmount)
		default:
			t.Fatalf("loan %d left in status %q", l.LoanID, l.Status)
		}
	}

	tot := h.totals(t)
	require.Equal(t, pendingHold, tot.Reserved, "reserved total")
	require.Equal(t, reservedOnAccounts, tot.Reserved, "reserved on accounts")
	require.Equal(t, outstanding, tot.Funded, "funded total")
	require.Equal(t, payedBack, tot.PayedBack, "payed back total")
	require.Equal(t, settledFunded+rewards-payedBack, tot.Staked, "staked total")
}

func TestConservation_RandomInterleavings(t *testing.T) {
	for _, seed := range []uint64{1, 7, 42} {
		rng := rand.New(rand.NewPCG(seed, seed*31+1))
		h := newHarness(t)

		lenders := []string{"alice", "bob", "carol", "dave"}
		accounts := append([]string{pot}, lenders...)
		endowed := minimumB
		for _, who := range lenders {
			h.endow(t, who, 20_000_000)
			endowed += 20_000_000
		}

		var rewards uint64
		var nextID uint64 = 1
		for step := 0; step < 120; step++ {
			switch op := rng.IntN(10); {
			case op < 2:
				h.addLoan(t, nextID, 1+rng.Uint64N(1500))
				nextID++
			case op < 8:
				if nextID == 1 {
					continue
				}
				who := lenders[rng.IntN(len(lenders))]
				loanID := 1 + rng.Uint64N(nextID) // occasionally unknown
				_, err := h.uc.Lend(h.ctx, who, loanID, 1_000+rng.Uint64N(400_000))
				if err != nil && !errors.Is(err, domainLoan.ErrAlreadyCompleted) &&
					!errors.Is(err, domainLoan.ErrInsufficientBalance) &&
					!errors.Is(err, domainLoan.ErrNotFound) {
					t.Fatalf("seed %d step %d: lend: %v", seed, step, err)
				}
			case op < 9:
				rep, err := h.uc.Payback(h.ctx, lenders[0])
				require.NoError(t, err)
				rewards += rep.Reward
			default:
				h.feed.Set(int64(50_000_000 + rng.Uint64N(250_000_000)))
			}
			checkConservation(t, h, accounts, endowed, rewards)
		}
	}
}

func TestConservation_HoldsAcrossAdminFailures(t *testing.T) {
	h := newHarness(t)
	h.endow(t, "alice", 1_000_000)

	_, err := h.uc.AddLoan(h.ctx, "alice", 1, 10)
	require.ErrorIs(t, err, access.ErrUnauthorized)
	require.ErrorIs(t, h.uc.ResetAll(h.ctx, ""), access.ErrUnauthorized)

	checkConservation(t, h, []string{pot, "alice"}, minimumB+1_000_000, 0)
}
