package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	domainLoan "kidot-ledger/internal/domain/loan"
)

const namespace = "kidot_ledger"

// Ledger exports engine activity. A nil *Ledger is a valid no-op.
type Ledger struct {
	loansAdded      prometheus.Counter
	lentTotal       prometheus.Counter
	lends           prometheus.Counter
	settled         prometheus.Counter
	settledAmount   prometheus.Counter
	paidBack        prometheus.Counter
	paidBackAmount  prometheus.Counter
	rewardedAmount  prometheus.Counter
	transferFailed  *prometheus.CounterVec
	totals          *prometheus.GaugeVec
}

func NewLedger(reg prometheus.Registerer) *Ledger {
	m := &Ledger{
		loansAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loans_added_total",
			Help:      "Number of loans registered.",
		}),
		lends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lends_total",
			Help:      "Number of accepted lend operations.",
		}),
		lentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lent_amount_total",
			Help:      "Sum of lent amounts in mKD$.",
		}),
		settled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loans_settled_total",
			Help:      "Number of loans moved into the pot.",
		}),
		settledAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settled_amount_total",
			Help:      "Sum of funded amounts of settled loans.",
		}),
		paidBack: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installments_total",
			Help:      "Number of repayment installments executed.",
		}),
		paidBackAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paid_back_amount_total",
			Help:      "Sum of repayment installments.",
		}),
		rewardedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "staking_reward_amount_total",
			Help:      "Sum of staking rewards deposited into the pot.",
		}),
		transferFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_failures_total",
			Help:      "Best-effort currency movements that failed, by operation.",
		}, []string{"op"}),
		totals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "totals",
			Help:      "Current value of the global ledger counters.",
		}, []string{"counter"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.loansAdded,
			m.lends,
			m.lentTotal,
			m.settled,
			m.settledAmount,
			m.paidBack,
			m.paidBackAmount,
			m.rewardedAmount,
			m.transferFailed,
			m.totals,
		)
	}
	for _, c := range []string{"reserved", "funded", "staked", "payed_back"} {
		m.totals.WithLabelValues(c).Set(0)
	}
	return m
}

func (m *Ledger) LoanAdded() {
	if m == nil {
		return
	}
	m.loansAdded.Inc()
}

func (m *Ledger) Lent(amount uint64) {
	if m == nil {
		return
	}
	m.lends.Inc()
	m.lentTotal.Add(float64(amount))
}

func (m *Ledger) Settled(total uint64) {
	if m == nil {
		return
	}
	m.settled.Inc()
	m.settledAmount.Add(float64(total))
}

func (m *Ledger) PaidBack(installment uint64) {
	if m == nil {
		return
	}
	m.paidBack.Inc()
	m.paidBackAmount.Add(float64(installment))
}

func (m *Ledger) Rewarded(reward uint64) {
	if m == nil {
		return
	}
	m.rewardedAmount.Add(float64(reward))
}

func (m *Ledger) TransferFailed(op string) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	m.transferFailed.WithLabelValues(op).Inc()
}

func (m *Ledger) ObserveTotals(t domainLoan.Totals) {
	if m == nil {
		return
	}
	m.totals.WithLabelValues("reserved").Set(float64(t.Reserved))
	m.totals.WithLabelValues("funded").Set(float64(t.Funded))
	m.totals.WithLabelValues("staked").Set(float64(t.Staked))
	m.totals.WithLabelValues("payed_back").Set(float64(t.PayedBack))
}
