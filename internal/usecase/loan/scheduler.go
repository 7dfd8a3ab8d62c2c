package loan

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Payer runs one payback cycle.
type Payer interface {
	Payback(ctx context.Context, caller string) (*PaybackReport, error)
}

// Scheduler triggers Payback every interval on behalf of caller.
type Scheduler struct {
	payer    Payer
	caller   string
	interval time.Duration
	clock    clockwork.Clock
	log      *slog.Logger
}

func NewScheduler(p Payer, caller string, interval time.Duration, clock clockwork.Clock, log *slog.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{payer: p, caller: caller, interval: interval, clock: clock, log: log}
}

// Run blocks until ctx is done. A non-positive interval disables the
// schedule. Failed runs are logged and retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.log.InfoContext(ctx, "payback scheduler disabled")
		<-ctx.Done()
		return nil
	}
	t := s.clock.NewTicker(s.interval)
	defer t.Stop()
	s.log.InfoContext(ctx, "payback scheduler started", "interval", s.interval, "caller", s.caller)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.Chan():
			rep, err := s.payer.Payback(ctx, s.caller)
			if err != nil {
				s.log.ErrorContext(ctx, "scheduled payback failed", "err", err)
				continue
			}
			s.log.DebugContext(ctx, "scheduled payback done", "reward", rep.Reward, "installments", len(rep.Installments))
		}
	}
}
