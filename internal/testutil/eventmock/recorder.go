// Package eventmock records published events for assertions.
package eventmock

import (
	"context"
	"sync"

	"kidot-ledger/internal/domain/events"
)

var _ events.Publisher = (*Recorder)(nil)

type Recorder struct {
	mu  sync.Mutex
	evs []events.Event
	Err error
}

func (r *Recorder) Publish(_ context.Context, evs ...events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, evs...)
	return r.Err
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.evs...)
}

// OfKind filters recorded events by kind.
func (r *Recorder) OfKind(k events.Kind) []events.Event {
	var out []events.Event
	for _, e := range r.Events() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = nil
}
