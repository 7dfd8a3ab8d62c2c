// Package events defines the notifications emitted by ledger transitions.
package events

import (
	"context"
	"time"
)

type Kind string

const (
	KindLoansReset      Kind = "LoansReset"
	KindLoanAdded       Kind = "LoanAdded"
	KindLoanFunded      Kind = "LoanFunded"
	KindLoanFullyFunded Kind = "LoanFullyFunded"
	KindLoanPaidBack    Kind = "LoanPaidBack"
	KindStakeRewarded   Kind = "StakeRewarded"
)

type Event struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	LoanID  uint64    `json:"loan_id,omitempty"`
	Account string    `json:"account,omitempty"`
	Amount  uint64    `json:"amount,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher delivers committed events. Publishing is best effort: a failed
// delivery never undoes the transition that produced the event.
type Publisher interface {
	Publish(ctx context.Context, evs ...Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }
