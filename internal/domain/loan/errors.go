package loan

import (
	"errors"

	"kidot-ledger/pkg/amount"
)

var (
	ErrNotFound            = errors.New("loan not found")
	ErrAlreadyExists       = errors.New("loan already exists")
	ErrAlreadyCompleted    = errors.New("loan already completed")
	ErrInsufficientBalance = errors.New("insufficient balance to fund loan")
	ErrInvalidTransition   = errors.New("loan not in a state that allows this transition")
	ErrOverflow            = amount.ErrOverflow
)
