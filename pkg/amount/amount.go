// Package amount holds the overflow-checked arithmetic used for ledger
// balances and counters.
package amount

import (
	"errors"
	"math"

	"github.com/holiman/uint256"
)

// Max is the largest amount the ledger stores. Every supported SQL backend
// keeps amounts in a signed 64-bit column, so values above it are rejected.
const Max uint64 = math.MaxInt64

var (
	ErrOverflow  = errors.New("amount: overflow")
	ErrUnderflow = errors.New("amount: underflow")
)

var ceiling = uint256.NewInt(Max)

func fit(v *uint256.Int, overflow bool) (uint64, error) {
	if overflow || v.Gt(ceiling) {
		return 0, ErrOverflow
	}
	return v.Uint64(), nil
}

// Add returns a+b.
func Add(a, b uint64) (uint64, error) {
	return fit(new(uint256.Int).AddOverflow(uint256.NewInt(a), uint256.NewInt(b)))
}

// Sub returns a-b, failing with ErrUnderflow when b > a.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// Mul returns a*b.
func Mul(a, b uint64) (uint64, error) {
	return fit(new(uint256.Int).MulOverflow(uint256.NewInt(a), uint256.NewInt(b)))
}

// Double returns 2*a, the hold taken for every contribution.
func Double(a uint64) (uint64, error) { return Mul(a, 2) }

// MulSaturating returns a*b, clamped to math.MaxUint64. It is meant for
// comparisons only, never for stored values.
func MulSaturating(a, b uint64) uint64 {
	v, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}

// Sum adds all values.
func Sum(values ...uint64) (uint64, error) {
	var total uint64
	for _, v := range values {
		var err error
		if total, err = Add(total, v); err != nil {
			return 0, err
		}
	}
	return total, nil
}
