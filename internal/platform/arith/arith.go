// Package arith provides overflow-checked integer helpers for balance and
// duration math.
//
// Fee and expiry computations must use the Checked* functions. The Saturating*
// variants clamp at the type bounds and are reserved for fixtures (seeding test
// balances, benchmarks) where a clamped value is acceptable.
package arith

import (
	"errors"
	"math"
	"math/bits"
)

// ErrOverflow indicates the mathematical result does not fit in a uint64.
var ErrOverflow = errors.New("arithmetic overflow")

// CheckedAdd returns a+b, or ErrOverflow if the sum exceeds math.MaxUint64.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// CheckedSub returns a-b, or ErrOverflow if b > a.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return diff, nil
}

// CheckedMul returns a*b, or ErrOverflow if the product exceeds math.MaxUint64.
func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// CheckedMulAdd returns a*b+c with a single overflow check over both steps.
func CheckedMulAdd(a, b, c uint64) (uint64, error) {
	p, err := CheckedMul(a, b)
	if err != nil {
		return 0, err
	}
	return CheckedAdd(p, c)
}

func SaturatingAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func SaturatingMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}
