/*
This file contains the 18-decimal fixed-point arithmetic used by the engine.

All monetary quantities in the system (reserve, stable, funding, prices) are
integers scaled by Base. Both operations truncate toward zero; callers that
care about which side of a conversion eats the rounding unit must order their
calls accordingly.
*/

package fixed

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Decimals is the number of fractional digits carried by every scaled value.
const Decimals = 18

// Base is the scaled representation of 1.0.
var Base = sdkmath.NewIntWithDecimal(1, Decimals)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrOverflow       = errors.New("fixed-point overflow")
	ErrNegative       = errors.New("amount is negative")
	ErrNil            = errors.New("amount is nil")
)

// Mul returns a*b/Base, truncated toward zero.
func Mul(a, b sdkmath.Int) (result sdkmath.Int, err error) {
	if a.IsNil() || b.IsNil() {
		return sdkmath.Int{}, ErrNil
	}
	// sdkmath.Int panics past 256 bits; surface that as a regular error.
	defer func() {
		if r := recover(); r != nil {
			result = sdkmath.Int{}
			err = fmt.Errorf("%w: %v", ErrOverflow, r)
		}
	}()
	return a.Mul(b).Quo(Base), nil
}

// Div returns a*Base/b, truncated toward zero.
func Div(a, b sdkmath.Int) (result sdkmath.Int, err error) {
	if a.IsNil() || b.IsNil() {
		return sdkmath.Int{}, ErrNil
	}
	if b.IsZero() {
		return sdkmath.Int{}, ErrDivisionByZero
	}
	defer func() {
		if r := recover(); r != nil {
			result = sdkmath.Int{}
			err = fmt.Errorf("%w: %v", ErrOverflow, r)
		}
	}()
	return a.Mul(Base).Quo(b), nil
}

// FromInt64 scales a whole-unit amount into fixed-point representation.
func FromInt64(units int64) sdkmath.Int {
	return sdkmath.NewInt(units).Mul(Base)
}

// PowerOfTen returns 10^n as an Int. n must be non-negative.
func PowerOfTen(n int64) (sdkmath.Int, error) {
	if n < 0 {
		return sdkmath.Int{}, fmt.Errorf("%w: exponent %d", ErrNegative, n)
	}
	if n > 76 {
		// 10^77 is just shy of 2^256; anything larger cannot be represented.
		return sdkmath.Int{}, fmt.Errorf("%w: exponent %d", ErrOverflow, n)
	}
	return sdkmath.NewIntWithDecimal(1, int(n)), nil
}

// ToFloat64 converts a scaled value to float64 for logging and metrics only.
// Never use the result for accounting decisions.
func ToFloat64(v sdkmath.Int) float64 {
	if v.IsNil() {
		return 0
	}
	f, err := sdkmath.LegacyNewDecFromBigIntWithPrec(v.BigInt(), Decimals).Float64()
	if err != nil {
		return 0
	}
	return f
}
