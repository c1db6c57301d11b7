/*
This file defines the price-source capability the engine consumes.

A Source reports a raw integer price plus the power-of-ten shift needed to
bring it to the engine's 18-decimal base. Normalization lives here so that
every adapter, whatever its native precision, is interchangeable.
*/

package oracle

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/stablemint/rsm/internal/fixed"
)

var (
	ErrUnavailable  = errors.New("price feed unavailable")
	ErrInvalidPrice = errors.New("invalid price from feed")
	ErrInvalidShift = errors.New("invalid decimal shift")
)

// Source supplies the current reserve-to-reference exchange rate.
// LatestPrice returns the raw feed value; DecimalShift returns the
// power-of-ten scale of that raw value. Staleness policy belongs to the
// individual source, not to callers.
type Source interface {
	LatestPrice() (sdkmath.Int, error)
	DecimalShift() (int64, error)
}

// Canonical normalizes a source's raw price to the 18-decimal base:
// canonical = raw * base / 10^shift. Non-positive prices are rejected.
func Canonical(s Source) (sdkmath.Int, error) {
	raw, err := s.LatestPrice()
	if err != nil {
		return sdkmath.Int{}, err
	}
	if raw.IsNil() || !raw.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrInvalidPrice, raw)
	}
	shift, err := s.DecimalShift()
	if err != nil {
		return sdkmath.Int{}, err
	}
	scale, err := fixed.PowerOfTen(shift)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("%w: %d", ErrInvalidShift, shift)
	}
	price, err := fixed.Div(raw, scale)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if !price.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: %s normalizes to zero", ErrInvalidPrice, raw)
	}
	return price, nil
}
