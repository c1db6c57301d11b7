package oracle

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
)

// Static is a fixed-price source. It backs dev mode and tests, where a
// deterministic exchange rate is required.
type Static struct {
	mu    sync.RWMutex
	price sdkmath.Int
	shift int64
}

// NewStatic builds a static source from a raw price and its decimal shift.
func NewStatic(price sdkmath.Int, shift int64) (*Static, error) {
	if price.IsNil() || !price.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	if shift < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShift, shift)
	}
	return &Static{price: price, shift: shift}, nil
}

func (s *Static) LatestPrice() (sdkmath.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.price, nil
}

func (s *Static) DecimalShift() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shift, nil
}

// SetPrice swaps the reported price. Used to simulate market moves.
func (s *Static) SetPrice(price sdkmath.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price = price
}
