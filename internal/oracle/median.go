package oracle

import (
	"fmt"
	"sort"

	sdkmath "cosmossdk.io/math"

	"github.com/stablemint/rsm/internal/fixed"
)

// Median composes an odd number of independent sources and reports the
// median of their normalized prices. The median, unlike the mean, is
// unmoved by a single manipulated feed. Any underlying failure is
// propagated: a partial quorum is not a price.
type Median struct {
	sources []Source
}

// NewMedian builds a composite over the given sources. The count must be
// odd so the median is always a real quote rather than an average.
func NewMedian(sources ...Source) (*Median, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no sources configured", ErrUnavailable)
	}
	if len(sources)%2 == 0 {
		return nil, fmt.Errorf("median requires an odd number of sources, got %d", len(sources))
	}
	return &Median{sources: sources}, nil
}

// LatestPrice returns the median of the normalized source prices. The
// result is already in the 18-decimal base, so DecimalShift reports
// fixed.Decimals and Canonical is an identity on it.
func (m *Median) LatestPrice() (sdkmath.Int, error) {
	prices := make([]sdkmath.Int, 0, len(m.sources))
	for i, s := range m.sources {
		price, err := Canonical(s)
		if err != nil {
			return sdkmath.Int{}, fmt.Errorf("source %d: %w", i, err)
		}
		prices = append(prices, price)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].LT(prices[j]) })
	return prices[len(prices)/2], nil
}

func (m *Median) DecimalShift() (int64, error) {
	return fixed.Decimals, nil
}
