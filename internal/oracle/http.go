/*
This file fetches a spot price from a JSON HTTP API.

The feed is expected to answer GET requests with a body of the form
{"price": <number>}. The number is parsed as a decimal string to avoid
float64 precision loss, then scaled by the configured decimal shift.
*/

package oracle

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/stablemint/rsm/internal/logger"
)

var httpLogger = logger.GetForComponent("price_feed")

const (
	MAX_RETRIES     = 3
	TIMEOUT_SECONDS = 10
	RETRY_DELAY     = 500 * time.Millisecond
)

type feedResponse struct {
	Price json.Number `json:"price"`
}

// HTTPSource polls a single remote price feed. The shift is fixed per feed:
// raw = price * 10^shift, so a feed quoting 200.50 with shift 8 reports
// 20050000000.
type HTTPSource struct {
	url    string
	shift  int64
	client *http.Client
}

// NewHTTPSource builds a source for the given feed URL and decimal shift.
func NewHTTPSource(url string, shift int64) (*HTTPSource, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty feed URL", ErrUnavailable)
	}
	if shift < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShift, shift)
	}
	return &HTTPSource{
		url:   url,
		shift: shift,
		client: &http.Client{
			Timeout: TIMEOUT_SECONDS * time.Second,
		},
	}, nil
}

func (h *HTTPSource) DecimalShift() (int64, error) {
	return h.shift, nil
}

// LatestPrice fetches the current price, retrying transient failures.
func (h *HTTPSource) LatestPrice() (sdkmath.Int, error) {
	var lastErr error
	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		price, err := h.fetchOnce()
		if err == nil {
			return price, nil
		}
		lastErr = err
		httpLogger.Warn().
			Err(err).
			Str("url", h.url).
			Int("attempt", attempt).
			Msg("Price fetch failed")
		if attempt < MAX_RETRIES {
			time.Sleep(RETRY_DELAY)
		}
	}
	return sdkmath.Int{}, fmt.Errorf("%w: %s after %d attempts: %w", ErrUnavailable, h.url, MAX_RETRIES, lastErr)
}

func (h *HTTPSource) fetchOnce() (sdkmath.Int, error) {
	resp, err := h.client.Get(h.url)
	if err != nil {
		return sdkmath.Int{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return sdkmath.Int{}, fmt.Errorf("feed returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("failed to read feed body: %w", err)
	}

	var parsed feedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return sdkmath.Int{}, fmt.Errorf("failed to decode feed body: %w", err)
	}
	if parsed.Price == "" {
		return sdkmath.Int{}, fmt.Errorf("%w: missing price field", ErrInvalidPrice)
	}

	dec, err := sdkmath.LegacyNewDecFromStr(parsed.Price.String())
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("%w: %q: %w", ErrInvalidPrice, parsed.Price, err)
	}
	if !dec.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: %s must be positive", ErrInvalidPrice, dec)
	}

	scale := sdkmath.LegacyNewDec(10).Power(uint64(h.shift))
	raw := dec.Mul(scale).TruncateInt()
	if !raw.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: %s truncates to zero at shift %d", ErrInvalidPrice, dec, h.shift)
	}
	return raw, nil
}
