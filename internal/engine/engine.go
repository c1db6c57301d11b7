/*
This file contains the core engine: the pricing and accounting state machine
behind mint, burn, fund and defund.

All four entry points serialize behind one mutex. Within an operation the
order is fixed: validate inputs, read the oracle, compute outcomes on locals,
run every invariant check, then commit ledger and pool mutations, refresh the
funding-price floor, and only then move reserve out to the caller. No check
ever runs after an outbound transfer.

The reserve pool is not a counter: it is the engine account's balance on the
reserve ledger, so it cannot drift from the transfers that fund it.
*/

package engine

import (
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stablemint/rsm/internal/fixed"
	"github.com/stablemint/rsm/internal/ledger"
	"github.com/stablemint/rsm/internal/logger"
	"github.com/stablemint/rsm/internal/metrics"
	"github.com/stablemint/rsm/internal/oracle"
	"github.com/stablemint/rsm/internal/types"
)

// Side distinguishes the two funding-price views. The minimum buy price
// floors buys only; sells always settle at the raw buffer price.
type Side int

const (
	Buy Side = iota
	Sell
)

// Recorder receives receipts and floor changes for external observers.
// Implementations must be best-effort: recording failures are theirs to
// log, the engine does not roll back on them.
type Recorder interface {
	RecordOperation(types.OperationReceipt)
	RecordFloorChange(types.FloorChange)
}

// NopRecorder discards everything. Used in tests and dev mode without a
// database.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(types.OperationReceipt) {}
func (NopRecorder) RecordFloorChange(types.FloorChange)    {}

// Engine owns the reserve pool accounting and is the sole authority over
// the stable and funding supplies.
type Engine struct {
	logger zerolog.Logger

	oracle  oracle.Source
	reserve *ledger.Ledger
	stable  *ledger.Supply
	funding *ledger.Supply

	params   types.EngineParameters
	recorder Recorder

	mu                 sync.Mutex
	minFundingBuyPrice sdkmath.Int
}

// Config holds the dependencies for creating an Engine.
type Config struct {
	Oracle        oracle.Source
	ReserveLedger *ledger.Ledger
	StableSupply  *ledger.Supply
	FundingSupply *ledger.Supply
	Params        types.EngineParameters
	Recorder      Recorder
}

// New creates an Engine with dependency injection.
func New(cfg Config) (*Engine, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}
	e := &Engine{
		logger:             logger.GetForComponent("engine"),
		oracle:             cfg.Oracle,
		reserve:            cfg.ReserveLedger,
		stable:             cfg.StableSupply,
		funding:            cfg.FundingSupply,
		params:             cfg.Params,
		recorder:           cfg.Recorder,
		minFundingBuyPrice: sdkmath.ZeroInt(),
	}
	e.logger.Info().
		Str("reserveDenom", cfg.Params.ReserveDenom).
		Str("stableDenom", cfg.Params.StableDenom).
		Str("fundingDenom", cfg.Params.FundingDenom).
		Str("maxDebtRatio", cfg.Params.MaxDebtRatio.String()).
		Msg("Engine created")
	return e, nil
}

func validateConfig(cfg Config) error {
	if cfg.Oracle == nil {
		return fmt.Errorf("oracle source cannot be nil")
	}
	if cfg.ReserveLedger == nil {
		return fmt.Errorf("reserve ledger cannot be nil")
	}
	if cfg.StableSupply == nil {
		return fmt.Errorf("stable supply controller cannot be nil")
	}
	if cfg.FundingSupply == nil {
		return fmt.Errorf("funding supply controller cannot be nil")
	}
	if cfg.Recorder == nil {
		return fmt.Errorf("recorder cannot be nil")
	}
	p := cfg.Params
	if p.MinOperationAmount.IsNil() || p.MinOperationAmount.IsNegative() {
		return fmt.Errorf("minimum operation amount must be non-negative")
	}
	if p.MaxDebtRatio.IsNil() || !p.MaxDebtRatio.IsPositive() || p.MaxDebtRatio.GT(fixed.Base) {
		return fmt.Errorf("max debt ratio must be in (0, 1]")
	}
	if p.BurnDebtCeiling.IsNil() || p.BurnDebtCeiling.LT(p.MaxDebtRatio) {
		return fmt.Errorf("burn debt ceiling must be at least the max debt ratio")
	}
	if p.EngineAccount == "" {
		return fmt.Errorf("engine account cannot be empty")
	}
	return nil
}

// --- Derived quantities -------------------------------------------------

func (e *Engine) price() (sdkmath.Int, error) {
	return oracle.Canonical(e.oracle)
}

// reserveToStable values a reserve amount in stable units at the given price.
func reserveToStable(price, amount sdkmath.Int) (sdkmath.Int, error) {
	return fixed.Mul(price, amount)
}

// stableToReserve values a stable amount in reserve units at the given price.
func stableToReserve(price, amount sdkmath.Int) (sdkmath.Int, error) {
	return fixed.Div(amount, price)
}

// debtRatioAt computes stable supply valued in reserve terms over the pool.
// An empty pool with no debt is ratio zero; an empty pool with outstanding
// debt is unrepresentable and surfaces as a division error.
func debtRatioAt(price, pool, stableSupply sdkmath.Int) (sdkmath.Int, error) {
	if pool.IsZero() && stableSupply.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	poolValue, err := reserveToStable(price, pool)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return fixed.Div(stableSupply, poolValue)
}

// bufferAt computes the funding holders' equity: pool minus the reserve
// value of the outstanding stable supply. May be negative.
func bufferAt(price, pool, stableSupply sdkmath.Int) (sdkmath.Int, error) {
	debt, err := stableToReserve(price, stableSupply)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return pool.Sub(debt), nil
}

// fundingPriceAt computes the reserve-per-funding-unit price. With no
// funding outstanding it defaults to the reserve value of one stable unit.
// A negative buffer clamps to zero. On the buy side the active floor
// overrides any lower computed price.
func (e *Engine) fundingPriceAt(price, pool, stableSupply, fundingSupply sdkmath.Int, side Side) (sdkmath.Int, error) {
	p, err := fundingPriceStateless(price, pool, stableSupply, fundingSupply)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if side == Buy && e.minFundingBuyPrice.GT(p) {
		p = e.minFundingBuyPrice
	}
	return p, nil
}

func (e *Engine) pool() sdkmath.Int {
	return e.reserve.BalanceOf(e.params.EngineAccount)
}

// --- Read-only API ------------------------------------------------------

// ReservePool returns the current reserve pool size in base units.
func (e *Engine) ReservePool() sdkmath.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool()
}

// DebtRatio returns the current fixed-point debt ratio.
func (e *Engine) DebtRatio() (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	price, err := e.price()
	if err != nil {
		return sdkmath.Int{}, err
	}
	return debtRatioAt(price, e.pool(), e.stable.Ledger().TotalSupply())
}

// ReserveBuffer returns the signed funding equity in reserve units.
func (e *Engine) ReserveBuffer() (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	price, err := e.price()
	if err != nil {
		return sdkmath.Int{}, err
	}
	return bufferAt(price, e.pool(), e.stable.Ledger().TotalSupply())
}

// FundingPrice returns the current funding price for the given side.
func (e *Engine) FundingPrice(side Side) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	price, err := e.price()
	if err != nil {
		return sdkmath.Int{}, err
	}
	return e.fundingPriceAt(price, e.pool(), e.stable.Ledger().TotalSupply(), e.funding.Ledger().TotalSupply(), side)
}

// MinFundingBuyPrice returns the active buy-price floor, zero when unset.
func (e *Engine) MinFundingBuyPrice() sdkmath.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.minFundingBuyPrice
}

// ReserveToStable values a reserve amount in stable units at the oracle price.
func (e *Engine) ReserveToStable(amount sdkmath.Int) (sdkmath.Int, error) {
	price, err := e.price()
	if err != nil {
		return sdkmath.Int{}, err
	}
	return reserveToStable(price, amount)
}

// StableToReserve values a stable amount in reserve units at the oracle price.
func (e *Engine) StableToReserve(amount sdkmath.Int) (sdkmath.Int, error) {
	price, err := e.price()
	if err != nil {
		return sdkmath.Int{}, err
	}
	return stableToReserve(price, amount)
}

// Status returns a consistent snapshot of all derived quantities.
func (e *Engine) Status() (types.EngineStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	price, err := e.price()
	if err != nil {
		return types.EngineStatus{}, err
	}
	pool := e.pool()
	stableSupply := e.stable.Ledger().TotalSupply()
	fundingSupply := e.funding.Ledger().TotalSupply()

	ratio, err := debtRatioAt(price, pool, stableSupply)
	if err != nil {
		return types.EngineStatus{}, err
	}
	buffer, err := bufferAt(price, pool, stableSupply)
	if err != nil {
		return types.EngineStatus{}, err
	}
	buyPrice, err := e.fundingPriceAt(price, pool, stableSupply, fundingSupply, Buy)
	if err != nil {
		return types.EngineStatus{}, err
	}
	sellPrice, err := e.fundingPriceAt(price, pool, stableSupply, fundingSupply, Sell)
	if err != nil {
		return types.EngineStatus{}, err
	}

	return types.EngineStatus{
		ReservePool:        pool.String(),
		StableSupply:       stableSupply.String(),
		FundingSupply:      fundingSupply.String(),
		OraclePrice:        price.String(),
		DebtRatio:          ratio.String(),
		ReserveBuffer:      buffer.String(),
		FundingBuyPrice:    buyPrice.String(),
		FundingSellPrice:   sellPrice.String(),
		MinFundingBuyPrice: e.minFundingBuyPrice.String(),
		Timestamp:          time.Now().UTC(),
	}, nil
}

// --- Mutating operations ------------------------------------------------

// Mint accepts a reserve deposit and issues stable tokens at the oracle
// price. It requires outstanding funding supply: without a risk-absorbing
// buffer the stable token would be backed one-to-one by its own collateral
// and the first price drop would leave it underwater.
func (e *Engine) Mint(actor string, deposit sdkmath.Int) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := e.mint(actor, deposit)
	metrics.ObserveOperation(string(types.OpMint), err == nil)
	return out, err
}

func (e *Engine) mint(actor string, deposit sdkmath.Int) (sdkmath.Int, error) {
	if err := e.checkMinimum(deposit); err != nil {
		return sdkmath.Int{}, err
	}
	if e.funding.Ledger().TotalSupply().IsZero() {
		return sdkmath.Int{}, ErrNoFunding
	}
	price, err := e.price()
	if err != nil {
		return sdkmath.Int{}, err
	}
	stableOut, err := reserveToStable(price, deposit)
	if err != nil {
		return sdkmath.Int{}, err
	}

	// Commit: pull the deposit, then issue. The inbound transfer is the
	// only step that can still fail, and it runs before any issuance.
	if err := e.reserve.Transfer(actor, e.params.EngineAccount, deposit); err != nil {
		return sdkmath.Int{}, err
	}
	if err := e.stable.Mint(actor, stableOut); err != nil {
		return sdkmath.Int{}, err
	}
	e.refreshFloor(price)
	e.emitReceipt(types.OpMint, actor, deposit, stableOut, price)

	e.logger.Info().
		Str("actor", actor).
		Str("deposit", deposit.String()).
		Str("stableOut", stableOut.String()).
		Msg("Mint executed")
	return stableOut, nil
}

// Burn redeems stable tokens for reserve at the oracle price. The post
// state must stay at or under the burn ceiling (fully collateralized);
// burns between the max debt ratio and the ceiling are allowed because
// they reduce risk.
func (e *Engine) Burn(actor string, stableAmount sdkmath.Int) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := e.burn(actor, stableAmount)
	metrics.ObserveOperation(string(types.OpBurn), err == nil)
	return out, err
}

func (e *Engine) burn(actor string, stableAmount sdkmath.Int) (sdkmath.Int, error) {
	if err := e.checkMinimum(stableAmount); err != nil {
		return sdkmath.Int{}, err
	}
	price, err := e.price()
	if err != nil {
		return sdkmath.Int{}, err
	}
	reserveOut, err := stableToReserve(price, stableAmount)
	if err != nil {
		return sdkmath.Int{}, err
	}

	pool := e.pool()
	if reserveOut.GT(pool) {
		return sdkmath.Int{}, fmt.Errorf("%w: need %s, pool holds %s", ErrInsufficientReserve, reserveOut, pool)
	}
	newPool := pool.Sub(reserveOut)
	newStable := e.stable.Ledger().TotalSupply().Sub(stableAmount)
	if newStable.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("%w: burn exceeds stable supply", ledger.ErrInsufficientBalance)
	}
	ratio, err := debtRatioAt(price, newPool, newStable)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if ratio.GT(e.params.BurnDebtCeiling) {
		return sdkmath.Int{}, fmt.Errorf("%w: post-burn ratio %s", ErrUndercollateralized, ratio)
	}

	// Commit: retire the stable first; the caller's balance check is the
	// last possible failure. The outbound transfer runs after every check.
	if err := e.stable.Burn(actor, stableAmount); err != nil {
		return sdkmath.Int{}, err
	}
	if err := e.reserve.Transfer(e.params.EngineAccount, actor, reserveOut); err != nil {
		// Unreachable given the pool check above; a failure here means the
		// ledger wiring is broken, not a user error.
		e.logger.Error().Err(err).Msg("Reserve payout failed after commit")
		return sdkmath.Int{}, err
	}
	e.refreshFloor(price)
	e.emitReceipt(types.OpBurn, actor, stableAmount, reserveOut, price)

	e.logger.Info().
		Str("actor", actor).
		Str("stableBurned", stableAmount.String()).
		Str("reserveOut", reserveOut.String()).
		Str("debtRatioAfter", ratio.String()).
		Msg("Burn executed")
	return reserveOut, nil
}

// Fund accepts a reserve deposit and issues funding tokens. While the debt
// ratio sits above the maximum the funding price is a discontinuous
// function of pool state, so a deposit straddling the threshold is split:
// the slice that restores the ratio to the maximum is priced before the
// crossing (floor applied), the remainder at the recovered price.
func (e *Engine) Fund(actor string, deposit sdkmath.Int) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := e.fund(actor, deposit)
	metrics.ObserveOperation(string(types.OpFund), err == nil)
	return out, err
}

func (e *Engine) fund(actor string, deposit sdkmath.Int) (sdkmath.Int, error) {
	if err := e.checkMinimum(deposit); err != nil {
		return sdkmath.Int{}, err
	}
	price, err := e.price()
	if err != nil {
		return sdkmath.Int{}, err
	}

	pool := e.pool()
	stableSupply := e.stable.Ledger().TotalSupply()
	ratio, err := debtRatioAt(price, pool, stableSupply)
	if err != nil {
		return sdkmath.Int{}, err
	}

	// Tranche boundary: the deposit needed to bring the ratio exactly to
	// the maximum, plus one base unit to tip strictly under it.
	tranches := []sdkmath.Int{deposit}
	if ratio.GT(e.params.MaxDebtRatio) {
		needed, err := e.reserveNeeded(price, pool, stableSupply)
		if err != nil {
			return sdkmath.Int{}, err
		}
		if needed.IsPositive() && needed.LT(deposit) {
			tranches = []sdkmath.Int{needed, deposit.Sub(needed)}
		}
	}

	// All checks that can fail run before the single inbound transfer; the
	// per-tranche math below is pure issuance and cannot abort halfway.
	fundingOuts := make([]sdkmath.Int, 0, len(tranches))
	totalOut := sdkmath.ZeroInt()
	fundingSupply := e.funding.Ledger().TotalSupply()
	trialPool := pool
	trialFunding := fundingSupply
	trialFloor := e.minFundingBuyPrice
	for _, in := range tranches {
		out, newFloor, err := fundTrancheQuote(e.params.MaxDebtRatio, price, trialPool, stableSupply, trialFunding, trialFloor, in)
		if err != nil {
			return sdkmath.Int{}, err
		}
		fundingOuts = append(fundingOuts, out)
		totalOut = totalOut.Add(out)
		trialPool = trialPool.Add(in)
		trialFunding = trialFunding.Add(out)
		trialFloor = newFloor
	}

	if err := e.reserve.Transfer(actor, e.params.EngineAccount, deposit); err != nil {
		return sdkmath.Int{}, err
	}
	if err := e.funding.Mint(actor, totalOut); err != nil {
		return sdkmath.Int{}, err
	}
	e.setFloor(trialFloor, price)
	e.refreshFloor(price)
	e.emitReceipt(types.OpFund, actor, deposit, totalOut, price)

	evt := e.logger.Info().
		Str("actor", actor).
		Str("deposit", deposit.String()).
		Str("fundingOut", totalOut.String()).
		Int("tranches", len(tranches))
	for i, out := range fundingOuts {
		evt = evt.Str(fmt.Sprintf("tranche%dOut", i+1), out.String())
	}
	evt.Msg("Fund executed")
	return totalOut, nil
}

// fundTrancheQuote prices one funding tranche against an explicit pool
// state. It first re-evaluates the floor for that state (set on crossing
// above the maximum, cleared at or under), then quotes the buy price with
// the floor applied and converts the deposit slice.
func fundTrancheQuote(maxRatio, price, pool, stableSupply, fundingSupply, floor, reserveIn sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	newFloor, err := evaluateFloor(maxRatio, price, pool, stableSupply, fundingSupply, floor)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	p, err := fundingPriceStateless(price, pool, stableSupply, fundingSupply)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	if newFloor.GT(p) {
		p = newFloor
	}
	if !p.IsPositive() {
		return sdkmath.Int{}, sdkmath.Int{}, ErrZeroFundingPrice
	}
	out, err := fixed.Div(reserveIn, p)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return out, newFloor, nil
}

// Defund redeems funding tokens for reserve at the sell price (no floor).
// Removing buffer is the risk-increasing direction, so the post state must
// stay at or under the maximum debt ratio.
func (e *Engine) Defund(actor string, fundingAmount sdkmath.Int) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := e.defund(actor, fundingAmount)
	metrics.ObserveOperation(string(types.OpDefund), err == nil)
	return out, err
}

func (e *Engine) defund(actor string, fundingAmount sdkmath.Int) (sdkmath.Int, error) {
	if err := e.checkMinimum(fundingAmount); err != nil {
		return sdkmath.Int{}, err
	}
	price, err := e.price()
	if err != nil {
		return sdkmath.Int{}, err
	}

	pool := e.pool()
	stableSupply := e.stable.Ledger().TotalSupply()
	fundingSupply := e.funding.Ledger().TotalSupply()

	p, err := e.fundingPriceAt(price, pool, stableSupply, fundingSupply, Sell)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if !p.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: buffer is exhausted", ErrZeroFundingPrice)
	}
	reserveOut, err := fixed.Mul(fundingAmount, p)
	if err != nil {
		return sdkmath.Int{}, err
	}
	newPool := pool.Sub(reserveOut)
	if newPool.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("%w: need %s, pool holds %s", ErrInsufficientReserve, reserveOut, pool)
	}
	ratio, err := debtRatioAt(price, newPool, stableSupply)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if ratio.GT(e.params.MaxDebtRatio) {
		return sdkmath.Int{}, fmt.Errorf("%w: post-defund ratio %s", ErrMaxDebtRatio, ratio)
	}

	// Commit, checks done. Burn enforces the caller's balance; the payout
	// runs last.
	if err := e.funding.Burn(actor, fundingAmount); err != nil {
		return sdkmath.Int{}, err
	}
	if err := e.reserve.Transfer(e.params.EngineAccount, actor, reserveOut); err != nil {
		e.logger.Error().Err(err).Msg("Reserve payout failed after commit")
		return sdkmath.Int{}, err
	}
	e.refreshFloor(price)
	e.emitReceipt(types.OpDefund, actor, fundingAmount, reserveOut, price)

	e.logger.Info().
		Str("actor", actor).
		Str("fundingBurned", fundingAmount.String()).
		Str("reserveOut", reserveOut.String()).
		Str("debtRatioAfter", ratio.String()).
		Msg("Defund executed")
	return reserveOut, nil
}

// --- Floor price maintenance -------------------------------------------

// reserveNeeded computes the deposit that brings the debt ratio exactly to
// the maximum, plus one base unit to land strictly under it.
func (e *Engine) reserveNeeded(price, pool, stableSupply sdkmath.Int) (sdkmath.Int, error) {
	targetValue, err := fixed.Div(stableSupply, e.params.MaxDebtRatio)
	if err != nil {
		return sdkmath.Int{}, err
	}
	targetPool, err := fixed.Div(targetValue, price)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return targetPool.Sub(pool).AddRaw(1), nil
}

// evaluateFloor returns the floor that should be active for the given
// state: set to the at-maximum funding price when the ratio sits above the
// maximum and no floor exists yet, cleared when the ratio is at or under
// the maximum, otherwise unchanged.
func evaluateFloor(maxRatio, price, pool, stableSupply, fundingSupply, current sdkmath.Int) (sdkmath.Int, error) {
	ratio, err := debtRatioAt(price, pool, stableSupply)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if ratio.LTE(maxRatio) {
		return sdkmath.ZeroInt(), nil
	}
	if !current.IsZero() {
		return current, nil
	}
	// Price the funding token as if the ratio were exactly at the maximum:
	// the buffer share of the pool spread over the funding supply. This is
	// the last defensible price before the crossing.
	equityShare := fixed.Base.Sub(maxRatio)
	flooredBuffer, err := fixed.Mul(equityShare, pool)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if fundingSupply.IsZero() {
		return stableToReserve(price, fixed.Base)
	}
	return fixed.Div(flooredBuffer, sdkmath.MaxInt(fundingSupply, fixed.Base))
}

// fundingPriceStateless is fundingPriceAt without the engine's floor,
// usable against trial states.
func fundingPriceStateless(price, pool, stableSupply, fundingSupply sdkmath.Int) (sdkmath.Int, error) {
	if fundingSupply.IsZero() {
		return stableToReserve(price, fixed.Base)
	}
	buffer, err := bufferAt(price, pool, stableSupply)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if buffer.IsNegative() {
		buffer = sdkmath.ZeroInt()
	}
	return fixed.Div(buffer, sdkmath.MaxInt(fundingSupply, fixed.Base))
}

// refreshFloor re-evaluates the floor against live state. Every mutating
// operation calls this as its final state step so the next caller observes
// a consistent floor.
func (e *Engine) refreshFloor(price sdkmath.Int) {
	floor, err := evaluateFloor(
		e.params.MaxDebtRatio,
		price,
		e.pool(),
		e.stable.Ledger().TotalSupply(),
		e.funding.Ledger().TotalSupply(),
		e.minFundingBuyPrice,
	)
	if err != nil {
		// Leave the old floor standing; a stale floor only ever over-prices
		// funding buys, which fails safe.
		e.logger.Error().Err(err).Msg("Floor re-evaluation failed")
		return
	}
	e.setFloor(floor, price)
}

func (e *Engine) setFloor(floor, price sdkmath.Int) {
	if floor.Equal(e.minFundingBuyPrice) {
		return
	}
	previous := e.minFundingBuyPrice
	e.minFundingBuyPrice = floor

	ratio, err := debtRatioAt(price, e.pool(), e.stable.Ledger().TotalSupply())
	ratioStr := "-"
	if err == nil {
		ratioStr = ratio.String()
	}
	e.recorder.RecordFloorChange(types.FloorChange{
		Previous:  previous.String(),
		New:       floor.String(),
		DebtRatio: ratioStr,
		Timestamp: time.Now().UTC(),
	})
	metrics.SetFloorPrice(fixed.ToFloat64(floor))
	e.logger.Info().
		Str("previous", previous.String()).
		Str("new", floor.String()).
		Str("debtRatio", ratioStr).
		Msg("Funding buy price floor changed")
}

// --- Helpers ------------------------------------------------------------

func (e *Engine) checkMinimum(amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrBelowMinimum, amount)
	}
	if amount.LTE(e.params.MinOperationAmount) {
		return fmt.Errorf("%w: %s <= %s", ErrBelowMinimum, amount, e.params.MinOperationAmount)
	}
	return nil
}

func (e *Engine) emitReceipt(op types.OpType, actor string, amountIn, amountOut, price sdkmath.Int) {
	ratioStr := "-"
	if ratio, err := debtRatioAt(price, e.pool(), e.stable.Ledger().TotalSupply()); err == nil {
		ratioStr = ratio.String()
		metrics.SetDebtRatio(fixed.ToFloat64(ratio))
	}
	metrics.SetReservePool(fixed.ToFloat64(e.pool()))

	e.recorder.RecordOperation(types.OperationReceipt{
		ID:             uuid.New().String(),
		Type:           op,
		Actor:          actor,
		AmountIn:       amountIn.String(),
		AmountOut:      amountOut.String(),
		OraclePrice:    price.String(),
		DebtRatioAfter: ratioStr,
		FloorPrice:     e.minFundingBuyPrice.String(),
		Timestamp:      time.Now().UTC(),
	})
}
