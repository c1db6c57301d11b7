package engine

import (
	"errors"
	"sync"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablemint/rsm/internal/fixed"
	"github.com/stablemint/rsm/internal/ledger"
	"github.com/stablemint/rsm/internal/oracle"
	"github.com/stablemint/rsm/internal/types"
)

const (
	alice       = "alice"
	bob         = "bob"
	poolAccount = "engine-pool"
)

type captureRecorder struct {
	mu           sync.Mutex
	operations   []types.OperationReceipt
	floorChanges []types.FloorChange
}

func (c *captureRecorder) RecordOperation(r types.OperationReceipt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.operations = append(c.operations, r)
}

func (c *captureRecorder) RecordFloorChange(fc types.FloorChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.floorChanges = append(c.floorChanges, fc)
}

type harness struct {
	engine   *Engine
	oracle   *oracle.Static
	reserve  *ledger.Ledger
	stable   *ledger.Ledger
	funding  *ledger.Ledger
	recorder *captureRecorder
}

func defaultParams() types.EngineParameters {
	return types.EngineParameters{
		MinOperationAmount: sdkmath.ZeroInt(),
		MaxDebtRatio:       fixed.Base.MulRaw(8).QuoRaw(10), // 0.8
		BurnDebtCeiling:    fixed.Base,                      // 1.0
		ReserveDenom:       "rsv",
		StableDenom:        "stb",
		FundingDenom:       "fnd",
		EngineAccount:      poolAccount,
	}
}

func newHarness(t *testing.T, price int64, params types.EngineParameters) *harness {
	t.Helper()

	src, err := oracle.NewStatic(fixed.FromInt64(price), fixed.Decimals)
	require.NoError(t, err)

	reserveLedger, reserveSupply, err := ledger.New(params.ReserveDenom)
	require.NoError(t, err)
	stableLedger, stableSupply, err := ledger.New(params.StableDenom)
	require.NoError(t, err)
	fundingLedger, fundingSupply, err := ledger.New(params.FundingDenom)
	require.NoError(t, err)

	require.NoError(t, reserveSupply.Mint(alice, fixed.FromInt64(1_000)))
	require.NoError(t, reserveSupply.Mint(bob, fixed.FromInt64(1_000)))

	rec := &captureRecorder{}
	e, err := New(Config{
		Oracle:        src,
		ReserveLedger: reserveLedger,
		StableSupply:  stableSupply,
		FundingSupply: fundingSupply,
		Params:        params,
		Recorder:      rec,
	})
	require.NoError(t, err)

	return &harness{
		engine:   e,
		oracle:   src,
		reserve:  reserveLedger,
		stable:   stableLedger,
		funding:  fundingLedger,
		recorder: rec,
	}
}

// seedOverMax produces the canonical stressed state: pool=10 reserve units,
// stable supply valued at 9 reserve units, debt ratio 0.9 with max 0.8.
// Funding supply is 200 units from the initial seed fund.
func seedOverMax(t *testing.T, h *harness) {
	t.Helper()
	_, err := h.engine.Fund(alice, fixed.FromInt64(1))
	require.NoError(t, err)
	_, err = h.engine.Mint(alice, fixed.FromInt64(9))
	require.NoError(t, err)

	ratio, err := h.engine.DebtRatio()
	require.NoError(t, err)
	require.True(t, ratio.Equal(fixed.Base.MulRaw(9).QuoRaw(10)), "seed ratio should be 0.9, got %s", ratio)
}

func TestNewValidatesConfig(t *testing.T) {
	params := defaultParams()
	reserveLedger, _, err := ledger.New(params.ReserveDenom)
	require.NoError(t, err)
	_, stableSupply, err := ledger.New(params.StableDenom)
	require.NoError(t, err)
	_, fundingSupply, err := ledger.New(params.FundingDenom)
	require.NoError(t, err)
	src, err := oracle.NewStatic(fixed.FromInt64(200), fixed.Decimals)
	require.NoError(t, err)

	valid := Config{
		Oracle:        src,
		ReserveLedger: reserveLedger,
		StableSupply:  stableSupply,
		FundingSupply: fundingSupply,
		Params:        params,
		Recorder:      NopRecorder{},
	}
	_, err = New(valid)
	assert.NoError(t, err)

	missingOracle := valid
	missingOracle.Oracle = nil
	_, err = New(missingOracle)
	assert.Error(t, err)

	badRatio := valid
	badRatio.Params.MaxDebtRatio = fixed.Base.AddRaw(1)
	_, err = New(badRatio)
	assert.Error(t, err)

	badCeiling := valid
	badCeiling.Params.BurnDebtCeiling = badCeiling.Params.MaxDebtRatio.SubRaw(1)
	_, err = New(badCeiling)
	assert.Error(t, err)
}

func TestMintRequiresFundingSupply(t *testing.T) {
	h := newHarness(t, 200, defaultParams())

	_, err := h.engine.Mint(alice, fixed.FromInt64(500))
	assert.ErrorIs(t, err, ErrNoFunding)

	// Nothing moved.
	assert.True(t, h.engine.ReservePool().IsZero())
	assert.True(t, h.reserve.BalanceOf(alice).Equal(fixed.FromInt64(1_000)))
	assert.True(t, h.stable.TotalSupply().IsZero())
}

func TestFirstFundDefaultsToStableUnitValue(t *testing.T) {
	// Oracle at 200: one stable unit is worth 1/200 reserve, so one reserve
	// unit of first funding buys 200 funding units exactly.
	h := newHarness(t, 200, defaultParams())

	out, err := h.engine.Fund(alice, fixed.FromInt64(1))
	require.NoError(t, err)
	assert.True(t, out.Equal(fixed.FromInt64(200)), "got %s", out)
	assert.True(t, h.funding.BalanceOf(alice).Equal(fixed.FromInt64(200)))
	assert.True(t, h.engine.ReservePool().Equal(fixed.FromInt64(1)))
}

func TestMintIssuesAtOraclePrice(t *testing.T) {
	h := newHarness(t, 200, defaultParams())
	_, err := h.engine.Fund(alice, fixed.FromInt64(1))
	require.NoError(t, err)

	out, err := h.engine.Mint(bob, fixed.FromInt64(2))
	require.NoError(t, err)
	assert.True(t, out.Equal(fixed.FromInt64(400)), "got %s", out)
	assert.True(t, h.stable.BalanceOf(bob).Equal(fixed.FromInt64(400)))
	assert.True(t, h.engine.ReservePool().Equal(fixed.FromInt64(3)))
	assert.True(t, h.reserve.BalanceOf(bob).Equal(fixed.FromInt64(998)))
}

func TestMintBurnRoundTrip(t *testing.T) {
	// An awkward price so both conversions actually truncate.
	h := newHarness(t, 200, defaultParams())
	h.oracle.SetPrice(sdkmath.NewInt(199).Mul(fixed.Base).AddRaw(370_000_000_000_000_000)) // 199.37

	_, err := h.engine.Fund(alice, fixed.FromInt64(10))
	require.NoError(t, err)

	deposit := sdkmath.NewInt(123_456_789_123_456_789) // ~0.1235 reserve
	minted, err := h.engine.Mint(bob, deposit)
	require.NoError(t, err)

	returned, err := h.engine.Burn(bob, minted)
	require.NoError(t, err)

	diff := deposit.Sub(returned)
	assert.False(t, diff.IsNegative(), "round trip must never pay out more than deposited")
	assert.True(t, diff.LTE(sdkmath.NewInt(2)), "lost %s base units, expected at most one per fixed-point op", diff)
}

func TestDebtRatioZeroOnEmptyPool(t *testing.T) {
	h := newHarness(t, 200, defaultParams())
	ratio, err := h.engine.DebtRatio()
	require.NoError(t, err)
	assert.True(t, ratio.IsZero())
}

func TestDebtRatioMonotonicity(t *testing.T) {
	h := newHarness(t, 200, defaultParams())
	_, err := h.engine.Fund(alice, fixed.FromInt64(5))
	require.NoError(t, err)

	ratioAfterFund, err := h.engine.DebtRatio()
	require.NoError(t, err)

	_, err = h.engine.Mint(bob, fixed.FromInt64(2))
	require.NoError(t, err)
	ratioAfterMint, err := h.engine.DebtRatio()
	require.NoError(t, err)
	// Minting raises stable supply faster than it grows the pool.
	assert.True(t, ratioAfterMint.GT(ratioAfterFund))

	_, err = h.engine.Fund(alice, fixed.FromInt64(5))
	require.NoError(t, err)
	ratioAfterSecondFund, err := h.engine.DebtRatio()
	require.NoError(t, err)
	// Funding grows the pool without touching stable supply.
	assert.True(t, ratioAfterSecondFund.LT(ratioAfterMint))

	_, err = h.engine.Burn(bob, fixed.FromInt64(100))
	require.NoError(t, err)
	ratioAfterBurn, err := h.engine.DebtRatio()
	require.NoError(t, err)
	assert.True(t, ratioAfterBurn.LT(ratioAfterSecondFund))
}

func TestFundFromHealthyStateKeepsRatioUnderMax(t *testing.T) {
	h := newHarness(t, 200, defaultParams())
	_, err := h.engine.Fund(alice, fixed.FromInt64(4))
	require.NoError(t, err)
	_, err = h.engine.Mint(bob, fixed.FromInt64(4))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := h.engine.Fund(bob, fixed.FromInt64(1))
		require.NoError(t, err)
		ratio, err := h.engine.DebtRatio()
		require.NoError(t, err)
		assert.True(t, ratio.LTE(defaultParams().MaxDebtRatio))
	}
}

func TestFloorSetAboveMaxAndClearedAtOrBelow(t *testing.T) {
	h := newHarness(t, 200, defaultParams())
	seedOverMax(t, h)

	// The mint that pushed the ratio to 0.9 sets the floor to the at-max
	// funding price: (1 - 0.8) * pool / fundingSupply = 0.2*10/200 = 0.01.
	floor := h.engine.MinFundingBuyPrice()
	wantFloor := fixed.Base.QuoRaw(100)
	assert.True(t, floor.Equal(wantFloor), "got %s want %s", floor, wantFloor)

	// A large fund restores the ratio under the maximum and clears it.
	_, err := h.engine.Fund(bob, fixed.FromInt64(5))
	require.NoError(t, err)
	assert.True(t, h.engine.MinFundingBuyPrice().IsZero())

	ratio, err := h.engine.DebtRatio()
	require.NoError(t, err)
	assert.True(t, ratio.LTE(defaultParams().MaxDebtRatio))

	// The recorder saw both transitions, in order.
	require.Len(t, h.recorder.floorChanges, 2)
	assert.Equal(t, "0", h.recorder.floorChanges[0].Previous)
	assert.Equal(t, wantFloor.String(), h.recorder.floorChanges[0].New)
	assert.Equal(t, wantFloor.String(), h.recorder.floorChanges[1].Previous)
	assert.Equal(t, "0", h.recorder.floorChanges[1].New)
}

func TestFloorBlocksCheapBuysWhileOverMax(t *testing.T) {
	h := newHarness(t, 200, defaultParams())
	seedOverMax(t, h)

	// Raw buffer price is (10-9)/200 = 0.005, but buys settle at the 0.01
	// floor: the post-crash discount is not purchasable.
	buy, err := h.engine.FundingPrice(Buy)
	require.NoError(t, err)
	assert.True(t, buy.Equal(fixed.Base.QuoRaw(100)), "got %s", buy)

	sell, err := h.engine.FundingPrice(Sell)
	require.NoError(t, err)
	assert.True(t, sell.Equal(fixed.Base.QuoRaw(200)), "got %s", sell)
}

func TestFundSplitsDepositAcrossThreshold(t *testing.T) {
	h := newHarness(t, 200, defaultParams())
	seedOverMax(t, h)

	// Restoring ratio 0.9 -> 0.8 needs 1.25 reserve units; the 2-unit
	// deposit straddles the threshold. Tranche one (1.25) is priced at the
	// 0.01 floor (125 funding units); tranche two (0.75) at the recovered
	// buffer price of about 0.006923 (about 108.3 units).
	out, err := h.engine.Fund(bob, fixed.FromInt64(2))
	require.NoError(t, err)

	assert.True(t, out.GT(fixed.FromInt64(233)), "got %s", out)
	assert.True(t, out.LT(fixed.FromInt64(234)), "got %s", out)

	// A naive single-price fund at the floor would have minted exactly 200.
	assert.False(t, out.Equal(fixed.FromInt64(200)))

	ratio, err := h.engine.DebtRatio()
	require.NoError(t, err)
	assert.True(t, ratio.LTE(defaultParams().MaxDebtRatio))
	assert.True(t, h.engine.MinFundingBuyPrice().IsZero())
}

func TestSmallFundWhileOverMaxKeepsFloor(t *testing.T) {
	h := newHarness(t, 200, defaultParams())
	seedOverMax(t, h)

	// Half the recovery amount: priced entirely at the floor, ratio drops
	// but stays above the maximum, so the floor stands.
	out, err := h.engine.Fund(bob, fixed.Base.QuoRaw(2))
	require.NoError(t, err)
	assert.True(t, out.Equal(fixed.FromInt64(50)), "0.5 reserve at the 0.01 floor should mint 50, got %s", out)

	ratio, err := h.engine.DebtRatio()
	require.NoError(t, err)
	assert.True(t, ratio.GT(defaultParams().MaxDebtRatio))
	assert.True(t, h.engine.MinFundingBuyPrice().Equal(fixed.Base.QuoRaw(100)))
}

func TestBurnCeilings(t *testing.T) {
	h := newHarness(t, 200, defaultParams())
	seedOverMax(t, h)

	// Underwater: at price 150 the ratio is 1800/1500 = 1.2 and any burn
	// that leaves debt outstanding stays above 1.0.
	h.oracle.SetPrice(fixed.FromInt64(150))
	_, err := h.engine.Burn(alice, fixed.FromInt64(100))
	assert.ErrorIs(t, err, ErrUndercollateralized)

	// Between max and the ceiling: ratio 1800/1900 is about 0.947; burns
	// are risk-reducing and must pass.
	h.oracle.SetPrice(fixed.FromInt64(190))
	stableBefore := h.stable.BalanceOf(alice)
	out, err := h.engine.Burn(alice, fixed.FromInt64(190))
	require.NoError(t, err)
	assert.True(t, out.Equal(fixed.FromInt64(1)), "190 stable at price 190 redeems 1 reserve, got %s", out)
	assert.True(t, h.stable.BalanceOf(alice).Equal(stableBefore.Sub(fixed.FromInt64(190))))
}

func TestFailedBurnLeavesStateUntouched(t *testing.T) {
	h := newHarness(t, 200, defaultParams())
	seedOverMax(t, h)
	h.oracle.SetPrice(fixed.FromInt64(150))

	poolBefore := h.engine.ReservePool()
	stableBefore := h.stable.TotalSupply()
	balanceBefore := h.reserve.BalanceOf(alice)

	_, err := h.engine.Burn(alice, fixed.FromInt64(100))
	require.ErrorIs(t, err, ErrUndercollateralized)

	assert.True(t, h.engine.ReservePool().Equal(poolBefore))
	assert.True(t, h.stable.TotalSupply().Equal(stableBefore))
	assert.True(t, h.reserve.BalanceOf(alice).Equal(balanceBefore))
}

func TestDefundCeiling(t *testing.T) {
	h := newHarness(t, 200, defaultParams())

	// Healthy state: pool 4, stable 400 (ratio 0.5), funding 400 units.
	_, err := h.engine.Fund(alice, fixed.FromInt64(2))
	require.NoError(t, err)
	_, err = h.engine.Mint(bob, fixed.FromInt64(2))
	require.NoError(t, err)

	// Sell price is (4-2)/400 = 0.005. Defunding 320 units would drain 1.6
	// reserve and leave ratio 400/(200*2.4) = 0.83 > 0.8.
	_, err = h.engine.Defund(alice, fixed.FromInt64(320))
	assert.ErrorIs(t, err, ErrMaxDebtRatio)

	// A 100-unit defund leaves ratio 400/(200*3.5) = 0.57 and passes.
	out, err := h.engine.Defund(alice, fixed.FromInt64(100))
	require.NoError(t, err)
	assert.True(t, out.Equal(fixed.Base.QuoRaw(2)), "100 units at 0.005 redeem 0.5 reserve, got %s", out)

	ratio, err := h.engine.DebtRatio()
	require.NoError(t, err)
	assert.True(t, ratio.LTE(defaultParams().MaxDebtRatio))
}

func TestDefundIgnoresBuyFloor(t *testing.T) {
	h := newHarness(t, 200, defaultParams())
	seedOverMax(t, h)

	// Floor is active but sells settle at the raw 0.005 buffer price, and
	// the defund is rejected anyway: the ratio is already above max.
	_, err := h.engine.Defund(alice, fixed.FromInt64(10))
	assert.ErrorIs(t, err, ErrMaxDebtRatio)
}

func TestDustThresholds(t *testing.T) {
	params := defaultParams()
	params.MinOperationAmount = fixed.Base.QuoRaw(1_000) // 0.001 units
	h := newHarness(t, 200, params)

	_, err := h.engine.Fund(alice, params.MinOperationAmount)
	assert.ErrorIs(t, err, ErrBelowMinimum)

	_, err = h.engine.Fund(alice, params.MinOperationAmount.AddRaw(1))
	require.NoError(t, err)

	_, err = h.engine.Mint(alice, sdkmath.NewInt(5))
	assert.ErrorIs(t, err, ErrBelowMinimum)
	_, err = h.engine.Burn(alice, sdkmath.NewInt(5))
	assert.ErrorIs(t, err, ErrBelowMinimum)
	_, err = h.engine.Defund(alice, sdkmath.NewInt(5))
	assert.ErrorIs(t, err, ErrBelowMinimum)
}

type failingOracle struct{ err error }

func (f failingOracle) LatestPrice() (sdkmath.Int, error) { return sdkmath.Int{}, f.err }
func (f failingOracle) DecimalShift() (int64, error)      { return 0, nil }

func TestOracleFailurePropagatesWithoutStateChange(t *testing.T) {
	h := newHarness(t, 200, defaultParams())
	_, err := h.engine.Fund(alice, fixed.FromInt64(1))
	require.NoError(t, err)

	feedErr := errors.New("feed is stale")
	h.engine.oracle = failingOracle{err: feedErr}

	poolBefore := h.engine.ReservePool()
	_, err = h.engine.Mint(alice, fixed.FromInt64(1))
	assert.ErrorIs(t, err, feedErr)
	assert.True(t, h.engine.ReservePool().Equal(poolBefore))

	_, err = h.engine.DebtRatio()
	assert.ErrorIs(t, err, feedErr)
}

func TestFundRejectedOnInsufficientBalance(t *testing.T) {
	h := newHarness(t, 200, defaultParams())

	_, err := h.engine.Fund(alice, fixed.FromInt64(2_000))
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.True(t, h.engine.ReservePool().IsZero())
	assert.True(t, h.funding.TotalSupply().IsZero())
}

func TestReceiptsRecorded(t *testing.T) {
	h := newHarness(t, 200, defaultParams())
	_, err := h.engine.Fund(alice, fixed.FromInt64(1))
	require.NoError(t, err)
	_, err = h.engine.Mint(bob, fixed.FromInt64(1))
	require.NoError(t, err)

	require.Len(t, h.recorder.operations, 2)
	fund := h.recorder.operations[0]
	assert.Equal(t, types.OpFund, fund.Type)
	assert.Equal(t, alice, fund.Actor)
	assert.Equal(t, fixed.FromInt64(1).String(), fund.AmountIn)
	assert.Equal(t, fixed.FromInt64(200).String(), fund.AmountOut)
	assert.NotEmpty(t, fund.ID)

	mint := h.recorder.operations[1]
	assert.Equal(t, types.OpMint, mint.Type)
	assert.Equal(t, bob, mint.Actor)
	assert.Equal(t, fixed.FromInt64(200).String(), mint.OraclePrice)
}

func TestStatusSnapshot(t *testing.T) {
	h := newHarness(t, 200, defaultParams())
	_, err := h.engine.Fund(alice, fixed.FromInt64(2))
	require.NoError(t, err)
	_, err = h.engine.Mint(bob, fixed.FromInt64(2))
	require.NoError(t, err)

	st, err := h.engine.Status()
	require.NoError(t, err)
	assert.Equal(t, fixed.FromInt64(4).String(), st.ReservePool)
	assert.Equal(t, fixed.FromInt64(400).String(), st.StableSupply)
	assert.Equal(t, fixed.FromInt64(400).String(), st.FundingSupply)
	assert.Equal(t, fixed.FromInt64(200).String(), st.OraclePrice)
	assert.Equal(t, fixed.Base.QuoRaw(2).String(), st.DebtRatio)
	assert.Equal(t, "0", st.MinFundingBuyPrice)
}
