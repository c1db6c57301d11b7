package fixed

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulTruncatesTowardZero(t *testing.T) {
	// 1.5 * 1.5 = 2.25
	a := sdkmath.NewInt(15).Mul(Base).QuoRaw(10)
	got, err := Mul(a, a)
	require.NoError(t, err)
	want := sdkmath.NewInt(225).Mul(Base).QuoRaw(100)
	assert.True(t, got.Equal(want), "got %s want %s", got, want)

	// The smallest representable values multiply down to zero: 1e-18 * 1e-18
	// truncates rather than rounding up.
	tiny := sdkmath.NewInt(1)
	got, err = Mul(tiny, tiny)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	// 7e-18 * 0.5 = 3.5e-18 -> 3e-18, the half unit is dropped.
	got, err = Mul(sdkmath.NewInt(7), Base.QuoRaw(2))
	require.NoError(t, err)
	assert.True(t, got.Equal(sdkmath.NewInt(3)))
}

func TestDivTruncatesTowardZero(t *testing.T) {
	// 1 / 3 = 0.333... truncated at 18 decimals.
	got, err := Div(Base, FromInt64(3))
	require.NoError(t, err)
	want, ok := sdkmath.NewIntFromString("333333333333333333")
	require.True(t, ok)
	assert.True(t, got.Equal(want), "got %s want %s", got, want)

	// 2 / 3 truncates to ...666, never rounds to ...667.
	got, err = Div(FromInt64(2), FromInt64(3))
	require.NoError(t, err)
	want, ok = sdkmath.NewIntFromString("666666666666666666")
	require.True(t, ok)
	assert.True(t, got.Equal(want), "got %s want %s", got, want)
}

func TestDivByZero(t *testing.T) {
	_, err := Div(Base, sdkmath.ZeroInt())
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestNilOperands(t *testing.T) {
	_, err := Mul(sdkmath.Int{}, Base)
	assert.ErrorIs(t, err, ErrNil)
	_, err = Div(Base, sdkmath.Int{})
	assert.ErrorIs(t, err, ErrNil)
}

func TestMulOverflow(t *testing.T) {
	huge := sdkmath.NewIntWithDecimal(1, 70)
	_, err := Mul(huge, huge)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestRoundTripLosesAtMostOneUnitPerOp(t *testing.T) {
	price := FromInt64(200)
	amounts := []sdkmath.Int{
		FromInt64(1),
		FromInt64(997),
		sdkmath.NewInt(123456789123456789),
		sdkmath.NewInt(3),
	}
	for _, amount := range amounts {
		up, err := Mul(price, amount)
		require.NoError(t, err)
		down, err := Div(up, price)
		require.NoError(t, err)
		diff := amount.Sub(down)
		assert.False(t, diff.IsNegative(), "round trip must not create value for %s", amount)
		assert.True(t, diff.LTE(sdkmath.NewInt(1)), "round trip of %s lost %s units", amount, diff)
	}
}

func TestPowerOfTen(t *testing.T) {
	p, err := PowerOfTen(0)
	require.NoError(t, err)
	assert.True(t, p.Equal(sdkmath.OneInt()))

	p, err = PowerOfTen(8)
	require.NoError(t, err)
	assert.True(t, p.Equal(sdkmath.NewInt(100_000_000)))

	_, err = PowerOfTen(-1)
	assert.ErrorIs(t, err, ErrNegative)

	_, err = PowerOfTen(77)
	assert.ErrorIs(t, err, ErrOverflow)
}
