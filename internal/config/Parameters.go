/*

This file contains the default engine parameters.

These values govern how far the system lets collateralization degrade before
operations are refused, and were chosen to keep the stable token solvent
through large reserve price drawdowns.

*/

package config

import (
	sdkmath "cosmossdk.io/math"

	"github.com/stablemint/rsm/internal/types"
)

// DefaultEngineParameters provides the baseline risk parameters for the engine.
var DefaultEngineParameters = types.EngineParameters{
	// MinOperationAmount filters out dust. Operations at or below this many
	// base units are rejected outright rather than rounded into nothing.
	MinOperationAmount: sdkmath.NewInt(1000),

	// MaxDebtRatio is 0.8 in fixed-point: funding buys and redemptions are
	// refused once stable debt consumes 80% of the reserve pool's value.
	// The remaining 20% buffer absorbs price moves between oracle updates.
	MaxDebtRatio: sdkmath.NewIntWithDecimal(8, 17),

	// BurnDebtCeiling is 1.0 in fixed-point: stable burns keep working past
	// MaxDebtRatio so holders can exit, but stop once the pool no longer
	// covers outstanding debt at all.
	BurnDebtCeiling: sdkmath.NewIntWithDecimal(1, 18),

	ReserveDenom: "rsv",
	StableDenom:  "stb",
	FundingDenom: "fnd",

	// EngineAccount is the ledger account holding the reserve pool.
	EngineAccount: "engine-pool",
}
