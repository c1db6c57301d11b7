/*

This file contains the engine parameters fixed at deployment. They are not
runtime-mutable: changing collateralization limits underneath open positions
would let an operator rewrite the terms of outstanding tokens.

*/

package types

import sdkmath "cosmossdk.io/math"

// EngineParameters holds the deployment-time constants of the engine.
type EngineParameters struct {
	// MinOperationAmount is the dust threshold, in base units of the input
	// token, below which every entry point rejects the call.
	MinOperationAmount sdkmath.Int

	// MaxDebtRatio is the fixed-point collateralization ceiling enforced on
	// fund/defund and used for the funding-price floor (e.g. 0.8).
	MaxDebtRatio sdkmath.Int

	// BurnDebtCeiling is the fixed-point ceiling enforced on burn. It is
	// deliberately looser than MaxDebtRatio: burning reduces risk, so it is
	// only rejected once it would leave the pool fully underwater (1.0).
	BurnDebtCeiling sdkmath.Int

	// Token denominations for the three ledgers.
	ReserveDenom string
	StableDenom  string
	FundingDenom string

	// EngineAccount is the engine's own address on the reserve ledger; the
	// reserve pool is this account's actual balance.
	EngineAccount string
}
