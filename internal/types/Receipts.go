/*

This file contains the event types emitted by the engine for external
observers. Amounts are serialized as base-unit decimal strings so that
receipts survive JSON and SQL round trips without precision loss.

*/

package types

import "time"

// OpType identifies one of the four engine entry points.
type OpType string

const (
	OpMint   OpType = "mint"
	OpBurn   OpType = "burn"
	OpFund   OpType = "fund"
	OpDefund OpType = "defund"
)

// OperationReceipt records one completed state-mutating operation.
type OperationReceipt struct {
	ID             string    `json:"id"`
	Type           OpType    `json:"type"`
	Actor          string    `json:"actor"`
	AmountIn       string    `json:"amount_in"`        // input token base units
	AmountOut      string    `json:"amount_out"`       // output token base units
	OraclePrice    string    `json:"oracle_price"`     // canonical price used
	DebtRatioAfter string    `json:"debt_ratio_after"` // fixed-point, post-commit
	FloorPrice     string    `json:"floor_price"`      // min funding buy price, post-commit
	Timestamp      time.Time `json:"timestamp"`
}

// FloorChange records one transition of the minimum funding buy price.
type FloorChange struct {
	Previous  string    `json:"previous"`
	New       string    `json:"new"`
	DebtRatio string    `json:"debt_ratio"` // ratio that triggered the change
	Timestamp time.Time `json:"timestamp"`
}

// EngineStatus is a consistent snapshot of the derived engine quantities.
type EngineStatus struct {
	ReservePool        string    `json:"reserve_pool"`
	StableSupply       string    `json:"stable_supply"`
	FundingSupply      string    `json:"funding_supply"`
	OraclePrice        string    `json:"oracle_price"`
	DebtRatio          string    `json:"debt_ratio"`
	ReserveBuffer      string    `json:"reserve_buffer"`
	FundingBuyPrice    string    `json:"funding_buy_price"`
	FundingSellPrice   string    `json:"funding_sell_price"`
	MinFundingBuyPrice string    `json:"min_funding_buy_price"`
	Timestamp          time.Time `json:"timestamp"`
}
