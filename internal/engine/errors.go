package engine

import "errors"

// Input errors: rejected before any state change.
var (
	ErrBelowMinimum = errors.New("amount below minimum operation threshold")
)

// Invariant violations: the operation would leave the system in a state the
// design forbids. Nothing is committed.
var (
	ErrNoFunding           = errors.New("cannot mint stable while funding supply is zero")
	ErrUndercollateralized = errors.New("operation would leave debt ratio above the burn ceiling")
	ErrMaxDebtRatio        = errors.New("operation would leave debt ratio above the maximum")
	ErrInsufficientReserve = errors.New("operation would overdraw the reserve pool")
)

// Arithmetic errors specific to the engine. Division-by-zero and overflow in
// the underlying math surface as fixed.ErrDivisionByZero / fixed.ErrOverflow.
var (
	ErrZeroFundingPrice = errors.New("funding price is zero")
)
