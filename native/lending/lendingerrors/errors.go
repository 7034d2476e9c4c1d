// Package lendingerrors collects the sentinel error values
// shared across the pool, position, and orchestrator packages. Every
// operation is atomic: any of these errors aborts the transaction and the
// caller is expected to discard all in-flight mutations (this module never
// partially commits).
package lendingerrors

import "errors"

var (
	ErrNotInitialized   = errors.New("lending: not initialized")
	ErrAlreadyExisted   = errors.New("lending: already existed")
	ErrNotExisted       = errors.New("lending: not existed")
	ErrNotAvailable     = errors.New("lending: pool or system status disallows operation")
	ErrAmountIsZero     = errors.New("lending: amount must be positive")

	ErrInsufficientLiquidity      = errors.New("lending: insufficient liquidity")
	ErrInsufficientConlyDeposited = errors.New("lending: insufficient collateral-only deposit")
	ErrExceedCoinInPool           = errors.New("lending: amount exceeds coin capacity in pool")

	ErrOverDepositedAmount = errors.New("lending: would make deposited balance negative")
	ErrOverBorrowedAmount  = errors.New("lending: would make borrowed balance negative")

	ErrNoSafePosition = errors.New("lending: operation would leave position unsafe")

	ErrAlreadyDepositedAsNormal         = errors.New("lending: already deposited as normal, cannot mix with collateral-only")
	ErrAlreadyDepositedAsCollateralOnly = errors.New("lending: already deposited as collateral-only, cannot mix with normal")

	ErrAlreadyProtected = errors.New("lending: coin already protected from rebalance")
	ErrCannotRebalance  = errors.New("lending: rebalance preconditions not satisfied")
	ErrPositionExisted  = errors.New("lending: position still has a nonzero balance")

	ErrInterestOverflow = errors.New("lending: interest accrual would overflow")
	ErrDexHasNoLiquidity = errors.New("lending: dex reports no liquidity for coin")

	ErrPoolNotConfigured = errors.New("lending: pool identifier not configured")
	ErrNilState          = errors.New("lending: state not configured")
)
