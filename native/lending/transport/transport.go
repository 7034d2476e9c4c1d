// Package transport declares the coin-movement primitives the pool engines
// rely on. Concrete token mechanics are out of scope for this module; this
// package only fixes the contract.
package transport

import (
	"math/big"

	"duallend/native/lending/coinkey"
)

// Coin moves value in and out of a pool's custody for a single coin key. The
// asset pool uses a real token's Coin; the shadow pool is wired without one,
// since it never custodies the shadow coin.
type Coin interface {
	WithdrawFrom(account string, amount *big.Int) error
	DepositTo(receiver string, amount *big.Int) error
	BalanceOf(pool coinkey.Key) (*big.Int, error)
}
