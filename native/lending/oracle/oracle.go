// Package oracle declares the price-oracle collaborator interface consumed
// by the lending module. The concrete oracle (external to this core) is out
// of scope for this module.
package oracle

import (
	"math/big"

	"duallend/native/lending/coinkey"
)

// Oracle reports the common-value-unit volume of an amount of a given coin.
// Implementations are expected to be externally supplied; this package only
// fixes the contract the lending engines call against.
type Oracle interface {
	Volume(key coinkey.Key, amount *big.Int) *big.Int
}
