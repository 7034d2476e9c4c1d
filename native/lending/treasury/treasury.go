// Package treasury declares the protocol-owned fee custodian collaborator
// interface. Concrete custody is out of scope for this module.
package treasury

import (
	"math/big"

	"duallend/native/lending/coinkey"
)

// Treasury receives fee amounts collected by pool operations (entry fees,
// harvested protocol fees).
type Treasury interface {
	CollectFee(key coinkey.Key, amount *big.Int) error
}
