// Package sharemath implements the amount<->share conversions shared by the
// asset and shadow pool engines. Interest accrual inflates a bucket's total
// amount without minting new shares, so a share's underlying amount only ever
// grows; every caller must pass the bucket's current totals, post-accrual, in
// the same operation that consumes the result.
package sharemath

import "math/big"

// ToShare converts an amount being deposited into the share units it mints,
// rounding down (round-half-down per spec: plain floor division). When the
// bucket is empty the share units track the amount 1:1.
func ToShare(amount, totalAmount, totalShare *big.Int) *big.Int {
	if totalAmount == nil || totalAmount.Sign() == 0 || totalShare == nil || totalShare.Sign() == 0 {
		return new(big.Int).Set(amount)
	}
	share := new(big.Int).Mul(amount, totalShare)
	share.Quo(share, totalAmount)
	return share
}

// ToShareRoundUp converts an amount being withdrawn or repaid into the share
// units it burns, rounding up so the pool is never shortchanged by a user
// taking shares out.
func ToShareRoundUp(amount, totalAmount, totalShare *big.Int) *big.Int {
	if totalAmount == nil || totalAmount.Sign() == 0 || totalShare == nil || totalShare.Sign() == 0 {
		return new(big.Int).Set(amount)
	}
	numerator := new(big.Int).Mul(amount, totalShare)
	share, remainder := new(big.Int).QuoRem(numerator, totalAmount, new(big.Int))
	if remainder.Sign() != 0 {
		share.Add(share, big.NewInt(1))
	}
	return share
}

// ToAmount converts a share quantity back into the underlying amount it
// currently represents, rounding down.
func ToAmount(share, totalAmount, totalShare *big.Int) *big.Int {
	if totalAmount == nil || totalAmount.Sign() == 0 || totalShare == nil || totalShare.Sign() == 0 {
		return new(big.Int).Set(share)
	}
	amount := new(big.Int).Mul(share, totalAmount)
	amount.Quo(amount, totalShare)
	return amount
}

// SaturatingSub subtracts b from a, clamping the result at zero instead of
// going negative. Used when rounding can otherwise push a bucket just below
// zero on the last withdrawal or repayment.
func SaturatingSub(a, b *big.Int) *big.Int {
	if a == nil {
		return big.NewInt(0)
	}
	if b == nil {
		return new(big.Int).Set(a)
	}
	result := new(big.Int).Sub(a, b)
	if result.Sign() < 0 {
		return big.NewInt(0)
	}
	return result
}
