// Package risk holds the per-coin risk parameters (LTV, liquidation
// threshold, fees) that gate borrowing and drive fee collection across the
// lending module.
package risk

import (
	"errors"
	"math/big"
)

// PRECISION mirrors interest.PRECISION: 1e9 represents 100%.
const PRECISION = 1_000_000_000

var precisionBig = big.NewInt(PRECISION)

// ErrInvalidFactors reports a Factors value that violates ltv < lt < PRECISION
// or entry_fee + share_fee >= PRECISION.
var ErrInvalidFactors = errors.New("risk: invalid risk factors")

// Factors groups the governance-controlled safety and fee parameters for one
// coin key.
type Factors struct {
	LTV              *big.Int
	LT               *big.Int
	EntryFee         *big.Int
	ShareFee         *big.Int
	LiquidationFee   *big.Int
}

// Validate enforces the RiskFactors invariants.
func (f Factors) Validate() error {
	if f.LTV == nil || f.LT == nil || f.EntryFee == nil || f.ShareFee == nil || f.LiquidationFee == nil {
		return ErrInvalidFactors
	}
	if f.LTV.Sign() < 0 || f.LTV.Cmp(f.LT) >= 0 || f.LT.Cmp(precisionBig) >= 0 {
		return ErrInvalidFactors
	}
	feeSum := new(big.Int).Add(f.EntryFee, f.ShareFee)
	if feeSum.Cmp(precisionBig) >= 0 {
		return ErrInvalidFactors
	}
	return nil
}

// CalculateEntryFee returns ceil(amount * entry_fee / PRECISION).
func (f Factors) CalculateEntryFee(amount *big.Int) *big.Int {
	return ceilMulDiv(amount, f.EntryFee)
}

// CalculateLiquidationFee returns ceil(amount * liquidation_fee / PRECISION).
func (f Factors) CalculateLiquidationFee(amount *big.Int) *big.Int {
	return ceilMulDiv(amount, f.LiquidationFee)
}

func ceilMulDiv(amount, bps *big.Int) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == nil || bps.Sign() <= 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(amount, bps)
	fee, remainder := new(big.Int).QuoRem(numerator, precisionBig, new(big.Int))
	if remainder.Sign() != 0 {
		fee.Add(fee, big.NewInt(1))
	}
	return fee
}

// ShadowLT is the single, global liquidation threshold applied to the shadow
// side of every position (lt_of_shadow).
type ShadowLT struct {
	LT *big.Int
}

// Validate enforces 0 < lt <= PRECISION.
func (s ShadowLT) Validate() error {
	if s.LT == nil || s.LT.Sign() <= 0 || s.LT.Cmp(precisionBig) > 0 {
		return ErrInvalidFactors
	}
	return nil
}
