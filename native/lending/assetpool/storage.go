package assetpool

import "math/big"

// Storage is the per-coin ledger: normal-collateral,
// collateral-only, and borrow sub-accounts plus the accrual bookkeeping
// needed to grow them under compounding interest.
type Storage struct {
	TotalNormalDepositedAmount *big.Int
	TotalNormalDepositedShare  *big.Int
	TotalConlyDepositedAmount  *big.Int
	TotalConlyDepositedShare   *big.Int
	TotalBorrowedAmount        *big.Int
	TotalBorrowedShare         *big.Int
	LastUpdated                uint64
	ProtocolFees               *big.Int
	HarvestedProtocolFees      *big.Int
	Rcomp                      *big.Int
}

// NewStorage returns a zeroed Storage ready for a newly onboarded asset.
func NewStorage() *Storage {
	return &Storage{
		TotalNormalDepositedAmount: big.NewInt(0),
		TotalNormalDepositedShare:  big.NewInt(0),
		TotalConlyDepositedAmount:  big.NewInt(0),
		TotalConlyDepositedShare:   big.NewInt(0),
		TotalBorrowedAmount:        big.NewInt(0),
		TotalBorrowedShare:         big.NewInt(0),
		ProtocolFees:               big.NewInt(0),
		HarvestedProtocolFees:      big.NewInt(0),
		Rcomp:                      big.NewInt(0),
	}
}

// EnsureDefaults fills any nil big.Int field with zero, guarding against a
// partially-populated Storage loaded from persistence.
func (s *Storage) EnsureDefaults() {
	fields := []**big.Int{
		&s.TotalNormalDepositedAmount, &s.TotalNormalDepositedShare,
		&s.TotalConlyDepositedAmount, &s.TotalConlyDepositedShare,
		&s.TotalBorrowedAmount, &s.TotalBorrowedShare,
		&s.ProtocolFees, &s.HarvestedProtocolFees, &s.Rcomp,
	}
	for _, f := range fields {
		if *f == nil {
			*f = big.NewInt(0)
		}
	}
}

// Clone returns a deep copy so callers never mutate a shared reference.
func (s *Storage) Clone() *Storage {
	if s == nil {
		return nil
	}
	clone := &Storage{LastUpdated: s.LastUpdated}
	clone.TotalNormalDepositedAmount = cloneBig(s.TotalNormalDepositedAmount)
	clone.TotalNormalDepositedShare = cloneBig(s.TotalNormalDepositedShare)
	clone.TotalConlyDepositedAmount = cloneBig(s.TotalConlyDepositedAmount)
	clone.TotalConlyDepositedShare = cloneBig(s.TotalConlyDepositedShare)
	clone.TotalBorrowedAmount = cloneBig(s.TotalBorrowedAmount)
	clone.TotalBorrowedShare = cloneBig(s.TotalBorrowedShare)
	clone.ProtocolFees = cloneBig(s.ProtocolFees)
	clone.HarvestedProtocolFees = cloneBig(s.HarvestedProtocolFees)
	clone.Rcomp = cloneBig(s.Rcomp)
	return clone
}

func cloneBig(x *big.Int) *big.Int {
	if x == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(x)
}

// Liquidity returns poolCoinBalance - total_conly_deposited_amount, clamped
// at zero (liquidity never goes negative).
func (s *Storage) Liquidity(poolCoinBalance *big.Int) *big.Int {
	liquidity := new(big.Int).Sub(poolCoinBalance, s.TotalConlyDepositedAmount)
	if liquidity.Sign() < 0 {
		return big.NewInt(0)
	}
	return liquidity
}
