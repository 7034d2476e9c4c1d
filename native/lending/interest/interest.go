// Package interest implements the utilization-driven, compounding
// interest-rate model shared by the asset and shadow pools. All arithmetic is
// carried out in *big.Int to emulate the u128 intermediate precision the
// model requires; overflow is rejected rather than silently truncated.
package interest

import (
	"errors"
	"math/big"
)

// PRECISION is the fixed-point scale used throughout the lending module: 1e9
// represents 100%.
const PRECISION = 1_000_000_000

// SecondsPerYear is the annualization constant used to convert the per-year
// rate curve into a per-second rate.
const SecondsPerYear = 31_536_000

// MicrosPerSecond converts the microsecond timestamps used for last_updated
// bookkeeping into whole seconds for the rate model.
const MicrosPerSecond = 1_000_000

// maxWordBits bounds the intermediate arithmetic to emulate u128 overflow
// detection: any product that would not fit in 128 bits aborts the operation
// rather than silently wrapping or corrupting pool state.
const maxWordBits = 128

var (
	// ErrInvalidConfig reports a Config that violates uopt < ucrit or
	// rb <= rslope1 < rslope2.
	ErrInvalidConfig = errors.New("interest: invalid rate curve configuration")
	// ErrInterestOverflow reports that computing the compound factor over the
	// requested interval would overflow u128 intermediate arithmetic.
	ErrInterestOverflow = errors.New("interest: compound factor overflow")
)

var precisionBig = big.NewInt(PRECISION)

// Config is the per-coin interest-rate curve: a kinked utilization model with
// a base rate and two slopes either side of the optimal-utilization kink.
type Config struct {
	Uopt    *big.Int
	Ucrit   *big.Int
	Rb      *big.Int
	Rslope1 *big.Int
	Rslope2 *big.Int
}

// Validate enforces the curve invariants: 0 < uopt < ucrit <
// PRECISION, and rb <= rslope1 < rslope2.
func (c Config) Validate() error {
	if c.Uopt == nil || c.Ucrit == nil || c.Rb == nil || c.Rslope1 == nil || c.Rslope2 == nil {
		return ErrInvalidConfig
	}
	if c.Uopt.Sign() <= 0 || c.Uopt.Cmp(c.Ucrit) >= 0 || c.Ucrit.Cmp(precisionBig) >= 0 {
		return ErrInvalidConfig
	}
	if c.Rb.Cmp(c.Rslope1) > 0 || c.Rslope1.Cmp(c.Rslope2) >= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Utilization computes u = PRECISION * borrowed / deposited, or zero when
// deposited is zero.
func Utilization(borrowed, deposited *big.Int) *big.Int {
	if deposited == nil || deposited.Sign() == 0 || borrowed == nil || borrowed.Sign() == 0 {
		return big.NewInt(0)
	}
	u := new(big.Int).Mul(borrowed, precisionBig)
	u.Quo(u, deposited)
	return u
}

// RatePerYear evaluates the piecewise kinked rate curve r(u) in PRECISION
// units per year.
func RatePerYear(c Config, u *big.Int) *big.Int {
	if u.Cmp(c.Uopt) <= 0 {
		// r = rb + u*rslope1/uopt
		term := new(big.Int).Mul(u, c.Rslope1)
		term.Quo(term, c.Uopt)
		return new(big.Int).Add(c.Rb, term)
	}
	// r = (rb + rslope1) + rslope2*(u - uopt)/ucrit
	base := new(big.Int).Add(c.Rb, c.Rslope1)
	excess := new(big.Int).Sub(u, c.Uopt)
	term := new(big.Int).Mul(c.Rslope2, excess)
	term.Quo(term, c.Ucrit)
	return base.Add(base, term)
}

// Accrual is the output of Accrue: the compound factor
// applied over the interval plus the resulting split of newly accrued
// interest between depositors and the protocol.
type Accrual struct {
	Rcomp           *big.Int
	Accrued         *big.Int
	ProtocolShare   *big.Int
	DepositorsShare *big.Int
}

func checkBound(x *big.Int) error {
	if x != nil && x.BitLen() > maxWordBits {
		return ErrInterestOverflow
	}
	return nil
}

// CompoundFactor computes rcomp for an interval of deltaMicros microseconds
// at rate r (PRECISION units per second), using the cubic Taylor approximation
// as follows:
//
//	rcomp ≈ PRECISION + r*t + t*(t-1)*r²/2 + t*(t-1)*(t-2)*r³/6
//
// where t is the interval in whole seconds and r² and r³ are rescaled by
// PRECISION so every term stays in PRECISION units. rcomp is PRECISION when t is
// zero. Each intermediate product is bounds-checked against u128 to fail the
// operation before it could silently overflow.
func CompoundFactor(r *big.Int, deltaMicros uint64) (*big.Int, error) {
	t := new(big.Int).SetUint64(deltaMicros / MicrosPerSecond)
	if t.Sign() == 0 {
		return new(big.Int).Set(precisionBig), nil
	}
	if r == nil {
		r = big.NewInt(0)
	}

	rcomp := new(big.Int).Set(precisionBig)

	// Linear term: r*t
	linear := new(big.Int).Mul(r, t)
	if err := checkBound(linear); err != nil {
		return nil, err
	}
	rcomp.Add(rcomp, linear)

	tMinus1 := new(big.Int).Sub(t, big.NewInt(1))
	tMinus2 := new(big.Int).Sub(t, big.NewInt(2))

	// Quadratic term: t*(t-1)*r^2/2
	r2 := new(big.Int).Mul(r, r)
	if err := checkBound(r2); err != nil {
		return nil, err
	}
	r2.Quo(r2, precisionBig)
	quad := new(big.Int).Mul(t, tMinus1)
	quad.Mul(quad, r2)
	if err := checkBound(quad); err != nil {
		return nil, err
	}
	quad.Quo(quad, big.NewInt(2))
	rcomp.Add(rcomp, quad)

	// Cubic term: t*(t-1)*(t-2)*r^3/6
	r3 := new(big.Int).Mul(r2, r)
	if err := checkBound(r3); err != nil {
		return nil, err
	}
	r3.Quo(r3, precisionBig)
	cubic := new(big.Int).Mul(t, tMinus1)
	cubic.Mul(cubic, tMinus2)
	cubic.Mul(cubic, r3)
	if err := checkBound(cubic); err != nil {
		return nil, err
	}
	cubic.Quo(cubic, big.NewInt(6))
	rcomp.Add(rcomp, cubic)

	if err := checkBound(rcomp); err != nil {
		return nil, err
	}
	return rcomp, nil
}

// Accrue combines Utilization, RatePerYear, and CompoundFactor into the
// single accrual step a pool performs each time it advances last_updated: it
// computes rcomp for the elapsed interval, the resulting accrued amount on
// total_borrowed_amount, and its split between depositors and the protocol
// fee bucket (shareFee in PRECISION units).
func Accrue(c Config, totalBorrowed, totalDeposited *big.Int, deltaMicros uint64, shareFee *big.Int) (*Accrual, error) {
	u := Utilization(totalBorrowed, totalDeposited)
	r := RatePerYear(c, u)
	rPerSec := new(big.Int).Quo(r, big.NewInt(SecondsPerYear))

	rcomp, err := CompoundFactor(rPerSec, deltaMicros)
	if err != nil {
		return nil, err
	}

	if totalBorrowed == nil {
		totalBorrowed = big.NewInt(0)
	}

	delta := new(big.Int).Sub(rcomp, precisionBig)
	accrued := new(big.Int).Mul(totalBorrowed, delta)
	if err := checkBound(accrued); err != nil {
		return nil, err
	}
	accrued.Quo(accrued, precisionBig)
	if accrued.Sign() < 0 {
		accrued.SetInt64(0)
	}

	protocolShare := big.NewInt(0)
	if shareFee != nil && shareFee.Sign() > 0 && accrued.Sign() > 0 {
		protocolShare = new(big.Int).Mul(accrued, shareFee)
		protocolShare.Quo(protocolShare, precisionBig)
	}
	depositorsShare := new(big.Int).Sub(accrued, protocolShare)

	return &Accrual{
		Rcomp:           rcomp,
		Accrued:         accrued,
		ProtocolShare:   protocolShare,
		DepositorsShare: depositorsShare,
	}, nil
}
