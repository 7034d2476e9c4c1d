// Package assetpool implements the per-coin
// real-asset pool. It tracks normal, collateral-only, and borrowed
// sub-accounts under compounding interest and exposes the deposit / withdraw
// / borrow / repay / switch-collateral / liquidation-assist / fee-harvest
// operations the Money Market orchestrator composes.
package assetpool

import (
	"math"
	"math/big"

	"duallend/native/lending/authz"
	"duallend/native/lending/coinkey"
	"duallend/native/lending/events"
	"duallend/native/lending/interest"
	"duallend/native/lending/lendingerrors"
	"duallend/native/lending/metrics"
	"duallend/native/lending/poolstatus"
	"duallend/native/lending/risk"
	"duallend/native/lending/sharemath"
	"duallend/native/lending/transport"
	"duallend/native/lending/treasury"
)

var maxU64 = new(big.Int).SetUint64(math.MaxUint64)

// State is the persistence seam the engine operates against: one Storage
// record per onboarded coin key.
type State interface {
	GetStorage(key coinkey.Key) (*Storage, error)
	PutStorage(key coinkey.Key, s *Storage) error
}

// RiskProvider resolves the governance-controlled risk factors for a coin.
type RiskProvider interface {
	Factors(key coinkey.Key) (risk.Factors, bool)
}

// RateProvider resolves the interest-rate curve for a coin.
type RateProvider interface {
	Config(key coinkey.Key) (interest.Config, bool)
}

// Engine is the asset pool engine for real-asset coins.
type Engine struct {
	state    State
	status   *poolstatus.Registry
	risk     RiskProvider
	rates    RateProvider
	coin     transport.Coin
	treasury treasury.Treasury
	sink     events.Sink
	owner    *authz.Token
	now      uint64
	side     string
}

// NewEngine wires an asset pool engine. owner is the capability token the
// orchestrator must present to every mutating call. Metrics recorded by this
// engine are labeled side="asset"; shadowpool.NewEngine relabels its embedded
// engine to "shadow" after construction.
func NewEngine(owner *authz.Token, state State, status *poolstatus.Registry, riskP RiskProvider, ratesP RateProvider, coin transport.Coin, treas treasury.Treasury, sink events.Sink) *Engine {
	return &Engine{
		state:    state,
		status:   status,
		risk:     riskP,
		rates:    ratesP,
		coin:     coin,
		treasury: treas,
		sink:     sink,
		owner:    owner,
		side:     "asset",
	}
}

// SetSide overrides the metrics side label, used by shadowpool.NewEngine to
// relabel its embedded engine as "shadow".
func (e *Engine) SetSide(side string) { e.side = side }

// SetNow records the transaction-wide "now" (microseconds) used for interest
// accrual. The orchestrator sets this once per transaction before touching
// any pool or position, per the transaction-wide ordering rule.
func (e *Engine) SetNow(now uint64) { e.now = now }

func (e *Engine) loadStorage(key coinkey.Key) (*Storage, error) {
	if e.state == nil {
		return nil, lendingerrors.ErrNilState
	}
	s, err := e.state.GetStorage(key)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = NewStorage()
	}
	s.EnsureDefaults()
	return s, nil
}

func (e *Engine) persist(key coinkey.Key, s *Storage) error {
	return e.state.PutStorage(key, s)
}

// AccrueInterest runs the compounding interest step for key if time has
// advanced since last_updated, idempotent within the same "now".
func (e *Engine) AccrueInterest(key coinkey.Key) (*Storage, error) {
	s, err := e.loadStorage(key)
	if err != nil {
		return nil, err
	}
	if err := e.accrue(key, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (e *Engine) accrue(key coinkey.Key, s *Storage) error {
	if s.LastUpdated == 0 {
		s.LastUpdated = e.now
		return nil
	}
	if s.LastUpdated == e.now {
		return nil
	}
	cfg, ok := e.rates.Config(key)
	if !ok {
		s.LastUpdated = e.now
		return nil
	}
	factors, _ := e.risk.Factors(key)

	delta := e.now - s.LastUpdated
	// Utilization is measured against the lendable (normal) pool only;
	// collateral-only deposits are ring-fenced from borrowing and earn no
	// interest share.
	result, err := interest.Accrue(cfg, s.TotalBorrowedAmount, s.TotalNormalDepositedAmount, delta, factors.ShareFee)
	if err != nil {
		return lendingerrors.ErrInterestOverflow
	}
	s.Rcomp = result.Rcomp
	s.TotalBorrowedAmount = new(big.Int).Add(s.TotalBorrowedAmount, result.Accrued)
	s.TotalNormalDepositedAmount = new(big.Int).Add(s.TotalNormalDepositedAmount, result.DepositorsShare)
	s.ProtocolFees = new(big.Int).Add(s.ProtocolFees, result.ProtocolShare)
	s.LastUpdated = e.now
	return nil
}

func (e *Engine) poolCoinBalance(key coinkey.Key) (*big.Int, error) {
	if e.coin == nil {
		return big.NewInt(0), nil
	}
	return e.coin.BalanceOf(key)
}

// ExecAccrueInterest refreshes accrual for a batch of keys without any other
// side effect, used by read-only queries that need fresh totals.
func (e *Engine) ExecAccrueInterest(keys ...coinkey.Key) error {
	for _, key := range keys {
		if _, err := e.AccrueInterest(key); err != nil {
			return err
		}
		s, err := e.loadStorage(key)
		if err != nil {
			return err
		}
		if err := e.accrue(key, s); err != nil {
			return err
		}
		if err := e.persist(key, s); err != nil {
			return err
		}
	}
	return nil
}

// DepositFor locks amount of coin key into the pool on behalf of beneficiary,
// minting normal or collateral-only shares depending on isCollateralOnly.
func (e *Engine) DepositFor(caller *authz.Token, callerAccount, beneficiary string, key coinkey.Key, amount *big.Int, isCollateralOnly bool) (*big.Int, *big.Int, error) {
	if err := authz.Check(e.owner, caller); err != nil {
		return nil, nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, lendingerrors.ErrAmountIsZero
	}
	if err := e.status.Check(key, poolstatus.OpDeposit); err != nil {
		return nil, nil, err
	}

	poolCoin, err := e.poolCoinBalance(key)
	if err != nil {
		return nil, nil, err
	}
	projected := new(big.Int).Add(poolCoin, amount)
	if projected.Cmp(maxU64) > 0 {
		return nil, nil, lendingerrors.ErrExceedCoinInPool
	}

	s, err := e.loadStorage(key)
	if err != nil {
		return nil, nil, err
	}
	if err := e.accrue(key, s); err != nil {
		return nil, nil, err
	}

	if e.coin != nil {
		if err := e.coin.WithdrawFrom(callerAccount, amount); err != nil {
			return nil, nil, err
		}
	}

	var share *big.Int
	if isCollateralOnly {
		share = sharemath.ToShare(amount, s.TotalConlyDepositedAmount, s.TotalConlyDepositedShare)
		s.TotalConlyDepositedAmount = new(big.Int).Add(s.TotalConlyDepositedAmount, amount)
		s.TotalConlyDepositedShare = new(big.Int).Add(s.TotalConlyDepositedShare, share)
	} else {
		share = sharemath.ToShare(amount, s.TotalNormalDepositedAmount, s.TotalNormalDepositedShare)
		s.TotalNormalDepositedAmount = new(big.Int).Add(s.TotalNormalDepositedAmount, amount)
		s.TotalNormalDepositedShare = new(big.Int).Add(s.TotalNormalDepositedShare, share)
	}

	if err := e.persist(key, s); err != nil {
		return nil, nil, err
	}

	metrics.Pool().RecordDeposit(key.String(), e.side)
	events.Emit(e.sink, events.Event{Type: "Deposit", Attributes: map[string]string{
		"key": key.String(), "beneficiary": beneficiary, "amount": amount.String(), "conly": boolStr(isCollateralOnly),
	}})
	return amount, share, nil
}

// WithdrawFor releases value (share or amount, per byShare) of coin key from
// the pool to receiver, deducting liquidationFee (zero outside a forced
// liquidation) before transferring the remainder.
func (e *Engine) WithdrawFor(caller *authz.Token, receiverAccount string, key coinkey.Key, value *big.Int, isCollateralOnly, byShare bool, liquidationFee *big.Int) (*big.Int, *big.Int, error) {
	if err := authz.Check(e.owner, caller); err != nil {
		return nil, nil, err
	}
	if value == nil || value.Sign() <= 0 {
		return nil, nil, lendingerrors.ErrAmountIsZero
	}
	if err := e.status.Check(key, poolstatus.OpWithdraw); err != nil {
		return nil, nil, err
	}
	if liquidationFee == nil {
		liquidationFee = big.NewInt(0)
	}

	s, err := e.loadStorage(key)
	if err != nil {
		return nil, nil, err
	}
	if err := e.accrue(key, s); err != nil {
		return nil, nil, err
	}

	totalAmount, totalShare := s.TotalNormalDepositedAmount, s.TotalNormalDepositedShare
	if isCollateralOnly {
		totalAmount, totalShare = s.TotalConlyDepositedAmount, s.TotalConlyDepositedShare
	}

	var amount, share *big.Int
	if byShare {
		share = new(big.Int).Set(value)
		amount = sharemath.ToAmount(share, totalAmount, totalShare)
	} else {
		amount = new(big.Int).Set(value)
		share = sharemath.ToShareRoundUp(amount, totalAmount, totalShare)
	}

	if share.Cmp(totalShare) > 0 {
		if isCollateralOnly {
			return nil, nil, lendingerrors.ErrInsufficientConlyDeposited
		}
		return nil, nil, lendingerrors.ErrOverDepositedAmount
	}

	amountToTransfer := sharemath.SaturatingSub(amount, liquidationFee)

	if !isCollateralOnly && e.coin != nil {
		poolCoin, err := e.poolCoinBalance(key)
		if err != nil {
			return nil, nil, err
		}
		if s.Liquidity(poolCoin).Cmp(amountToTransfer) < 0 {
			return nil, nil, lendingerrors.ErrInsufficientLiquidity
		}
	}

	if isCollateralOnly {
		s.TotalConlyDepositedAmount = sharemath.SaturatingSub(s.TotalConlyDepositedAmount, amount)
		s.TotalConlyDepositedShare = sharemath.SaturatingSub(s.TotalConlyDepositedShare, share)
	} else {
		s.TotalNormalDepositedAmount = sharemath.SaturatingSub(s.TotalNormalDepositedAmount, amount)
		s.TotalNormalDepositedShare = sharemath.SaturatingSub(s.TotalNormalDepositedShare, share)
	}

	if e.coin != nil && amountToTransfer.Sign() > 0 {
		if err := e.coin.DepositTo(receiverAccount, amountToTransfer); err != nil {
			return nil, nil, err
		}
	}

	if err := e.persist(key, s); err != nil {
		return nil, nil, err
	}

	metrics.Pool().RecordWithdrawal(key.String(), e.side)
	events.Emit(e.sink, events.Event{Type: "Withdraw", Attributes: map[string]string{
		"key": key.String(), "receiver": receiverAccount, "amount": amount.String(), "conly": boolStr(isCollateralOnly),
	}})
	return amount, share, nil
}

// BorrowFor lends amount of coin key to receiver, charging the coin's entry
// fee and requiring the pool retain enough liquidity to cover both. An engine
// wired without a transport.Coin (the shadow pool) custodies nothing, so it
// skips the liquidity check.
func (e *Engine) BorrowFor(caller *authz.Token, receiverAccount string, key coinkey.Key, amount *big.Int) (*big.Int, *big.Int, *big.Int, error) {
	if err := authz.Check(e.owner, caller); err != nil {
		return nil, nil, nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, nil, lendingerrors.ErrAmountIsZero
	}
	if err := e.status.Check(key, poolstatus.OpBorrow); err != nil {
		return nil, nil, nil, err
	}

	s, err := e.loadStorage(key)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := e.accrue(key, s); err != nil {
		return nil, nil, nil, err
	}

	factors, _ := e.risk.Factors(key)
	fee := factors.CalculateEntryFee(amount)
	amountWithFee := new(big.Int).Add(amount, fee)

	poolCoin, err := e.poolCoinBalance(key)
	if err != nil {
		return nil, nil, nil, err
	}
	if e.coin != nil && s.Liquidity(poolCoin).Cmp(amountWithFee) < 0 {
		return nil, nil, nil, lendingerrors.ErrInsufficientLiquidity
	}

	if fee.Sign() > 0 && e.treasury != nil {
		if err := e.treasury.CollectFee(key, fee); err != nil {
			return nil, nil, nil, err
		}
	}
	if e.coin != nil {
		if err := e.coin.DepositTo(receiverAccount, amount); err != nil {
			return nil, nil, nil, err
		}
	}

	share := sharemath.ToShare(amountWithFee, s.TotalBorrowedAmount, s.TotalBorrowedShare)
	s.TotalBorrowedAmount = new(big.Int).Add(s.TotalBorrowedAmount, amountWithFee)
	s.TotalBorrowedShare = new(big.Int).Add(s.TotalBorrowedShare, share)

	if err := e.persist(key, s); err != nil {
		return nil, nil, nil, err
	}

	metrics.Pool().RecordBorrow(key.String(), e.side)
	events.Emit(e.sink, events.Event{Type: "Borrow", Attributes: map[string]string{
		"key": key.String(), "receiver": receiverAccount, "amount": amount.String(), "fee": fee.String(),
	}})
	return amount, fee, share, nil
}

// Repay reduces the pool's borrowed totals by value (amount or share, per
// byShare) taken from account.
func (e *Engine) Repay(caller *authz.Token, account string, key coinkey.Key, value *big.Int, byShare bool) (*big.Int, *big.Int, error) {
	if err := authz.Check(e.owner, caller); err != nil {
		return nil, nil, err
	}
	if value == nil || value.Sign() <= 0 {
		return nil, nil, lendingerrors.ErrAmountIsZero
	}

	s, err := e.loadStorage(key)
	if err != nil {
		return nil, nil, err
	}
	if err := e.accrue(key, s); err != nil {
		return nil, nil, err
	}
	if err := e.status.Check(key, poolstatus.OpRepay); err != nil {
		return nil, nil, err
	}

	var amount, share *big.Int
	if byShare {
		share = new(big.Int).Set(value)
		amount = sharemath.ToAmount(share, s.TotalBorrowedAmount, s.TotalBorrowedShare)
	} else {
		amount = new(big.Int).Set(value)
		share = sharemath.ToShareRoundUp(amount, s.TotalBorrowedAmount, s.TotalBorrowedShare)
	}
	if share.Cmp(s.TotalBorrowedShare) > 0 {
		share = new(big.Int).Set(s.TotalBorrowedShare)
		amount = sharemath.ToAmount(share, s.TotalBorrowedAmount, s.TotalBorrowedShare)
	}

	if e.coin != nil {
		if err := e.coin.WithdrawFrom(account, amount); err != nil {
			return nil, nil, err
		}
	}

	s.TotalBorrowedAmount = sharemath.SaturatingSub(s.TotalBorrowedAmount, amount)
	s.TotalBorrowedShare = sharemath.SaturatingSub(s.TotalBorrowedShare, share)

	if err := e.persist(key, s); err != nil {
		return nil, nil, err
	}

	metrics.Pool().RecordRepay(key.String(), e.side)
	events.Emit(e.sink, events.Event{Type: "Repay", Attributes: map[string]string{
		"key": key.String(), "account": account, "amount": amount.String(),
	}})
	return amount, share, nil
}

// WithdrawForLiquidation withdraws withdrawing (an amount) of coin key from
// target's collateral on behalf of liquidator, applying the coin's
// liquidation fee.
func (e *Engine) WithdrawForLiquidation(caller *authz.Token, liquidatorAccount string, key coinkey.Key, withdrawing *big.Int, isCollateralOnly bool) (*big.Int, *big.Int, error) {
	if err := authz.Check(e.owner, caller); err != nil {
		return nil, nil, err
	}
	s, err := e.loadStorage(key)
	if err != nil {
		return nil, nil, err
	}
	if err := e.accrue(key, s); err != nil {
		return nil, nil, err
	}
	factors, _ := e.risk.Factors(key)
	fee := factors.CalculateLiquidationFee(withdrawing)

	amount, _, err := e.WithdrawFor(caller, liquidatorAccount, key, withdrawing, isCollateralOnly, false, fee)
	if err != nil {
		return nil, nil, err
	}
	metrics.Pool().RecordLiquidation(key.String(), e.side)
	events.Emit(e.sink, events.Event{Type: "Liquidate", Attributes: map[string]string{
		"key": key.String(), "liquidator": liquidatorAccount, "amount": amount.String(),
	}})
	return amount, fee, nil
}

// SwitchCollateral moves value of coin key between the normal and
// collateral-only buckets, resolving the amount against the source bucket
// and re-sharing it against the destination so value is conserved. value is
// a share quantity when byShare is true, and a deposited amount (converted
// to the source bucket's equivalent share, rounded up) otherwise — mirroring
// WithdrawFor's byShare flag, since a caller holding a position's recorded
// deposited amount has no way to know the pool's current share price.
func (e *Engine) SwitchCollateral(caller *authz.Token, key coinkey.Key, value *big.Int, toCollateralOnly, byShare bool) (*big.Int, *big.Int, *big.Int, error) {
	if err := authz.Check(e.owner, caller); err != nil {
		return nil, nil, nil, err
	}
	if value == nil || value.Sign() <= 0 {
		return nil, nil, nil, lendingerrors.ErrAmountIsZero
	}
	if err := e.status.Check(key, poolstatus.OpSwitchCollateral); err != nil {
		return nil, nil, nil, err
	}

	s, err := e.loadStorage(key)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := e.accrue(key, s); err != nil {
		return nil, nil, nil, err
	}

	srcAmount, srcShare := s.TotalNormalDepositedAmount, s.TotalNormalDepositedShare
	if toCollateralOnly {
		// moving OUT of normal, INTO conly: source is normal.
	} else {
		srcAmount, srcShare = s.TotalConlyDepositedAmount, s.TotalConlyDepositedShare
	}

	var share *big.Int
	if byShare {
		share = new(big.Int).Set(value)
	} else {
		share = sharemath.ToShareRoundUp(value, srcAmount, srcShare)
	}

	if share.Cmp(srcShare) > 0 {
		if toCollateralOnly {
			return nil, nil, nil, lendingerrors.ErrInsufficientLiquidity
		}
		return nil, nil, nil, lendingerrors.ErrInsufficientConlyDeposited
	}

	amount := sharemath.ToAmount(share, srcAmount, srcShare)

	if toCollateralOnly {
		s.TotalNormalDepositedAmount = sharemath.SaturatingSub(s.TotalNormalDepositedAmount, amount)
		s.TotalNormalDepositedShare = sharemath.SaturatingSub(s.TotalNormalDepositedShare, share)
		toShare := sharemath.ToShare(amount, s.TotalConlyDepositedAmount, s.TotalConlyDepositedShare)
		s.TotalConlyDepositedAmount = new(big.Int).Add(s.TotalConlyDepositedAmount, amount)
		s.TotalConlyDepositedShare = new(big.Int).Add(s.TotalConlyDepositedShare, toShare)
		if err := e.persist(key, s); err != nil {
			return nil, nil, nil, err
		}
		events.Emit(e.sink, events.Event{Type: "SwitchCollateral", Attributes: map[string]string{"key": key.String(), "amount": amount.String(), "to_conly": "true"}})
		return amount, share, toShare, nil
	}

	s.TotalConlyDepositedAmount = sharemath.SaturatingSub(s.TotalConlyDepositedAmount, amount)
	s.TotalConlyDepositedShare = sharemath.SaturatingSub(s.TotalConlyDepositedShare, share)
	toShare := sharemath.ToShare(amount, s.TotalNormalDepositedAmount, s.TotalNormalDepositedShare)
	s.TotalNormalDepositedAmount = new(big.Int).Add(s.TotalNormalDepositedAmount, amount)
	s.TotalNormalDepositedShare = new(big.Int).Add(s.TotalNormalDepositedShare, toShare)
	if err := e.persist(key, s); err != nil {
		return nil, nil, nil, err
	}
	events.Emit(e.sink, events.Event{Type: "SwitchCollateral", Attributes: map[string]string{"key": key.String(), "amount": amount.String(), "to_conly": "false"}})
	return amount, share, toShare, nil
}

// HarvestProtocolFees extracts the coin's unharvested protocol fees, clamped
// to the pool's current liquidity, and routes them to the treasury.
func (e *Engine) HarvestProtocolFees(caller *authz.Token, key coinkey.Key) (*big.Int, error) {
	if err := authz.Check(e.owner, caller); err != nil {
		return nil, err
	}
	s, err := e.loadStorage(key)
	if err != nil {
		return nil, err
	}
	if err := e.accrue(key, s); err != nil {
		return nil, err
	}

	unharvested := sharemath.SaturatingSub(s.ProtocolFees, s.HarvestedProtocolFees)
	poolCoin, err := e.poolCoinBalance(key)
	if err != nil {
		return nil, err
	}
	liquidity := s.Liquidity(poolCoin)
	if unharvested.Cmp(liquidity) > 0 {
		unharvested = liquidity
	}
	if unharvested.Sign() <= 0 {
		return big.NewInt(0), nil
	}

	if e.treasury != nil {
		if err := e.treasury.CollectFee(key, unharvested); err != nil {
			return nil, err
		}
	}
	s.HarvestedProtocolFees = new(big.Int).Add(s.HarvestedProtocolFees, unharvested)

	if err := e.persist(key, s); err != nil {
		return nil, err
	}
	return unharvested, nil
}

// RebalanceBetweenKeys moves amount out of keyFrom's bucket (normal or conly,
// per fromIsConly) and into keyTo's bucket (per toIsConly) as pure
// bookkeeping: no coin ever changes custody. It is exposed here because both
// buckets live in Storage, but the only caller in practice is the shadow
// pool's RebalanceShadow, which moves a user's shadow-coin
// accounting between the two real-asset keys it is paired with.
func (e *Engine) RebalanceBetweenKeys(caller *authz.Token, keyFrom, keyTo coinkey.Key, amount *big.Int, fromIsConly, toIsConly bool) (*big.Int, *big.Int, error) {
	if err := authz.Check(e.owner, caller); err != nil {
		return nil, nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, lendingerrors.ErrAmountIsZero
	}
	if err := e.status.Check(keyFrom, poolstatus.OpSwitchCollateral); err != nil {
		return nil, nil, err
	}
	if err := e.status.Check(keyTo, poolstatus.OpSwitchCollateral); err != nil {
		return nil, nil, err
	}

	from, err := e.loadStorage(keyFrom)
	if err != nil {
		return nil, nil, err
	}
	if err := e.accrue(keyFrom, from); err != nil {
		return nil, nil, err
	}
	to := from
	if keyTo != keyFrom {
		to, err = e.loadStorage(keyTo)
		if err != nil {
			return nil, nil, err
		}
		if err := e.accrue(keyTo, to); err != nil {
			return nil, nil, err
		}
	}

	srcAmount, srcShare := from.TotalNormalDepositedAmount, from.TotalNormalDepositedShare
	if fromIsConly {
		srcAmount, srcShare = from.TotalConlyDepositedAmount, from.TotalConlyDepositedShare
	}
	fromShare := sharemath.ToShareRoundUp(amount, srcAmount, srcShare)
	if fromShare.Cmp(srcShare) > 0 {
		if fromIsConly {
			return nil, nil, lendingerrors.ErrInsufficientConlyDeposited
		}
		return nil, nil, lendingerrors.ErrOverDepositedAmount
	}
	if fromIsConly {
		from.TotalConlyDepositedAmount = sharemath.SaturatingSub(from.TotalConlyDepositedAmount, amount)
		from.TotalConlyDepositedShare = sharemath.SaturatingSub(from.TotalConlyDepositedShare, fromShare)
	} else {
		from.TotalNormalDepositedAmount = sharemath.SaturatingSub(from.TotalNormalDepositedAmount, amount)
		from.TotalNormalDepositedShare = sharemath.SaturatingSub(from.TotalNormalDepositedShare, fromShare)
	}

	dstAmount, dstShare := to.TotalNormalDepositedAmount, to.TotalNormalDepositedShare
	if toIsConly {
		dstAmount, dstShare = to.TotalConlyDepositedAmount, to.TotalConlyDepositedShare
	}
	toShare := sharemath.ToShare(amount, dstAmount, dstShare)
	if toIsConly {
		to.TotalConlyDepositedAmount = new(big.Int).Add(to.TotalConlyDepositedAmount, amount)
		to.TotalConlyDepositedShare = new(big.Int).Add(to.TotalConlyDepositedShare, toShare)
	} else {
		to.TotalNormalDepositedAmount = new(big.Int).Add(to.TotalNormalDepositedAmount, amount)
		to.TotalNormalDepositedShare = new(big.Int).Add(to.TotalNormalDepositedShare, toShare)
	}

	if err := e.persist(keyFrom, from); err != nil {
		return nil, nil, err
	}
	if keyTo != keyFrom {
		if err := e.persist(keyTo, to); err != nil {
			return nil, nil, err
		}
	}

	metrics.Pool().RecordRebalance(keyFrom.String(), keyTo.String())
	events.Emit(e.sink, events.Event{Type: "Rebalance", Attributes: map[string]string{
		"key_from": keyFrom.String(), "key_to": keyTo.String(), "amount": amount.String(),
	}})
	return fromShare, toShare, nil
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
