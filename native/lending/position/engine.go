package position

import (
	"math/big"

	"duallend/native/lending/authz"
	"duallend/native/lending/coinkey"
	"duallend/native/lending/events"
	"duallend/native/lending/lendingerrors"
	"duallend/native/lending/oracle"
	"duallend/native/lending/risk"
)

// PRECISION mirrors risk.PRECISION and interest.PRECISION: 1e9 is 100%.
const PRECISION = risk.PRECISION

var precisionBig = big.NewInt(PRECISION)

// State is the persistence seam: one Account per (user, side).
type State interface {
	GetAccount(user string, side Side) (*Account, error)
	PutAccount(user string, side Side, acc *Account) error
}

// RiskProvider resolves the per-coin LT and LTV used on the asset side.
type RiskProvider interface {
	LT(key coinkey.Key) (*big.Int, bool)
	LTV(key coinkey.Key) (*big.Int, bool)
}

// ShadowLTProvider resolves the single global liquidation threshold applied
// to every shadow-side balance.
type ShadowLTProvider interface {
	ShadowLT() *big.Int
}

// Engine is the account-position engine shared by every coin key and side.
type Engine struct {
	owner    *authz.Token
	state    State
	oracle   oracle.Oracle
	risk     RiskProvider
	shadowLT ShadowLTProvider
	sink     events.Sink
}

// NewEngine wires a position engine. owner is the capability token the
// orchestrator must present to every mutating call.
func NewEngine(owner *authz.Token, state State, ora oracle.Oracle, riskP RiskProvider, shadowLT ShadowLTProvider, sink events.Sink) *Engine {
	return &Engine{owner: owner, state: state, oracle: ora, risk: riskP, shadowLT: shadowLT, sink: sink}
}

func (e *Engine) loadAccount(user string, side Side) (*Account, error) {
	if e.state == nil {
		return nil, lendingerrors.ErrNilState
	}
	acc, err := e.state.GetAccount(user, side)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = NewAccount()
	}
	acc.EnsureDefaults()
	return acc, nil
}

func (e *Engine) persist(user string, side Side, acc *Account) error {
	return e.state.PutAccount(user, side, acc)
}

func (e *Engine) emitUpdate(user string, side Side, key coinkey.Key, b *Balance) {
	events.Emit(e.sink, events.Event{Type: "UpdatePosition", Attributes: map[string]string{
		"user": user, "side": side.String(), "key": key.String(),
		"deposited": b.Deposited.String(), "conly_deposited": b.ConlyDeposited.String(), "borrowed": b.Borrowed.String(),
	}})
}

// Deposited reads the deposited amount for user at key on side, 0 if absent.
func (e *Engine) Deposited(user string, side Side, key coinkey.Key) (*big.Int, error) {
	acc, err := e.loadAccount(user, side)
	if err != nil {
		return nil, err
	}
	return acc.DepositedAsset(key), nil
}

// ConlyDeposited reads the collateral-only deposited amount, 0 if absent.
func (e *Engine) ConlyDeposited(user string, side Side, key coinkey.Key) (*big.Int, error) {
	acc, err := e.loadAccount(user, side)
	if err != nil {
		return nil, err
	}
	return acc.ConlyDepositedAsset(key), nil
}

// Borrowed reads the borrowed amount, 0 if absent.
func (e *Engine) Borrowed(user string, side Side, key coinkey.Key) (*big.Int, error) {
	acc, err := e.loadAccount(user, side)
	if err != nil {
		return nil, err
	}
	return acc.BorrowedAsset(key), nil
}

// Deposit records amount deposited by user at key on side, minting neither
// normal nor collateral-only on top of the other (AlreadyDepositedAs* if the
// existing balance is in the opposite mode).
func (e *Engine) Deposit(caller *authz.Token, user string, side Side, key coinkey.Key, amount *big.Int, isConly bool) error {
	if err := authz.Check(e.owner, caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return lendingerrors.ErrAmountIsZero
	}
	acc, err := e.loadAccount(user, side)
	if err != nil {
		return err
	}
	b, existed := acc.Balance[key]
	if !existed {
		b = zeroBalance()
	} else {
		hasNormalPortion := b.Deposited.Sign() > 0 && b.ConlyDeposited.Cmp(b.Deposited) < 0
		hasConlyPortion := b.ConlyDeposited.Sign() > 0
		if isConly && hasNormalPortion {
			return lendingerrors.ErrAlreadyDepositedAsNormal
		}
		if !isConly && hasConlyPortion {
			return lendingerrors.ErrAlreadyDepositedAsCollateralOnly
		}
	}

	b.Deposited = new(big.Int).Add(b.Deposited, amount)
	if isConly {
		b.ConlyDeposited = new(big.Int).Add(b.ConlyDeposited, amount)
	}
	acc.insertCoin(key)
	acc.Balance[key] = b

	if err := e.persist(user, side, acc); err != nil {
		return err
	}
	e.emitUpdate(user, side, key, b)
	return nil
}

// Withdraw releases amount deposited by user at key on side, rolling back
// (without persisting) if the post-withdrawal position is unsafe.
func (e *Engine) Withdraw(caller *authz.Token, user string, side Side, key coinkey.Key, amount *big.Int, isConly bool) error {
	if err := authz.Check(e.owner, caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return lendingerrors.ErrAmountIsZero
	}
	acc, err := e.loadAccount(user, side)
	if err != nil {
		return err
	}
	b, ok := acc.Balance[key]
	if !ok || b.Deposited.Cmp(amount) < 0 {
		return lendingerrors.ErrOverDepositedAmount
	}

	next := b.clone()
	next.Deposited = new(big.Int).Sub(next.Deposited, amount)
	if isConly {
		next.ConlyDeposited = new(big.Int).Sub(next.ConlyDeposited, amount)
		if next.ConlyDeposited.Sign() < 0 {
			next.ConlyDeposited = big.NewInt(0)
		}
	}
	acc.Balance[key] = next
	if !e.isSafe(acc, side, key) {
		acc.Balance[key] = b
		return lendingerrors.ErrNoSafePosition
	}
	acc.removeCoinIfEmpty(key)

	if err := e.persist(user, side, acc); err != nil {
		return err
	}
	e.emitUpdate(user, side, key, next)
	return nil
}

// Borrow increments the borrowed amount at key on side, rolling back if the
// resulting position is unsafe.
func (e *Engine) Borrow(caller *authz.Token, user string, side Side, key coinkey.Key, amount *big.Int) error {
	if err := authz.Check(e.owner, caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return lendingerrors.ErrAmountIsZero
	}
	acc, err := e.loadAccount(user, side)
	if err != nil {
		return err
	}
	b, ok := acc.Balance[key]
	if !ok {
		return lendingerrors.ErrNotExisted
	}

	next := b.clone()
	next.Borrowed = new(big.Int).Add(next.Borrowed, amount)
	acc.Balance[key] = next
	if !e.isSafe(acc, side, key) {
		acc.Balance[key] = b
		return lendingerrors.ErrNoSafePosition
	}

	if err := e.persist(user, side, acc); err != nil {
		return err
	}
	e.emitUpdate(user, side, key, next)
	return nil
}

// Repay decrements the borrowed amount at key on side, removing the key
// entry if the balance reaches all-zero.
func (e *Engine) Repay(caller *authz.Token, user string, side Side, key coinkey.Key, amount *big.Int) error {
	if err := authz.Check(e.owner, caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return lendingerrors.ErrAmountIsZero
	}
	acc, err := e.loadAccount(user, side)
	if err != nil {
		return err
	}
	b, ok := acc.Balance[key]
	if !ok || b.Borrowed.Cmp(amount) < 0 {
		return lendingerrors.ErrOverBorrowedAmount
	}
	b.Borrowed = new(big.Int).Sub(b.Borrowed, amount)
	acc.removeCoinIfEmpty(key)

	if err := e.persist(user, side, acc); err != nil {
		return err
	}
	e.emitUpdate(user, side, key, b)
	return nil
}

// IsSafe reports whether user's balance at key on side is below its
// liquidation threshold. A caller with no position at key is vacuously safe.
func (e *Engine) IsSafe(user string, side Side, key coinkey.Key) (bool, error) {
	acc, err := e.loadAccount(user, side)
	if err != nil {
		return false, err
	}
	return e.isSafe(acc, side, key), nil
}

func (e *Engine) isSafe(acc *Account, side Side, key coinkey.Key) bool {
	b, ok := acc.Balance[key]
	if !ok {
		return true
	}
	depositedVolume := e.oracle.Volume(key, b.Deposited)
	if depositedVolume.Sign() == 0 {
		return true
	}
	threshold := e.threshold(side, key)
	if threshold == nil || threshold.Sign() <= 0 {
		return false
	}
	borrowedVolume := e.oracle.Volume(key, b.Borrowed)
	utilization := new(big.Int).Mul(borrowedVolume, precisionBig)
	utilization.Quo(utilization, depositedVolume)
	return utilization.Cmp(threshold) < 0
}

func (e *Engine) threshold(side Side, key coinkey.Key) *big.Int {
	if side == ShadowToAsset {
		return e.shadowLT.ShadowLT()
	}
	lt, ok := e.risk.LT(key)
	if !ok {
		return nil
	}
	return lt
}

// ProtectCoin opts key out of shadow rebalance for user, failing
// AlreadyProtected if it is already opted out.
func (e *Engine) ProtectCoin(caller *authz.Token, user string, side Side, key coinkey.Key) error {
	if err := authz.Check(e.owner, caller); err != nil {
		return err
	}
	acc, err := e.loadAccount(user, side)
	if err != nil {
		return err
	}
	if acc.Protected[key] {
		return lendingerrors.ErrAlreadyProtected
	}
	acc.Protected[key] = true
	return e.persist(user, side, acc)
}

// UnprotectCoin re-admits key to shadow rebalance for user, failing
// AlreadyProtected if it was not opted out.
func (e *Engine) UnprotectCoin(caller *authz.Token, user string, side Side, key coinkey.Key) error {
	if err := authz.Check(e.owner, caller); err != nil {
		return err
	}
	acc, err := e.loadAccount(user, side)
	if err != nil {
		return err
	}
	if !acc.Protected[key] {
		return lendingerrors.ErrAlreadyProtected
	}
	delete(acc.Protected, key)
	return e.persist(user, side, acc)
}
