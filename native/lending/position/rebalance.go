package position

import (
	"math/big"

	"duallend/native/lending/authz"
	"duallend/native/lending/coinkey"
	"duallend/native/lending/events"
	"duallend/native/lending/lendingerrors"
)

// requiredDeposit returns the shadow deposit needed to keep b's borrowed
// volume at key under the global shadow liquidation threshold.
func (e *Engine) requiredDeposit(b *Balance, key coinkey.Key) *big.Int {
	lt := e.shadowLT.ShadowLT()
	if lt == nil || lt.Sign() <= 0 {
		return big.NewInt(0)
	}
	borrowedVolume := e.oracle.Volume(key, b.Borrowed)
	required := new(big.Int).Mul(borrowedVolume, precisionBig)
	required.Quo(required, lt)
	// One unit of margin above the bare break-even point, so closing a
	// shortfall exactly leaves the destination strictly under its
	// liquidation threshold instead of sitting exactly on it.
	return required.Add(required, big.NewInt(1))
}

// planRebalance computes the shadow amount that would move from key K1's
// deposit into K2's to bring K2 back under its required deposit, without
// mutating anything. It succeeds only when K2 has a shortfall and K1's
// headroom is at least that shortfall.
func (e *Engine) planRebalance(acc *Account, from, to coinkey.Key) (*big.Int, bool, bool, bool) {
	bf, ok := acc.Balance[from]
	if !ok {
		return nil, false, false, false
	}
	bt, ok := acc.Balance[to]
	if !ok {
		return nil, false, false, false
	}
	extra := new(big.Int).Sub(bf.Deposited, e.requiredDeposit(bf, from))
	insufficient := new(big.Int).Sub(e.requiredDeposit(bt, to), bt.Deposited)
	if insufficient.Sign() <= 0 || extra.Cmp(insufficient) < 0 {
		return nil, false, false, false
	}
	return insufficient, bf.isConlyMode(), bt.isConlyMode(), true
}

func (e *Engine) applyRebalance(acc *Account, from, to coinkey.Key, amount *big.Int, fromConly, toConly bool) {
	bf := acc.Balance[from]
	bt := acc.Balance[to]
	bf.Deposited = new(big.Int).Sub(bf.Deposited, amount)
	if fromConly {
		bf.ConlyDeposited = new(big.Int).Sub(bf.ConlyDeposited, amount)
	}
	bt.Deposited = new(big.Int).Add(bt.Deposited, amount)
	if toConly {
		bt.ConlyDeposited = new(big.Int).Add(bt.ConlyDeposited, amount)
	}
	acc.removeCoinIfEmpty(from)
}

// RebalanceShadow moves shadow collateral from keyFrom to keyTo within
// user's ShadowToAsset position, restoring keyTo to solvency out of keyFrom's
// spare headroom. It returns the amount moved and each side's
// collateral-only flag so the caller can mirror the move in the shadow pool.
func (e *Engine) RebalanceShadow(caller *authz.Token, user string, keyFrom, keyTo coinkey.Key) (*big.Int, bool, bool, error) {
	if err := authz.Check(e.owner, caller); err != nil {
		return nil, false, false, err
	}
	if keyFrom == keyTo {
		return nil, false, false, lendingerrors.ErrCannotRebalance
	}
	acc, err := e.loadAccount(user, ShadowToAsset)
	if err != nil {
		return nil, false, false, err
	}
	if !acc.hasCoin(keyFrom) || !acc.hasCoin(keyTo) {
		return nil, false, false, lendingerrors.ErrCannotRebalance
	}
	if acc.Protected[keyFrom] || acc.Protected[keyTo] {
		return nil, false, false, lendingerrors.ErrCannotRebalance
	}

	amount, fromConly, toConly, ok := e.planRebalance(acc, keyFrom, keyTo)
	if !ok {
		return nil, false, false, lendingerrors.ErrCannotRebalance
	}
	e.applyRebalance(acc, keyFrom, keyTo, amount, fromConly, toConly)

	if err := e.persist(user, ShadowToAsset, acc); err != nil {
		return nil, false, false, err
	}
	e.emitUpdate(user, ShadowToAsset, keyFrom, acc.Balance[keyFrom])
	if bt, ok := acc.Balance[keyTo]; ok {
		e.emitUpdate(user, ShadowToAsset, keyTo, bt)
	}
	return amount, fromConly, toConly, nil
}

// BorrowAndRebalancePlan is the outcome of planning a borrow_and_rebalance:
// how much shadow to borrow against c1 and deposit into c2's shadow
// collateral, and whether c2's bucket is collateral-only.
type BorrowAndRebalancePlan struct {
	Amount  *big.Int
	ToConly bool
}

// PlanBorrowAndRebalance computes how much shadow user could borrow against
// c1's AssetToShadow headroom to cover c2's ShadowToAsset shortfall, without
// mutating anything.
func (e *Engine) PlanBorrowAndRebalance(user string, c1, c2 coinkey.Key) (*BorrowAndRebalancePlan, error) {
	assetAcc, err := e.loadAccount(user, AssetToShadow)
	if err != nil {
		return nil, err
	}
	b1, ok := assetAcc.Balance[c1]
	if !ok {
		return nil, lendingerrors.ErrCannotRebalance
	}
	ltv, ok := e.risk.LTV(c1)
	if !ok {
		return nil, lendingerrors.ErrCannotRebalance
	}
	depositedVolume := e.oracle.Volume(c1, b1.Deposited)
	borrowable := new(big.Int).Mul(depositedVolume, ltv)
	borrowable.Quo(borrowable, precisionBig)
	borrowedVolume := e.oracle.Volume(c1, b1.Borrowed)
	headroom := new(big.Int).Sub(borrowable, borrowedVolume)
	if headroom.Sign() < 0 {
		headroom = big.NewInt(0)
	}

	shadowAcc, err := e.loadAccount(user, ShadowToAsset)
	if err != nil {
		return nil, err
	}
	b2, ok := shadowAcc.Balance[c2]
	if !ok {
		return nil, lendingerrors.ErrCannotRebalance
	}
	insufficient := new(big.Int).Sub(e.requiredDeposit(b2, c2), b2.Deposited)
	if insufficient.Sign() <= 0 {
		return nil, lendingerrors.ErrCannotRebalance
	}
	if headroom.Cmp(insufficient) < 0 {
		return nil, lendingerrors.ErrCannotRebalance
	}
	return &BorrowAndRebalancePlan{Amount: insufficient, ToConly: b2.isConlyMode()}, nil
}

// ApplyBorrowAndRebalance records the position side-effects of a
// borrow_and_rebalance once the orchestrator has executed the corresponding
// shadow-pool borrow and deposit: c1's AssetToShadow borrowed total grows by
// amount, and c2's ShadowToAsset deposited total grows by the same amount.
func (e *Engine) ApplyBorrowAndRebalance(caller *authz.Token, user string, c1, c2 coinkey.Key, amount *big.Int, toConly bool) error {
	if err := authz.Check(e.owner, caller); err != nil {
		return err
	}
	assetAcc, err := e.loadAccount(user, AssetToShadow)
	if err != nil {
		return err
	}
	b1, ok := assetAcc.Balance[c1]
	if !ok {
		return lendingerrors.ErrNotExisted
	}
	b1.Borrowed = new(big.Int).Add(b1.Borrowed, amount)
	if !e.isSafe(assetAcc, AssetToShadow, c1) {
		return lendingerrors.ErrNoSafePosition
	}
	if err := e.persist(user, AssetToShadow, assetAcc); err != nil {
		return err
	}
	e.emitUpdate(user, AssetToShadow, c1, b1)

	shadowAcc, err := e.loadAccount(user, ShadowToAsset)
	if err != nil {
		return err
	}
	b2, ok := shadowAcc.Balance[c2]
	if !ok {
		return lendingerrors.ErrNotExisted
	}
	b2.Deposited = new(big.Int).Add(b2.Deposited, amount)
	if toConly {
		b2.ConlyDeposited = new(big.Int).Add(b2.ConlyDeposited, amount)
	}
	if err := e.persist(user, ShadowToAsset, shadowAcc); err != nil {
		return err
	}
	e.emitUpdate(user, ShadowToAsset, c2, b2)
	return nil
}

// LiquidationResult reports what Liquidate did: either a rescue (the
// position was never forced closed, and the caller must mirror the rescue
// move in the shadow pool) or a forced close (the caller must settle amount
// off-book).
type LiquidationResult struct {
	ForcedClose bool

	// Amount and IsConly describe the seized collateral; DebtAmount is the
	// debt the liquidator must settle on the target's behalf. Both are only
	// populated when ForcedClose is true.
	Amount     *big.Int
	IsConly    bool
	DebtAmount *big.Int

	RescueFrom      coinkey.Key
	RescueTo        coinkey.Key
	RescueAmount    *big.Int
	RescueFromConly bool
	RescueToConly   bool
}

// Liquidate requires target's balance at key on side to be unsafe. On the
// shadow side it first tries to rescue the position by rebalancing shadow
// collateral in from another of target's coins; only if no candidate works
// does it forcibly zero the balance and report the seized amount.
func (e *Engine) Liquidate(caller *authz.Token, side Side, key coinkey.Key, target string) (*LiquidationResult, error) {
	if err := authz.Check(e.owner, caller); err != nil {
		return nil, err
	}
	acc, err := e.loadAccount(target, side)
	if err != nil {
		return nil, err
	}
	b, ok := acc.Balance[key]
	if !ok {
		return nil, lendingerrors.ErrNotExisted
	}
	if e.isSafe(acc, side, key) {
		return nil, lendingerrors.ErrNoSafePosition
	}

	if side == ShadowToAsset {
		for i := len(acc.Coins) - 1; i >= 0; i-- {
			candidate := acc.Coins[i]
			if candidate == key || acc.Protected[candidate] || acc.Protected[key] {
				continue
			}
			amount, fromConly, toConly, ok := e.planRebalance(acc, candidate, key)
			if !ok {
				continue
			}
			e.applyRebalance(acc, candidate, key, amount, fromConly, toConly)
			if err := e.persist(target, side, acc); err != nil {
				return nil, err
			}
			if bf, ok := acc.Balance[candidate]; ok {
				e.emitUpdate(target, side, candidate, bf)
			}
			e.emitUpdate(target, side, key, acc.Balance[key])
			return &LiquidationResult{
				ForcedClose: false, RescueFrom: candidate, RescueTo: key,
				RescueAmount: amount, RescueFromConly: fromConly, RescueToConly: toConly,
			}, nil
		}
	}

	amount := new(big.Int).Set(b.Deposited)
	isConly := b.isConlyMode()
	debt := new(big.Int).Set(b.Borrowed)
	zeroed := zeroBalance()
	acc.Balance[key] = zeroed
	if !zeroed.isEmpty() {
		return nil, lendingerrors.ErrPositionExisted
	}
	acc.removeCoinIfEmpty(key)

	if err := e.persist(target, side, acc); err != nil {
		return nil, err
	}
	events.Emit(e.sink, events.Event{Type: "Liquidate", Attributes: map[string]string{
		"target": target, "side": side.String(), "key": key.String(), "amount": amount.String(),
	}})
	e.emitUpdate(target, side, key, zeroed)
	return &LiquidationResult{ForcedClose: true, Amount: amount, IsConly: isConly, DebtAmount: debt}, nil
}
