// Package market implements component H: the Money Market orchestrator that
// composes the asset pool, shadow pool, and account position engines into
// the public deposit/withdraw/borrow/repay/liquidate/rebalance endpoints.
// Every endpoint is a single call into this package and, per the ordering
// rule of the concurrency model, runs as one atomic transaction: on any
// returned error the caller is expected to discard every mutation this call
// made, relying on the host transaction layer rather than local undo logic.
package market

import (
	"math/big"

	"duallend/native/lending/assetpool"
	"duallend/native/lending/authz"
	"duallend/native/lending/coinkey"
	"duallend/native/lending/lendingerrors"
	"duallend/native/lending/position"
	"duallend/native/lending/shadowpool"
)

// Market wires the three composed engines. AssetToShadow positions deposit
// into Asset and borrow from Shadow; ShadowToAsset positions deposit into
// Shadow and borrow from Asset — the two pools swap collateral/debt roles
// depending on which side of the position is in play.
type Market struct {
	owner    *authz.Token
	asset    *assetpool.Engine
	shadow   *shadowpool.Engine
	position *position.Engine
}

// New wires a Market over its three collaborator engines. owner is the
// capability token threaded to every one of them.
func New(owner *authz.Token, asset *assetpool.Engine, shadow *shadowpool.Engine, pos *position.Engine) *Market {
	return &Market{owner: owner, asset: asset, shadow: shadow, position: pos}
}

// SetNow propagates the transaction-wide "now" to both pool engines before
// any amount/share computation runs this transaction.
func (m *Market) SetNow(now uint64) {
	m.asset.SetNow(now)
	m.shadow.Engine.SetNow(now)
}

func (m *Market) collateralPool(side position.Side) *assetpool.Engine {
	if side == position.AssetToShadow {
		return m.asset
	}
	return m.shadow.Engine
}

func (m *Market) debtPool(side position.Side) *assetpool.Engine {
	if side == position.AssetToShadow {
		return m.shadow.Engine
	}
	return m.asset
}

// Deposit locks amount of the side's collateral coin into the matching pool
// (the real asset for AssetToShadow, the shadow coin for ShadowToAsset) and
// records it against beneficiary's position.
func (m *Market) Deposit(caller *authz.Token, callerAccount, beneficiary string, side position.Side, key coinkey.Key, amount *big.Int, isConly bool) (*big.Int, *big.Int, error) {
	amt, _, err := m.collateralPool(side).DepositFor(caller, callerAccount, beneficiary, key, amount, isConly)
	if err != nil {
		return nil, nil, err
	}
	if err := m.position.Deposit(caller, beneficiary, side, key, amt, isConly); err != nil {
		return nil, nil, err
	}
	return amt, amt, nil
}

// Withdraw releases value (amount or share, per byShare) of the side's
// collateral coin from the pool to receiverAccount, then applies the
// position-level safety check.
func (m *Market) Withdraw(caller *authz.Token, receiverAccount, user string, side position.Side, key coinkey.Key, value *big.Int, isConly, byShare bool) (*big.Int, *big.Int, error) {
	amount, share, err := m.collateralPool(side).WithdrawFor(caller, receiverAccount, key, value, isConly, byShare, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := m.position.Withdraw(caller, user, side, key, amount, isConly); err != nil {
		return nil, nil, err
	}
	return amount, share, nil
}

// Borrow lends amount of the side's debt coin (shadow for AssetToShadow,
// real asset for ShadowToAsset) to receiverAccount, then applies the
// position-level safety check against the principal plus entry fee.
func (m *Market) Borrow(caller *authz.Token, receiverAccount, user string, side position.Side, key coinkey.Key, amount *big.Int) (*big.Int, *big.Int, error) {
	amt, fee, _, err := m.debtPool(side).BorrowFor(caller, receiverAccount, key, amount)
	if err != nil {
		return nil, nil, err
	}
	owed := new(big.Int).Add(amt, fee)
	if err := m.position.Borrow(caller, user, side, key, owed); err != nil {
		return nil, nil, err
	}
	return amt, fee, nil
}

// Repay reduces the side's debt by value. When value is an amount (byShare
// false) it is first clamped to the user's recorded debt; a share value is
// passed to the pool unclamped.
func (m *Market) Repay(caller *authz.Token, account, user string, side position.Side, key coinkey.Key, value *big.Int, byShare bool) (*big.Int, error) {
	if !byShare {
		owed, err := m.position.Borrowed(user, side, key)
		if err != nil {
			return nil, err
		}
		if value.Cmp(owed) > 0 {
			value = owed
		}
	}
	amount, _, err := m.debtPool(side).Repay(caller, account, key, value, byShare)
	if err != nil {
		return nil, err
	}
	if err := m.position.Repay(caller, user, side, key, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// SwitchCollateral moves the user's position bucket at key on side between
// normal and collateral-only, keeping the pool's bucket shares consistent
// with the position's own bookkeeping.
func (m *Market) SwitchCollateral(caller *authz.Token, user string, side position.Side, key coinkey.Key, toCollateralOnly bool) (*big.Int, error) {
	pool := m.collateralPool(side)
	deposited, err := m.position.Deposited(user, side, key)
	if err != nil {
		return nil, err
	}
	conlyDeposited, err := m.position.ConlyDeposited(user, side, key)
	if err != nil {
		return nil, err
	}
	fromAmount := deposited
	if !toCollateralOnly {
		fromAmount = conlyDeposited
	}
	if fromAmount.Sign() <= 0 {
		return nil, lendingerrors.ErrAmountIsZero
	}
	amount, _, _, err := pool.SwitchCollateral(caller, key, fromAmount, toCollateralOnly, false)
	if err != nil {
		return nil, err
	}
	if err := m.position.Withdraw(caller, user, side, key, amount, !toCollateralOnly); err != nil {
		return nil, err
	}
	if err := m.position.Deposit(caller, user, side, key, amount, toCollateralOnly); err != nil {
		return nil, err
	}
	return amount, nil
}

// EnableToRebalance clears key's rebalance-protected flag for user on the
// shadow side.
func (m *Market) EnableToRebalance(caller *authz.Token, user string, key coinkey.Key) error {
	return m.position.UnprotectCoin(caller, user, position.ShadowToAsset, key)
}

// UnableToRebalance sets key's rebalance-protected flag for user on the
// shadow side.
func (m *Market) UnableToRebalance(caller *authz.Token, user string, key coinkey.Key) error {
	return m.position.ProtectCoin(caller, user, position.ShadowToAsset, key)
}

// RebalanceShadow moves shadow collateral from keyFrom to keyTo within
// user's ShadowToAsset position and mirrors the move in the shadow pool.
func (m *Market) RebalanceShadow(caller *authz.Token, user string, keyFrom, keyTo coinkey.Key) (*big.Int, error) {
	amount, fromConly, toConly, err := m.position.RebalanceShadow(caller, user, keyFrom, keyTo)
	if err != nil {
		return nil, err
	}
	if _, _, err := m.shadow.RebalanceShadow(caller, keyFrom, keyTo, amount, fromConly, toConly); err != nil {
		return nil, err
	}
	return amount, nil
}

// Liquidate repays target's debt at key on side on the liquidator's behalf
// and seizes the position's collateral net of the liquidation fee. If the
// position engine finds a cheaper rescue (shadow rebalance from another of
// target's keys) instead of a forced close, no debt changes hands and the
// rescue move is mirrored into the shadow pool.
func (m *Market) Liquidate(caller *authz.Token, liquidatorAccount string, side position.Side, key coinkey.Key, target string) (*position.LiquidationResult, error) {
	result, err := m.position.Liquidate(caller, side, key, target)
	if err != nil {
		return nil, err
	}
	if !result.ForcedClose {
		if _, _, err := m.shadow.RebalanceShadow(caller, result.RescueFrom, result.RescueTo, result.RescueAmount, result.RescueFromConly, result.RescueToConly); err != nil {
			return nil, err
		}
		return result, nil
	}
	if result.DebtAmount.Sign() > 0 {
		if _, _, err := m.debtPool(side).Repay(caller, liquidatorAccount, key, result.DebtAmount, false); err != nil {
			return nil, err
		}
	}
	if result.Amount.Sign() > 0 {
		if _, _, err := m.collateralPool(side).WithdrawForLiquidation(caller, liquidatorAccount, key, result.Amount, result.IsConly); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// BorrowAndRebalance borrows shadow against c1's AssetToShadow headroom and
// deposits it straight into c2's ShadowToAsset collateral, closing c2's
// shortfall without the user supplying new collateral.
func (m *Market) BorrowAndRebalance(caller *authz.Token, user string, c1, c2 coinkey.Key) (*big.Int, error) {
	plan, err := m.position.PlanBorrowAndRebalance(user, c1, c2)
	if err != nil {
		return nil, err
	}
	if _, _, _, err := m.shadow.BorrowFor(caller, user, c1, plan.Amount); err != nil {
		return nil, err
	}
	if _, _, err := m.shadow.DepositFor(caller, user, user, c2, plan.Amount, plan.ToConly); err != nil {
		return nil, err
	}
	if err := m.position.ApplyBorrowAndRebalance(caller, user, c1, c2, plan.Amount, plan.ToConly); err != nil {
		return nil, err
	}
	return plan.Amount, nil
}
