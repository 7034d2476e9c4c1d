// Package shadowpool implements the synthetic shadow-coin pool. Bookkeeping
// is identical to the real-asset pool it wraps: each shadow sub-account is
// keyed by the real-asset coin it is paired with, not by a distinct coin
// type, and the protocol never custodies a shadow token — deposits and
// borrows here are pure share accounting against the paired asset's ledger.
package shadowpool

import (
	"math/big"

	"duallend/native/lending/assetpool"
	"duallend/native/lending/authz"
	"duallend/native/lending/coinkey"
	"duallend/native/lending/events"
	"duallend/native/lending/poolstatus"
	"duallend/native/lending/treasury"
)

// Engine is the shadow pool engine. It reuses the asset pool engine's
// deposit/withdraw/borrow/repay/switch-collateral machinery verbatim — the
// two pools keep identical sub-account shapes — and adds RebalanceShadow,
// the one operation that only makes sense on the shadow side.
type Engine struct {
	*assetpool.Engine
}

// NewEngine wires a shadow pool engine over the same collaborators an asset
// pool takes, minus a transport.Coin: the shadow coin is never custodied, so
// deposit/withdraw/borrow/repay here only ever move share accounting.
func NewEngine(owner *authz.Token, state assetpool.State, status *poolstatus.Registry, riskP assetpool.RiskProvider, ratesP assetpool.RateProvider, treas treasury.Treasury, sink events.Sink) *Engine {
	e := assetpool.NewEngine(owner, state, status, riskP, ratesP, nil, treas, sink)
	e.SetSide("shadow")
	return &Engine{Engine: e}
}

// RebalanceShadow moves a user's shadow-coin accounting from keyFrom to
// keyTo as pure bookkeeping: no coin custody changes hands. fromIsConly and
// toIsConly select which bucket (normal or collateral-only) on each side the
// move touches. It returns the share burned on keyFrom and the share minted
// on keyTo, computed with the same round-down/round-up discipline used
// everywhere else so no value is created or destroyed across the move.
func (e *Engine) RebalanceShadow(caller *authz.Token, keyFrom, keyTo coinkey.Key, amount *big.Int, fromIsConly, toIsConly bool) (*big.Int, *big.Int, error) {
	return e.RebalanceBetweenKeys(caller, keyFrom, keyTo, amount, fromIsConly, toIsConly)
}
