// Package position implements component G: per-user, per-side bookkeeping
// across coin keys, and the safety checks that gate every withdraw/borrow.
package position

import (
	"math/big"

	"duallend/native/lending/coinkey"
)

// Side tags which half of a dual-sided position an Account describes.
// AssetToShadow deposits a real asset and borrows shadow; ShadowToAsset
// deposits shadow and borrows a real asset.
type Side int

const (
	AssetToShadow Side = iota
	ShadowToAsset
)

func (s Side) String() string {
	if s == AssetToShadow {
		return "asset_to_shadow"
	}
	return "shadow_to_asset"
}

// Balance is one user's standing against one coin key on one side.
type Balance struct {
	Deposited      *big.Int
	ConlyDeposited *big.Int
	Borrowed       *big.Int
}

func zeroBalance() *Balance {
	return &Balance{Deposited: big.NewInt(0), ConlyDeposited: big.NewInt(0), Borrowed: big.NewInt(0)}
}

func (b *Balance) isEmpty() bool {
	return b.Deposited.Sign() == 0 && b.ConlyDeposited.Sign() == 0 && b.Borrowed.Sign() == 0
}

// isConlyMode reports whether this balance's entire deposit is in the
// collateral-only bucket. A balance is always wholly normal or wholly
// collateral-only; deposit enforces this exclusivity.
func (b *Balance) isConlyMode() bool {
	return b.Deposited.Sign() > 0 && b.ConlyDeposited.Cmp(b.Deposited) == 0
}

func (b *Balance) clone() *Balance {
	return &Balance{
		Deposited:      new(big.Int).Set(b.Deposited),
		ConlyDeposited: new(big.Int).Set(b.ConlyDeposited),
		Borrowed:       new(big.Int).Set(b.Borrowed),
	}
}

// Account is a user's position for one Side: the set of coin keys they have
// touched, which of those are opted out of rebalance, and the balance at
// each key.
type Account struct {
	Coins     []coinkey.Key
	Protected map[coinkey.Key]bool
	Balance   map[coinkey.Key]*Balance
}

// NewAccount returns an empty, ready-to-use Account for a first interaction.
func NewAccount() *Account {
	return &Account{
		Protected: make(map[coinkey.Key]bool),
		Balance:   make(map[coinkey.Key]*Balance),
	}
}

// EnsureDefaults guards against a partially-populated Account loaded from
// persistence with nil maps.
func (a *Account) EnsureDefaults() {
	if a.Protected == nil {
		a.Protected = make(map[coinkey.Key]bool)
	}
	if a.Balance == nil {
		a.Balance = make(map[coinkey.Key]*Balance)
	}
}

// Clone returns a deep copy so callers never mutate a shared reference.
func (a *Account) Clone() *Account {
	if a == nil {
		return NewAccount()
	}
	clone := NewAccount()
	clone.Coins = append(clone.Coins, a.Coins...)
	for k, v := range a.Protected {
		clone.Protected[k] = v
	}
	for k, v := range a.Balance {
		clone.Balance[k] = v.clone()
	}
	return clone
}

func (a *Account) hasCoin(key coinkey.Key) bool {
	_, ok := a.Balance[key]
	return ok
}

func (a *Account) insertCoin(key coinkey.Key) {
	if a.hasCoin(key) {
		return
	}
	a.Coins = append(a.Coins, key)
}

func (a *Account) removeCoinIfEmpty(key coinkey.Key) {
	b, ok := a.Balance[key]
	if !ok || !b.isEmpty() {
		return
	}
	delete(a.Balance, key)
	for i, k := range a.Coins {
		if k == key {
			a.Coins = append(a.Coins[:i], a.Coins[i+1:]...)
			break
		}
	}
}

// DepositedAsset returns the balance's deposited amount at key, 0 if no
// position exists there.
func (a *Account) DepositedAsset(key coinkey.Key) *big.Int {
	if b, ok := a.Balance[key]; ok {
		return new(big.Int).Set(b.Deposited)
	}
	return big.NewInt(0)
}

// ConlyDepositedAsset returns the balance's collateral-only deposited amount
// at key, 0 if no position exists there.
func (a *Account) ConlyDepositedAsset(key coinkey.Key) *big.Int {
	if b, ok := a.Balance[key]; ok {
		return new(big.Int).Set(b.ConlyDeposited)
	}
	return big.NewInt(0)
}

// BorrowedAsset returns the balance's borrowed amount at key, 0 if no
// position exists there.
func (a *Account) BorrowedAsset(key coinkey.Key) *big.Int {
	if b, ok := a.Balance[key]; ok {
		return new(big.Int).Set(b.Borrowed)
	}
	return big.NewInt(0)
}
