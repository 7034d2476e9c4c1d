package position

import (
	"math/big"
	"testing"

	"duallend/native/lending/authz"
	"duallend/native/lending/coinkey"
	"duallend/native/lending/lendingerrors"
)

type mockState struct {
	byUser map[string]map[Side]*Account
}

func newMockState() *mockState {
	return &mockState{byUser: make(map[string]map[Side]*Account)}
}

func (m *mockState) GetAccount(user string, side Side) (*Account, error) {
	sides, ok := m.byUser[user]
	if !ok {
		return nil, nil
	}
	return sides[side], nil
}

func (m *mockState) PutAccount(user string, side Side, acc *Account) error {
	if m.byUser[user] == nil {
		m.byUser[user] = make(map[Side]*Account)
	}
	m.byUser[user][side] = acc
	return nil
}

// mockOracle treats every coin as 1:1 with the common value unit.
type mockOracle struct{}

func (mockOracle) Volume(key coinkey.Key, amount *big.Int) *big.Int {
	return new(big.Int).Set(amount)
}

type mockRisk struct {
	lt  map[coinkey.Key]*big.Int
	ltv map[coinkey.Key]*big.Int
}

func (m mockRisk) LT(key coinkey.Key) (*big.Int, bool) {
	v, ok := m.lt[key]
	return v, ok
}

func (m mockRisk) LTV(key coinkey.Key) (*big.Int, bool) {
	v, ok := m.ltv[key]
	return v, ok
}

type mockShadowLT struct{ lt *big.Int }

func (m mockShadowLT) ShadowLT() *big.Int { return m.lt }

func bi(v int64) *big.Int { return big.NewInt(v) }

func newTestEngine() (*Engine, *authz.Token) {
	owner := authz.NewToken()
	risk := mockRisk{
		lt:  map[coinkey.Key]*big.Int{coinkey.Key("WETH"): bi(700_000_000), coinkey.Key("UNI"): bi(700_000_000)},
		ltv: map[coinkey.Key]*big.Int{coinkey.Key("WETH"): bi(650_000_000)},
	}
	e := NewEngine(owner, newMockState(), mockOracle{}, risk, mockShadowLT{lt: bi(1_000_000_000)}, nil)
	return e, owner
}

func TestDepositExclusivity(t *testing.T) {
	e, owner := newTestEngine()
	if err := e.Deposit(owner, "alice", AssetToShadow, coinkey.Key("WETH"), bi(100), false); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := e.Deposit(owner, "alice", AssetToShadow, coinkey.Key("WETH"), bi(1), true); err != lendingerrors.ErrAlreadyDepositedAsNormal {
		t.Fatalf("expected ErrAlreadyDepositedAsNormal, got %v", err)
	}
}

func TestBorrowBelowLTAllowedAtLTRejected(t *testing.T) {
	e, owner := newTestEngine()
	if err := e.Deposit(owner, "alice", AssetToShadow, coinkey.Key("WETH"), bi(10000), false); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := e.Borrow(owner, "alice", AssetToShadow, coinkey.Key("WETH"), bi(6999)); err != nil {
		t.Fatalf("expected borrow 6999 to succeed, got %v", err)
	}
	if err := e.Borrow(owner, "alice", AssetToShadow, coinkey.Key("WETH"), bi(1)); err != lendingerrors.ErrNoSafePosition {
		t.Fatalf("expected ErrNoSafePosition, got %v", err)
	}
}

func TestRepayRemovesEmptyKey(t *testing.T) {
	e, owner := newTestEngine()
	if err := e.Deposit(owner, "alice", AssetToShadow, coinkey.Key("WETH"), bi(10000), false); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := e.Borrow(owner, "alice", AssetToShadow, coinkey.Key("WETH"), bi(100)); err != nil {
		t.Fatalf("borrow failed: %v", err)
	}
	if err := e.Repay(owner, "alice", AssetToShadow, coinkey.Key("WETH"), bi(100)); err != nil {
		t.Fatalf("repay failed: %v", err)
	}
	b, err := e.Borrowed("alice", AssetToShadow, coinkey.Key("WETH"))
	if err != nil || b.Sign() != 0 {
		t.Fatalf("expected zero borrowed, got %v err=%v", b, err)
	}
}

func TestWithdrawRollsBackWhenUnsafe(t *testing.T) {
	e, owner := newTestEngine()
	if err := e.Deposit(owner, "alice", AssetToShadow, coinkey.Key("WETH"), bi(1000), false); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := e.Borrow(owner, "alice", AssetToShadow, coinkey.Key("WETH"), bi(650)); err != nil {
		t.Fatalf("borrow failed: %v", err)
	}
	if err := e.Withdraw(owner, "alice", AssetToShadow, coinkey.Key("WETH"), bi(500), false); err != lendingerrors.ErrNoSafePosition {
		t.Fatalf("expected ErrNoSafePosition, got %v", err)
	}
	d, err := e.Deposited("alice", AssetToShadow, coinkey.Key("WETH"))
	if err != nil || d.Cmp(bi(1000)) != 0 {
		t.Fatalf("expected deposit unchanged at 1000, got %v err=%v", d, err)
	}
}

func TestProtectCoinTogglesOnce(t *testing.T) {
	e, owner := newTestEngine()
	if err := e.Deposit(owner, "alice", ShadowToAsset, coinkey.Key("WETH"), bi(100), false); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := e.ProtectCoin(owner, "alice", ShadowToAsset, coinkey.Key("WETH")); err != nil {
		t.Fatalf("protect failed: %v", err)
	}
	if err := e.ProtectCoin(owner, "alice", ShadowToAsset, coinkey.Key("WETH")); err != lendingerrors.ErrAlreadyProtected {
		t.Fatalf("expected ErrAlreadyProtected, got %v", err)
	}
	if err := e.UnprotectCoin(owner, "alice", ShadowToAsset, coinkey.Key("WETH")); err != nil {
		t.Fatalf("unprotect failed: %v", err)
	}
}

func TestRebalanceShadowRescuesUnsafeKey(t *testing.T) {
	e, owner := newTestEngine()
	if err := e.Deposit(owner, "alice", ShadowToAsset, coinkey.Key("WETH"), bi(100000), false); err != nil {
		t.Fatalf("deposit WETH failed: %v", err)
	}
	if err := e.Deposit(owner, "alice", ShadowToAsset, coinkey.Key("UNI"), bi(100000), false); err != nil {
		t.Fatalf("deposit UNI failed: %v", err)
	}
	if err := e.Borrow(owner, "alice", ShadowToAsset, coinkey.Key("WETH"), bi(50000)); err != nil {
		t.Fatalf("borrow WETH failed: %v", err)
	}

	// Simulate UNI going unsafe (e.g. a price move) by writing its borrowed
	// total directly, bypassing the engine's own safety gate on Borrow.
	acc, err := e.loadAccount("alice", ShadowToAsset)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	acc.Balance[coinkey.Key("UNI")].Borrowed = bi(110000)
	if err := e.persist("alice", ShadowToAsset, acc); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	amount, _, _, err := e.RebalanceShadow(owner, "alice", coinkey.Key("WETH"), coinkey.Key("UNI"))
	if err != nil {
		t.Fatalf("rebalance failed: %v", err)
	}
	if amount.Sign() <= 0 {
		t.Fatalf("expected positive rebalance amount, got %s", amount)
	}
	safe, err := e.IsSafe("alice", ShadowToAsset, coinkey.Key("UNI"))
	if err != nil || !safe {
		t.Fatalf("expected UNI safe after rebalance, safe=%v err=%v", safe, err)
	}
}

func TestRebalanceShadowFailsWhenProtected(t *testing.T) {
	e, owner := newTestEngine()
	if err := e.Deposit(owner, "alice", ShadowToAsset, coinkey.Key("WETH"), bi(100000), false); err != nil {
		t.Fatalf("deposit WETH failed: %v", err)
	}
	if err := e.Deposit(owner, "alice", ShadowToAsset, coinkey.Key("UNI"), bi(100000), false); err != nil {
		t.Fatalf("deposit UNI failed: %v", err)
	}
	if err := e.ProtectCoin(owner, "alice", ShadowToAsset, coinkey.Key("WETH")); err != nil {
		t.Fatalf("protect failed: %v", err)
	}
	if _, _, _, err := e.RebalanceShadow(owner, "alice", coinkey.Key("WETH"), coinkey.Key("UNI")); err != lendingerrors.ErrCannotRebalance {
		t.Fatalf("expected ErrCannotRebalance, got %v", err)
	}
}

func TestLiquidateAssetSideForcedClose(t *testing.T) {
	e, owner := newTestEngine()
	if err := e.Deposit(owner, "alice", AssetToShadow, coinkey.Key("WETH"), bi(100), false); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := e.Borrow(owner, "alice", AssetToShadow, coinkey.Key("WETH"), bi(64)); err != nil {
		t.Fatalf("borrow failed: %v", err)
	}

	// Simulate a price move pushing the position unsafe: bump borrowed
	// directly in storage, bypassing the engine's own safety gate the way a
	// falling collateral price would without any new borrow call.
	acc, err := e.loadAccount("alice", AssetToShadow)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	acc.Balance[coinkey.Key("WETH")].Borrowed = bi(90)
	if err := e.persist("alice", AssetToShadow, acc); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	result, err := e.Liquidate(owner, AssetToShadow, coinkey.Key("WETH"), "alice")
	if err != nil {
		t.Fatalf("liquidate failed: %v", err)
	}
	if !result.ForcedClose {
		t.Fatalf("expected forced close on the asset side, got rescue")
	}
	if result.Amount.Cmp(bi(100)) != 0 {
		t.Fatalf("got amount=%s, want 100", result.Amount)
	}
}
