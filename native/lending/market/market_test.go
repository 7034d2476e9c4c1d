package market

import (
	"math/big"
	"testing"

	"duallend/native/lending/assetpool"
	"duallend/native/lending/authz"
	"duallend/native/lending/coinkey"
	"duallend/native/lending/interest"
	"duallend/native/lending/position"
	"duallend/native/lending/poolstatus"
	"duallend/native/lending/risk"
	"duallend/native/lending/shadowpool"
)

type mockPoolState struct {
	byKey map[coinkey.Key]*assetpool.Storage
}

func newMockPoolState() *mockPoolState {
	return &mockPoolState{byKey: make(map[coinkey.Key]*assetpool.Storage)}
}

func (m *mockPoolState) GetStorage(key coinkey.Key) (*assetpool.Storage, error) {
	return m.byKey[key], nil
}

func (m *mockPoolState) PutStorage(key coinkey.Key, s *assetpool.Storage) error {
	m.byKey[key] = s
	return nil
}

type mockRisk struct {
	lt  map[coinkey.Key]*big.Int
	ltv map[coinkey.Key]*big.Int
	f   risk.Factors
}

func (m mockRisk) Factors(coinkey.Key) (risk.Factors, bool) { return m.f, true }
func (m mockRisk) LT(key coinkey.Key) (*big.Int, bool) {
	v, ok := m.lt[key]
	return v, ok
}
func (m mockRisk) LTV(key coinkey.Key) (*big.Int, bool) {
	v, ok := m.ltv[key]
	return v, ok
}

type mockRates struct{ c interest.Config }

func (m mockRates) Config(coinkey.Key) (interest.Config, bool) { return m.c, true }

type mockTreasury struct{ collected *big.Int }

func (t *mockTreasury) CollectFee(key coinkey.Key, amount *big.Int) error {
	t.collected = new(big.Int).Add(t.collected, amount)
	return nil
}

type mockCoin struct{ pool *big.Int }

func (c *mockCoin) WithdrawFrom(account string, amount *big.Int) error {
	c.pool = new(big.Int).Add(c.pool, amount)
	return nil
}
func (c *mockCoin) DepositTo(receiver string, amount *big.Int) error {
	c.pool = new(big.Int).Sub(c.pool, amount)
	return nil
}
func (c *mockCoin) BalanceOf(coinkey.Key) (*big.Int, error) { return c.pool, nil }

type mockPositionState struct {
	byUser map[string]map[position.Side]*position.Account
}

func newMockPositionState() *mockPositionState {
	return &mockPositionState{byUser: make(map[string]map[position.Side]*position.Account)}
}

func (m *mockPositionState) GetAccount(user string, side position.Side) (*position.Account, error) {
	sides, ok := m.byUser[user]
	if !ok {
		return nil, nil
	}
	return sides[side], nil
}

func (m *mockPositionState) PutAccount(user string, side position.Side, acc *position.Account) error {
	if m.byUser[user] == nil {
		m.byUser[user] = make(map[position.Side]*position.Account)
	}
	m.byUser[user][side] = acc
	return nil
}

// mockOracle treats every coin as 1:1 with the common value unit.
type mockOracle struct{}

func (mockOracle) Volume(key coinkey.Key, amount *big.Int) *big.Int {
	return new(big.Int).Set(amount)
}

type mockShadowLT struct{ lt *big.Int }

func (m mockShadowLT) ShadowLT() *big.Int { return m.lt }

func bi(v int64) *big.Int { return big.NewInt(v) }

func testFactors() risk.Factors {
	return risk.Factors{
		LTV: bi(650_000_000), LT: bi(700_000_000),
		EntryFee: bi(0), ShareFee: bi(0), LiquidationFee: bi(50_000_000),
	}
}

func testRateConfig() interest.Config {
	return interest.Config{
		Uopt: bi(800_000_000), Ucrit: bi(950_000_000),
		Rb: bi(10_000_000), Rslope1: bi(100_000_000), Rslope2: bi(600_000_000),
	}
}

func newTestMarket() (*Market, *authz.Token, *mockPositionState) {
	owner := authz.NewToken()
	status := poolstatus.NewRegistry(nil)
	status.SetCoin(coinkey.Key("WETH"), poolstatus.AllEnabled())
	status.SetCoin(coinkey.Key("UNI"), poolstatus.AllEnabled())

	risk := mockRisk{
		lt:  map[coinkey.Key]*big.Int{coinkey.Key("WETH"): bi(700_000_000), coinkey.Key("UNI"): bi(700_000_000)},
		ltv: map[coinkey.Key]*big.Int{coinkey.Key("WETH"): bi(650_000_000), coinkey.Key("UNI"): bi(650_000_000)},
		f:   testFactors(),
	}
	rates := mockRates{testRateConfig()}

	asset := assetpool.NewEngine(owner, newMockPoolState(), status, risk, rates, &mockCoin{pool: bi(1_000_000)}, &mockTreasury{collected: bi(0)}, nil)
	shadow := shadowpool.NewEngine(owner, newMockPoolState(), status, risk, rates, &mockTreasury{collected: bi(0)}, nil)
	asset.SetNow(1000)
	shadow.SetNow(1000)

	posState := newMockPositionState()
	pos := position.NewEngine(owner, posState, mockOracle{}, risk, mockShadowLT{lt: bi(1_000_000_000)}, nil)

	m := New(owner, asset, shadow, pos)
	return m, owner, posState
}

func TestDepositBorrowRepayAssetToShadow(t *testing.T) {
	m, owner, _ := newTestMarket()
	if _, _, err := m.Deposit(owner, "alice", "alice", position.AssetToShadow, coinkey.Key("WETH"), bi(10000), false); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if _, _, err := m.Borrow(owner, "alice", "alice", position.AssetToShadow, coinkey.Key("WETH"), bi(6000)); err != nil {
		t.Fatalf("borrow failed: %v", err)
	}
	if _, err := m.Repay(owner, "alice", "alice", position.AssetToShadow, coinkey.Key("WETH"), bi(6000), false); err != nil {
		t.Fatalf("repay failed: %v", err)
	}
	owed, err := m.position.Borrowed("alice", position.AssetToShadow, coinkey.Key("WETH"))
	if err != nil || owed.Sign() != 0 {
		t.Fatalf("expected zero debt after repay, got %v err=%v", owed, err)
	}
}

func TestBorrowAtLTRejected(t *testing.T) {
	m, owner, _ := newTestMarket()
	if _, _, err := m.Deposit(owner, "alice", "alice", position.AssetToShadow, coinkey.Key("WETH"), bi(10000), false); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if _, _, err := m.Borrow(owner, "alice", "alice", position.AssetToShadow, coinkey.Key("WETH"), bi(7000)); err == nil {
		t.Fatalf("expected borrow reaching the 70%% LT to fail")
	}
}

func TestShadowToAssetRoutesToOppositePools(t *testing.T) {
	m, owner, _ := newTestMarket()
	if _, _, err := m.Deposit(owner, "alice", "alice", position.ShadowToAsset, coinkey.Key("WETH"), bi(5000), false); err != nil {
		t.Fatalf("shadow deposit failed: %v", err)
	}
	if _, _, err := m.Borrow(owner, "alice", "alice", position.ShadowToAsset, coinkey.Key("WETH"), bi(1000)); err != nil {
		t.Fatalf("asset borrow failed: %v", err)
	}
	borrowedAssetPool, err := m.asset.AccrueInterest(coinkey.Key("WETH"))
	if err != nil {
		t.Fatalf("accrue failed: %v", err)
	}
	if borrowedAssetPool.TotalBorrowedAmount.Cmp(bi(1000)) != 0 {
		t.Fatalf("expected asset pool to carry the shadow-to-asset debt, got %s", borrowedAssetPool.TotalBorrowedAmount)
	}
}

func TestLiquidateAssetSideSettlesDebtAndSeizesCollateral(t *testing.T) {
	m, owner, posState := newTestMarket()
	if _, _, err := m.Deposit(owner, "alice", "alice", position.AssetToShadow, coinkey.Key("WETH"), bi(10000), false); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if _, _, err := m.Borrow(owner, "alice", "alice", position.AssetToShadow, coinkey.Key("WETH"), bi(6000)); err != nil {
		t.Fatalf("borrow failed: %v", err)
	}

	// Simulate a price move pushing alice's position unsafe by writing the
	// position's borrowed total directly, the way a falling collateral price
	// would without any new borrow call.
	acc, err := posState.GetAccount("alice", position.AssetToShadow)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	acc.Balance[coinkey.Key("WETH")].Borrowed = bi(9000)
	if err := posState.PutAccount("alice", position.AssetToShadow, acc); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	result, err := m.Liquidate(owner, "bob", position.AssetToShadow, coinkey.Key("WETH"), "alice")
	if err != nil {
		t.Fatalf("liquidate failed: %v", err)
	}
	if !result.ForcedClose {
		t.Fatalf("expected forced close, got rescue")
	}
	if result.Amount.Cmp(bi(10000)) != 0 {
		t.Fatalf("got seized amount=%s, want 10000", result.Amount)
	}
	if result.DebtAmount.Cmp(bi(9000)) != 0 {
		t.Fatalf("got settled debt=%s, want 9000", result.DebtAmount)
	}
}

// TestSwitchCollateralAfterInterestAccrualResolvesShare guards against
// treating a user's recorded deposited amount as a pool share quantity: once
// a bucket has accrued interest, share and amount diverge, and the switch
// must resolve the user's true share at the source bucket before moving
// anything.
func TestSwitchCollateralAfterInterestAccrualResolvesShare(t *testing.T) {
	owner := authz.NewToken()
	status := poolstatus.NewRegistry(nil)
	status.SetCoin(coinkey.Key("WETH"), poolstatus.AllEnabled())

	riskP := mockRisk{
		lt:  map[coinkey.Key]*big.Int{coinkey.Key("WETH"): bi(700_000_000)},
		ltv: map[coinkey.Key]*big.Int{coinkey.Key("WETH"): bi(650_000_000)},
		f:   testFactors(),
	}
	// A steep rate curve so a single second at 80% utilization (the Uopt
	// kink) accrues a clean 10% onto the WETH normal bucket in one step,
	// standing in for months of ordinary accrual.
	rates := mockRates{interest.Config{
		Uopt: bi(800_000_000), Ucrit: bi(950_000_000),
		Rb: bi(0), Rslope1: bi(3_942_000_000_000_000), Rslope2: bi(3_942_000_000_000_001),
	}}

	poolState := newMockPoolState()
	asset := assetpool.NewEngine(owner, poolState, status, riskP, rates, &mockCoin{pool: bi(1_000_000)}, &mockTreasury{collected: bi(0)}, nil)
	shadow := shadowpool.NewEngine(owner, newMockPoolState(), status, riskP, rates, &mockTreasury{collected: bi(0)}, nil)
	posState := newMockPositionState()
	pos := position.NewEngine(owner, posState, mockOracle{}, riskP, mockShadowLT{lt: bi(1_000_000_000)}, nil)
	m := New(owner, asset, shadow, pos)

	m.SetNow(1_000_000)
	if _, _, err := asset.DepositFor(owner, "carol", "carol", coinkey.Key("WETH"), bi(1000), false); err != nil {
		t.Fatalf("seed deposit failed: %v", err)
	}
	if _, _, _, err := asset.BorrowFor(owner, "bob", coinkey.Key("WETH"), bi(800)); err != nil {
		t.Fatalf("seed borrow failed: %v", err)
	}

	m.SetNow(2_000_000)
	if err := asset.ExecAccrueInterest(coinkey.Key("WETH")); err != nil {
		t.Fatalf("accrue failed: %v", err)
	}
	accrued, err := poolState.GetStorage(coinkey.Key("WETH"))
	if err != nil || accrued == nil {
		t.Fatalf("load accrued storage failed: %v", err)
	}
	if accrued.TotalNormalDepositedAmount.Cmp(bi(1100)) != 0 {
		t.Fatalf("got TotalNormalDepositedAmount=%s, want 1100 after accrual", accrued.TotalNormalDepositedAmount)
	}
	if accrued.TotalNormalDepositedShare.Cmp(bi(1000)) != 0 {
		t.Fatalf("got TotalNormalDepositedShare=%s, want unchanged at 1000", accrued.TotalNormalDepositedShare)
	}

	// Alice deposits into the now-inflated bucket: her deposited amount
	// (1100) and her minted share (1000) are no longer equal.
	if _, _, err := m.Deposit(owner, "alice", "alice", position.AssetToShadow, coinkey.Key("WETH"), bi(1100), false); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	amount, err := m.SwitchCollateral(owner, "alice", position.AssetToShadow, coinkey.Key("WETH"), true)
	if err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	// Treating alice's recorded amount (1100) as a share against the
	// post-deposit totals (2200 amount / 2000 share) would move
	// 1100*2200/2000=1210 — more than she ever deposited. Resolving her
	// true share (1000) first conserves her exact 1100.
	if amount.Cmp(bi(1100)) != 0 {
		t.Fatalf("got amount=%s, want 1100 (alice's deposit exactly conserved)", amount)
	}
}
