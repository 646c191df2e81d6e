package core

import (
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"kopiocore/config"
	"kopiocore/crypto"
	nativecommon "kopiocore/native/common"
	"kopiocore/native/icdp"
	"kopiocore/native/oracle"
)

func makeAddress(seed byte) crypto.Address {
	var raw [20]byte
	for i := range raw {
		raw[i] = seed
	}
	return crypto.NewAddress(crypto.AccountPrefix, raw[:])
}

func scale(units int64) *big.Int {
	out := big.NewInt(units)
	return out.Mul(out, big.NewInt(1_000_000))
}

func testGlobal() config.Global {
	return config.Global{
		ICDP: config.ICDP{
			MinCollateralRatioBPS:   15_000,
			LiquidationThresholdBPS: 14_000,
		},
		SCDP: config.SCDP{
			MinCollateralRatioBPS:   20_000,
			LiquidationThresholdBPS: 15_000,
		},
		Oracle: config.Oracle{MaxPriceAgeSecs: 60},
		Assets: []config.AssetConfig{
			{
				Ticker:       "COLL",
				Decimals:     6,
				CFactorBPS:   10_000,
				DFactorBPS:   10_000,
				IsCollateral: true,
			},
			{
				Ticker:     "KOPIO",
				Decimals:   6,
				CFactorBPS: 10_000,
				DFactorBPS: 10_000,
				OpenFeeBPS: 1_000,
				IsMintable: true,
			},
			{
				Ticker:              "ONE",
				Decimals:            6,
				CFactorBPS:          10_000,
				DFactorBPS:          10_000,
				SwapOutFeeBPS:       100,
				ProtocolFeeShareBPS: 2_000,
				IsGlobalDepositable: true,
				IsGlobalCollateral:  true,
				IsSwapMintable:      true,
			},
			{
				Ticker:         "KOPIO2",
				Decimals:       6,
				CFactorBPS:     10_000,
				DFactorBPS:     10_000,
				SwapInFeeBPS:   50,
				IsSwapMintable: true,
			},
		},
		Routes: []config.RouteConfig{
			{AssetIn: "ONE", AssetOut: "KOPIO2", Enabled: true},
		},
	}
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := NewLedger(testGlobal(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return ledger
}

func prices(quotes map[string]int64) []oracle.Update {
	now := time.Now()
	updates := make([]oracle.Update, 0, len(quotes))
	for ticker, value := range quotes {
		updates = append(updates, oracle.Update{Ticker: ticker, Value: big.NewInt(value), Timestamp: now})
	}
	return updates
}

func defaultPrices() []oracle.Update {
	return prices(map[string]int64{
		"COLL":   100_000_000,
		"KOPIO":  1_000_000_000,
		"ONE":    100_000_000,
		"KOPIO2": 10_000_000_000,
	})
}

type allowAllPolicy struct{}

func (allowAllPolicy) Allow(crypto.Address, crypto.Address, string) bool { return true }

func TestLendingFlowEndToEnd(t *testing.T) {
	ledger := newTestLedger(t)
	alice := makeAddress(0x01)
	ledger.Bank().Credit("COLL", alice, scale(100))

	if err := ledger.DepositCollateral(alice, alice, "COLL", scale(100), defaultPrices()); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := ledger.Bank().BalanceOf("COLL", alice); got.Sign() != 0 {
		t.Fatalf("expected empty wallet after deposit, got %s", got)
	}

	// Minting 5 KOPIO is $50 of debt; the 10% open fee burns $5 of the COLL
	// deposit, leaving $95 backing $50 at ratio 19000.
	if err := ledger.Mint(alice, alice, "KOPIO", scale(5), alice, defaultPrices()); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := ledger.Bank().BalanceOf("KOPIO", alice); got.Cmp(scale(5)) != 0 {
		t.Fatalf("minted balance = %s, want %s", got, scale(5))
	}
	fees := ledger.Bank().BalanceOf("COLL", crypto.ModuleAddress("icdp/fees"))
	if fees.Cmp(scale(5)) != 0 {
		t.Fatalf("fee collector = %s COLL, want %s", fees, scale(5))
	}
	ratio, err := ledger.AccountCollateralRatio(alice)
	if err != nil {
		t.Fatalf("ratio: %v", err)
	}
	if ratio.Cmp(big.NewInt(19_000)) != 0 {
		t.Fatalf("ratio = %s, want 19000", ratio)
	}

	burned, err := ledger.Burn(alice, alice, "KOPIO", scale(5), alice, defaultPrices())
	if err != nil {
		t.Fatalf("burn: %v", err)
	}
	if burned.Cmp(scale(5)) != 0 {
		t.Fatalf("burned = %s, want %s", burned, scale(5))
	}

	// Oversized withdrawal clamps to the remaining 95 COLL.
	withdrawn, err := ledger.WithdrawCollateral(alice, alice, "COLL", scale(1_000), alice, defaultPrices())
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if withdrawn.Cmp(scale(95)) != 0 {
		t.Fatalf("withdrawn = %s, want %s", withdrawn, scale(95))
	}
	if got := ledger.Bank().BalanceOf("COLL", alice); got.Cmp(scale(95)) != 0 {
		t.Fatalf("wallet = %s, want %s", got, scale(95))
	}

	events := ledger.Events().Recent(10)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[0].Type != "icdp.deposit" || events[len(events)-1].Type != "icdp.withdraw" {
		t.Fatalf("unexpected event trail: first=%s last=%s", events[0].Type, events[len(events)-1].Type)
	}
	for _, event := range events {
		if event.ID == "" {
			t.Fatalf("event %s missing identifier", event.Type)
		}
	}
}

func TestFailedMintRollsBackFeeTransfer(t *testing.T) {
	ledger := newTestLedger(t)
	alice := makeAddress(0x02)
	ledger.Bank().Credit("COLL", alice, scale(10))

	if err := ledger.DepositCollateral(alice, alice, "COLL", scale(10), defaultPrices()); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// Minting 10 KOPIO charges a $10 open fee that consumes the entire $10
	// deposit before the ratio check rejects the mint. The engine has already
	// moved the fee by then; the ledger snapshot must undo it.
	err := ledger.Mint(alice, alice, "KOPIO", scale(10), alice, defaultPrices())
	if !errors.Is(err, icdp.ErrCollateralTooLow) {
		t.Fatalf("expected ErrCollateralTooLow, got %v", err)
	}

	if got := ledger.Bank().BalanceOf("COLL", crypto.ModuleAddress("icdp/fees")); got.Sign() != 0 {
		t.Fatalf("fee collector kept %s after rollback", got)
	}
	if got := ledger.Bank().BalanceOf("KOPIO", alice); got.Sign() != 0 {
		t.Fatalf("minted balance survived rollback: %s", got)
	}
	value, err := ledger.AccountCollateralValue(alice, false)
	if err != nil {
		t.Fatalf("collateral value: %v", err)
	}
	if value.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Fatalf("collateral value = %s, want 1000000000", value)
	}
}

func TestDelegationRequiresPolicy(t *testing.T) {
	ledger := newTestLedger(t)
	alice := makeAddress(0x03)
	bob := makeAddress(0x04)
	ledger.Bank().Credit("COLL", alice, scale(10))

	err := ledger.DepositCollateral(bob, alice, "COLL", scale(10), defaultPrices())
	if !errors.Is(err, nativecommon.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	ledger.SetPolicy(allowAllPolicy{})
	if err := ledger.DepositCollateral(bob, alice, "COLL", scale(10), defaultPrices()); err != nil {
		t.Fatalf("delegated deposit: %v", err)
	}
}

func TestPauseSwitchIsModuleScoped(t *testing.T) {
	ledger := newTestLedger(t)
	alice := makeAddress(0x05)
	ledger.Bank().Credit("COLL", alice, scale(10))
	ledger.Bank().Credit("ONE", alice, scale(10))

	ledger.SetPaused("icdp", true)
	err := ledger.DepositCollateral(alice, alice, "COLL", scale(10), defaultPrices())
	if !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := ledger.PoolDeposit(alice, alice, "ONE", scale(10), defaultPrices()); err != nil {
		t.Fatalf("pool deposit under icdp pause: %v", err)
	}

	ledger.SetPaused("icdp", false)
	if err := ledger.DepositCollateral(alice, alice, "COLL", scale(10), defaultPrices()); err != nil {
		t.Fatalf("deposit after unpause: %v", err)
	}

	params := ledger.Parameters()
	if params.ICDP.MinCollateralRatio != 15_000 || params.SCDP.MinCollateralRatio != 20_000 {
		t.Fatalf("unexpected parameters: %+v", params)
	}
	if params.Pauses["icdp"] {
		t.Fatalf("icdp still reported paused")
	}
}

func TestStalePriceRejectsOperation(t *testing.T) {
	ledger := newTestLedger(t)
	alice := makeAddress(0x06)
	ledger.Bank().Credit("COLL", alice, scale(10))

	if err := ledger.DepositCollateral(alice, alice, "COLL", scale(10), defaultPrices()); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	stale := []oracle.Update{
		{Ticker: "COLL", Value: big.NewInt(100_000_000), Timestamp: time.Now().Add(-10 * time.Minute)},
		{Ticker: "KOPIO", Value: big.NewInt(1_000_000_000), Timestamp: time.Now().Add(-10 * time.Minute)},
	}
	err := ledger.Mint(alice, alice, "KOPIO", scale(1), alice, stale)
	if !errors.Is(err, oracle.ErrPriceStale) {
		t.Fatalf("expected ErrPriceStale, got %v", err)
	}
	if got := ledger.Bank().BalanceOf("KOPIO", alice); got.Sign() != 0 {
		t.Fatalf("mint survived stale price: %s", got)
	}
}

func TestLiquidationPreviewThroughLedger(t *testing.T) {
	ledger := newTestLedger(t)
	alice := makeAddress(0x09)
	liquidator := makeAddress(0x0a)
	ledger.Bank().Credit("COLL", alice, scale(100))
	ledger.Bank().Credit("KOPIO", liquidator, scale(5))

	if err := ledger.DepositCollateral(alice, alice, "COLL", scale(100), defaultPrices()); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := ledger.Mint(alice, alice, "KOPIO", scale(5), alice, defaultPrices()); err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Healthy on both sides: previews return zero.
	preview, err := ledger.MaxLiquidatableValue(alice, "KOPIO", "COLL", defaultPrices())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.Sign() != 0 {
		t.Fatalf("healthy account preview = %s, want 0", preview)
	}
	poolPreview, err := ledger.PoolMaxLiquidatableValue("KOPIO2", "ONE", defaultPrices())
	if err != nil {
		t.Fatalf("pool preview: %v", err)
	}
	if poolPreview.Sign() != 0 {
		t.Fatalf("debt-free pool preview = %s, want 0", poolPreview)
	}

	// COLL at $0.70 leaves $66.50 backing $50 of debt, ratio 13300 under the
	// 14000 threshold. The closed form targets 14100:
	// (14100*50e8 - 66.5e8*1e4) * 1e4 / (14100*1e4 - 1e4*1e4) = 975609756.
	crashed := prices(map[string]int64{
		"COLL":   70_000_000,
		"KOPIO":  1_000_000_000,
		"ONE":    100_000_000,
		"KOPIO2": 10_000_000_000,
	})
	preview, err = ledger.MaxLiquidatableValue(alice, "KOPIO", "COLL", crashed)
	if err != nil {
		t.Fatalf("underwater preview: %v", err)
	}
	if preview.Cmp(big.NewInt(975_609_756)) != 0 {
		t.Fatalf("underwater preview = %s, want 975609756", preview)
	}

	// An oversized repay is clamped to exactly the previewed value.
	result, err := ledger.Liquidate(liquidator, alice, "KOPIO", scale(5), "COLL", crashed)
	if err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if result.RepaidValue.Cmp(preview) != 0 {
		t.Fatalf("repaid value %s diverged from preview %s", result.RepaidValue, preview)
	}
}

func TestPoolSwapThroughLedger(t *testing.T) {
	ledger := newTestLedger(t)
	alice := makeAddress(0x07)
	bob := makeAddress(0x08)
	ledger.Bank().Credit("ONE", alice, scale(1_000))
	ledger.Bank().Credit("ONE", bob, scale(100))

	if err := ledger.PoolDeposit(alice, alice, "ONE", scale(1_000), defaultPrices()); err != nil {
		t.Fatalf("pool deposit: %v", err)
	}

	quote, err := ledger.PreviewSwap("ONE", "KOPIO2", scale(100), defaultPrices())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}

	// 100 ONE at $1 pays a 1.5% route fee (1% out-fee + 0.5% in-fee); the
	// remaining $98.50 buys 0.985 KOPIO2 at $100.
	result, err := ledger.Swap(bob, "ONE", "KOPIO2", scale(100), nil, bob, defaultPrices())
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if result.AmountOut.Cmp(big.NewInt(985_000)) != 0 {
		t.Fatalf("amount out = %s, want 985000", result.AmountOut)
	}
	if result.AmountOut.Cmp(quote.AmountOut) != 0 || result.Fee.Cmp(quote.Fee) != 0 {
		t.Fatalf("swap diverged from preview: %+v vs %+v", result, quote)
	}
	if got := ledger.Bank().BalanceOf("KOPIO2", bob); got.Cmp(big.NewInt(985_000)) != 0 {
		t.Fatalf("bob KOPIO2 = %s, want 985000", got)
	}

	ratio, err := ledger.PoolCollateralRatio()
	if err != nil {
		t.Fatalf("pool ratio: %v", err)
	}
	if ratio.Cmp(big.NewInt(20_000)) < 0 {
		t.Fatalf("pool undercollateralized after swap: %s", ratio)
	}

	principal, err := ledger.PoolDepositAmount(alice, "ONE")
	if err != nil {
		t.Fatalf("pool principal: %v", err)
	}
	if principal.Cmp(scale(1_000)) != 0 {
		t.Fatalf("pool principal = %s, want %s", principal, scale(1_000))
	}
	accrued, err := ledger.PoolAccruedFees(alice, "ONE")
	if err != nil {
		t.Fatalf("accrued fees: %v", err)
	}
	if accrued.Sign() <= 0 {
		t.Fatalf("expected fee income for the sole depositor, got %s", accrued)
	}
}
