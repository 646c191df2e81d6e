package scdp

import (
	"errors"
	"testing"

	"kopiocore/crypto"
	"kopiocore/native/assets"
)

func TestSwapChargesRouteFeeAndMintsDebt(t *testing.T) {
	f := newPoolFixture(t)
	alice := makeAddress(crypto.AccountPrefix, 0x11)
	caller := makeAddress(crypto.AccountPrefix, 0x12)
	f.deposit(t, alice, "ONE", scale(10_000, 18))
	f.bank.credit("ONE", caller, scale(1000, 18))

	quote, err := f.engine.PreviewSwap("ONE", "KOPIO2", scale(1000, 18))
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	// 150 bps on 1000 ONE is 15; the remaining $985 buys 9.85 KOPIO2.
	if quote.Fee.Cmp(scale(15, 18)) != 0 {
		t.Fatalf("unexpected fee: %s", quote.Fee)
	}
	if quote.ProtocolFee.Cmp(scale(3, 18)) != 0 {
		t.Fatalf("unexpected protocol fee: %s", quote.ProtocolFee)
	}
	if quote.AmountOut.Cmp(scale(985, 16)) != 0 {
		t.Fatalf("unexpected amount out: %s", quote.AmountOut)
	}

	result, err := f.engine.Swap(caller, "ONE", "KOPIO2", scale(1000, 18), nil, crypto.Address{})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if result.AmountOut.Cmp(quote.AmountOut) != 0 {
		t.Fatalf("swap/preview mismatch: %s vs %s", result.AmountOut, quote.AmountOut)
	}

	// No opposing debt: the input becomes pool surplus, the output is all
	// freshly minted debt.
	surplus, err := f.engine.SwapDepositAmount("ONE")
	if err != nil {
		t.Fatalf("surplus: %v", err)
	}
	if surplus.Cmp(scale(985, 18)) != 0 {
		t.Fatalf("unexpected ONE surplus: %s", surplus)
	}
	debt, err := f.engine.SwapDebtAmount("KOPIO2")
	if err != nil {
		t.Fatalf("debt: %v", err)
	}
	if debt.Cmp(scale(985, 16)) != 0 {
		t.Fatalf("unexpected KOPIO2 debt: %s", debt)
	}

	if got := f.bank.balance("KOPIO2", caller); got.Cmp(scale(985, 16)) != 0 {
		t.Fatalf("unexpected caller KOPIO2: %s", got)
	}
	if got := f.bank.balance("ONE", caller); got.Sign() != 0 {
		t.Fatalf("unexpected caller ONE: %s", got)
	}

	// Fee split: 20% protocol share, the rest accrues to the sole depositor.
	potAmount, err := f.engine.ProtocolFeeAmount("ONE")
	if err != nil {
		t.Fatalf("protocol pot: %v", err)
	}
	if potAmount.Cmp(scale(3, 18)) != 0 {
		t.Fatalf("unexpected protocol pot: %s", potAmount)
	}
	aliceFees, err := f.engine.AccountAccruedFees(alice, "ONE")
	if err != nil {
		t.Fatalf("alice fees: %v", err)
	}
	if aliceFees.Cmp(scale(12, 18)) != 0 {
		t.Fatalf("unexpected depositor fees: %s", aliceFees)
	}
}

func TestSwapBackNetsDebtAndSurplusToZero(t *testing.T) {
	f := newPoolFixture(t)
	alice := makeAddress(crypto.AccountPrefix, 0x13)
	caller := makeAddress(crypto.AccountPrefix, 0x14)
	f.deposit(t, alice, "ONE", scale(10_000, 18))
	f.bank.credit("ONE", caller, scale(1000, 18))

	if _, err := f.engine.Swap(caller, "ONE", "KOPIO2", scale(1000, 18), nil, crypto.Address{}); err != nil {
		t.Fatalf("forward swap: %v", err)
	}

	// The reverse route carries no fee in this setup, so the full $985
	// returns: the KOPIO2 debt is burned and the ONE surplus drained, both
	// exactly to zero.
	result, err := f.engine.Swap(caller, "KOPIO2", "ONE", scale(985, 16), nil, crypto.Address{})
	if err != nil {
		t.Fatalf("reverse swap: %v", err)
	}
	if result.AmountOut.Cmp(scale(985, 18)) != 0 {
		t.Fatalf("unexpected reverse output: %s", result.AmountOut)
	}

	debt, err := f.engine.SwapDebtAmount("KOPIO2")
	if err != nil {
		t.Fatalf("debt: %v", err)
	}
	if debt.Sign() != 0 {
		t.Fatalf("KOPIO2 debt not fully netted: %s", debt)
	}
	surplus, err := f.engine.SwapDepositAmount("ONE")
	if err != nil {
		t.Fatalf("surplus: %v", err)
	}
	if surplus.Sign() != 0 {
		t.Fatalf("ONE surplus not fully drained: %s", surplus)
	}

	// The round trip costs the caller exactly the route fee.
	if got := f.bank.balance("ONE", caller); got.Cmp(scale(985, 18)) != 0 {
		t.Fatalf("unexpected caller ONE after round trip: %s", got)
	}
	if got := f.bank.balance("KOPIO2", caller); got.Sign() != 0 {
		t.Fatalf("unexpected caller KOPIO2 after round trip: %s", got)
	}
}

func TestSwapPartialNetting(t *testing.T) {
	f := newPoolFixture(t)
	alice := makeAddress(crypto.AccountPrefix, 0x15)
	caller := makeAddress(crypto.AccountPrefix, 0x16)
	f.deposit(t, alice, "ONE", scale(10_000, 18))
	f.bank.credit("ONE", caller, scale(1000, 18))

	if _, err := f.engine.Swap(caller, "ONE", "KOPIO2", scale(1000, 18), nil, crypto.Address{}); err != nil {
		t.Fatalf("forward swap: %v", err)
	}

	// Swapping back $400 burns part of the KOPIO2 debt and drains part of
	// the ONE surplus; neither side flips.
	if _, err := f.engine.Swap(caller, "KOPIO2", "ONE", scale(4, 18), nil, crypto.Address{}); err != nil {
		t.Fatalf("partial reverse: %v", err)
	}

	debt, err := f.engine.SwapDebtAmount("KOPIO2")
	if err != nil {
		t.Fatalf("debt: %v", err)
	}
	if debt.Cmp(scale(585, 16)) != 0 {
		t.Fatalf("unexpected KOPIO2 debt: %s", debt)
	}
	surplus, err := f.engine.SwapDepositAmount("ONE")
	if err != nil {
		t.Fatalf("surplus: %v", err)
	}
	if surplus.Cmp(scale(585, 18)) != 0 {
		t.Fatalf("unexpected ONE surplus: %s", surplus)
	}
}

func TestSwapMintsOnlyTheUncoveredRemainder(t *testing.T) {
	f := newPoolFixture(t)
	alice := makeAddress(crypto.AccountPrefix, 0x17)
	caller := makeAddress(crypto.AccountPrefix, 0x18)
	f.deposit(t, alice, "ONE", scale(1000, 18))

	// Seed 100 ONE of pool-owned surplus.
	if err := f.state.PutAssetState(&AssetState{Ticker: "ONE", TotalDeposits: scale(1000, 18), SwapDeposits: scale(100, 18)}); err != nil {
		t.Fatalf("seed surplus: %v", err)
	}
	f.bank.credit("ONE", f.module, scale(100, 18))
	f.bank.credit("KOPIO2", caller, scale(25, 17))

	// $250 of output: 100 from surplus, 150 freshly minted as debt.
	result, err := f.engine.Swap(caller, "KOPIO2", "ONE", scale(25, 17), nil, crypto.Address{})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if result.AmountOut.Cmp(scale(250, 18)) != 0 {
		t.Fatalf("unexpected output: %s", result.AmountOut)
	}
	surplus, err := f.engine.SwapDepositAmount("ONE")
	if err != nil {
		t.Fatalf("surplus: %v", err)
	}
	if surplus.Sign() != 0 {
		t.Fatalf("surplus not drained: %s", surplus)
	}
	debt, err := f.engine.SwapDebtAmount("ONE")
	if err != nil {
		t.Fatalf("debt: %v", err)
	}
	if debt.Cmp(scale(150, 18)) != 0 {
		t.Fatalf("unexpected ONE debt: %s", debt)
	}
	if got := f.bank.balance("ONE", caller); got.Cmp(scale(250, 18)) != 0 {
		t.Fatalf("unexpected caller ONE: %s", got)
	}
}

func TestSwapSlippageProtection(t *testing.T) {
	f := newPoolFixture(t)
	alice := makeAddress(crypto.AccountPrefix, 0x19)
	caller := makeAddress(crypto.AccountPrefix, 0x1a)
	f.deposit(t, alice, "ONE", scale(10_000, 18))
	f.bank.credit("ONE", caller, scale(1000, 18))

	// The quote is 9.85 KOPIO2; demanding 10 must fail before any transfer.
	_, err := f.engine.Swap(caller, "ONE", "KOPIO2", scale(1000, 18), scale(10, 18), crypto.Address{})
	if !errors.Is(err, ErrSlippage) {
		t.Fatalf("expected ErrSlippage, got %v", err)
	}
	if got := f.bank.balance("ONE", caller); got.Cmp(scale(1000, 18)) != 0 {
		t.Fatalf("balance touched on failed swap: %s", got)
	}
}

func TestSwapRouteAndEligibilityGating(t *testing.T) {
	f := newPoolFixture(t)
	f.addAsset(t, &assets.Asset{
		Ticker:         "KOPIO3",
		Decimals:       18,
		CFactor:        10_000,
		DFactor:        10_000,
		IsSwapMintable: true,
	}, scale(10, 8))
	caller := makeAddress(crypto.AccountPrefix, 0x1b)

	if _, err := f.engine.PreviewSwap("ONE", "KOPIO3", scale(1, 18)); !errors.Is(err, ErrRouteDisabled) {
		t.Fatalf("expected ErrRouteDisabled, got %v", err)
	}
	if _, err := f.engine.PreviewSwap("ONE", "ONE", scale(1, 18)); !errors.Is(err, ErrRouteDisabled) {
		t.Fatalf("expected ErrRouteDisabled for identity route, got %v", err)
	}

	if err := f.registry.SetSwapEnabled("KOPIO2", false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if _, err := f.engine.Swap(caller, "ONE", "KOPIO2", scale(1, 18), nil, crypto.Address{}); !errors.Is(err, ErrNotSwapMintable) {
		t.Fatalf("expected ErrNotSwapMintable, got %v", err)
	}
}

func TestSwapEnforcesMintLimit(t *testing.T) {
	f := newPoolFixture(t)
	alice := makeAddress(crypto.AccountPrefix, 0x1c)
	caller := makeAddress(crypto.AccountPrefix, 0x1d)
	f.deposit(t, alice, "ONE", scale(10_000, 18))
	f.bank.credit("ONE", caller, scale(1000, 18))

	asset, err := f.registry.Get("KOPIO2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	asset.MintLimitSCDP = scale(5, 18)
	if err := f.registry.Update("KOPIO2", asset); err != nil {
		t.Fatalf("update: %v", err)
	}

	// The swap would mint 9.85 KOPIO2 against a 5 unit ceiling.
	if _, err := f.engine.Swap(caller, "ONE", "KOPIO2", scale(1000, 18), nil, crypto.Address{}); !errors.Is(err, ErrMintLimit) {
		t.Fatalf("expected ErrMintLimit, got %v", err)
	}
}

func TestSwapGuardsPoolHealth(t *testing.T) {
	f := newPoolFixture(t)
	alice := makeAddress(crypto.AccountPrefix, 0x1e)
	caller := makeAddress(crypto.AccountPrefix, 0x1f)
	f.deposit(t, alice, "ONE", scale(10, 18))
	f.bank.credit("ONE", caller, scale(1000, 18))

	// $985 of new debt against ~$995 of backing falls short of the 200%
	// minimum.
	if _, err := f.engine.Swap(caller, "ONE", "KOPIO2", scale(1000, 18), nil, crypto.Address{}); !errors.Is(err, ErrPoolCollateralLow) {
		t.Fatalf("expected ErrPoolCollateralLow, got %v", err)
	}
}
