package value

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"kopiocore/native/assets"
	"kopiocore/native/oracle"
)

type staticPrices map[string]*big.Int

func (s staticPrices) Price(ticker string) (oracle.Price, error) {
	quote, ok := s[ticker]
	if !ok {
		return oracle.Price{}, oracle.ErrPriceMissing
	}
	return oracle.Price{Value: new(big.Int).Set(quote), Timestamp: time.Now()}, nil
}

func newValueFixture(t *testing.T) (*Engine, staticPrices) {
	t.Helper()
	registry := assets.NewRegistry()
	for _, asset := range []*assets.Asset{
		{Ticker: "SIX", Decimals: 6, CFactor: 10_000, DFactor: 10_000},
		{Ticker: "WAD", Decimals: 18, CFactor: 5_000, DFactor: 10_000},
		{Ticker: "BIG", Decimals: 21, CFactor: 10_000, DFactor: 20_000},
	} {
		if err := registry.Add(asset); err != nil {
			t.Fatalf("add %s: %v", asset.Ticker, err)
		}
	}
	prices := staticPrices{
		"SIX": big.NewInt(200_000_000), // $2
		"WAD": big.NewInt(200_000_000),
		"BIG": big.NewInt(200_000_000),
	}
	return NewEngine(registry, prices), prices
}

func unit(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

func TestValueNormalizesSourceDecimals(t *testing.T) {
	engine, _ := newValueFixture(t)
	want := big.NewInt(200_000_000)
	for _, ticker := range []string{"SIX", "WAD", "BIG"} {
		asset, _ := engine.registry.Get(ticker)
		got, err := engine.CollateralValue(ticker, unit(asset.Decimals), false)
		if err != nil {
			t.Fatalf("%s: %v", ticker, err)
		}
		if got.Cmp(want) != 0 {
			t.Fatalf("%s: one unit = %s, want %s", ticker, got, want)
		}
	}
}

func TestValueIsAdditive(t *testing.T) {
	engine, _ := newValueFixture(t)
	a := new(big.Int).Mul(big.NewInt(3), unit(18))
	b := new(big.Int).Mul(big.NewInt(4), unit(18))

	va, err := engine.CollateralValue("WAD", a, false)
	if err != nil {
		t.Fatalf("value a: %v", err)
	}
	vb, err := engine.CollateralValue("WAD", b, false)
	if err != nil {
		t.Fatalf("value b: %v", err)
	}
	vsum, err := engine.CollateralValue("WAD", new(big.Int).Add(a, b), false)
	if err != nil {
		t.Fatalf("value sum: %v", err)
	}
	if new(big.Int).Add(va, vb).Cmp(vsum) != 0 {
		t.Fatalf("value(a)+value(b)=%s, value(a+b)=%s", new(big.Int).Add(va, vb), vsum)
	}
}

func TestFactorsAdjustValues(t *testing.T) {
	engine, _ := newValueFixture(t)

	// WAD carries a 50% collateral factor: $2 counts as $1.
	adjusted, err := engine.CollateralValue("WAD", unit(18), true)
	if err != nil {
		t.Fatalf("collateral: %v", err)
	}
	if adjusted.Cmp(big.NewInt(100_000_000)) != 0 {
		t.Fatalf("adjusted collateral = %s, want 100000000", adjusted)
	}

	// BIG carries a 200% debt factor: $2 of debt weighs $4.
	debt, err := engine.DebtValue("BIG", unit(21), true)
	if err != nil {
		t.Fatalf("debt: %v", err)
	}
	if debt.Cmp(big.NewInt(400_000_000)) != 0 {
		t.Fatalf("adjusted debt = %s, want 400000000", debt)
	}
}

func TestAmountFromValueInverts(t *testing.T) {
	engine, _ := newValueFixture(t)
	amount := new(big.Int).Mul(big.NewInt(7), unit(18))
	value, err := engine.DebtValue("WAD", amount, false)
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	back, err := engine.AmountFromValue("WAD", value)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	if back.Cmp(amount) != 0 {
		t.Fatalf("round trip: got %s, want %s", back, amount)
	}
}

func TestPriceFailuresPropagate(t *testing.T) {
	engine, prices := newValueFixture(t)
	delete(prices, "WAD")
	if _, err := engine.CollateralValue("WAD", unit(18), false); !errors.Is(err, oracle.ErrPriceMissing) {
		t.Fatalf("expected ErrPriceMissing, got %v", err)
	}
	if _, err := engine.Price("UNKNOWN"); !errors.Is(err, assets.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}
