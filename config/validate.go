package config

import (
	"fmt"
	"strings"
)

// ValidateGlobal checks the cross-field consistency of the protocol
// parameters before they are applied.
func ValidateGlobal(g Global) error {
	if err := validateRatios("icdp", g.ICDP.MinCollateralRatioBPS, g.ICDP.LiquidationThresholdBPS, g.ICDP.MaxLiquidationRatioBPS); err != nil {
		return err
	}
	if err := validateRatios("scdp", g.SCDP.MinCollateralRatioBPS, g.SCDP.LiquidationThresholdBPS, g.SCDP.MaxLiquidationRatioBPS); err != nil {
		return err
	}

	if _, err := g.ICDPParams(); err != nil {
		return err
	}

	records, err := g.AssetRecords()
	if err != nil {
		return err
	}
	tickers := make(map[string]bool, len(records))
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
		key := strings.ToUpper(strings.TrimSpace(record.Ticker))
		if tickers[key] {
			return fmt.Errorf("asset %s listed twice", record.Ticker)
		}
		tickers[key] = true
	}
	for _, route := range g.Routes {
		in := strings.ToUpper(strings.TrimSpace(route.AssetIn))
		out := strings.ToUpper(strings.TrimSpace(route.AssetOut))
		if !tickers[in] || !tickers[out] {
			return fmt.Errorf("route %s -> %s references an unlisted asset", route.AssetIn, route.AssetOut)
		}
		if in == out {
			return fmt.Errorf("route %s -> %s is an identity pair", route.AssetIn, route.AssetOut)
		}
	}
	return nil
}

func validateRatios(module string, mcr, lt, mlr uint64) error {
	if lt < 10_000 {
		return fmt.Errorf("%s: liquidation threshold below 100%%", module)
	}
	if mcr <= lt {
		return fmt.Errorf("%s: min collateral ratio must exceed the liquidation threshold", module)
	}
	if mlr != 0 && mlr < lt {
		return fmt.Errorf("%s: max liquidation ratio below the liquidation threshold", module)
	}
	return nil
}
