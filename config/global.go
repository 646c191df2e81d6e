package config

import (
	"fmt"
	"math/big"
	"strings"

	"kopiocore/native/assets"
	"kopiocore/native/icdp"
	"kopiocore/native/scdp"
)

// ICDPParams converts the configured ICDP block into engine risk parameters.
func (g Global) ICDPParams() (icdp.RiskParameters, error) {
	params := icdp.RiskParameters{
		MinCollateralRatio:   g.ICDP.MinCollateralRatioBPS,
		LiquidationThreshold: g.ICDP.LiquidationThresholdBPS,
		MaxLiquidationRatio:  g.ICDP.MaxLiquidationRatioBPS,
	}
	minDebt, err := parseAmount(g.ICDP.MinDebtValue)
	if err != nil {
		return params, fmt.Errorf("invalid global.icdp.MinDebtValue: %w", err)
	}
	params.MinDebtValue = minDebt
	minCollateral, err := parseAmount(g.ICDP.MinCollateralValue)
	if err != nil {
		return params, fmt.Errorf("invalid global.icdp.MinCollateralValue: %w", err)
	}
	params.MinCollateralValue = minCollateral
	return params, nil
}

// SCDPParams converts the configured SCDP block into pool risk parameters.
func (g Global) SCDPParams() scdp.RiskParameters {
	return scdp.RiskParameters{
		MinCollateralRatio:   g.SCDP.MinCollateralRatioBPS,
		LiquidationThreshold: g.SCDP.LiquidationThresholdBPS,
		MaxLiquidationRatio:  g.SCDP.MaxLiquidationRatioBPS,
	}
}

// AssetRecords converts the genesis asset table into registry records.
func (g Global) AssetRecords() ([]*assets.Asset, error) {
	records := make([]*assets.Asset, 0, len(g.Assets))
	for _, entry := range g.Assets {
		record := &assets.Asset{
			Ticker:              entry.Ticker,
			Decimals:            entry.Decimals,
			CFactor:             entry.CFactorBPS,
			DFactor:             entry.DFactorBPS,
			OpenFee:             entry.OpenFeeBPS,
			CloseFee:            entry.CloseFeeBPS,
			SwapInFee:           entry.SwapInFeeBPS,
			SwapOutFee:          entry.SwapOutFeeBPS,
			ProtocolFeeShare:    entry.ProtocolFeeShareBPS,
			LiqIncentive:        entry.LiqIncentiveBPS,
			LiqIncentiveSCDP:    entry.LiqIncentiveSCDPBPS,
			OracleOrder:         append([]string(nil), entry.OracleOrder...),
			IsCollateral:        entry.IsCollateral,
			IsMintable:          entry.IsMintable,
			IsGlobalDepositable: entry.IsGlobalDepositable,
			IsGlobalCollateral:  entry.IsGlobalCollateral,
			IsSwapMintable:      entry.IsSwapMintable,
		}
		var err error
		if record.MintLimit, err = parseAmount(entry.MintLimit); err != nil {
			return nil, fmt.Errorf("asset %s: invalid MintLimit: %w", entry.Ticker, err)
		}
		if record.MintLimitSCDP, err = parseAmount(entry.MintLimitSCDP); err != nil {
			return nil, fmt.Errorf("asset %s: invalid MintLimitSCDP: %w", entry.Ticker, err)
		}
		if record.DepositLimitSCDP, err = parseAmount(entry.DepositLimitSCDP); err != nil {
			return nil, fmt.Errorf("asset %s: invalid DepositLimitSCDP: %w", entry.Ticker, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// SwapRoutes converts the configured routes into registry toggles.
func (g Global) SwapRoutes() []assets.SwapRoute {
	routes := make([]assets.SwapRoute, 0, len(g.Routes))
	for _, route := range g.Routes {
		routes = append(routes, assets.SwapRoute{
			AssetIn:  route.AssetIn,
			AssetOut: route.AssetOut,
			Enabled:  route.Enabled,
		})
	}
	return routes
}

// parseAmount parses a non-negative decimal string. Empty means unset (nil).
func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("not a base-10 integer: %q", value)
	}
	if parsed.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %q", value)
	}
	return parsed, nil
}
