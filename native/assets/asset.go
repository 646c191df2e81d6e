// Package assets maintains the whitelisted asset registry: immutable
// identity, governance-mutable economic parameters, per-asset rebase state
// and the shared-pool swap route table.
package assets

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"kopiocore/native/fixed"
)

var (
	ErrAssetNotFound = errors.New("assets: asset not found")
	ErrAssetExists   = errors.New("assets: asset already whitelisted")
	ErrInvalidConfig = errors.New("assets: invalid asset configuration")
)

// Asset describes one whitelisted token. Ticker and Decimals are fixed at
// whitelisting; every other field is changeable through the configuration
// path only. Assets are never deleted, only disabled via their flags.
type Asset struct {
	Ticker   string
	Decimals uint8

	// Collateral discount and debt markup, basis points.
	CFactor uint64
	DFactor uint64

	// Fee rates, basis points.
	OpenFee          uint64
	CloseFee         uint64
	SwapInFee        uint64
	SwapOutFee       uint64
	ProtocolFeeShare uint64

	// Liquidation incentives, basis points (>= 100%).
	LiqIncentive     uint64
	LiqIncentiveSCDP uint64

	// Supply and deposit ceilings in real (rebase-adjusted) units. Nil means
	// unlimited.
	MintLimit        *big.Int
	MintLimitSCDP    *big.Int
	DepositLimitSCDP *big.Int

	// OracleOrder names the price sources consulted for this asset, primary
	// first. Empty means the aggregator default.
	OracleOrder []string

	IsCollateral        bool
	IsMintable          bool
	IsGlobalDepositable bool
	IsGlobalCollateral  bool
	IsSwapMintable      bool
}

// Clone returns a deep copy of the asset record.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	clone := *a
	clone.MintLimit = cloneOrNil(a.MintLimit)
	clone.MintLimitSCDP = cloneOrNil(a.MintLimitSCDP)
	clone.DepositLimitSCDP = cloneOrNil(a.DepositLimitSCDP)
	clone.OracleOrder = append([]string(nil), a.OracleOrder...)
	return &clone
}

// Validate enforces the numeric contract on the economic parameters.
func (a *Asset) Validate() error {
	if strings.TrimSpace(a.Ticker) == "" {
		return fmt.Errorf("%w: empty ticker", ErrInvalidConfig)
	}
	if a.Decimals < 6 || a.Decimals > 24 {
		return fmt.Errorf("%w: %s decimals %d outside 6-24", ErrInvalidConfig, a.Ticker, a.Decimals)
	}
	if a.CFactor > fixed.BpsOne {
		return fmt.Errorf("%w: %s cFactor above 100%%", ErrInvalidConfig, a.Ticker)
	}
	if a.DFactor < fixed.BpsOne {
		return fmt.Errorf("%w: %s dFactor below 100%%", ErrInvalidConfig, a.Ticker)
	}
	if a.LiqIncentive != 0 && a.LiqIncentive < fixed.BpsOne {
		return fmt.Errorf("%w: %s liquidation incentive below 100%%", ErrInvalidConfig, a.Ticker)
	}
	if a.LiqIncentiveSCDP != 0 && a.LiqIncentiveSCDP < fixed.BpsOne {
		return fmt.Errorf("%w: %s pool liquidation incentive below 100%%", ErrInvalidConfig, a.Ticker)
	}
	for _, fee := range []uint64{a.OpenFee, a.CloseFee, a.SwapInFee, a.SwapOutFee, a.ProtocolFeeShare} {
		if fee > fixed.BpsOne {
			return fmt.Errorf("%w: %s fee above 100%%", ErrInvalidConfig, a.Ticker)
		}
	}
	return nil
}

func cloneOrNil(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// NormalizeTicker canonicalises a ticker for registry lookups.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
