package scdp

import (
	"math/big"

	"kopiocore/crypto"
	"kopiocore/native/fixed"
)

// AssetState is the pool-level accounting record for one eligible asset. All
// amounts are raw pre-rebase units; indices are RAY scaled.
type AssetState struct {
	Ticker string

	// TotalDeposits is the effective principal owned by depositors,
	// including cumulated income and net of socialized seizures.
	TotalDeposits *big.Int
	// SwapDeposits is the surplus the pool itself holds from swaps.
	SwapDeposits *big.Int
	// SwapDebt is the outstanding swap-minted debt in this asset.
	SwapDebt *big.Int

	// LiquidityIndex scales depositor principal: a deposit is worth
	// principal * current / stamped. Income raises it, socialized
	// liquidation losses lower it.
	LiquidityIndex *big.Int
	// FeeIndex accrues claimable fee income per unit of deposit; it only
	// ever grows.
	FeeIndex *big.Int
}

func (s *AssetState) normalize() {
	if s.TotalDeposits == nil {
		s.TotalDeposits = big.NewInt(0)
	}
	if s.SwapDeposits == nil {
		s.SwapDeposits = big.NewInt(0)
	}
	if s.SwapDebt == nil {
		s.SwapDebt = big.NewInt(0)
	}
	if fixed.IsZero(s.LiquidityIndex) {
		s.LiquidityIndex = fixed.Clone(fixed.Ray)
	}
	if fixed.IsZero(s.FeeIndex) {
		s.FeeIndex = fixed.Clone(fixed.Ray)
	}
}

// Clone deep-copies the asset state.
func (s *AssetState) Clone() *AssetState {
	if s == nil {
		return nil
	}
	return &AssetState{
		Ticker:         s.Ticker,
		TotalDeposits:  fixed.Clone(s.TotalDeposits),
		SwapDeposits:   fixed.Clone(s.SwapDeposits),
		SwapDebt:       fixed.Clone(s.SwapDebt),
		LiquidityIndex: fixed.Clone(s.LiquidityIndex),
		FeeIndex:       fixed.Clone(s.FeeIndex),
	}
}

// DepositRecord tracks one account's stake in one pool asset. Principal is
// raw units; the index stamps record the pool state at the last interaction
// so growth between interactions is settled exactly once.
type DepositRecord struct {
	Account crypto.Address
	Ticker  string

	Principal          *big.Int
	LastLiquidityIndex *big.Int
	LastFeeIndex       *big.Int
	// AccruedFees holds settled but unclaimed fee income, raw units.
	AccruedFees *big.Int
}

func (d *DepositRecord) normalize(state *AssetState) {
	if d.Principal == nil {
		d.Principal = big.NewInt(0)
	}
	if fixed.IsZero(d.LastLiquidityIndex) {
		d.LastLiquidityIndex = fixed.Clone(state.LiquidityIndex)
	}
	if fixed.IsZero(d.LastFeeIndex) {
		d.LastFeeIndex = fixed.Clone(state.FeeIndex)
	}
	if d.AccruedFees == nil {
		d.AccruedFees = big.NewInt(0)
	}
}

// Clone deep-copies the record.
func (d *DepositRecord) Clone() *DepositRecord {
	if d == nil {
		return nil
	}
	return &DepositRecord{
		Account:            d.Account,
		Ticker:             d.Ticker,
		Principal:          fixed.Clone(d.Principal),
		LastLiquidityIndex: fixed.Clone(d.LastLiquidityIndex),
		LastFeeIndex:       fixed.Clone(d.LastFeeIndex),
		AccruedFees:        fixed.Clone(d.AccruedFees),
	}
}

// FeeAccrual is the protocol's share of swap fees, per asset in raw units.
type FeeAccrual struct {
	Amounts map[string]*big.Int
}

func (f *FeeAccrual) normalize() {
	if f.Amounts == nil {
		f.Amounts = make(map[string]*big.Int)
	}
}

// Add credits the protocol fee pot.
func (f *FeeAccrual) Add(ticker string, amount *big.Int) {
	f.normalize()
	if fixed.IsZero(amount) {
		return
	}
	current, ok := f.Amounts[ticker]
	if !ok {
		current = big.NewInt(0)
	}
	f.Amounts[ticker] = new(big.Int).Add(current, amount)
}

// RiskParameters carries the pool-level ratios in basis points.
type RiskParameters struct {
	MinCollateralRatio   uint64
	LiquidationThreshold uint64
	MaxLiquidationRatio  uint64
}

// EffectiveMLR resolves the max liquidation ratio with its default buffer.
func (p RiskParameters) EffectiveMLR() uint64 {
	if p.MaxLiquidationRatio != 0 {
		return p.MaxLiquidationRatio
	}
	return p.LiquidationThreshold + 100
}

// Bank mirrors the token collaborator used by the ICDP engine.
type Bank interface {
	Transfer(asset string, from, to crypto.Address, amount *big.Int) error
	Mint(asset string, to crypto.Address, amount *big.Int) error
	Burn(asset string, from crypto.Address, amount *big.Int) error
}

type engineState interface {
	GetAssetState(ticker string) (*AssetState, error)
	PutAssetState(state *AssetState) error
	GetDeposit(addr crypto.Address, ticker string) (*DepositRecord, error)
	PutDeposit(record *DepositRecord) error
	GetFeeAccrual() (*FeeAccrual, error)
	PutFeeAccrual(fees *FeeAccrual) error
}
