package icdp

import (
	"math/big"

	"kopiocore/crypto"
)

// Position is the per-account bookkeeping record for individually
// collateralized debt. Amounts are stored in raw pre-rebase units; the
// rebase factor is applied at read time and at mutation boundaries.
// Membership in the ordered ticker slices implies a positive amount.
type Position struct {
	Address crypto.Address

	CollateralOrder []string
	Collateral      map[string]*big.Int

	MintOrder []string
	Debt      map[string]*big.Int
}

func NewPosition(addr crypto.Address) *Position {
	return &Position{
		Address:    addr,
		Collateral: make(map[string]*big.Int),
		Debt:       make(map[string]*big.Int),
	}
}

// CollateralRaw returns the stored raw deposit for the ticker.
func (p *Position) CollateralRaw(ticker string) *big.Int {
	if p == nil || p.Collateral == nil {
		return big.NewInt(0)
	}
	if v, ok := p.Collateral[ticker]; ok && v != nil {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}

// SetCollateralRaw stores a raw deposit amount, maintaining the ordered
// membership set: first positive amount appends, zero removes.
func (p *Position) SetCollateralRaw(ticker string, amount *big.Int) {
	p.CollateralOrder, p.Collateral = setRaw(p.CollateralOrder, p.Collateral, ticker, amount)
}

// DebtRaw returns the stored raw debt for the ticker.
func (p *Position) DebtRaw(ticker string) *big.Int {
	if p == nil || p.Debt == nil {
		return big.NewInt(0)
	}
	if v, ok := p.Debt[ticker]; ok && v != nil {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}

// SetDebtRaw stores a raw debt amount with the same membership semantics as
// SetCollateralRaw.
func (p *Position) SetDebtRaw(ticker string, amount *big.Int) {
	p.MintOrder, p.Debt = setRaw(p.MintOrder, p.Debt, ticker, amount)
}

func setRaw(order []string, amounts map[string]*big.Int, ticker string, amount *big.Int) ([]string, map[string]*big.Int) {
	if amounts == nil {
		amounts = make(map[string]*big.Int)
	}
	_, present := amounts[ticker]
	if amount == nil || amount.Sign() <= 0 {
		if present {
			delete(amounts, ticker)
			for i, t := range order {
				if t == ticker {
					order = append(order[:i], order[i+1:]...)
					break
				}
			}
		}
		return order, amounts
	}
	if !present {
		order = append(order, ticker)
	}
	amounts[ticker] = new(big.Int).Set(amount)
	return order, amounts
}

// Clone deep-copies the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := NewPosition(p.Address)
	clone.CollateralOrder = append([]string(nil), p.CollateralOrder...)
	clone.MintOrder = append([]string(nil), p.MintOrder...)
	for t, v := range p.Collateral {
		clone.Collateral[t] = new(big.Int).Set(v)
	}
	for t, v := range p.Debt {
		clone.Debt[t] = new(big.Int).Set(v)
	}
	return clone
}

// RiskParameters groups the governance controlled ratios and thresholds,
// expressed in basis points and 8-decimal values.
type RiskParameters struct {
	// MinCollateralRatio must hold after every mint and withdrawal.
	MinCollateralRatio uint64
	// LiquidationThreshold is the ratio below which an account becomes
	// liquidatable.
	LiquidationThreshold uint64
	// MaxLiquidationRatio caps how far a single liquidation may restore the
	// account. Zero defaults to LiquidationThreshold + 1%.
	MaxLiquidationRatio uint64
	// MinDebtValue is the smallest debt a position may carry, 8 decimals.
	MinDebtValue *big.Int
	// MinCollateralValue is the deposit dust threshold, 8 decimals.
	MinCollateralValue *big.Int
}

// EffectiveMLR resolves the max liquidation ratio with its default buffer.
func (p RiskParameters) EffectiveMLR() uint64 {
	if p.MaxLiquidationRatio != 0 {
		return p.MaxLiquidationRatio
	}
	return p.LiquidationThreshold + 100
}

// Bank is the token transfer collaborator. The ledger treats transfers,
// mints and burns as black boxes that either fully apply or fail.
type Bank interface {
	Transfer(asset string, from, to crypto.Address, amount *big.Int) error
	Mint(asset string, to crypto.Address, amount *big.Int) error
	Burn(asset string, from crypto.Address, amount *big.Int) error
}

type engineState interface {
	GetPosition(addr crypto.Address) (*Position, error)
	PutPosition(position *Position) error
	GetSupply(ticker string) (*big.Int, error)
	PutSupply(ticker string, amount *big.Int) error
}
