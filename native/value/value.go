// Package value converts token amounts to the protocol unit of account. All
// results are normalised to the 8-decimal oracle scale regardless of source
// asset decimals; the amount is rescaled before multiplying so price
// precision is never truncated.
package value

import (
	"fmt"
	"math/big"

	"kopiocore/native/assets"
	"kopiocore/native/fixed"
	"kopiocore/native/oracle"
)

// PriceView resolves the current unit price of a ticker. Price failures
// (stale or missing quotes) propagate to the caller as hard errors.
type PriceView interface {
	Price(ticker string) (oracle.Price, error)
}

// Engine computes values from amounts, prices and the per-asset factors. It
// holds no mutable state of its own.
type Engine struct {
	registry *assets.Registry
	prices   PriceView
}

func NewEngine(registry *assets.Registry, prices PriceView) *Engine {
	return &Engine{registry: registry, prices: prices}
}

// Price returns the 8-decimal unit price for the asset, honouring its
// configured oracle source order.
func (e *Engine) Price(ticker string) (*big.Int, error) {
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return nil, err
	}
	quote, err := e.prices.Price(asset.Ticker)
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", asset.Ticker, err)
	}
	return quote.Value, nil
}

// CollateralValue returns the value of a real (rebase-adjusted) amount
// counted as collateral. With adjusted set, the collateral factor discounts
// the result.
func (e *Engine) CollateralValue(ticker string, amount *big.Int, adjusted bool) (*big.Int, error) {
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return nil, err
	}
	raw, err := e.value(asset, amount)
	if err != nil {
		return nil, err
	}
	if adjusted {
		return fixed.PercentMul(raw, asset.CFactor), nil
	}
	return raw, nil
}

// DebtValue returns the value of a real debt amount. With adjusted set, the
// debt factor inflates the result.
func (e *Engine) DebtValue(ticker string, amount *big.Int, adjusted bool) (*big.Int, error) {
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return nil, err
	}
	raw, err := e.value(asset, amount)
	if err != nil {
		return nil, err
	}
	if adjusted {
		return fixed.PercentMul(raw, asset.DFactor), nil
	}
	return raw, nil
}

// AmountFromValue converts an 8-decimal value back to a real amount of the
// asset at the current price.
func (e *Engine) AmountFromValue(ticker string, value *big.Int) (*big.Int, error) {
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return nil, err
	}
	if fixed.IsZero(value) {
		return big.NewInt(0), nil
	}
	quote, err := e.prices.Price(asset.Ticker)
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", asset.Ticker, err)
	}
	amountWad := fixed.WadDiv(value, quote.Value)
	return fixed.FromWad(amountWad, asset.Decimals), nil
}

func (e *Engine) value(asset *assets.Asset, amount *big.Int) (*big.Int, error) {
	if fixed.IsZero(amount) {
		return big.NewInt(0), nil
	}
	quote, err := e.prices.Price(asset.Ticker)
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", asset.Ticker, err)
	}
	return fixed.WadMul(fixed.ToWad(amount, asset.Decimals), quote.Value), nil
}
