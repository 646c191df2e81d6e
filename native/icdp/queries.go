package icdp

import (
	"math/big"

	"kopiocore/crypto"
	"kopiocore/native/fixed"
)

// MaxRatio is the collateral ratio reported for debt-free accounts.
var MaxRatio = new(big.Int).Lsh(big.NewInt(1), 255)

// AccountCollateralAmount returns the real deposit of one asset.
func (e *Engine) AccountCollateralAmount(account crypto.Address, ticker string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	position, err := e.ensurePosition(account)
	if err != nil {
		return nil, err
	}
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return nil, err
	}
	return e.registry.Rebase(asset.Ticker).ToReal(position.CollateralRaw(asset.Ticker)), nil
}

// AccountDebtAmount returns the real debt in one asset.
func (e *Engine) AccountDebtAmount(account crypto.Address, ticker string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	position, err := e.ensurePosition(account)
	if err != nil {
		return nil, err
	}
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return nil, err
	}
	return e.registry.Rebase(asset.Ticker).ToReal(position.DebtRaw(asset.Ticker)), nil
}

// AccountCollateralValue sums the account's deposits in the unit of account.
// With adjusted set, each asset's collateral factor discounts its share.
func (e *Engine) AccountCollateralValue(account crypto.Address, adjusted bool) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	position, err := e.ensurePosition(account)
	if err != nil {
		return nil, err
	}
	return e.collateralValue(position, adjusted)
}

// AccountDebtValue sums the account's debt in the unit of account. With
// adjusted set, each asset's debt factor inflates its share.
func (e *Engine) AccountDebtValue(account crypto.Address, adjusted bool) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	position, err := e.ensurePosition(account)
	if err != nil {
		return nil, err
	}
	return e.debtValue(position, adjusted)
}

// AccountCollateralRatio reports factor-adjusted collateral over
// factor-adjusted debt in basis points. Debt-free accounts report MaxRatio.
func (e *Engine) AccountCollateralRatio(account crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	position, err := e.ensurePosition(account)
	if err != nil {
		return nil, err
	}
	return e.collateralRatio(position)
}

func (e *Engine) collateralRatio(position *Position) (*big.Int, error) {
	debtValue, err := e.debtValue(position, true)
	if err != nil {
		return nil, err
	}
	if debtValue.Sign() == 0 {
		return new(big.Int).Set(MaxRatio), nil
	}
	collateralValue, err := e.collateralValue(position, true)
	if err != nil {
		return nil, err
	}
	return fixed.PercentDiv(collateralValue, debtValue), nil
}

func (e *Engine) collateralValue(position *Position, adjusted bool) (*big.Int, error) {
	total := big.NewInt(0)
	for _, ticker := range position.CollateralOrder {
		real := e.registry.Rebase(ticker).ToReal(position.CollateralRaw(ticker))
		v, err := e.values.CollateralValue(ticker, real, adjusted)
		if err != nil {
			return nil, err
		}
		total.Add(total, v)
	}
	return total, nil
}

func (e *Engine) debtValue(position *Position, adjusted bool) (*big.Int, error) {
	total := big.NewInt(0)
	for _, ticker := range position.MintOrder {
		real := e.registry.Rebase(ticker).ToReal(position.DebtRaw(ticker))
		v, err := e.values.DebtValue(ticker, real, adjusted)
		if err != nil {
			return nil, err
		}
		total.Add(total, v)
	}
	return total, nil
}
