package scdp

import (
	"math/big"

	"kopiocore/crypto"
	"kopiocore/native/fixed"
)

// MaxRatio is the collateral ratio reported for a debt-free pool.
var MaxRatio = new(big.Int).Lsh(big.NewInt(1), 255)

// PoolCollateralValue sums depositor principal plus swap-owned surplus across
// every pool collateral asset. With adjusted set, collateral factors apply.
func (e *Engine) PoolCollateralValue(adjusted bool) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.poolCollateralValue(adjusted, nil)
}

// PoolDebtValue sums the outstanding swap-minted debt across every swap
// mintable asset. With adjusted set, debt factors apply.
func (e *Engine) PoolDebtValue(adjusted bool) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.poolDebtValue(adjusted, nil)
}

// PoolCollateralRatio reports factor-adjusted pool collateral over
// factor-adjusted pool debt in basis points. A debt-free pool reports
// MaxRatio.
func (e *Engine) PoolCollateralRatio() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.poolCollateralRatio(nil)
}

func (e *Engine) poolCollateralRatio(overrides map[string]*AssetState) (*big.Int, error) {
	debtValue, err := e.poolDebtValue(true, overrides)
	if err != nil {
		return nil, err
	}
	if debtValue.Sign() == 0 {
		return new(big.Int).Set(MaxRatio), nil
	}
	collateralValue, err := e.poolCollateralValue(true, overrides)
	if err != nil {
		return nil, err
	}
	return fixed.PercentDiv(collateralValue, debtValue), nil
}

// AccountDepositAmount returns the account's effective principal in one pool
// asset, with accumulated index drift applied.
func (e *Engine) AccountDepositAmount(account crypto.Address, ticker string) (*big.Int, error) {
	record, _, err := e.settledView(account, ticker)
	if err != nil {
		return nil, err
	}
	return e.registry.Rebase(ticker).ToReal(record.Principal), nil
}

// AccountAccruedFees returns the account's claimable fee income in one pool
// asset, including income not yet settled into the record.
func (e *Engine) AccountAccruedFees(account crypto.Address, ticker string) (*big.Int, error) {
	record, _, err := e.settledView(account, ticker)
	if err != nil {
		return nil, err
	}
	return e.registry.Rebase(ticker).ToReal(record.AccruedFees), nil
}

// SwapDepositAmount returns the pool-owned swap surplus held in one asset.
func (e *Engine) SwapDepositAmount(ticker string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return nil, err
	}
	st, err := e.ensureAssetState(asset.Ticker)
	if err != nil {
		return nil, err
	}
	return e.registry.Rebase(asset.Ticker).ToReal(st.SwapDeposits), nil
}

// SwapDebtAmount returns the outstanding swap-minted debt in one asset.
func (e *Engine) SwapDebtAmount(ticker string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return nil, err
	}
	st, err := e.ensureAssetState(asset.Ticker)
	if err != nil {
		return nil, err
	}
	return e.registry.Rebase(asset.Ticker).ToReal(st.SwapDebt), nil
}

// TotalDepositAmount returns the effective depositor principal in one asset,
// excluding swap-owned surplus.
func (e *Engine) TotalDepositAmount(ticker string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return nil, err
	}
	st, err := e.ensureAssetState(asset.Ticker)
	if err != nil {
		return nil, err
	}
	return e.registry.Rebase(asset.Ticker).ToReal(st.TotalDeposits), nil
}

// ProtocolFeeAmount returns the uncollected protocol fee pot for one asset.
func (e *Engine) ProtocolFeeAmount(ticker string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return nil, err
	}
	fees, err := e.state.GetFeeAccrual()
	if err != nil {
		return nil, err
	}
	if fees == nil {
		return big.NewInt(0), nil
	}
	fees.normalize()
	return e.registry.Rebase(asset.Ticker).ToReal(fees.Amounts[asset.Ticker]), nil
}

// settledView settles a clone of the record so queries never mutate state.
func (e *Engine) settledView(account crypto.Address, ticker string) (*DepositRecord, *AssetState, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return nil, nil, err
	}
	st, err := e.ensureAssetState(asset.Ticker)
	if err != nil {
		return nil, nil, err
	}
	record, err := e.state.GetDeposit(account, asset.Ticker)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		record = &DepositRecord{Account: account, Ticker: asset.Ticker}
	} else {
		record = record.Clone()
	}
	settle(record, st)
	return record, st, nil
}
