package scdp

import (
	"math/big"

	"kopiocore/crypto"
	nativecommon "kopiocore/native/common"
	"kopiocore/native/fixed"
)

// LiquidationResult reports the outcome bookkeeping of one pool liquidation.
type LiquidationResult struct {
	RepaidAmount *big.Int
	RepaidValue  *big.Int
	SeizedAmount *big.Int
	SeizedValue  *big.Int
}

// Liquidatable reports whether the pool's collateral ratio has fallen below
// its liquidation threshold.
func (e *Engine) Liquidatable() (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.liquidatable(nil)
}

func (e *Engine) liquidatable(overrides map[string]*AssetState) (bool, error) {
	debtValue, err := e.poolDebtValue(true, overrides)
	if err != nil {
		return false, err
	}
	if debtValue.Sign() == 0 {
		return false, nil
	}
	collateralValue, err := e.poolCollateralValue(true, overrides)
	if err != nil {
		return false, err
	}
	return !ratioHolds(collateralValue, debtValue, e.params.LiquidationThreshold), nil
}

// MaxLiqValue computes the repay value that restores the pool exactly to its
// max liquidation ratio when repaying debtTicker against seizeTicker. The
// closed form matches the account-level one: solve
//
//	C - R*inc*cf = MLR*(D - R*df)
//
// for R over the pool-wide adjusted values.
func (e *Engine) MaxLiqValue(debtTicker, seizeTicker string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.maxLiqValue(debtTicker, seizeTicker)
}

func (e *Engine) maxLiqValue(debtTicker, seizeTicker string) (*big.Int, error) {
	underwater, err := e.liquidatable(nil)
	if err != nil {
		return nil, err
	}
	if !underwater {
		return big.NewInt(0), nil
	}

	debtAsset, err := e.registry.Get(debtTicker)
	if err != nil {
		return nil, err
	}
	seizeAsset, err := e.registry.Get(seizeTicker)
	if err != nil {
		return nil, err
	}

	collateralValue, err := e.poolCollateralValue(true, nil)
	if err != nil {
		return nil, err
	}
	debtValue, err := e.poolDebtValue(true, nil)
	if err != nil {
		return nil, err
	}

	mlr := new(big.Int).SetUint64(e.params.EffectiveMLR())
	numerator := new(big.Int).Mul(debtValue, mlr)
	numerator.Sub(numerator, new(big.Int).Mul(collateralValue, fixed.Bps))
	if numerator.Sign() <= 0 {
		return big.NewInt(0), nil
	}

	incentive := seizeIncentive(seizeAsset.LiqIncentiveSCDP, seizeAsset.LiqIncentive)
	denominator := new(big.Int).Mul(mlr, new(big.Int).SetUint64(debtAsset.DFactor))
	denominator.Sub(denominator, new(big.Int).Mul(
		new(big.Int).SetUint64(incentive),
		new(big.Int).SetUint64(seizeAsset.CFactor),
	))

	repayValue := new(big.Int)
	if denominator.Sign() <= 0 {
		repayValue.Set(MaxRatio)
	} else {
		repayValue.Mul(numerator, fixed.Bps)
		repayValue.Quo(repayValue, denominator)
	}

	st, err := e.ensureAssetState(debtAsset.Ticker)
	if err != nil {
		return nil, err
	}
	debtReal := e.registry.Rebase(debtAsset.Ticker).ToReal(st.SwapDebt)
	assetDebtValue, err := e.values.DebtValue(debtAsset.Ticker, debtReal, false)
	if err != nil {
		return nil, err
	}
	repayValue = fixed.Min(repayValue, assetDebtValue)

	seizeState, err := e.ensureAssetState(seizeAsset.Ticker)
	if err != nil {
		return nil, err
	}
	availableRaw := new(big.Int).Add(seizeState.TotalDeposits, seizeState.SwapDeposits)
	availableReal := e.registry.Rebase(seizeAsset.Ticker).ToReal(availableRaw)
	availableValue, err := e.values.CollateralValue(seizeAsset.Ticker, availableReal, false)
	if err != nil {
		return nil, err
	}
	maxBySeize := new(big.Int).Mul(availableValue, fixed.Bps)
	maxBySeize.Quo(maxBySeize, new(big.Int).SetUint64(incentive))
	return fixed.Min(repayValue, maxBySeize), nil
}

// Liquidate repays pool debt and seizes pool collateral at the incentive.
// Swap-owned surplus is consumed first; the remainder is socialized across
// depositors by lowering the asset's liquidity index, so each account's
// effective principal shrinks pro rata without touching any record.
func (e *Engine) Liquidate(liquidator crypto.Address, debtTicker string, repayAmount *big.Int, seizeTicker string) (*LiquidationResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if fixed.IsZero(repayAmount) || repayAmount.Sign() < 0 {
		return nil, ErrZeroAmount
	}

	underwater, err := e.liquidatable(nil)
	if err != nil {
		return nil, err
	}
	if !underwater {
		return nil, ErrPoolNotLiquidatable
	}

	debtAsset, err := e.registry.Get(debtTicker)
	if err != nil {
		return nil, err
	}
	seizeAsset, err := e.registry.Get(seizeTicker)
	if err != nil {
		return nil, err
	}

	stDebt, err := e.ensureAssetState(debtAsset.Ticker)
	if err != nil {
		return nil, err
	}
	rebaseDebt := e.registry.Rebase(debtAsset.Ticker)
	debtReal := rebaseDebt.ToReal(stDebt.SwapDebt)
	if debtReal.Sign() == 0 {
		return nil, ErrNoPoolDebt
	}

	repay := fixed.Min(repayAmount, debtReal)
	repayValue, err := e.values.DebtValue(debtAsset.Ticker, repay, false)
	if err != nil {
		return nil, err
	}
	maxValue, err := e.maxLiqValue(debtAsset.Ticker, seizeAsset.Ticker)
	if err != nil {
		return nil, err
	}
	if maxValue.Sign() == 0 {
		return nil, ErrPoolNotLiquidatable
	}
	if repayValue.Cmp(maxValue) > 0 {
		repayValue = maxValue
		repay, err = e.values.AmountFromValue(debtAsset.Ticker, maxValue)
		if err != nil {
			return nil, err
		}
		repay = fixed.Min(repay, debtReal)
	}
	if repay.Sign() == 0 {
		return nil, ErrPoolNotLiquidatable
	}

	incentive := seizeIncentive(seizeAsset.LiqIncentiveSCDP, seizeAsset.LiqIncentive)
	seizeValue := fixed.PercentMul(repayValue, incentive)
	seizeAmount, err := e.values.AmountFromValue(seizeAsset.Ticker, seizeValue)
	if err != nil {
		return nil, err
	}

	stSeize := stDebt
	if seizeAsset.Ticker != debtAsset.Ticker {
		stSeize, err = e.ensureAssetState(seizeAsset.Ticker)
		if err != nil {
			return nil, err
		}
	}
	rebaseSeize := e.registry.Rebase(seizeAsset.Ticker)
	availableReal := rebaseSeize.ToReal(new(big.Int).Add(stSeize.TotalDeposits, stSeize.SwapDeposits))
	if seizeAmount.Cmp(availableReal) > 0 {
		return nil, ErrSeizeUnderflow
	}

	if err := e.bank.Burn(debtAsset.Ticker, liquidator, repay); err != nil {
		return nil, err
	}
	stDebt.SwapDebt.Sub(stDebt.SwapDebt, rebaseDebt.ToRaw(repay))
	if stDebt.SwapDebt.Sign() < 0 {
		stDebt.SwapDebt = big.NewInt(0)
	}

	fromSwap := fixed.Min(rebaseSeize.ToReal(stSeize.SwapDeposits), seizeAmount)
	socialized := new(big.Int).Sub(seizeAmount, fromSwap)

	stSeize.SwapDeposits.Sub(stSeize.SwapDeposits, rebaseSeize.ToRaw(fromSwap))
	if stSeize.SwapDeposits.Sign() < 0 {
		stSeize.SwapDeposits = big.NewInt(0)
	}
	if socialized.Sign() > 0 {
		socializedRaw := rebaseSeize.ToRaw(socialized)
		total := stSeize.TotalDeposits
		remaining := new(big.Int).Sub(total, socializedRaw)
		if remaining.Sign() < 0 {
			return nil, ErrSeizeUnderflow
		}
		// index' = index * (T - seized) / T keeps every effective deposit
		// scaling down pro rata.
		index := new(big.Int).Mul(stSeize.LiquidityIndex, remaining)
		stSeize.LiquidityIndex = index.Quo(index, total)
		stSeize.TotalDeposits = remaining
	}

	if err := e.bank.Transfer(seizeAsset.Ticker, e.moduleAddress, liquidator, seizeAmount); err != nil {
		return nil, err
	}

	if err := e.state.PutAssetState(stDebt); err != nil {
		return nil, err
	}
	if stSeize != stDebt {
		if err := e.state.PutAssetState(stSeize); err != nil {
			return nil, err
		}
	}

	return &LiquidationResult{
		RepaidAmount: repay,
		RepaidValue:  repayValue,
		SeizedAmount: seizeAmount,
		SeizedValue:  seizeValue,
	}, nil
}

func seizeIncentive(poolIncentive, fallback uint64) uint64 {
	if poolIncentive != 0 {
		return poolIncentive
	}
	if fallback != 0 {
		return fallback
	}
	return fixed.BpsOne
}
