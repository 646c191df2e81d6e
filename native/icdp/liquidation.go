package icdp

import (
	"math/big"

	"kopiocore/crypto"
	nativecommon "kopiocore/native/common"
	"kopiocore/native/fixed"
)

// LiquidationResult reports the outcome bookkeeping of one liquidation.
type LiquidationResult struct {
	RepaidAmount *big.Int
	RepaidValue  *big.Int
	SeizedAmount *big.Int
	SeizedValue  *big.Int
}

// Liquidatable reports whether the account's collateral ratio has fallen
// below the liquidation threshold.
func (e *Engine) Liquidatable(account crypto.Address) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	position, err := e.ensurePosition(account)
	if err != nil {
		return false, err
	}
	return e.liquidatable(position)
}

func (e *Engine) liquidatable(position *Position) (bool, error) {
	debtValue, err := e.debtValue(position, true)
	if err != nil {
		return false, err
	}
	if debtValue.Sign() == 0 {
		return false, nil
	}
	collateralValue, err := e.collateralValue(position, true)
	if err != nil {
		return false, err
	}
	return !ratioHolds(collateralValue, debtValue, e.params.LiquidationThreshold), nil
}

// MaxLiqValue computes the repay value that restores the account exactly to
// the max liquidation ratio when repaying debtTicker against
// collateralTicker. Zero means the account is not liquidatable through this
// pair. The closed form solves
//
//	C - R*inc*cf = MLR*(D - R*df)
//
// for R, where C and D are the factor-adjusted collateral and debt values,
// inc the collateral seize incentive, cf/df the asset factors.
func (e *Engine) MaxLiqValue(account crypto.Address, debtTicker, collateralTicker string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	position, err := e.ensurePosition(account)
	if err != nil {
		return nil, err
	}
	return e.maxLiqValue(position, debtTicker, collateralTicker)
}

func (e *Engine) maxLiqValue(position *Position, debtTicker, collateralTicker string) (*big.Int, error) {
	underwater, err := e.liquidatable(position)
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
	collateralAsset, err := e.registry.Get(collateralTicker)
	if err != nil {
		return nil, err
	}

	collateralValue, err := e.collateralValue(position, true)
	if err != nil {
		return nil, err
	}
	debtValue, err := e.debtValue(position, true)
	if err != nil {
		return nil, err
	}

	mlr := new(big.Int).SetUint64(e.params.EffectiveMLR())
	// numerator = MLR*D - C*1e4, carried at value*bps scale.
	numerator := new(big.Int).Mul(debtValue, mlr)
	numerator.Sub(numerator, new(big.Int).Mul(collateralValue, fixed.Bps))
	if numerator.Sign() <= 0 {
		return big.NewInt(0), nil
	}

	incentive := collateralAsset.LiqIncentive
	if incentive == 0 {
		incentive = fixed.BpsOne
	}
	// denominator = MLR*df - inc*cf, at bps*bps scale.
	denominator := new(big.Int).Mul(mlr, new(big.Int).SetUint64(debtAsset.DFactor))
	denominator.Sub(denominator, new(big.Int).Mul(
		new(big.Int).SetUint64(incentive),
		new(big.Int).SetUint64(collateralAsset.CFactor),
	))

	repayValue := new(big.Int)
	if denominator.Sign() <= 0 {
		// Seizing improves the ratio slower than debt shrinks it; a single
		// liquidation cannot overshoot, so allow repaying everything.
		repayValue.Set(MaxRatio)
	} else {
		repayValue.Mul(numerator, fixed.Bps)
		repayValue.Quo(repayValue, denominator)
	}

	// Clamp to the outstanding unadjusted debt in this asset.
	rebase := e.registry.Rebase(debtAsset.Ticker)
	debtReal := rebase.ToReal(position.DebtRaw(debtAsset.Ticker))
	assetDebtValue, err := e.values.DebtValue(debtAsset.Ticker, debtReal, false)
	if err != nil {
		return nil, err
	}
	repayValue = fixed.Min(repayValue, assetDebtValue)

	// Clamp to what the chosen collateral deposit can cover at the incentive.
	collateralRebase := e.registry.Rebase(collateralAsset.Ticker)
	depositReal := collateralRebase.ToReal(position.CollateralRaw(collateralAsset.Ticker))
	depositValue, err := e.values.CollateralValue(collateralAsset.Ticker, depositReal, false)
	if err != nil {
		return nil, err
	}
	maxByDeposit := new(big.Int).Mul(depositValue, fixed.Bps)
	maxByDeposit.Quo(maxByDeposit, new(big.Int).SetUint64(incentive))
	return fixed.Min(repayValue, maxByDeposit), nil
}

// Liquidate repays up to the computed maximum of the account's debt and
// seizes collateral at the incentive. Requests beyond the clamp are reduced,
// never rejected; liquidations never push the account past the max
// liquidation ratio.
func (e *Engine) Liquidate(liquidator, account crypto.Address, debtTicker string, repayAmount *big.Int, collateralTicker string) (*LiquidationResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if liquidator.Equal(account) {
		return nil, ErrSelfLiquidation
	}
	if fixed.IsZero(repayAmount) || repayAmount.Sign() < 0 {
		return nil, ErrZeroAmount
	}

	position, err := e.ensurePosition(account)
	if err != nil {
		return nil, err
	}
	underwater, err := e.liquidatable(position)
	if err != nil {
		return nil, err
	}
	if !underwater {
		return nil, ErrNotLiquidatable
	}

	debtAsset, err := e.registry.Get(debtTicker)
	if err != nil {
		return nil, err
	}
	collateralAsset, err := e.registry.Get(collateralTicker)
	if err != nil {
		return nil, err
	}

	rebase := e.registry.Rebase(debtAsset.Ticker)
	debtRaw := position.DebtRaw(debtAsset.Ticker)
	if debtRaw.Sign() == 0 {
		return nil, ErrNoDebt
	}
	debtReal := rebase.ToReal(debtRaw)

	repay := fixed.Min(repayAmount, debtReal)
	repayValue, err := e.values.DebtValue(debtAsset.Ticker, repay, false)
	if err != nil {
		return nil, err
	}
	maxValue, err := e.maxLiqValue(position, debtAsset.Ticker, collateralAsset.Ticker)
	if err != nil {
		return nil, err
	}
	if maxValue.Sign() == 0 {
		return nil, ErrNotLiquidatable
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
		return nil, ErrNotLiquidatable
	}

	incentive := collateralAsset.LiqIncentive
	if incentive == 0 {
		incentive = fixed.BpsOne
	}
	seizeValue := fixed.PercentMul(repayValue, incentive)
	seizeAmount, err := e.values.AmountFromValue(collateralAsset.Ticker, seizeValue)
	if err != nil {
		return nil, err
	}

	collateralRebase := e.registry.Rebase(collateralAsset.Ticker)
	depositRaw := position.CollateralRaw(collateralAsset.Ticker)
	depositReal := collateralRebase.ToReal(depositRaw)
	if seizeAmount.Cmp(depositReal) > 0 {
		return nil, ErrSeizeUnderflow
	}

	if err := e.bank.Burn(debtAsset.Ticker, liquidator, repay); err != nil {
		return nil, err
	}

	debtAfter := new(big.Int).Sub(debtRaw, rebase.ToRaw(repay))
	if debtAfter.Sign() < 0 {
		debtAfter = big.NewInt(0)
	}
	position.SetDebtRaw(debtAsset.Ticker, debtAfter)

	depositAfter := new(big.Int).Sub(depositRaw, collateralRebase.ToRaw(seizeAmount))
	if depositAfter.Sign() < 0 {
		depositAfter = big.NewInt(0)
	}
	position.SetCollateralRaw(collateralAsset.Ticker, depositAfter)

	supplyRaw, err := e.state.GetSupply(debtAsset.Ticker)
	if err != nil {
		return nil, err
	}
	supplyAfter := new(big.Int).Sub(supplyRaw, rebase.ToRaw(repay))
	if supplyAfter.Sign() < 0 {
		supplyAfter = big.NewInt(0)
	}
	if err := e.state.PutSupply(debtAsset.Ticker, supplyAfter); err != nil {
		return nil, err
	}

	if err := e.bank.Transfer(collateralAsset.Ticker, e.moduleAddress, liquidator, seizeAmount); err != nil {
		return nil, err
	}
	if err := e.state.PutPosition(position); err != nil {
		return nil, err
	}

	return &LiquidationResult{
		RepaidAmount: repay,
		RepaidValue:  repayValue,
		SeizedAmount: seizeAmount,
		SeizedValue:  seizeValue,
	}, nil
}
