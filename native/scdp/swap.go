package scdp

import (
	"math/big"

	"kopiocore/crypto"
	nativecommon "kopiocore/native/common"
	"kopiocore/native/fixed"
)

// SwapResult reports the amounts moved by one swap.
type SwapResult struct {
	AmountIn    *big.Int
	AmountOut   *big.Int
	Fee         *big.Int
	ProtocolFee *big.Int
}

// PreviewSwap quotes a swap without touching state: the combined route fee is
// taken from the input, the remainder converts at oracle prices.
func (e *Engine) PreviewSwap(assetIn, assetOut string, amountIn *big.Int) (*SwapResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if fixed.IsZero(amountIn) || amountIn.Sign() < 0 {
		return nil, ErrZeroAmount
	}
	in, err := e.registry.Get(assetIn)
	if err != nil {
		return nil, err
	}
	out, err := e.registry.Get(assetOut)
	if err != nil {
		return nil, err
	}
	if !in.IsSwapMintable || !out.IsSwapMintable {
		return nil, ErrNotSwapMintable
	}
	if in.Ticker == out.Ticker || !e.registry.RouteEnabled(in.Ticker, out.Ticker) {
		return nil, ErrRouteDisabled
	}

	// The route fee combines the input asset's exit fee with the output
	// asset's entry fee, both charged on the input side.
	fee := fixed.PercentMul(amountIn, in.SwapOutFee+out.SwapInFee)
	protocolFee := fixed.PercentMul(fee, in.ProtocolFeeShare)

	amountAfterFee := new(big.Int).Sub(amountIn, fee)
	valueIn, err := e.values.DebtValue(in.Ticker, amountAfterFee, false)
	if err != nil {
		return nil, err
	}
	amountOut, err := e.values.AmountFromValue(out.Ticker, valueIn)
	if err != nil {
		return nil, err
	}

	return &SwapResult{
		AmountIn:    fixed.Clone(amountIn),
		AmountOut:   amountOut,
		Fee:         fee,
		ProtocolFee: protocolFee,
	}, nil
}

// Swap converts one swap-mintable asset into another against the pool. The
// input first repays the pool's outstanding debt in that asset; any remainder
// becomes pool-owned surplus. The output first drains surplus in the target
// asset; any remainder is minted as new pool debt, which must leave the pool
// at or above its minimum collateral ratio. The depositor share of the fee
// cumulates into the input asset's fee index.
func (e *Engine) Swap(caller crypto.Address, assetIn, assetOut string, amountIn, minAmountOut *big.Int, receiver crypto.Address) (*SwapResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	quote, err := e.PreviewSwap(assetIn, assetOut, amountIn)
	if err != nil {
		return nil, err
	}
	if minAmountOut != nil && quote.AmountOut.Cmp(minAmountOut) < 0 {
		return nil, ErrSlippage
	}

	in, err := e.registry.Get(assetIn)
	if err != nil {
		return nil, err
	}
	out, err := e.registry.Get(assetOut)
	if err != nil {
		return nil, err
	}
	stIn, err := e.ensureAssetState(in.Ticker)
	if err != nil {
		return nil, err
	}
	stOut, err := e.ensureAssetState(out.Ticker)
	if err != nil {
		return nil, err
	}

	rebaseIn := e.registry.Rebase(in.Ticker)
	rebaseOut := e.registry.Rebase(out.Ticker)

	if err := e.bank.Transfer(in.Ticker, caller, e.moduleAddress, amountIn); err != nil {
		return nil, err
	}

	// Input side: net against outstanding debt before accruing surplus.
	amountAfterFee := new(big.Int).Sub(quote.AmountIn, quote.Fee)
	debtInReal := rebaseIn.ToReal(stIn.SwapDebt)
	burned := fixed.Min(debtInReal, amountAfterFee)
	surplusIn := new(big.Int).Sub(amountAfterFee, burned)

	stIn.SwapDebt.Sub(stIn.SwapDebt, rebaseIn.ToRaw(burned))
	if stIn.SwapDebt.Sign() < 0 {
		stIn.SwapDebt = big.NewInt(0)
	}
	stIn.SwapDeposits.Add(stIn.SwapDeposits, rebaseIn.ToRaw(surplusIn))

	// Output side: drain surplus before minting new debt.
	surplusOutReal := rebaseOut.ToReal(stOut.SwapDeposits)
	fromSurplus := fixed.Min(surplusOutReal, quote.AmountOut)
	minted := new(big.Int).Sub(quote.AmountOut, fromSurplus)

	stOut.SwapDeposits.Sub(stOut.SwapDeposits, rebaseOut.ToRaw(fromSurplus))
	if stOut.SwapDeposits.Sign() < 0 {
		stOut.SwapDeposits = big.NewInt(0)
	}
	stOut.SwapDebt.Add(stOut.SwapDebt, rebaseOut.ToRaw(minted))

	if out.MintLimitSCDP != nil && rebaseOut.ToReal(stOut.SwapDebt).Cmp(out.MintLimitSCDP) > 0 {
		return nil, ErrMintLimit
	}

	if minted.Sign() > 0 {
		overrides := map[string]*AssetState{stIn.Ticker: stIn, stOut.Ticker: stOut}
		collateralValue, err := e.poolCollateralValue(true, overrides)
		if err != nil {
			return nil, err
		}
		debtValue, err := e.poolDebtValue(true, overrides)
		if err != nil {
			return nil, err
		}
		if !ratioHolds(collateralValue, debtValue, e.params.MinCollateralRatio) {
			return nil, ErrPoolCollateralLow
		}
	}

	// Fees: protocol share accrues to the pot, the rest to depositors of the
	// input asset. With no depositors the full fee goes to the protocol.
	depositorFee := new(big.Int).Sub(quote.Fee, quote.ProtocolFee)
	protocolFee := fixed.Clone(quote.ProtocolFee)
	if stIn.TotalDeposits.Sign() > 0 {
		stIn.FeeIndex.Add(stIn.FeeIndex, fixed.RayDiv(rebaseIn.ToRaw(depositorFee), stIn.TotalDeposits))
	} else {
		protocolFee.Add(protocolFee, depositorFee)
	}
	if protocolFee.Sign() > 0 {
		fees, err := e.state.GetFeeAccrual()
		if err != nil {
			return nil, err
		}
		if fees == nil {
			fees = &FeeAccrual{}
		}
		fees.Add(in.Ticker, rebaseIn.ToRaw(protocolFee))
		if err := e.state.PutFeeAccrual(fees); err != nil {
			return nil, err
		}
	}

	// Settle token supply: burn repaid input debt, pay the output from
	// surplus where possible and mint the rest.
	if burned.Sign() > 0 {
		if err := e.bank.Burn(in.Ticker, e.moduleAddress, burned); err != nil {
			return nil, err
		}
	}
	if receiver.IsZero() {
		receiver = caller
	}
	if fromSurplus.Sign() > 0 {
		if err := e.bank.Transfer(out.Ticker, e.moduleAddress, receiver, fromSurplus); err != nil {
			return nil, err
		}
	}
	if minted.Sign() > 0 {
		if err := e.bank.Mint(out.Ticker, receiver, minted); err != nil {
			return nil, err
		}
	}

	if err := e.state.PutAssetState(stIn); err != nil {
		return nil, err
	}
	if err := e.state.PutAssetState(stOut); err != nil {
		return nil, err
	}
	return quote, nil
}
