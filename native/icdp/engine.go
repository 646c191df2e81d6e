package icdp

import (
	"math/big"

	"kopiocore/crypto"
	"kopiocore/native/assets"
	nativecommon "kopiocore/native/common"
	"kopiocore/native/fixed"
	"kopiocore/native/value"
)

const moduleName = "icdp"

// Engine orchestrates the state transitions for individually collateralized
// debt positions. It owns no state: positions and supplies live behind the
// state interface, token balances behind the bank collaborator.
type Engine struct {
	state         engineState
	bank          Bank
	registry      *assets.Registry
	values        *value.Engine
	moduleAddress crypto.Address
	feeCollector  crypto.Address
	params        RiskParameters
	pauses        nativecommon.PauseView
}

// NewEngine constructs an ICDP engine bound to the module treasury address
// and risk parameters.
func NewEngine(registry *assets.Registry, values *value.Engine, moduleAddr crypto.Address, params RiskParameters) *Engine {
	return &Engine{
		registry:      registry,
		values:        values,
		moduleAddress: moduleAddr,
		feeCollector:  crypto.ModuleAddress("icdp/fees"),
		params:        params,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBank wires the token transfer collaborator.
func (e *Engine) SetBank(bank Bank) { e.bank = bank }

// SetPauses installs the emergency pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetFeeCollector overrides the address receiving open and close fees.
func (e *Engine) SetFeeCollector(addr crypto.Address) {
	if e == nil || addr.IsZero() {
		return
	}
	e.feeCollector = addr
}

// Params returns the current risk parameters.
func (e *Engine) Params() RiskParameters {
	params := e.params
	params.MinDebtValue = fixed.Clone(e.params.MinDebtValue)
	params.MinCollateralValue = fixed.Clone(e.params.MinCollateralValue)
	return params
}

// SetParams replaces the risk parameters through the configuration path.
func (e *Engine) SetParams(params RiskParameters) {
	if e == nil {
		return
	}
	e.params = params
}

// DepositCollateral moves collateral from the account into the module
// treasury and credits the position. The resulting balance must clear the
// dust threshold.
func (e *Engine) DepositCollateral(account crypto.Address, ticker string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if fixed.IsZero(amount) || amount.Sign() < 0 {
		return ErrZeroAmount
	}
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return err
	}
	if !asset.IsCollateral {
		return ErrNotCollateral
	}

	position, err := e.ensurePosition(account)
	if err != nil {
		return err
	}

	rebase := e.registry.Rebase(asset.Ticker)
	raw := position.CollateralRaw(asset.Ticker)
	rawAfter := new(big.Int).Add(raw, rebase.ToRaw(amount))

	if err := e.checkDust(asset.Ticker, rebase.ToReal(rawAfter)); err != nil {
		return err
	}

	if err := e.bank.Transfer(asset.Ticker, account, e.moduleAddress, amount); err != nil {
		return err
	}

	position.SetCollateralRaw(asset.Ticker, rawAfter)
	return e.state.PutPosition(position)
}

// WithdrawCollateral releases collateral to the receiver. Requests beyond
// the available deposit are clamped to the full balance. The withdrawal must
// neither leave unrecoverable dust nor push an indebted account below the
// minimum collateral ratio.
func (e *Engine) WithdrawCollateral(account crypto.Address, ticker string, amount *big.Int, receiver crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if fixed.IsZero(amount) || amount.Sign() < 0 {
		return nil, ErrZeroAmount
	}
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return nil, err
	}
	position, err := e.ensurePosition(account)
	if err != nil {
		return nil, err
	}

	rebase := e.registry.Rebase(asset.Ticker)
	raw := position.CollateralRaw(asset.Ticker)
	if raw.Sign() == 0 {
		return nil, ErrNoCollateralDeposit
	}
	available := rebase.ToReal(raw)
	withdrawal := fixed.Min(amount, available)
	rawAfter := new(big.Int).Sub(raw, rebase.ToRaw(withdrawal))
	if rawAfter.Sign() < 0 {
		rawAfter = big.NewInt(0)
	}

	if rawAfter.Sign() > 0 {
		if err := e.checkDust(asset.Ticker, rebase.ToReal(rawAfter)); err != nil {
			return nil, err
		}
	}

	position.SetCollateralRaw(asset.Ticker, rawAfter)

	debtValue, err := e.debtValue(position, true)
	if err != nil {
		return nil, err
	}
	if debtValue.Sign() > 0 {
		collateralValue, err := e.collateralValue(position, true)
		if err != nil {
			return nil, err
		}
		if !ratioHolds(collateralValue, debtValue, e.params.MinCollateralRatio) {
			return nil, ErrCollateralTooLow
		}
	}

	if receiver.IsZero() {
		receiver = account
	}
	if err := e.bank.Transfer(asset.Ticker, e.moduleAddress, receiver, withdrawal); err != nil {
		return nil, err
	}
	if err := e.state.PutPosition(position); err != nil {
		return nil, err
	}
	return withdrawal, nil
}

// Mint issues new synthetic debt against the account's collateral, charging
// the open fee from the deposit set.
func (e *Engine) Mint(account crypto.Address, ticker string, amount *big.Int, receiver crypto.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if fixed.IsZero(amount) || amount.Sign() < 0 {
		return ErrZeroAmount
	}
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return err
	}
	if !asset.IsMintable {
		return ErrNotMintable
	}

	rebase := e.registry.Rebase(asset.Ticker)

	supplyRaw, err := e.state.GetSupply(asset.Ticker)
	if err != nil {
		return err
	}
	supplyAfter := new(big.Int).Add(rebase.ToReal(supplyRaw), amount)
	if asset.MintLimit != nil && supplyAfter.Cmp(asset.MintLimit) > 0 {
		return ErrMintLimit
	}

	position, err := e.ensurePosition(account)
	if err != nil {
		return err
	}

	debtRaw := position.DebtRaw(asset.Ticker)
	debtAfter := new(big.Int).Add(rebase.ToReal(debtRaw), amount)
	resultingValue, err := e.values.DebtValue(asset.Ticker, debtAfter, false)
	if err != nil {
		return err
	}
	if e.params.MinDebtValue != nil && resultingValue.Cmp(e.params.MinDebtValue) < 0 {
		return ErrMinDebtValue
	}

	if asset.OpenFee > 0 {
		mintValue, err := e.values.DebtValue(asset.Ticker, amount, false)
		if err != nil {
			return err
		}
		if err := e.chargeFee(position, fixed.PercentMul(mintValue, asset.OpenFee)); err != nil {
			return err
		}
	}

	position.SetDebtRaw(asset.Ticker, new(big.Int).Add(debtRaw, rebase.ToRaw(amount)))

	collateralValue, err := e.collateralValue(position, true)
	if err != nil {
		return err
	}
	debtValue, err := e.debtValue(position, true)
	if err != nil {
		return err
	}
	if !ratioHolds(collateralValue, debtValue, e.params.MinCollateralRatio) {
		return ErrCollateralTooLow
	}

	if receiver.IsZero() {
		receiver = account
	}
	if err := e.bank.Mint(asset.Ticker, receiver, amount); err != nil {
		return err
	}
	if err := e.state.PutSupply(asset.Ticker, new(big.Int).Add(supplyRaw, rebase.ToRaw(amount))); err != nil {
		return err
	}
	return e.state.PutPosition(position)
}

// Burn repays synthetic debt. Requests beyond the outstanding debt are
// clamped; a repayment that would strand a debt below the minimum value is
// raised to close the position entirely.
func (e *Engine) Burn(account crypto.Address, ticker string, amount *big.Int, repayee crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if fixed.IsZero(amount) || amount.Sign() < 0 {
		return nil, ErrZeroAmount
	}
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return nil, err
	}
	position, err := e.ensurePosition(account)
	if err != nil {
		return nil, err
	}

	rebase := e.registry.Rebase(asset.Ticker)
	debtRaw := position.DebtRaw(asset.Ticker)
	if debtRaw.Sign() == 0 {
		return nil, ErrNoDebt
	}
	debtReal := rebase.ToReal(debtRaw)

	burn := fixed.Min(amount, debtReal)
	remaining := new(big.Int).Sub(debtReal, burn)
	if remaining.Sign() > 0 && e.params.MinDebtValue != nil {
		remainingValue, err := e.values.DebtValue(asset.Ticker, remaining, false)
		if err != nil {
			return nil, err
		}
		if remainingValue.Cmp(e.params.MinDebtValue) < 0 {
			burn = debtReal
			remaining = big.NewInt(0)
		}
	}

	if asset.CloseFee > 0 {
		burnValue, err := e.values.DebtValue(asset.Ticker, burn, false)
		if err != nil {
			return nil, err
		}
		if err := e.chargeFee(position, fixed.PercentMul(burnValue, asset.CloseFee)); err != nil {
			return nil, err
		}
	}

	if repayee.IsZero() {
		repayee = account
	}
	if err := e.bank.Burn(asset.Ticker, repayee, burn); err != nil {
		return nil, err
	}

	if remaining.Sign() == 0 {
		position.SetDebtRaw(asset.Ticker, big.NewInt(0))
	} else {
		position.SetDebtRaw(asset.Ticker, new(big.Int).Sub(debtRaw, rebase.ToRaw(burn)))
	}

	supplyRaw, err := e.state.GetSupply(asset.Ticker)
	if err != nil {
		return nil, err
	}
	supplyAfter := new(big.Int).Sub(supplyRaw, rebase.ToRaw(burn))
	if supplyAfter.Sign() < 0 {
		supplyAfter = big.NewInt(0)
	}
	if err := e.state.PutSupply(asset.Ticker, supplyAfter); err != nil {
		return nil, err
	}
	if err := e.state.PutPosition(position); err != nil {
		return nil, err
	}
	return burn, nil
}

// chargeFee converts the fee value into the account's deposited collateral,
// iterating the deposit set in insertion order until the value is exhausted.
// The charge is best-effort: it never fails for lack of collateral, it just
// takes what is there.
func (e *Engine) chargeFee(position *Position, feeValue *big.Int) error {
	if fixed.IsZero(feeValue) {
		return nil
	}
	remaining := fixed.Clone(feeValue)
	for _, ticker := range append([]string(nil), position.CollateralOrder...) {
		if remaining.Sign() == 0 {
			break
		}
		rebase := e.registry.Rebase(ticker)
		raw := position.CollateralRaw(ticker)
		depositReal := rebase.ToReal(raw)
		depositValue, err := e.values.CollateralValue(ticker, depositReal, false)
		if err != nil {
			return err
		}
		if depositValue.Sign() == 0 {
			continue
		}

		take := fixed.Min(remaining, depositValue)
		var takeAmount *big.Int
		if take.Cmp(depositValue) == 0 {
			takeAmount = depositReal
		} else {
			takeAmount, err = e.values.AmountFromValue(ticker, take)
			if err != nil {
				return err
			}
			takeAmount = fixed.Min(takeAmount, depositReal)
		}
		if takeAmount.Sign() == 0 {
			continue
		}

		position.SetCollateralRaw(ticker, new(big.Int).Sub(raw, rebase.ToRaw(takeAmount)))
		if err := e.bank.Transfer(ticker, e.moduleAddress, e.feeCollector, takeAmount); err != nil {
			return err
		}
		remaining.Sub(remaining, take)
		if remaining.Sign() < 0 {
			remaining = big.NewInt(0)
		}
	}
	return nil
}

func (e *Engine) ensurePosition(addr crypto.Address) (*Position, error) {
	position, err := e.state.GetPosition(addr)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = NewPosition(addr)
	}
	return position, nil
}

func (e *Engine) checkDust(ticker string, realAmount *big.Int) error {
	if e.params.MinCollateralValue == nil || fixed.IsZero(realAmount) {
		return nil
	}
	depositValue, err := e.values.CollateralValue(ticker, realAmount, false)
	if err != nil {
		return err
	}
	if depositValue.Cmp(e.params.MinCollateralValue) < 0 {
		return ErrCollateralAmountLow
	}
	return nil
}

// ratioHolds reports collateral/debt >= minimum, all in basis points.
func ratioHolds(collateralValue, debtValue *big.Int, minBps uint64) bool {
	if fixed.IsZero(debtValue) {
		return true
	}
	if fixed.IsZero(collateralValue) {
		return false
	}
	lhs := new(big.Int).Mul(collateralValue, fixed.Bps)
	rhs := new(big.Int).Mul(debtValue, new(big.Int).SetUint64(minBps))
	return lhs.Cmp(rhs) >= 0
}
