package scdp

import (
	"math/big"

	"kopiocore/crypto"
	"kopiocore/native/assets"
	nativecommon "kopiocore/native/common"
	"kopiocore/native/fixed"
	"kopiocore/native/value"
)

const moduleName = "scdp"

// Engine runs the shared collateralized debt pool: pooled deposits back the
// swap-minted synthetic supply, with fee and loss socialization handled
// through per-asset indices instead of per-account loops.
type Engine struct {
	state         engineState
	bank          Bank
	registry      *assets.Registry
	values        *value.Engine
	moduleAddress crypto.Address
	params        RiskParameters
	pauses        nativecommon.PauseView
}

// NewEngine constructs a pool engine bound to the pool treasury address and
// pool-level risk parameters.
func NewEngine(registry *assets.Registry, values *value.Engine, moduleAddr crypto.Address, params RiskParameters) *Engine {
	return &Engine{
		registry:      registry,
		values:        values,
		moduleAddress: moduleAddr,
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

// Params returns the current pool risk parameters.
func (e *Engine) Params() RiskParameters { return e.params }

// SetParams replaces the pool risk parameters through the configuration path.
func (e *Engine) SetParams(params RiskParameters) {
	if e == nil {
		return
	}
	e.params = params
}

// Deposit moves collateral from the account into the pool treasury and
// credits the account's principal. Index growth accumulated since the last
// interaction is settled first so the new principal earns only from here on.
func (e *Engine) Deposit(account crypto.Address, ticker string, amount *big.Int) error {
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
	if !asset.IsGlobalDepositable {
		return ErrNotDepositable
	}

	st, err := e.ensureAssetState(asset.Ticker)
	if err != nil {
		return err
	}
	record, err := e.ensureDeposit(account, asset.Ticker, st)
	if err != nil {
		return err
	}

	rebase := e.registry.Rebase(asset.Ticker)
	raw := rebase.ToRaw(amount)

	if asset.DepositLimitSCDP != nil {
		totalAfter := new(big.Int).Add(rebase.ToReal(st.TotalDeposits), amount)
		if totalAfter.Cmp(asset.DepositLimitSCDP) > 0 {
			return ErrDepositLimit
		}
	}

	if err := e.bank.Transfer(asset.Ticker, account, e.moduleAddress, amount); err != nil {
		return err
	}

	record.Principal.Add(record.Principal, raw)
	st.TotalDeposits.Add(st.TotalDeposits, raw)
	if err := e.state.PutAssetState(st); err != nil {
		return err
	}
	return e.state.PutDeposit(record)
}

// Withdraw releases principal back to the receiver. Requests beyond the
// account's effective deposit are clamped. Swap-owned surplus is never
// touched, and when the pool carries debt the withdrawal must keep its
// collateral ratio above the pool minimum.
func (e *Engine) Withdraw(account crypto.Address, ticker string, amount *big.Int, receiver crypto.Address) (*big.Int, error) {
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

	st, err := e.ensureAssetState(asset.Ticker)
	if err != nil {
		return nil, err
	}
	record, err := e.ensureDeposit(account, asset.Ticker, st)
	if err != nil {
		return nil, err
	}
	if record.Principal.Sign() == 0 {
		return nil, ErrNoDeposit
	}

	rebase := e.registry.Rebase(asset.Ticker)
	available := rebase.ToReal(record.Principal)
	withdrawal := fixed.Min(amount, available)
	raw := rebase.ToRaw(withdrawal)

	record.Principal.Sub(record.Principal, raw)
	if record.Principal.Sign() < 0 {
		record.Principal = big.NewInt(0)
	}
	st.TotalDeposits.Sub(st.TotalDeposits, raw)
	if st.TotalDeposits.Sign() < 0 {
		st.TotalDeposits = big.NewInt(0)
	}

	overrides := map[string]*AssetState{st.Ticker: st}
	debtValue, err := e.poolDebtValue(true, overrides)
	if err != nil {
		return nil, err
	}
	if debtValue.Sign() > 0 {
		collateralValue, err := e.poolCollateralValue(true, overrides)
		if err != nil {
			return nil, err
		}
		if !ratioHolds(collateralValue, debtValue, e.params.MinCollateralRatio) {
			return nil, ErrPoolCollateralLow
		}
	}

	if receiver.IsZero() {
		receiver = account
	}
	if err := e.bank.Transfer(asset.Ticker, e.moduleAddress, receiver, withdrawal); err != nil {
		return nil, err
	}
	if err := e.state.PutAssetState(st); err != nil {
		return nil, err
	}
	if err := e.state.PutDeposit(record); err != nil {
		return nil, err
	}
	return withdrawal, nil
}

// ClaimFees pays out the account's settled fee income in the deposit asset.
func (e *Engine) ClaimFees(account crypto.Address, ticker string, receiver crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	asset, err := e.registry.Get(ticker)
	if err != nil {
		return nil, err
	}

	st, err := e.ensureAssetState(asset.Ticker)
	if err != nil {
		return nil, err
	}
	record, err := e.ensureDeposit(account, asset.Ticker, st)
	if err != nil {
		return nil, err
	}

	rebase := e.registry.Rebase(asset.Ticker)
	payout := rebase.ToReal(record.AccruedFees)
	if payout.Sign() == 0 {
		return big.NewInt(0), e.state.PutDeposit(record)
	}
	record.AccruedFees = big.NewInt(0)

	if receiver.IsZero() {
		receiver = account
	}
	if err := e.bank.Transfer(asset.Ticker, e.moduleAddress, receiver, payout); err != nil {
		return nil, err
	}
	if err := e.state.PutDeposit(record); err != nil {
		return nil, err
	}
	return payout, nil
}

// AddGlobalIncome pulls income from the caller and cumulates it into the
// asset's fee index, distributing it pro rata over current depositors in one
// O(1) update. Income cannot be cumulated into an empty deposit pool.
func (e *Engine) AddGlobalIncome(caller crypto.Address, ticker string, amount *big.Int) error {
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
	if !asset.IsGlobalDepositable {
		return ErrNotDepositable
	}

	st, err := e.ensureAssetState(asset.Ticker)
	if err != nil {
		return err
	}
	if st.TotalDeposits.Sign() == 0 {
		return ErrNoIncomeDeposits
	}

	if err := e.bank.Transfer(asset.Ticker, caller, e.moduleAddress, amount); err != nil {
		return err
	}

	raw := e.registry.Rebase(asset.Ticker).ToRaw(amount)
	st.FeeIndex.Add(st.FeeIndex, fixed.RayDiv(raw, st.TotalDeposits))
	return e.state.PutAssetState(st)
}

// CollectProtocolFees transfers the accumulated protocol share of swap fees
// in one asset to the receiver and clears the pot.
func (e *Engine) CollectProtocolFees(ticker string, receiver crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
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
		fees = &FeeAccrual{}
	}
	fees.normalize()

	raw := fees.Amounts[asset.Ticker]
	payout := e.registry.Rebase(asset.Ticker).ToReal(raw)
	if payout.Sign() == 0 {
		return big.NewInt(0), nil
	}
	delete(fees.Amounts, asset.Ticker)

	if err := e.bank.Transfer(asset.Ticker, e.moduleAddress, receiver, payout); err != nil {
		return nil, err
	}
	if err := e.state.PutFeeAccrual(fees); err != nil {
		return nil, err
	}
	return payout, nil
}

// settle folds the pool indices into the record: principal picks up the
// liquidity index drift since the last interaction, and the fee index delta
// becomes claimable income against the settled principal.
func settle(record *DepositRecord, st *AssetState) {
	record.normalize(st)
	if record.Principal.Sign() > 0 {
		if record.LastLiquidityIndex.Cmp(st.LiquidityIndex) != 0 {
			scaled := new(big.Int).Mul(record.Principal, st.LiquidityIndex)
			record.Principal = scaled.Quo(scaled, record.LastLiquidityIndex)
		}
		delta := new(big.Int).Sub(st.FeeIndex, record.LastFeeIndex)
		if delta.Sign() > 0 {
			record.AccruedFees.Add(record.AccruedFees, fixed.RayMul(record.Principal, delta))
		}
	}
	record.LastLiquidityIndex = fixed.Clone(st.LiquidityIndex)
	record.LastFeeIndex = fixed.Clone(st.FeeIndex)
}

func (e *Engine) ensureAssetState(ticker string) (*AssetState, error) {
	st, err := e.state.GetAssetState(ticker)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &AssetState{Ticker: ticker}
	}
	st.normalize()
	return st, nil
}

func (e *Engine) ensureDeposit(addr crypto.Address, ticker string, st *AssetState) (*DepositRecord, error) {
	record, err := e.state.GetDeposit(addr, ticker)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &DepositRecord{Account: addr, Ticker: ticker}
	}
	settle(record, st)
	return record, nil
}

func (e *Engine) assetStateFor(ticker string, overrides map[string]*AssetState) (*AssetState, error) {
	if st, ok := overrides[ticker]; ok {
		return st, nil
	}
	return e.ensureAssetState(ticker)
}

func (e *Engine) poolCollateralValue(adjusted bool, overrides map[string]*AssetState) (*big.Int, error) {
	total := big.NewInt(0)
	for _, ticker := range e.registry.GlobalCollaterals() {
		st, err := e.assetStateFor(ticker, overrides)
		if err != nil {
			return nil, err
		}
		raw := new(big.Int).Add(st.TotalDeposits, st.SwapDeposits)
		real := e.registry.Rebase(ticker).ToReal(raw)
		v, err := e.values.CollateralValue(ticker, real, adjusted)
		if err != nil {
			return nil, err
		}
		total.Add(total, v)
	}
	return total, nil
}

func (e *Engine) poolDebtValue(adjusted bool, overrides map[string]*AssetState) (*big.Int, error) {
	total := big.NewInt(0)
	for _, ticker := range e.registry.SwapMintable() {
		st, err := e.assetStateFor(ticker, overrides)
		if err != nil {
			return nil, err
		}
		real := e.registry.Rebase(ticker).ToReal(st.SwapDebt)
		v, err := e.values.DebtValue(ticker, real, adjusted)
		if err != nil {
			return nil, err
		}
		total.Add(total, v)
	}
	return total, nil
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
