package core

import (
	"log/slog"
	"math/big"
	"sync"
	"time"

	"kopiocore/crypto"
	"kopiocore/native/assets"
	nativecommon "kopiocore/native/common"
	"kopiocore/native/icdp"
	"kopiocore/native/oracle"
	"kopiocore/native/scdp"
	"kopiocore/native/value"
	"kopiocore/observability"
)

// Ledger is the single entry point into the accounting state. It serializes
// every mutating operation, applies the caller-supplied price payload before
// the operation body runs, and commits all-or-nothing: a failing operation
// leaves neither token balances nor accounting state behind.
type Ledger struct {
	mu sync.Mutex

	log      *slog.Logger
	registry *assets.Registry
	feed     *oracle.FeedSource
	prices   *oracle.Aggregator
	values   *value.Engine

	positions *icdp.Engine
	pool      *scdp.Engine

	bank   *Bank
	store  *Store
	pauses *PauseSwitches
	policy nativecommon.Policy
	events *observability.EventRecorder
}

// SetPolicy installs the delegation policy used for on-behalf-of operations.
func (l *Ledger) SetPolicy(policy nativecommon.Policy) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.policy = policy
}

// SetPaused flips a module emergency switch.
func (l *Ledger) SetPaused(module string, paused bool) {
	l.pauses.SetPaused(module, paused)
	l.log.Info("pause switch", "module", module, "paused", paused)
}

// Registry exposes the asset whitelist for configuration updates.
func (l *Ledger) Registry() *assets.Registry { return l.registry }

// Bank exposes the token ledger.
func (l *Ledger) Bank() *Bank { return l.bank }

// Events exposes the event trail.
func (l *Ledger) Events() *observability.EventRecorder { return l.events }

// ApplyPrices ingests a price payload outside any operation.
func (l *Ledger) ApplyPrices(updates []oracle.Update) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.feed.Apply(updates)
}

// GlobalParameters is the combined parameter view returned to clients.
type GlobalParameters struct {
	ICDP   icdp.RiskParameters
	SCDP   scdp.RiskParameters
	Pauses map[string]bool
}

// Parameters returns the current protocol parameters.
func (l *Ledger) Parameters() GlobalParameters {
	l.mu.Lock()
	defer l.mu.Unlock()
	return GlobalParameters{
		ICDP:   l.positions.Params(),
		SCDP:   l.pool.Params(),
		Pauses: l.pauses.Snapshot(),
	}
}

// run executes one mutating operation under the ledger lock with snapshot
// semantics: the price payload lands first, and any error rolls both the
// token ledger and the accounting state back to the pre-operation snapshot.
func (l *Ledger) run(module, operation string, updates []oracle.Update, fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := time.Now()

	err := l.feed.Apply(updates)
	if err == nil {
		bankSnap := l.bank.snapshot()
		storeSnap := l.store.snapshot()
		if err = fn(); err != nil {
			l.bank.restore(bankSnap)
			l.store.restore(storeSnap)
		}
	}

	observability.Ledger().ObserveOperation(module, operation, time.Since(start), err)
	if err != nil {
		l.log.Warn("operation rejected", "module", module, "operation", operation, "error", err.Error())
	} else {
		l.log.Debug("operation applied", "module", module, "operation", operation)
	}
	return err
}

func (l *Ledger) emit(eventType string, attributes map[string]string) {
	l.events.Emit(eventType, attributes)
}

// --- ICDP entry points ---

// DepositCollateral credits collateral to the account's position.
func (l *Ledger) DepositCollateral(caller, account crypto.Address, ticker string, amount *big.Int, updates []oracle.Update) error {
	return l.run("icdp", "deposit", updates, func() error {
		if err := nativecommon.Authorize(l.policy, caller, account, "icdp.deposit"); err != nil {
			return err
		}
		if err := l.positions.DepositCollateral(account, ticker, amount); err != nil {
			return err
		}
		l.emit("icdp.deposit", map[string]string{
			"account": account.String(),
			"ticker":  ticker,
			"amount":  amount.String(),
		})
		return nil
	})
}

// WithdrawCollateral releases collateral from the account's position.
func (l *Ledger) WithdrawCollateral(caller, account crypto.Address, ticker string, amount *big.Int, receiver crypto.Address, updates []oracle.Update) (*big.Int, error) {
	var withdrawn *big.Int
	err := l.run("icdp", "withdraw", updates, func() error {
		if err := nativecommon.Authorize(l.policy, caller, account, "icdp.withdraw"); err != nil {
			return err
		}
		var err error
		withdrawn, err = l.positions.WithdrawCollateral(account, ticker, amount, receiver)
		if err != nil {
			return err
		}
		l.emit("icdp.withdraw", map[string]string{
			"account": account.String(),
			"ticker":  ticker,
			"amount":  withdrawn.String(),
		})
		return nil
	})
	return withdrawn, err
}

// Mint issues synthetic debt against the account's collateral.
func (l *Ledger) Mint(caller, account crypto.Address, ticker string, amount *big.Int, receiver crypto.Address, updates []oracle.Update) error {
	return l.run("icdp", "mint", updates, func() error {
		if err := nativecommon.Authorize(l.policy, caller, account, "icdp.mint"); err != nil {
			return err
		}
		if err := l.positions.Mint(account, ticker, amount, receiver); err != nil {
			return err
		}
		l.emit("icdp.mint", map[string]string{
			"account": account.String(),
			"ticker":  ticker,
			"amount":  amount.String(),
		})
		return nil
	})
}

// Burn repays synthetic debt on the account's position.
func (l *Ledger) Burn(caller, account crypto.Address, ticker string, amount *big.Int, repayee crypto.Address, updates []oracle.Update) (*big.Int, error) {
	var burned *big.Int
	err := l.run("icdp", "burn", updates, func() error {
		if err := nativecommon.Authorize(l.policy, caller, account, "icdp.burn"); err != nil {
			return err
		}
		var err error
		burned, err = l.positions.Burn(account, ticker, amount, repayee)
		if err != nil {
			return err
		}
		l.emit("icdp.burn", map[string]string{
			"account": account.String(),
			"ticker":  ticker,
			"amount":  burned.String(),
		})
		return nil
	})
	return burned, err
}

// Liquidate runs an account liquidation. Open to any caller except the
// account itself.
func (l *Ledger) Liquidate(caller, account crypto.Address, debtTicker string, repayAmount *big.Int, collateralTicker string, updates []oracle.Update) (*icdp.LiquidationResult, error) {
	var result *icdp.LiquidationResult
	err := l.run("icdp", "liquidate", updates, func() error {
		var err error
		result, err = l.positions.Liquidate(caller, account, debtTicker, repayAmount, collateralTicker)
		if err != nil {
			return err
		}
		observability.Ledger().RecordLiquidation("icdp")
		l.emit("icdp.liquidate", map[string]string{
			"account":    account.String(),
			"liquidator": caller.String(),
			"debt":       debtTicker,
			"collateral": collateralTicker,
			"repaid":     result.RepaidAmount.String(),
			"seized":     result.SeizedAmount.String(),
		})
		return nil
	})
	return result, err
}

// --- SCDP entry points ---

// PoolDeposit credits principal to the shared pool.
func (l *Ledger) PoolDeposit(caller, account crypto.Address, ticker string, amount *big.Int, updates []oracle.Update) error {
	return l.run("scdp", "deposit", updates, func() error {
		if err := nativecommon.Authorize(l.policy, caller, account, "scdp.deposit"); err != nil {
			return err
		}
		if err := l.pool.Deposit(account, ticker, amount); err != nil {
			return err
		}
		l.emit("scdp.deposit", map[string]string{
			"account": account.String(),
			"ticker":  ticker,
			"amount":  amount.String(),
		})
		return nil
	})
}

// PoolWithdraw releases pool principal back to the receiver.
func (l *Ledger) PoolWithdraw(caller, account crypto.Address, ticker string, amount *big.Int, receiver crypto.Address, updates []oracle.Update) (*big.Int, error) {
	var withdrawn *big.Int
	err := l.run("scdp", "withdraw", updates, func() error {
		if err := nativecommon.Authorize(l.policy, caller, account, "scdp.withdraw"); err != nil {
			return err
		}
		var err error
		withdrawn, err = l.pool.Withdraw(account, ticker, amount, receiver)
		if err != nil {
			return err
		}
		l.emit("scdp.withdraw", map[string]string{
			"account": account.String(),
			"ticker":  ticker,
			"amount":  withdrawn.String(),
		})
		return nil
	})
	return withdrawn, err
}

// PoolClaimFees pays out the account's accrued pool fee income.
func (l *Ledger) PoolClaimFees(caller, account crypto.Address, ticker string, receiver crypto.Address, updates []oracle.Update) (*big.Int, error) {
	var claimed *big.Int
	err := l.run("scdp", "claim_fees", updates, func() error {
		if err := nativecommon.Authorize(l.policy, caller, account, "scdp.claim_fees"); err != nil {
			return err
		}
		var err error
		claimed, err = l.pool.ClaimFees(account, ticker, receiver)
		if err != nil {
			return err
		}
		l.emit("scdp.claim_fees", map[string]string{
			"account": account.String(),
			"ticker":  ticker,
			"amount":  claimed.String(),
		})
		return nil
	})
	return claimed, err
}

// PoolAddIncome cumulates protocol income into the pool fee index.
func (l *Ledger) PoolAddIncome(caller crypto.Address, ticker string, amount *big.Int, updates []oracle.Update) error {
	return l.run("scdp", "add_income", updates, func() error {
		if err := l.pool.AddGlobalIncome(caller, ticker, amount); err != nil {
			return err
		}
		l.emit("scdp.add_income", map[string]string{
			"ticker": ticker,
			"amount": amount.String(),
		})
		return nil
	})
}

// Swap converts one swap-mintable asset to another against the pool.
func (l *Ledger) Swap(caller crypto.Address, assetIn, assetOut string, amountIn, minAmountOut *big.Int, receiver crypto.Address, updates []oracle.Update) (*scdp.SwapResult, error) {
	var result *scdp.SwapResult
	err := l.run("scdp", "swap", updates, func() error {
		var err error
		result, err = l.pool.Swap(caller, assetIn, assetOut, amountIn, minAmountOut, receiver)
		if err != nil {
			return err
		}
		observability.Ledger().RecordSwap(assetIn, assetOut)
		l.emit("scdp.swap", map[string]string{
			"caller":     caller.String(),
			"asset_in":   assetIn,
			"asset_out":  assetOut,
			"amount_in":  result.AmountIn.String(),
			"amount_out": result.AmountOut.String(),
			"fee":        result.Fee.String(),
		})
		return nil
	})
	return result, err
}

// PreviewSwap quotes a swap without mutating accounting state.
func (l *Ledger) PreviewSwap(assetIn, assetOut string, amountIn *big.Int, updates []oracle.Update) (*scdp.SwapResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.feed.Apply(updates); err != nil {
		return nil, err
	}
	return l.pool.PreviewSwap(assetIn, assetOut, amountIn)
}

// PoolLiquidate runs a pool liquidation.
func (l *Ledger) PoolLiquidate(caller crypto.Address, debtTicker string, repayAmount *big.Int, seizeTicker string, updates []oracle.Update) (*scdp.LiquidationResult, error) {
	var result *scdp.LiquidationResult
	err := l.run("scdp", "liquidate", updates, func() error {
		var err error
		result, err = l.pool.Liquidate(caller, debtTicker, repayAmount, seizeTicker)
		if err != nil {
			return err
		}
		observability.Ledger().RecordLiquidation("scdp")
		l.emit("scdp.liquidate", map[string]string{
			"liquidator": caller.String(),
			"debt":       debtTicker,
			"collateral": seizeTicker,
			"repaid":     result.RepaidAmount.String(),
			"seized":     result.SeizedAmount.String(),
		})
		return nil
	})
	return result, err
}

// CollectProtocolFees drains the protocol share of swap fees for one asset.
func (l *Ledger) CollectProtocolFees(ticker string, receiver crypto.Address, updates []oracle.Update) (*big.Int, error) {
	var collected *big.Int
	err := l.run("scdp", "collect_fees", updates, func() error {
		var err error
		collected, err = l.pool.CollectProtocolFees(ticker, receiver)
		return err
	})
	return collected, err
}

// --- Queries ---

// AccountCollateralValue returns the account's collateral value.
func (l *Ledger) AccountCollateralValue(account crypto.Address, adjusted bool) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positions.AccountCollateralValue(account, adjusted)
}

// AccountDebtValue returns the account's debt value.
func (l *Ledger) AccountDebtValue(account crypto.Address, adjusted bool) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positions.AccountDebtValue(account, adjusted)
}

// AccountCollateralRatio returns the account's collateral ratio.
func (l *Ledger) AccountCollateralRatio(account crypto.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positions.AccountCollateralRatio(account)
}

// MaxLiquidatableValue previews the repay value a liquidation of the account
// could take through the given debt/collateral pair at the supplied prices.
// Zero means the account is healthy.
func (l *Ledger) MaxLiquidatableValue(account crypto.Address, debtTicker, collateralTicker string, updates []oracle.Update) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.feed.Apply(updates); err != nil {
		return nil, err
	}
	return l.positions.MaxLiqValue(account, debtTicker, collateralTicker)
}

// PoolMaxLiquidatableValue previews the repay value a pool liquidation could
// take through the given debt/seize pair at the supplied prices.
func (l *Ledger) PoolMaxLiquidatableValue(debtTicker, seizeTicker string, updates []oracle.Update) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.feed.Apply(updates); err != nil {
		return nil, err
	}
	return l.pool.MaxLiqValue(debtTicker, seizeTicker)
}

// PoolCollateralRatio returns the shared pool's collateral ratio.
func (l *Ledger) PoolCollateralRatio() (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.PoolCollateralRatio()
}

// PoolDepositAmount returns the account's effective pool principal.
func (l *Ledger) PoolDepositAmount(account crypto.Address, ticker string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.AccountDepositAmount(account, ticker)
}

// PoolAccruedFees returns the account's claimable pool fee income.
func (l *Ledger) PoolAccruedFees(account crypto.Address, ticker string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.AccountAccruedFees(account, ticker)
}
