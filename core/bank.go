package core

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"kopiocore/crypto"
)

var ErrInsufficientFunds = errors.New("core: insufficient funds")

// Bank is the in-memory token ledger backing the accounting engines. It
// tracks per-address balances and the circulating supply per ticker; the
// engines treat its operations as atomic.
type Bank struct {
	mu       sync.RWMutex
	balances map[string]map[string]*big.Int
	supplies map[string]*big.Int
}

func NewBank() *Bank {
	return &Bank{
		balances: make(map[string]map[string]*big.Int),
		supplies: make(map[string]*big.Int),
	}
}

func bankKey(addr crypto.Address) string { return string(addr.Bytes()) }

// Credit funds an address outside the mint/burn accounting. Used for genesis
// allocations and tests.
func (b *Bank) Credit(ticker string, addr crypto.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.add(ticker, bankKey(addr), amount)
}

// BalanceOf returns the current balance.
func (b *Bank) BalanceOf(ticker string, addr crypto.Address) *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if accounts, ok := b.balances[ticker]; ok {
		if v, ok := accounts[bankKey(addr)]; ok {
			return new(big.Int).Set(v)
		}
	}
	return big.NewInt(0)
}

// Supply returns the minted supply for the ticker.
func (b *Bank) Supply(ticker string) *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if v, ok := b.supplies[ticker]; ok {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}

// Transfer moves tokens between addresses.
func (b *Bank) Transfer(ticker string, from, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("core: invalid transfer amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.sub(ticker, bankKey(from), amount); err != nil {
		return err
	}
	b.add(ticker, bankKey(to), amount)
	return nil
}

// Mint issues new tokens to an address.
func (b *Bank) Mint(ticker string, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("core: invalid mint amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.add(ticker, bankKey(to), amount)
	supply, ok := b.supplies[ticker]
	if !ok {
		supply = big.NewInt(0)
	}
	b.supplies[ticker] = new(big.Int).Add(supply, amount)
	return nil
}

// Burn destroys tokens held by an address.
func (b *Bank) Burn(ticker string, from crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("core: invalid burn amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.sub(ticker, bankKey(from), amount); err != nil {
		return err
	}
	supply, ok := b.supplies[ticker]
	if !ok {
		supply = big.NewInt(0)
	}
	next := new(big.Int).Sub(supply, amount)
	if next.Sign() < 0 {
		next = big.NewInt(0)
	}
	b.supplies[ticker] = next
	return nil
}

func (b *Bank) add(ticker, key string, amount *big.Int) {
	accounts, ok := b.balances[ticker]
	if !ok {
		accounts = make(map[string]*big.Int)
		b.balances[ticker] = accounts
	}
	current, ok := accounts[key]
	if !ok {
		current = big.NewInt(0)
	}
	accounts[key] = new(big.Int).Add(current, amount)
}

func (b *Bank) sub(ticker, key string, amount *big.Int) error {
	accounts, ok := b.balances[ticker]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInsufficientFunds, ticker)
	}
	current, ok := accounts[key]
	if !ok || current.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s", ErrInsufficientFunds, ticker)
	}
	accounts[key] = new(big.Int).Sub(current, amount)
	return nil
}

type bankSnapshot struct {
	balances map[string]map[string]*big.Int
	supplies map[string]*big.Int
}

func (b *Bank) snapshot() bankSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap := bankSnapshot{
		balances: make(map[string]map[string]*big.Int, len(b.balances)),
		supplies: make(map[string]*big.Int, len(b.supplies)),
	}
	for ticker, accounts := range b.balances {
		copied := make(map[string]*big.Int, len(accounts))
		for key, v := range accounts {
			copied[key] = new(big.Int).Set(v)
		}
		snap.balances[ticker] = copied
	}
	for ticker, v := range b.supplies {
		snap.supplies[ticker] = new(big.Int).Set(v)
	}
	return snap
}

func (b *Bank) restore(snap bankSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances = snap.balances
	b.supplies = snap.supplies
}
