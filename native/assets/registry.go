package assets

import (
	"fmt"
	"math/big"
	"sync"
)

// Registry is the asset whitelist plus per-asset rebase state and the swap
// route table. Insertion order is preserved; listing helpers iterate in that
// order so downstream fee distribution has a deterministic tie-break.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	assets  map[string]*Asset
	rebases map[string]Rebase
	routes  map[routeKey]bool
}

type routeKey struct {
	low, high string
}

func newRouteKey(a, b string) routeKey {
	if a > b {
		a, b = b, a
	}
	return routeKey{low: a, high: b}
}

func NewRegistry() *Registry {
	return &Registry{
		assets:  make(map[string]*Asset),
		rebases: make(map[string]Rebase),
		routes:  make(map[routeKey]bool),
	}
}

// Add whitelists a new asset. Whitelisting is one-shot; records are mutated
// through Update afterwards and never removed.
func (r *Registry) Add(asset *Asset) error {
	if asset == nil {
		return ErrInvalidConfig
	}
	if err := asset.Validate(); err != nil {
		return err
	}
	ticker := NormalizeTicker(asset.Ticker)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.assets[ticker]; exists {
		return fmt.Errorf("%w: %s", ErrAssetExists, ticker)
	}
	stored := asset.Clone()
	stored.Ticker = ticker
	r.assets[ticker] = stored
	r.order = append(r.order, ticker)
	return nil
}

// Get returns a copy of the asset record.
func (r *Registry) Get(ticker string) (*Asset, error) {
	ticker = NormalizeTicker(ticker)
	r.mu.RLock()
	defer r.mu.RUnlock()
	asset, ok := r.assets[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, ticker)
	}
	return asset.Clone(), nil
}

// Update replaces the economic parameters of an existing asset. Identity
// fields are pinned: the update keeps the stored ticker and decimals.
func (r *Registry) Update(ticker string, update *Asset) error {
	if update == nil {
		return ErrInvalidConfig
	}
	ticker = NormalizeTicker(ticker)
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.assets[ticker]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, ticker)
	}
	next := update.Clone()
	next.Ticker = existing.Ticker
	next.Decimals = existing.Decimals
	if err := next.Validate(); err != nil {
		return err
	}
	r.assets[ticker] = next
	return nil
}

func (r *Registry) mutate(ticker string, fn func(*Asset)) error {
	ticker = NormalizeTicker(ticker)
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[ticker]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, ticker)
	}
	next := asset.Clone()
	fn(next)
	if err := next.Validate(); err != nil {
		return err
	}
	r.assets[ticker] = next
	return nil
}

// SetCFactor updates the collateral discount factor.
func (r *Registry) SetCFactor(ticker string, bps uint64) error {
	return r.mutate(ticker, func(a *Asset) { a.CFactor = bps })
}

// SetDFactor updates the debt markup factor.
func (r *Registry) SetDFactor(ticker string, bps uint64) error {
	return r.mutate(ticker, func(a *Asset) { a.DFactor = bps })
}

// SetGlobalDepositLimit updates the pooled deposit ceiling.
func (r *Registry) SetGlobalDepositLimit(ticker string, limit *big.Int) error {
	return r.mutate(ticker, func(a *Asset) { a.DepositLimitSCDP = cloneOrNil(limit) })
}

// SetGlobalDepositEnabled toggles pool depositability without touching the
// collateral flag.
func (r *Registry) SetGlobalDepositEnabled(ticker string, enabled bool) error {
	return r.mutate(ticker, func(a *Asset) { a.IsGlobalDepositable = enabled })
}

// SetGlobalCollateralEnabled toggles pool collateral eligibility.
func (r *Registry) SetGlobalCollateralEnabled(ticker string, enabled bool) error {
	return r.mutate(ticker, func(a *Asset) { a.IsGlobalCollateral = enabled })
}

// SetSwapEnabled toggles swap mintability for the shared pool.
func (r *Registry) SetSwapEnabled(ticker string, enabled bool) error {
	return r.mutate(ticker, func(a *Asset) { a.IsSwapMintable = enabled })
}

// Rebase returns the current rebase state for the asset.
func (r *Registry) Rebase(ticker string) Rebase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.rebases[NormalizeTicker(ticker)]
	if !ok {
		return Rebase{}
	}
	return Rebase{Denominator: cloneOrNil(state.Denominator), Positive: state.Positive}
}

// SetRebase installs a new scaling factor for the asset. The previous factor
// is discarded wholesale; issued raw balances are untouched.
func (r *Registry) SetRebase(ticker string, denominator *big.Int, positive bool) error {
	ticker = NormalizeTicker(ticker)
	if denominator != nil && denominator.Sign() < 0 {
		return ErrInvalidRebase
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assets[ticker]; !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, ticker)
	}
	r.rebases[ticker] = Rebase{Denominator: cloneOrNil(denominator), Positive: positive}
	return nil
}

// SwapRoute is one entry of a route update batch.
type SwapRoute struct {
	AssetIn  string
	AssetOut string
	Enabled  bool
}

// SetSwapRoutes applies a batch of route toggles. Routes are unordered: the
// reverse direction is enabled or disabled together with the forward one.
func (r *Registry) SetSwapRoutes(routes []SwapRoute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, route := range routes {
		in := NormalizeTicker(route.AssetIn)
		out := NormalizeTicker(route.AssetOut)
		if _, ok := r.assets[in]; !ok {
			return fmt.Errorf("%w: %s", ErrAssetNotFound, in)
		}
		if _, ok := r.assets[out]; !ok {
			return fmt.Errorf("%w: %s", ErrAssetNotFound, out)
		}
		r.routes[newRouteKey(in, out)] = route.Enabled
	}
	return nil
}

// RouteEnabled reports whether the pair may be swapped through the pool.
func (r *Registry) RouteEnabled(assetIn, assetOut string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.routes[newRouteKey(NormalizeTicker(assetIn), NormalizeTicker(assetOut))]
}

// Tickers returns every whitelisted ticker in insertion order.
func (r *Registry) Tickers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) filter(keep func(*Asset) bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.order))
	for _, ticker := range r.order {
		if keep(r.assets[ticker]) {
			out = append(out, ticker)
		}
	}
	return out
}

// GlobalCollaterals lists pool collateral assets in insertion order.
func (r *Registry) GlobalCollaterals() []string {
	return r.filter(func(a *Asset) bool { return a.IsGlobalCollateral })
}

// GlobalDepositAssets lists pool-depositable assets in insertion order.
func (r *Registry) GlobalDepositAssets() []string {
	return r.filter(func(a *Asset) bool { return a.IsGlobalDepositable })
}

// SwapMintable lists the swap-mintable synthetics in insertion order.
func (r *Registry) SwapMintable() []string {
	return r.filter(func(a *Asset) bool { return a.IsSwapMintable })
}
