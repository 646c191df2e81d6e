// Package oracle provides the price interface the accounting core depends
// on. The core only requires a unit price at the fixed 8-decimal scale plus a
// staleness verdict; attestation formats and signed payload verification live
// with the upstream collaborator.
package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

var (
	// ErrPriceMissing indicates no source could produce a quote for the ticker.
	ErrPriceMissing = errors.New("oracle: price missing")
	// ErrPriceStale indicates the freshest available quote is older than the
	// configured freshness window.
	ErrPriceStale = errors.New("oracle: price stale")
)

// Price is a unit price normalised to the 8-decimal oracle scale.
type Price struct {
	Value     *big.Int
	Timestamp time.Time
}

// Clone returns a deep copy of the price to prevent accidental mutation.
func (p Price) Clone() Price {
	clone := Price{Timestamp: p.Timestamp}
	if p.Value != nil {
		clone.Value = new(big.Int).Set(p.Value)
	}
	return clone
}

// Source resolves a unit price for a ticker.
type Source interface {
	Price(ticker string) (Price, error)
}

// Aggregator consults registered sources in priority order until a fresh
// quote is obtained. Assets without an explicit order use the default order;
// consulting anything beyond the first source is therefore always an explicit
// configuration decision, never a silent fallback.
type Aggregator struct {
	mu           sync.RWMutex
	sources      map[string]Source
	orders       map[string][]string
	defaultOrder []string
	maxAge       time.Duration
	now          func() time.Time
}

// NewAggregator constructs an aggregator enforcing the supplied freshness
// window. A zero maxAge disables staleness checking.
func NewAggregator(maxAge time.Duration) *Aggregator {
	return &Aggregator{
		sources: make(map[string]Source),
		orders:  make(map[string][]string),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Register adds a named source. Registering an existing name replaces it.
func (a *Aggregator) Register(name string, src Source) {
	name = strings.TrimSpace(name)
	if name == "" || src == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sources[name] = src
	if len(a.defaultOrder) == 0 {
		a.defaultOrder = []string{name}
	}
}

// SetDefaultOrder configures the source order used for tickers without a
// dedicated order.
func (a *Aggregator) SetDefaultOrder(names ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.defaultOrder = append([]string(nil), names...)
}

// SetOrder pins the source order for one ticker.
func (a *Aggregator) SetOrder(ticker string, names ...string) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.orders[ticker] = append([]string(nil), names...)
}

// SetClock overrides the time source. Used by tests.
func (a *Aggregator) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
}

// Price resolves the ticker against the configured source order. The first
// fresh quote wins; when every source fails the most meaningful error is
// returned (stale beats missing so callers can distinguish the two).
func (a *Aggregator) Price(ticker string) (Price, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	a.mu.RLock()
	order, ok := a.orders[ticker]
	if !ok {
		order = a.defaultOrder
	}
	sources := make([]Source, 0, len(order))
	names := make([]string, 0, len(order))
	for _, name := range order {
		if src, ok := a.sources[name]; ok {
			sources = append(sources, src)
			names = append(names, name)
		}
	}
	maxAge := a.maxAge
	now := a.now()
	a.mu.RUnlock()

	if len(sources) == 0 {
		return Price{}, fmt.Errorf("%w: no source configured for %s", ErrPriceMissing, ticker)
	}

	var lastErr error
	for i, src := range sources {
		quote, err := src.Price(ticker)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", names[i], err)
			continue
		}
		if quote.Value == nil || quote.Value.Sign() <= 0 {
			lastErr = fmt.Errorf("%s: %w", names[i], ErrPriceMissing)
			continue
		}
		if maxAge > 0 && now.Sub(quote.Timestamp) > maxAge {
			lastErr = fmt.Errorf("%s: %w", names[i], ErrPriceStale)
			continue
		}
		return quote.Clone(), nil
	}
	if lastErr != nil {
		return Price{}, lastErr
	}
	return Price{}, fmt.Errorf("%w: %s", ErrPriceMissing, ticker)
}
