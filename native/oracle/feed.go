package oracle

import (
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

// Update is the numeric payload extracted from a verified oracle attestation.
// Signature checking happens upstream; by the time an update reaches the
// ledger only the price, its scale and its observation time remain.
type Update struct {
	Ticker    string
	Value     *big.Int
	Timestamp time.Time
}

// FeedSource is a push-based price source fed by per-call price payloads.
// Every mutating ledger entry point applies its payload here before the
// operation body runs, so a price read is always satisfied synchronously
// within the same call or fails outright.
type FeedSource struct {
	mu     sync.RWMutex
	quotes map[string]Price
}

func NewFeedSource() *FeedSource {
	return &FeedSource{quotes: make(map[string]Price)}
}

// Apply ingests the payload updates. Older updates never overwrite newer
// quotes for the same ticker.
func (f *FeedSource) Apply(updates []Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, update := range updates {
		ticker := strings.ToUpper(strings.TrimSpace(update.Ticker))
		if ticker == "" {
			return fmt.Errorf("oracle: update with empty ticker")
		}
		if update.Value == nil || update.Value.Sign() <= 0 {
			return fmt.Errorf("oracle: non-positive price for %s", ticker)
		}
		if existing, ok := f.quotes[ticker]; ok && existing.Timestamp.After(update.Timestamp) {
			continue
		}
		f.quotes[ticker] = Price{Value: new(big.Int).Set(update.Value), Timestamp: update.Timestamp}
	}
	return nil
}

// Price implements Source.
func (f *FeedSource) Price(ticker string) (Price, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	f.mu.RLock()
	quote, ok := f.quotes[ticker]
	f.mu.RUnlock()
	if !ok {
		return Price{}, fmt.Errorf("%w: %s", ErrPriceMissing, ticker)
	}
	return quote.Clone(), nil
}
