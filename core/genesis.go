package core

import (
	"fmt"
	"log/slog"
	"time"

	"kopiocore/config"
	"kopiocore/crypto"
	"kopiocore/native/assets"
	"kopiocore/native/icdp"
	"kopiocore/native/oracle"
	"kopiocore/native/scdp"
	"kopiocore/native/value"
	"kopiocore/observability"
)

// FeedSourceName is the oracle source the ledger feeds from per-call price
// payloads.
const FeedSourceName = "feed"

// NewLedger builds a ledger from the validated protocol parameters: asset
// whitelist, swap routes, risk parameters, oracle wiring and the emergency
// pause switches.
func NewLedger(global config.Global, log *slog.Logger) (*Ledger, error) {
	if err := config.ValidateGlobal(global); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	registry := assets.NewRegistry()
	records, err := global.AssetRecords()
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := registry.Add(record); err != nil {
			return nil, fmt.Errorf("genesis asset %s: %w", record.Ticker, err)
		}
	}
	if err := registry.SetSwapRoutes(global.SwapRoutes()); err != nil {
		return nil, fmt.Errorf("genesis routes: %w", err)
	}

	feed := oracle.NewFeedSource()
	aggregator := oracle.NewAggregator(time.Duration(global.Oracle.MaxPriceAgeSecs) * time.Second)
	aggregator.Register(FeedSourceName, feed)
	if len(global.Oracle.DefaultOrder) > 0 {
		aggregator.SetDefaultOrder(global.Oracle.DefaultOrder...)
	}
	for _, record := range records {
		if len(record.OracleOrder) > 0 {
			aggregator.SetOrder(record.Ticker, record.OracleOrder...)
		}
	}

	values := value.NewEngine(registry, aggregator)

	icdpParams, err := global.ICDPParams()
	if err != nil {
		return nil, err
	}
	positions := icdp.NewEngine(registry, values, crypto.ModuleAddress("icdp"), icdpParams)
	pool := scdp.NewEngine(registry, values, crypto.ModuleAddress("scdp"), global.SCDPParams())

	bank := NewBank()
	store := NewStore()
	pauses := NewPauseSwitches()
	pauses.SetPaused("icdp", global.Pauses.ICDP)
	pauses.SetPaused("scdp", global.Pauses.SCDP)

	positions.SetState(store)
	positions.SetBank(bank)
	positions.SetPauses(pauses)
	pool.SetState(store)
	pool.SetBank(bank)
	pool.SetPauses(pauses)

	return &Ledger{
		log:       log,
		registry:  registry,
		feed:      feed,
		prices:    aggregator,
		values:    values,
		positions: positions,
		pool:      pool,
		bank:      bank,
		store:     store,
		pauses:    pauses,
		events:    observability.NewEventRecorder(0),
	}, nil
}
