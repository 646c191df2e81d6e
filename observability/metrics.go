package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type ledgerMetrics struct {
	operations   *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	liquidations *prometheus.CounterVec
	swapVolume   *prometheus.CounterVec
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *ledgerMetrics
)

// Ledger returns the lazily-initialised metrics registry tracking accounting
// ledger activity.
func Ledger() *ledgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &ledgerMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "kopio",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Total ledger operations segmented by module, operation and outcome.",
			}, []string{"module", "operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "kopio",
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for ledger operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "operation"}),
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "kopio",
				Subsystem: "ledger",
				Name:      "liquidations_total",
				Help:      "Count of executed liquidations segmented by module.",
			}, []string{"module"}),
			swapVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "kopio",
				Subsystem: "ledger",
				Name:      "swaps_total",
				Help:      "Count of executed pool swaps segmented by route.",
			}, []string{"asset_in", "asset_out"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.operations,
			ledgerRegistry.latency,
			ledgerRegistry.liquidations,
			ledgerRegistry.swapVolume,
		)
	})
	return ledgerRegistry
}

// ObserveOperation records one ledger entry point invocation.
func (m *ledgerMetrics) ObserveOperation(module, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(module, operation, outcome).Inc()
	m.latency.WithLabelValues(module, operation).Observe(duration.Seconds())
}

// RecordLiquidation increments the liquidation counter for the module.
func (m *ledgerMetrics) RecordLiquidation(module string) {
	if m == nil {
		return
	}
	m.liquidations.WithLabelValues(module).Inc()
}

// RecordSwap increments the swap counter for the route.
func (m *ledgerMetrics) RecordSwap(assetIn, assetOut string) {
	if m == nil {
		return
	}
	m.swapVolume.WithLabelValues(normalizeTicker(assetIn), normalizeTicker(assetOut)).Inc()
}

func normalizeTicker(ticker string) string {
	normalized := strings.TrimSpace(strings.ToUpper(ticker))
	if normalized == "" {
		return "UNKNOWN"
	}
	return normalized
}
