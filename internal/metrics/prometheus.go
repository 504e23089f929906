// Package metrics exposes ledger activity to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Collector satisfies the MetricsCollector interfaces of the services.
type Collector struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	volume     *prometheus.CounterVec
	entries    *prometheus.CounterVec
	cache      *prometheus.CounterVec
}

// New registers the ledger metrics with reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Ledger operations by result",
			},
			[]string{"operation", "result"},
		),
		durations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5},
			},
			[]string{"operation"},
		),
		volume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_volume_total",
				Help: "Absolute amount moved, by entry type",
			},
			[]string{"type"},
		),
		entries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_entries_total",
				Help: "Committed ledger entries, by entry type",
			},
			[]string{"type"},
		),
		cache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_requests_total",
				Help: "Cache lookups by key kind and outcome",
			},
			[]string{"key", "outcome"},
		),
	}
}

func (c *Collector) RecordOperationDuration(operation string, d time.Duration) {
	c.durations.WithLabelValues(operation).Observe(d.Seconds())
}

func (c *Collector) RecordOperationResult(operation, result string) {
	c.operations.WithLabelValues(operation, result).Inc()
}

func (c *Collector) RecordBalanceChange(entryType string, amount decimal.Decimal) {
	f, _ := amount.Abs().Float64()
	c.volume.WithLabelValues(entryType).Add(f)
	c.entries.WithLabelValues(entryType).Inc()
}

func (c *Collector) RecordCacheHit(key string)  { c.cache.WithLabelValues(key, "hit").Inc() }
func (c *Collector) RecordCacheMiss(key string) { c.cache.WithLabelValues(key, "miss").Inc() }
