// Package metrics exports cache events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.trai.ch/hoard/internal/core/domain"
)

// Namespace prefixes every hoard metric.
const Namespace = "hoard"

var keyLabels = []string{"category", "subcategory"}

// Collector implements ports.CacheMetrics.
// Counters are labelled by category and subcategory, never by name, to bound cardinality.
type Collector struct {
	gatherer prometheus.Gatherer

	hits         *prometheus.CounterVec
	misses       *prometheus.CounterVec
	loadFailures *prometheus.CounterVec
	evictions    *prometheus.CounterVec
	evictedBytes prometheus.Counter

	residentBytes prometheus.Gauge
	activeBytes   prometheus.Gauge
	budgetBytes   prometheus.Gauge
	entries       prometheus.Gauge
}

// NewCollector registers the cache metrics with reg.
func NewCollector(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)
	counter := func(name, help string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		}, keyLabels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		})
	}

	return &Collector{
		gatherer:     reg,
		hits:         counter("hits_total", "Lookups served from the cache."),
		misses:       counter("misses_total", "Lookups that required a load."),
		loadFailures: counter("load_failures_total", "Loads that failed."),
		evictions:    counter("evictions_total", "Entries evicted to satisfy the budget."),
		evictedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cache",
			Name:      "evicted_bytes_total",
			Help:      "Bytes released by eviction.",
		}),
		residentBytes: gauge("resident_bytes", "Bytes resident across both tiers."),
		activeBytes:   gauge("active_bytes", "Bytes in the Active tier."),
		budgetBytes:   gauge("budget_bytes", "Configured byte budget."),
		entries:       gauge("entries", "Resident entries."),
	}
}

// Hit implements ports.CacheMetrics.
func (c *Collector) Hit(key domain.CanonicalKey) {
	c.hits.WithLabelValues(key.Category(), key.Subcategory()).Inc()
}

// Miss implements ports.CacheMetrics.
func (c *Collector) Miss(key domain.CanonicalKey) {
	c.misses.WithLabelValues(key.Category(), key.Subcategory()).Inc()
}

// LoadFailed implements ports.CacheMetrics.
func (c *Collector) LoadFailed(key domain.CanonicalKey) {
	c.loadFailures.WithLabelValues(key.Category(), key.Subcategory()).Inc()
}

// Evicted implements ports.CacheMetrics.
func (c *Collector) Evicted(key domain.CanonicalKey, size int64) {
	c.evictions.WithLabelValues(key.Category(), key.Subcategory()).Inc()
	c.evictedBytes.Add(float64(size))
}

// Observe implements ports.CacheMetrics.
func (c *Collector) Observe(stats domain.CacheStats) {
	c.residentBytes.Set(float64(stats.ResidentBytes))
	c.activeBytes.Set(float64(stats.ActiveBytes))
	c.budgetBytes.Set(float64(stats.Budget))
	c.entries.Set(float64(stats.Entries))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
