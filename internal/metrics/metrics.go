// Package metrics exposes the Prometheus collectors of the page pipeline.
// All methods are safe on a nil *Metrics so components can run unmetered.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	CacheEvictions  *prometheus.CounterVec
	BatchCycles     prometheus.Counter
	BatchItems      *prometheus.CounterVec
	TrackedMarkers  prometheus.Gauge
	TrackedRecords  prometheus.Gauge
	RegistryEvicted prometheus.Counter
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aura_cache_hits_total",
			Help: "Reputation cache hits by request kind",
		}, []string{"kind"}),
		CacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aura_cache_misses_total",
			Help: "Reputation cache misses by request kind",
		}, []string{"kind"}),
		CacheEvictions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aura_cache_evictions_total",
			Help: "Reputation cache evictions by reason (expired, capacity)",
		}, []string{"reason"}),
		BatchCycles: f.NewCounter(prometheus.CounterOpts{
			Name: "aura_batch_cycles_total",
			Help: "Resolution/scoring dispatch cycles started",
		}),
		BatchItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aura_batch_items_total",
			Help: "Batch items processed by outcome",
		}, []string{"outcome"}),
		TrackedMarkers: f.NewGauge(prometheus.GaugeOpts{
			Name: "aura_tracked_markers",
			Help: "Live marker elements in the registry",
		}),
		TrackedRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "aura_tracked_identifiers",
			Help: "Identifier records currently tracked",
		}),
		RegistryEvicted: f.NewCounter(prometheus.CounterOpts{
			Name: "aura_registry_evictions_total",
			Help: "Identifiers evicted under registry capacity pressure",
		}),
	}
}

func (m *Metrics) CacheHit(kind string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(kind).Inc()
}

func (m *Metrics) CacheMiss(kind string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(kind).Inc()
}

func (m *Metrics) CacheEvicted(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CacheEvictions.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) CycleStarted() {
	if m == nil {
		return
	}
	m.BatchCycles.Inc()
}

func (m *Metrics) ItemProcessed(outcome string) {
	if m == nil {
		return
	}
	m.BatchItems.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetTracked(records, markers int) {
	if m == nil {
		return
	}
	m.TrackedRecords.Set(float64(records))
	m.TrackedMarkers.Set(float64(markers))
}

func (m *Metrics) Evicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RegistryEvicted.Add(float64(n))
}
