package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheHit("score")
		m.CacheMiss("score")
		m.CacheEvicted("expired", 3)
		m.CycleStarted()
		m.ItemProcessed("scored")
		m.SetTracked(1, 2)
		m.Evicted(1)
	})
}

func TestCountersAccumulate(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CacheHit("score")
	m.CacheHit("score")
	m.CacheMiss("profile")
	m.CacheEvicted("capacity", 4)
	m.CacheEvicted("capacity", 0)
	m.CycleStarted()
	m.ItemProcessed("absent")
	m.SetTracked(7, 12)
	m.Evicted(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHits.WithLabelValues("score")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses.WithLabelValues("profile")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CacheEvictions.WithLabelValues("capacity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchCycles))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchItems.WithLabelValues("absent")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.TrackedRecords))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.TrackedMarkers))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RegistryEvicted))
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
