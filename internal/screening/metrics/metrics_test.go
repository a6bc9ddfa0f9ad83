package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementScreening("low", "completed")
		m.ObserveLookup("se-bolagsverket", "ok", time.Millisecond)
		m.IncrementCacheLookup("registry", "hit")
		m.IncrementCircuitTransition("se-bolagsverket", "open")
		m.ObserveScreenLatency(time.Second)
	})
}

func TestCountersRecord(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncrementScreening("high", "partial")
	m.IncrementScreening("high", "partial")
	m.IncrementCacheLookup("sanctions", "miss")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Screenings.WithLabelValues("high", "partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("sanctions", "miss")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("sanctions", "hit")))
}
