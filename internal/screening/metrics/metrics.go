package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the screening module. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Completed screenings by risk level and report status
	Screenings *prometheus.CounterVec

	// Per-source lookup latency by outcome
	LookupLatency *prometheus.HistogramVec

	// Cache hits and misses by source family
	CacheLookups *prometheus.CounterVec

	// Circuit breaker transitions by source
	CircuitTransitions *prometheus.CounterVec

	// End-to-end screening latency
	ScreenLatency prometheus.Histogram
}

// New registers the screening metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the screening metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Screenings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_screenings_total",
			Help: "Total screenings by risk level and report status",
		}, []string{"risk_level", "status"}),

		LookupLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "screener_connector_lookup_duration_seconds",
			Help:    "Duration of source lookups by source and outcome",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source", "outcome"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_cache_lookups_total",
			Help: "Lookup cache reads by source family and result",
		}, []string{"family", "result"}), // result: "hit", "miss", "error"

		CircuitTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_circuit_transitions_total",
			Help: "Circuit breaker state changes by source",
		}, []string{"source", "state"}),

		ScreenLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_screen_duration_seconds",
			Help:    "Duration of a full screening including persistence",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) IncrementScreening(riskLevel, status string) {
	if m != nil {
		m.Screenings.WithLabelValues(riskLevel, status).Inc()
	}
}

// ObserveLookup records the duration of one source lookup, cache hits included.
func (m *Metrics) ObserveLookup(source, outcome string, d time.Duration) {
	if m != nil {
		m.LookupLatency.WithLabelValues(source, outcome).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementCacheLookup(family, result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(family, result).Inc()
	}
}

func (m *Metrics) IncrementCircuitTransition(source, state string) {
	if m != nil {
		m.CircuitTransitions.WithLabelValues(source, state).Inc()
	}
}

func (m *Metrics) ObserveScreenLatency(d time.Duration) {
	if m != nil {
		m.ScreenLatency.Observe(d.Seconds())
	}
}
