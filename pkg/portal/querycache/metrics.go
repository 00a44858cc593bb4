package querycache

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache traffic per key kind
type Metrics struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	evictions     *prometheus.CounterVec
}

// NewMetrics creates the cache counters and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "querycache",
			Name:      "hits_total",
			Help:      "Reads served from cache.",
		}, []string{"kind"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "querycache",
			Name:      "misses_total",
			Help:      "Reads that went to the store.",
		}, []string{"kind"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "querycache",
			Name:      "invalidations_total",
			Help:      "Entries invalidated by writes.",
		}, []string{"kind"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "querycache",
			Name:      "evictions_total",
			Help:      "Entries dropped to stay under the size cap.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.invalidations, m.evictions)
	}
	return m
}

func (m *Metrics) hit(kind Kind) {
	if m != nil {
		m.hits.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) miss(kind Kind) {
	if m != nil {
		m.misses.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) invalidated(kind Kind) {
	if m != nil {
		m.invalidations.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) evicted(kind Kind) {
	if m != nil {
		m.evictions.WithLabelValues(string(kind)).Inc()
	}
}
