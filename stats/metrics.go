package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the lookups served by a ConformationStats.
type Metrics struct {
	LookupsTotal *prometheus.CounterVec
	FallbackKeys *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg unless reg
// is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rnastats_lookups_total",
				Help: "Statistics lookups by element kind and result (exact, fallback, miss).",
			},
			[]string{"kind", "result"},
		),
		FallbackKeys: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rnastats_fallback_keys",
				Help:    "Number of keys whose buckets were gathered for one lookup.",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"kind"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.LookupsTotal, m.FallbackKeys)
	}
	return m
}

func (m *Metrics) observe(kind, result string, keys int) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(kind, result).Inc()
	if keys > 0 {
		m.FallbackKeys.WithLabelValues(kind).Observe(float64(keys))
	}
}
