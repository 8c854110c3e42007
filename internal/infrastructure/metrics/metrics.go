// Package metrics holds the prometheus collectors for currency resolution
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the counters the resolver updates. A nil *Metrics is a no-op.
type Metrics struct {
	RateFetches *prometheus.CounterVec
	Resolutions *prometheus.CounterVec
	Advisories  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it is not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RateFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "masterclass",
			Subsystem: "currency",
			Name:      "rate_fetches_total",
			Help:      "Live exchange rate fetches by outcome.",
		}, []string{"outcome"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "masterclass",
			Subsystem: "currency",
			Name:      "resolutions_total",
			Help:      "Completed currency resolutions by rate source.",
		}, []string{"source"}),
		Advisories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "masterclass",
			Subsystem: "currency",
			Name:      "advisories_total",
			Help:      "Advisories raised by kind.",
		}, []string{"kind"}),
	}

	if reg != nil {
		reg.MustRegister(m.RateFetches, m.Resolutions, m.Advisories)
	}

	return m
}

func (m *Metrics) ObserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.RateFetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveResolution(source string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveAdvisory(kind string) {
	if m == nil {
		return
	}
	m.Advisories.WithLabelValues(kind).Inc()
}
