package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	resultOK            = "ok"
	resultDuplicate     = "duplicate"
	resultNoPaths       = "no_paths"
	resultStartupFailed = "startup_failed"
	resultNotFound      = "not_found"
	resultInvalid       = "invalid"
)

// Metrics holds the registry collectors. A nil *Metrics records nothing.
type Metrics struct {
	registerTotal   *prometheus.CounterVec
	unregisterTotal *prometheus.CounterVec
	paths           prometheus.Gauge
}

// NewMetrics creates the registry collectors and registers them with reg.
// A nil reg yields working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registerTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matter_registry_register_total",
				Help: "Cluster handler registrations by result.",
			},
			[]string{"result"},
		),
		unregisterTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matter_registry_unregister_total",
				Help: "Cluster handler unregistrations by result.",
			},
			[]string{"result"},
		),
		paths: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "matter_registry_paths",
				Help: "Number of cluster paths currently registered.",
			},
		),
	}
}

func (m *Metrics) observeRegister(result string) {
	if m == nil {
		return
	}
	m.registerTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) observeUnregister(result string) {
	if m == nil {
		return
	}
	m.unregisterTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) setPaths(n int) {
	if m == nil {
		return
	}
	m.paths.Set(float64(n))
}
