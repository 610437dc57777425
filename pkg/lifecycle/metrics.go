package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transition label values.
const (
	transitionActivated       = "activated"
	transitionDeactivated     = "deactivated"
	transitionConstructFailed = "construct_failed"
	transitionRegisterFailed  = "register_failed"
	transitionNotFound        = "unregister_not_found"
	transitionIgnored         = "ignored"
)

// Metrics counts binding transitions. A nil *Metrics records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
}

// NewMetrics creates the lifecycle collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		transitions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "matter_lifecycle_transitions_total",
				Help: "Endpoint lifecycle transitions per cluster binding.",
			},
			[]string{"cluster", "transition"},
		),
	}
}

func (m *Metrics) observe(cluster, transition string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(cluster, transition).Inc()
}
