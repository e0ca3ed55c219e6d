package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Reconciliations *prometheus.CounterVec
	WebhookRequests *prometheus.CounterVec
	ReturnRequests  prometheus.Counter
}

// New registers the gateway's collectors on reg. Tests pass a fresh
// registry; main passes the default one.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vida",
			Name:      "reconciliations_total",
			Help:      "Reconciliation runs by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		WebhookRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vida",
			Name:      "webhook_requests_total",
			Help:      "Inbound webhook deliveries by result.",
		}, []string{"result"}),
		ReturnRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vida",
			Name:      "return_requests_total",
			Help:      "Inbound return-flow redirects.",
		}),
	}
	reg.MustRegister(m.Reconciliations, m.WebhookRequests, m.ReturnRequests)
	return m
}

// ReconcileOutcome satisfies the engine's outcome recorder.
func (m *Metrics) ReconcileOutcome(trigger, outcome string) {
	m.Reconciliations.WithLabelValues(trigger, outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
