// Copyright 2024-2026 Aiku AI

package relay

import "github.com/prometheus/client_golang/prometheus"

var (
	inboundTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_inbound_total",
		Help: "Inbound user messages accepted for fan-out, by payload kind.",
	}, []string{"kind"})

	fanoutSendsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_fanout_sends_total",
		Help: "Individual fan-out send attempts, by result (ok/fail).",
	}, []string{"result"})

	repliesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_replies_total",
		Help: "Operator replies processed, by result (ok/not_found/fail).",
	}, []string{"result"})
)

// RegisterMetrics registers the relay metrics with the default Prometheus
// registry. Call once at startup.
func RegisterMetrics() {
	prometheus.MustRegister(
		inboundTotal,
		fanoutSendsTotal,
		repliesTotal,
	)
}
