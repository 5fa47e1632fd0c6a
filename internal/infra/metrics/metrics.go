// Package metrics registers the tracking core's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the tracking core updates.
type Metrics struct {
	registry *prometheus.Registry

	SamplesAccepted  prometheus.Counter
	SamplesRejected  *prometheus.CounterVec
	SamplesThrottled prometheus.Counter
	EventsDropped    prometheus.Counter
	AnomaliesEmitted *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
}

// New builds a fresh registry with the tracking collectors plus the usual
// process and Go runtime collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SamplesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pawtrack_samples_accepted_total",
			Help: "Location samples appended to a session route.",
		}),
		SamplesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pawtrack_samples_rejected_total",
			Help: "Location samples rejected by the validator, by reason.",
		}, []string{"reason"}),
		SamplesThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pawtrack_samples_throttled_total",
			Help: "Location samples coalesced by the throttle window.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pawtrack_subscriber_events_dropped_total",
			Help: "Events dropped from saturated subscriber buffers.",
		}),
		AnomaliesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pawtrack_anomalies_emitted_total",
			Help: "Anomaly events emitted by the ingest pipeline, by kind.",
		}, []string{"kind"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pawtrack_active_sessions",
			Help: "Sessions currently held in the registry.",
		}),
	}

	registry.MustRegister(
		m.SamplesAccepted,
		m.SamplesRejected,
		m.SamplesThrottled,
		m.EventsDropped,
		m.AnomaliesEmitted,
		m.ActiveSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler exposes the registry for the /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
