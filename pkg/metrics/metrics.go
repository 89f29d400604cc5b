package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orderview"

// Metrics groups the collectors of the order view service.
type Metrics struct {
	CommandsIssued *prometheus.CounterVec
	CommandResults *prometheus.CounterVec
	StaleResults   *prometheus.CounterVec
	Requests       *prometheus.CounterVec
	LatencyMS      *prometheus.HistogramVec
	OpenSessions   prometheus.Gauge
	OutboxEvents   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "commands_issued_total",
			Help:      "Commands handed to the dispatcher.",
		}, []string{"kind"}),
		CommandResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "command_results_total",
			Help:      "Completed commands by outcome.",
		}, []string{"kind", "outcome"}),
		StaleResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "stale_results_total",
			Help:      "Command results dropped because the viewer moved to another order.",
		}, []string{"kind"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		OpenSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "open",
			Help:      "Number of open order view sessions.",
		}),
		OutboxEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_total",
			Help:      "Outbox messages processed by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.CommandsIssued,
		m.CommandResults,
		m.StaleResults,
		m.Requests,
		m.LatencyMS,
		m.OpenSessions,
		m.OutboxEvents,
	)

	return m
}

// NewUnregistered creates collectors that are not exported anywhere.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves the metrics of gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
