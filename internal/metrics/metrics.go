// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for the orders counter
const (
	OutcomeExecuted = "executed"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type Metrics struct {
	registry *prometheus.Registry

	orders          *prometheus.CounterVec
	cashMovements   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	wsClients       prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "papertrade",
			Name:      "orders_total",
			Help:      "Orders processed, by side and outcome.",
		}, []string{"side", "outcome"}),
		cashMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "papertrade",
			Name:      "cash_movements_total",
			Help:      "Deposits and cashouts, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "papertrade",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "papertrade",
			Name:      "price_stream_clients",
			Help:      "Connected websocket price stream clients.",
		}),
	}
	m.registry.MustRegister(m.orders, m.cashMovements, m.requestDuration, m.wsClients)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// All observers tolerate a nil receiver so callers may run without metrics.

func (m *Metrics) ObserveOrder(side, outcome string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(side, outcome).Inc()
}

func (m *Metrics) ObserveCash(kind, outcome string) {
	if m == nil {
		return
	}
	m.cashMovements.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) ClientConnected() {
	if m != nil {
		m.wsClients.Inc()
	}
}

func (m *Metrics) ClientDisconnected() {
	if m != nil {
		m.wsClients.Dec()
	}
}
