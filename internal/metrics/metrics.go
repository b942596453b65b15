// Package metrics exposes marketplace counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gigmarket"

// Metrics holds the registry and every collector the services report to.
// All methods are no-ops on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	bidsPlaced           prometheus.Counter
	bidsRejected         *prometheus.CounterVec
	hires                prometheus.Counter
	contractsFunded      prometheus.Counter
	paymentFailures      prometheus.Counter
	notificationsWritten *prometheus.CounterVec
	subscriptions        prometheus.Gauge
	requestDuration      *prometheus.HistogramVec
}

// New creates a Metrics instance with its own registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		bidsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_placed_total",
			Help:      "Bids successfully placed.",
		}),
		bidsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_rejected_total",
			Help:      "Bid submissions rejected, by error code.",
		}, []string{"code"}),
		hires: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hires_total",
			Help:      "Bids accepted and contracts created.",
		}),
		contractsFunded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contracts_funded_total",
			Help:      "Contracts moved to funded.",
		}),
		paymentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_failures_total",
			Help:      "Checkout attempts reported as failed.",
		}),
		notificationsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_written_total",
			Help:      "Notifications inserted by the worker, by type.",
		}, []string{"type"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_subscriptions",
			Help:      "Open realtime change subscriptions.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.bidsPlaced,
		m.bidsRejected,
		m.hires,
		m.contractsFunded,
		m.paymentFailures,
		m.notificationsWritten,
		m.subscriptions,
		m.requestDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) BidPlaced() {
	if m == nil {
		return
	}
	m.bidsPlaced.Inc()
}

func (m *Metrics) BidRejected(code string) {
	if m == nil {
		return
	}
	m.bidsRejected.WithLabelValues(code).Inc()
}

func (m *Metrics) Hired() {
	if m == nil {
		return
	}
	m.hires.Inc()
}

func (m *Metrics) ContractFunded() {
	if m == nil {
		return
	}
	m.contractsFunded.Inc()
}

func (m *Metrics) PaymentFailed() {
	if m == nil {
		return
	}
	m.paymentFailures.Inc()
}

func (m *Metrics) NotificationWritten(notificationType string) {
	if m == nil {
		return
	}
	m.notificationsWritten.WithLabelValues(notificationType).Inc()
}

func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.subscriptions.Inc()
}

func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.subscriptions.Dec()
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
