package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "settlement_gateway"

// Metrics implements ports.SettlementMetrics and exposes HTTP request
// counters. A nil *Metrics discards every observation.
type Metrics struct {
	registry    *prometheus.Registry
	operations  *prometheus.CounterVec
	settled     *prometheus.CounterVec
	fees        *prometheus.CounterVec
	settlements *prometheus.CounterVec
	requests    *prometheus.CounterVec
	durations   *prometheus.HistogramVec
}

var (
	defaultOnce sync.Once
	defaultSet  *Metrics
)

// Default returns the process-wide metric set.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultSet = New()
	})
	return defaultSet
}

// New builds a metric set on its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Payment engine operations by outcome code.",
		}, []string{"op", "code"}),
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settled_net_amount_total",
			Help:      "Net amount delivered to requesters by asset.",
		}, []string{"asset"}),
		fees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settled_fee_amount_total",
			Help:      "Fee amount delivered to business fee recipients by asset.",
		}, []string{"asset"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Completed settlements by asset.",
		}, []string{"asset"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	m.registry.MustRegister(
		m.operations, m.settled, m.fees, m.settlements, m.requests, m.durations,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOperation counts one create/execute/cancel outcome.
func (m *Metrics) ObserveOperation(op string, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "UNKNOWN"
	}
	m.operations.WithLabelValues(op, code).Inc()
}

// ObserveSettlement adds one completed settlement.
func (m *Metrics) ObserveSettlement(asset string, net, fee int64) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(asset).Inc()
	if net > 0 {
		m.settled.WithLabelValues(asset).Add(float64(net))
	}
	if fee > 0 {
		m.fees.WithLabelValues(asset).Add(float64(fee))
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.durations.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
