package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memorial"

// Metrics holds the HTTP and domain collectors. A nil *Metrics is a no-op.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	confirmations   *prometheus.CounterVec
	interactions    *prometheus.CounterVec
	mediaStored     *prometheus.CounterVec
	qrFailures      prometheus.Counter
}

// New registers every collector on reg. Passing a *prometheus.Registry also
// enables Handler.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_transitions_total",
			Help:      "Lifecycle tier transitions applied to memorials.",
		}, []string{"from", "to"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_confirmations_total",
			Help:      "Payment confirmations by outcome.",
		}, []string{"outcome"}),
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Visitor interactions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		mediaStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_files_stored_total",
			Help:      "Uploaded media files persisted by kind.",
		}, []string{"kind"}),
		qrFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qrcode_failures_total",
			Help:      "QR code generations that failed and were skipped.",
		}),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.transitions, m.confirmations, m.interactions, m.mediaStored, m.qrFailures)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	route = normalizeLabel(route)
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncTransition counts a tier change.
func (m *Metrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncConfirmation counts a billing confirmation outcome (applied, replayed, unpaid, failed).
func (m *Metrics) IncConfirmation(outcome string) {
	if m == nil || m.confirmations == nil {
		return
	}
	m.confirmations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncInteraction counts a condolence or candle attempt.
func (m *Metrics) IncInteraction(kind, outcome string) {
	if m == nil || m.interactions == nil {
		return
	}
	m.interactions.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// AddMediaStored counts persisted media files.
func (m *Metrics) AddMediaStored(kind string, n int) {
	if m == nil || m.mediaStored == nil || n <= 0 {
		return
	}
	m.mediaStored.WithLabelValues(normalizeLabel(kind)).Add(float64(n))
}

// IncQRFailure counts a skipped QR generation.
func (m *Metrics) IncQRFailure() {
	if m == nil || m.qrFailures == nil {
		return
	}
	m.qrFailures.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
