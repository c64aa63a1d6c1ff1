package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/paraiso-astral/gate-service/internal/domain"
)

// Metrics exposes Prometheus collectors for issuance, validation and HTTP
// traffic. A nil *Metrics is a valid no-op.
type Metrics struct {
	requests          *prometheus.CounterVec
	requestLatency    *prometheus.HistogramVec
	errors            *prometheus.CounterVec
	ticketsIssued     *prometheus.CounterVec
	validations       *prometheus.CounterVec
	validationLatency prometheus.Histogram
	cacheLookups      *prometheus.CounterVec
	onlineFailures    *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		requestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gate_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_http_errors_total",
			Help: "HTTP errors by route, method and error code",
		}, []string{"route", "method", "code"}),
		ticketsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_tickets_issued_total",
			Help: "Tickets issued by type",
		}, []string{"type"}),
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_validations_total",
			Help: "Gate validations by result, reason and method",
		}, []string{"result", "reason", "method"}),
		validationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gate_validation_duration_seconds",
			Help:    "Duration of a full validation pipeline run",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3},
		}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_validation_cache_lookups_total",
			Help: "Validation cache lookups by outcome",
		}, []string{"outcome"}),
		onlineFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_online_reconciliation_failures_total",
			Help: "Authoritative store lookups that failed or timed out",
		}, []string{"mode"}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordIssued counts an issued ticket.
func (m *Metrics) RecordIssued(t domain.TicketType) {
	if m == nil {
		return
	}
	m.ticketsIssued.WithLabelValues(string(t)).Inc()
}

// RecordValidation counts a validation outcome and its latency.
func (m *Metrics) RecordValidation(result domain.ValidationResult, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if result.Valid {
		outcome = "admitted"
	}
	reason := string(result.Reason)
	if reason == "" {
		reason = "none"
	}
	m.validations.WithLabelValues(outcome, reason, string(result.Method)).Inc()
	m.validationLatency.Observe(duration.Seconds())
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// RecordOnlineFailure counts a failed authoritative lookup. mode is
// "mandatory" or "opportunistic".
func (m *Metrics) RecordOnlineFailure(mode string) {
	if m == nil {
		return
	}
	m.onlineFailures.WithLabelValues(mode).Inc()
}
