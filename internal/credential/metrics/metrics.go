// Package metrics provides Prometheus metrics for credential issuance.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every issuance-side collector. All methods are nil-safe so
// components can run without metrics in tests.
type Metrics struct {
	IssuanceOutcomes *prometheus.CounterVec // Issue results by mode and outcome

	IssuerRequestDuration *prometheus.HistogramVec // Issuer round trips by mode and status class
	IssuerResponses       *prometheus.CounterVec   // Issuer responses by mode and HTTP status
	IssuerBreakerState    prometheus.Gauge         // 0 closed, 1 open, 2 half-open
	IssuerBreakerTrips    prometheus.Counter

	LedgerOperations    *prometheus.CounterVec // Ledger calls by operation and result
	LedgerWriteFailures prometheus.Counter     // Records lost after a confirmed issuance

	EventsPublished *prometheus.CounterVec // Claim events by sink result
}

// New registers the collectors with reg, or the default registry when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		IssuanceOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eduhub_issuance_outcomes_total",
			Help: "Issuance requests by mode and outcome",
		}, []string{"mode", "outcome"}),

		IssuerRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eduhub_issuer_request_duration_seconds",
			Help:    "Duration of calls to the credential issuer",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"mode", "result"}),

		IssuerResponses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eduhub_issuer_responses_total",
			Help: "Issuer responses by mode and HTTP status code",
		}, []string{"mode", "code"}),

		IssuerBreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "eduhub_issuer_circuit_state",
			Help: "Issuer circuit breaker state (0 closed, 1 open, 2 half-open)",
		}),

		IssuerBreakerTrips: f.NewCounter(prometheus.CounterOpts{
			Name: "eduhub_issuer_circuit_trips_total",
			Help: "Times the issuer circuit breaker opened",
		}),

		LedgerOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eduhub_ledger_operations_total",
			Help: "Claim ledger operations by operation and result",
		}, []string{"op", "result"}),

		LedgerWriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "eduhub_ledger_write_failures_total",
			Help: "Claims the issuer confirmed but the ledger failed to record",
		}),

		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eduhub_claim_events_total",
			Help: "Claim events by publish result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncIssuanceOutcome(mode, outcome string) {
	if m == nil {
		return
	}
	m.IssuanceOutcomes.WithLabelValues(mode, outcome).Inc()
}

// ObserveIssuerRequest records one issuer round trip. status is 0 when no
// response arrived.
func (m *Metrics) ObserveIssuerRequest(mode string, status int, durationSeconds float64) {
	if m == nil {
		return
	}
	result := "transport_error"
	if status > 0 {
		result = strconv.Itoa(status/100) + "xx"
		m.IssuerResponses.WithLabelValues(mode, strconv.Itoa(status)).Inc()
	}
	m.IssuerRequestDuration.WithLabelValues(mode, result).Observe(durationSeconds)
}

func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.IssuerBreakerState.Set(float64(state))
}

func (m *Metrics) IncBreakerTrip() {
	if m == nil {
		return
	}
	m.IssuerBreakerTrips.Inc()
}

// IncLedgerOp counts a ledger call; err decides the result label.
func (m *Metrics) IncLedgerOp(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.LedgerOperations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) IncLedgerWriteFailure() {
	if m == nil {
		return
	}
	m.LedgerWriteFailures.Inc()
}

func (m *Metrics) IncEventPublished(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(result).Inc()
}
