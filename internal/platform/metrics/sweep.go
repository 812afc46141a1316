// Package metrics holds the prometheus instruments for sweeps and set truncation
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "asdelete"

// Outcome labels for ActionsTotal
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeNotFound = "not_found"
	OutcomeDryRun   = "dry_run"
)

// SweepMetrics tracks scan and action progress of a sweep
// a nil *SweepMetrics is valid and records nothing
type SweepMetrics struct {
	Observed   prometheus.Counter
	Candidates prometheus.Counter
	Skipped    prometheus.Counter

	// Actions counts per-record mutations by strategy and outcome
	Actions *prometheus.CounterVec

	// ActionSeconds is the latency of a single delete or rewrite
	ActionSeconds *prometheus.HistogramVec

	// Rate is the deletion rate of the last progress window
	Rate prometheus.Gauge

	// State is 0 idle, 1 scanning, 2 done, 3 failed
	State prometheus.Gauge

	// Truncations counts set truncations by outcome
	Truncations *prometheus.CounterVec
}

// NewSweepMetrics registers the sweep instruments with the default registry
func NewSweepMetrics() *SweepMetrics {
	return NewSweepMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewSweepMetricsWithRegistry registers the sweep instruments with reg
func NewSweepMetricsWithRegistry(reg prometheus.Registerer) *SweepMetrics {
	f := promauto.With(reg)
	return &SweepMetrics{
		Observed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sweep", Name: "records_observed_total",
			Help: "Records delivered by the scan, before any filtering.",
		}),
		Candidates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sweep", Name: "candidates_total",
			Help: "Records whose expiration matched the threshold or range.",
		}),
		Skipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sweep", Name: "records_skipped_total",
			Help: "Records skipped because their set did not match the filter.",
		}),
		Actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sweep", Name: "actions_total",
			Help: "Record mutations by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		ActionSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "sweep", Name: "action_duration_seconds",
			Help:    "Latency of a single record mutation.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"strategy"}),
		Rate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "sweep", Name: "deletes_per_second",
			Help: "Deletion rate over the last progress window.",
		}),
		State: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "sweep", Name: "state",
			Help: "Sweep state: 0 idle, 1 scanning, 2 done, 3 failed.",
		}),
		Truncations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sets", Name: "truncations_total",
			Help: "Set truncations by outcome.",
		}, []string{"outcome"}),
	}
}

// RecordObserved bumps the observed counter
func (m *SweepMetrics) RecordObserved() {
	if m != nil {
		m.Observed.Inc()
	}
}

// RecordCandidate bumps the candidate counter
func (m *SweepMetrics) RecordCandidate() {
	if m != nil {
		m.Candidates.Inc()
	}
}

// RecordSkipped bumps the skipped counter
func (m *SweepMetrics) RecordSkipped() {
	if m != nil {
		m.Skipped.Inc()
	}
}

// RecordAction records one mutation outcome and its latency in seconds
func (m *SweepMetrics) RecordAction(strategy, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Actions.WithLabelValues(strategy, outcome).Inc()
	m.ActionSeconds.WithLabelValues(strategy).Observe(seconds)
}

// RecordRate sets the deletion rate gauge
func (m *SweepMetrics) RecordRate(perSecond int64) {
	if m != nil {
		m.Rate.Set(float64(perSecond))
	}
}

// RecordState sets the state gauge
func (m *SweepMetrics) RecordState(state int) {
	if m != nil {
		m.State.Set(float64(state))
	}
}

// RecordTruncation counts one truncate attempt
func (m *SweepMetrics) RecordTruncation(outcome string) {
	if m != nil {
		m.Truncations.WithLabelValues(outcome).Inc()
	}
}

// Handler serves g in the prometheus exposition format; nil means the default gatherer
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
