// Package metrics exposes Prometheus instrumentation for the detection
// engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the arbitrage engine.
type Metrics struct {
	CycleDuration  prometheus.Histogram
	RankedSignals  prometheus.Histogram
	SignalsTotal   *prometheus.CounterVec
	AnalyzerErrors *prometheus.CounterVec
	PlansTotal     *prometheus.CounterVec
	OutcomesTotal  *prometheus.CounterVec
}

// New creates and registers all engine metrics on the default registerer.
func New() *Metrics {
	return &Metrics{
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbd_cycle_duration_seconds",
			Help:    "End-to-end duration of one detection cycle",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		RankedSignals: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbd_ranked_signals",
			Help:    "Number of signals surviving scoring per cycle",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		}),
		SignalsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "arbd_signals_total",
			Help: "Raw signals emitted by each analyzer",
		}, []string{"kind"}),
		AnalyzerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "arbd_analyzer_errors_total",
			Help: "Analyzer task failures converted to empty results",
		}, []string{"kind"}),
		PlansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "arbd_plans_total",
			Help: "Execution plans built, by completeness",
		}, []string{"result"}),
		OutcomesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "arbd_outcomes_total",
			Help: "Recorded trade outcomes by strategy kind",
		}, []string{"kind"}),
	}
}

// RecordCycle records one completed detection cycle.
func (m *Metrics) RecordCycle(elapsed time.Duration, ranked int) {
	m.CycleDuration.Observe(elapsed.Seconds())
	m.RankedSignals.Observe(float64(ranked))
}

// RecordSignals adds the raw signal count for one analyzer kind.
func (m *Metrics) RecordSignals(kind string, n int) {
	m.SignalsTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordAnalyzerError counts one converted analyzer failure.
func (m *Metrics) RecordAnalyzerError(kind string) {
	m.AnalyzerErrors.WithLabelValues(kind).Inc()
}

// RecordPlan counts one built plan.
func (m *Metrics) RecordPlan(partial bool) {
	result := "complete"
	if partial {
		result = "partial"
	}
	m.PlansTotal.WithLabelValues(result).Inc()
}

// RecordOutcome counts one recorded trade outcome.
func (m *Metrics) RecordOutcome(kind string) {
	m.OutcomesTotal.WithLabelValues(kind).Inc()
}
