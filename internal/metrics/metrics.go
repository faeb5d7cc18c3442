// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every metric the engine emits. A nil *Registry is valid
// and records nothing, so wiring metrics stays optional.
type Registry struct {
	AnalysisDuration  *prometheus.HistogramVec
	AnalysesTotal     *prometheus.CounterVec
	IndicatorFailures *prometheus.CounterVec
	GateTriggers      *prometheus.CounterVec
	CacheEvents       *prometheus.CounterVec
}

// NewRegistry creates the engine metric set.
func NewRegistry() *Registry {
	return &Registry{
		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conviction_analysis_duration_seconds",
				Help:    "Duration of one analyze call",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"result"},
		),
		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conviction_analyses_total",
				Help: "Completed analyses by emitted signal",
			},
			[]string{"signal"},
		),
		IndicatorFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conviction_indicator_failures_total",
				Help: "Indicator computations recorded as FAILED",
			},
			[]string{"indicator"},
		),
		GateTriggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conviction_gate_triggers_total",
				Help: "Gate trigger counts by gate name and kind",
			},
			[]string{"gate", "kind"},
		),
		CacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conviction_series_cache_events_total",
				Help: "Series cache lookups by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Register registers every metric with the given registerer.
func (r *Registry) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		r.AnalysisDuration, r.AnalysesTotal, r.IndicatorFailures, r.GateTriggers, r.CacheEvents,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveAnalysis records one completed analyze call.
func (r *Registry) ObserveAnalysis(signal string, d time.Duration) {
	if r == nil {
		return
	}
	r.AnalysisDuration.WithLabelValues("ok").Observe(d.Seconds())
	r.AnalysesTotal.WithLabelValues(signal).Inc()
}

// RecordIndicatorFailure counts one FAILED indicator computation.
func (r *Registry) RecordIndicatorFailure(indicator string) {
	if r == nil {
		return
	}
	r.IndicatorFailures.WithLabelValues(indicator).Inc()
}

// RecordGateTrigger counts one triggered gate.
func (r *Registry) RecordGateTrigger(gate, kind string) {
	if r == nil {
		return
	}
	r.GateTriggers.WithLabelValues(gate, kind).Inc()
}

// RecordCacheEvent counts one series cache lookup outcome ("hit" or "miss").
func (r *Registry) RecordCacheEvent(outcome string) {
	if r == nil {
		return
	}
	r.CacheEvents.WithLabelValues(outcome).Inc()
}
