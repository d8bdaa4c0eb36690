// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quickly_weigh"

// Metrics holds the engine's collectors. A nil *Metrics discards
// everything, so callers never need to check.
type Metrics struct {
	exports        *prometheus.CounterVec
	exportDuration prometheus.Histogram
	weights        *prometheus.CounterVec
	generatorCalls *prometheus.CounterVec
	generatorTime  *prometheus.HistogramVec
	lockWait       prometheus.Histogram
}

// New creates the collectors and registers them with reg
// (prometheus.DefaultRegisterer when nil)
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "runs_total",
			Help:      "Weight exports by outcome (success, failure).",
		}, []string{"outcome"}),
		exportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "Duration of weight exports per subset.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2.5, 10), // 5ms .. ~19s
		}),
		weights: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "weights_total",
			Help:      "Exported weight records by kind (weighted, unweighted, no_lookup).",
		}, []string{"kind"}),
		generatorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "calls_total",
			Help:      "Cell weight generator calls by mode (window, period) and outcome.",
		}, []string{"mode", "outcome"}),
		generatorTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "duration_seconds",
			Help:      "Cell weight generator latency by mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lockqueue",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for weighting group locks.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}

	for _, c := range []prometheus.Collector{m.exports, m.exportDuration, m.weights, m.generatorCalls, m.generatorTime, m.lockWait} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// ObserveExport records one subset export
func (m *Metrics) ObserveExport(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(outcome(err)).Inc()
	m.exportDuration.Observe(d.Seconds())
}

// AddWeights counts exported records of one kind
func (m *Metrics) AddWeights(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.weights.WithLabelValues(kind).Add(float64(n))
}

// ObserveGenerator records one cell weight generator call
func (m *Metrics) ObserveGenerator(mode string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.generatorCalls.WithLabelValues(mode, outcome(err)).Inc()
	m.generatorTime.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveLockWait has the signature lockqueue.WithWaitObserver expects
func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}
