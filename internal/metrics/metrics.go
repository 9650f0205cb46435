// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Label keys for metrics.
const (
	Operation = "operation"
	Outcome   = "outcome"
	Check     = "check"
	Result    = "result"
	Stage     = "stage"
)

const namespace = "chop_harness"

// Recorder encapsulates the Prometheus collectors of the harness.
type Recorder struct {
	waitAttempts  *prometheus.CounterVec
	waitOutcomes  *prometheus.CounterVec
	waitDuration  *prometheus.HistogramVec
	checkResults  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder and registers its collectors in registerer.
func NewRecorder(registerer prometheus.Registerer) *Recorder {
	r := &Recorder{
		waitAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wait_attempts_total",
				Help:      "Probes issued while waiting for a condition",
			},
			[]string{Operation},
		),
		waitOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wait_outcomes_total",
				Help:      "Finished waits by outcome",
			},
			[]string{Operation, Outcome},
		),
		waitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "wait_duration_seconds",
				Help:      "Time spent waiting for a condition",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{Operation},
		),
		checkResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "check_results_total",
				Help:      "Evaluated checks by kind and result",
			},
			[]string{Check, Result},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of convergence driver stages",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{Stage, Outcome},
		),
	}

	registerer.MustRegister(r.waitAttempts, r.waitOutcomes, r.waitDuration, r.checkResults, r.stageDuration)
	return r
}

var (
	defaultRecorder *Recorder
	defaultOnce     sync.Once
)

// Default returns the Recorder registered in the controller-runtime metrics registry.
func Default() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewRecorder(metrics.Registry)
	})
	return defaultRecorder
}

// ObserveWait records a finished wait. A nil Recorder records nothing.
func (r *Recorder) ObserveWait(operation, outcome string, attempts int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.waitAttempts.WithLabelValues(operation).Add(float64(attempts))
	r.waitOutcomes.WithLabelValues(operation, outcome).Inc()
	r.waitDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveCheck records the result of one evaluated check.
func (r *Recorder) ObserveCheck(check string, passed bool) {
	if r == nil {
		return
	}
	result := "failed"
	if passed {
		result = "passed"
	}
	r.checkResults.WithLabelValues(check, result).Inc()
}

// ObserveStage records how long a driver stage took and how it ended.
func (r *Recorder) ObserveStage(stage, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
}
