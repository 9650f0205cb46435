// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	registry := prometheus.NewRegistry()
	r := NewRecorder(registry)

	r.ObserveWait("chi status", "succeeded", 3, 2*time.Second)
	r.ObserveWait("chi status", "timed_out", 5, 10*time.Second)
	r.ObserveCheck("pod_image", true)
	r.ObserveCheck("pod_image", false)
	r.ObserveCheck("pod_image", false)
	r.ObserveStage("verify", "passed", time.Second)

	assert.Equal(t, float64(8), testutil.ToFloat64(r.waitAttempts.WithLabelValues("chi status")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.waitOutcomes.WithLabelValues("chi status", "timed_out")))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.checkResults.WithLabelValues("pod_image", "failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.checkResults))
	assert.Equal(t, 1, testutil.CollectAndCount(r.stageDuration))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveWait("x", "succeeded", 1, time.Second)
		r.ObserveCheck("x", true)
		r.ObserveStage("x", "passed", time.Second)
	})
}
