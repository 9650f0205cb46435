// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package wait

import (
	"context"
	"fmt"
	"time"

	"github.com/Abirdcfly/clickhouse-operator/internal/kubernetes"
	"github.com/Abirdcfly/clickhouse-operator/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	DefaultFieldRetries = 6
	DefaultFieldBackoff = 5 * time.Second
)

// FieldReader reads one field of one resource.
type FieldReader interface {
	GetField(ctx context.Context, kind, name, namespace, path string) (string, error)
}

// FieldRequest describes a wait for a field to reach a value.
type FieldRequest struct {
	Kind      string
	Name      string
	Namespace string
	Path      string
	Value     string

	// Retries is the number of reads. Read i is followed by a pause of i*Backoff.
	Retries int
	Backoff time.Duration

	TransientRetries int
	TransientBackoff time.Duration
	Recorder         *metrics.Recorder
}

func (r FieldRequest) String() string {
	return fmt.Sprintf("%s %s/%s %s == %q", r.Kind, r.Namespace, r.Name, r.Path, r.Value)
}

// Total is the total pause time of the request.
func (r FieldRequest) Total() time.Duration {
	return r.Backoff * time.Duration(r.Retries*(r.Retries-1)/2)
}

// FieldEquals reads the field until it equals the expected value, pausing linearly longer between
// reads. A missing field or resource counts as "not yet".
func FieldEquals(ctx context.Context, reader FieldReader, req FieldRequest) Outcome[string] {
	if req.Retries <= 0 {
		req.Retries = DefaultFieldRetries
	}
	if req.Backoff <= 0 {
		req.Backoff = DefaultFieldBackoff
	}
	opts := Options{
		Description:      req.String(),
		Operation:        "field " + req.Path,
		TransientRetries: req.TransientRetries,
		TransientBackoff: req.TransientBackoff,
		Recorder:         req.Recorder,
	}.withDefaults()
	opts.Timeout = req.Total()

	ctx, span := tracer.Start(ctx, "wait.FieldEquals", trace.WithAttributes(
		attribute.String("wait.kind", req.Kind),
		attribute.String("wait.name", req.Name),
		attribute.String("wait.path", req.Path),
		attribute.String("wait.expected", req.Value),
	))
	defer span.End()
	logger := log.FromContext(ctx).WithValues("resource", req.Kind+"/"+req.Name, "path", req.Path)

	probe := func(ctx context.Context) (string, error) {
		return reader.GetField(ctx, req.Kind, req.Name, req.Namespace, req.Path)
	}
	out := Outcome[string]{Description: opts.Description, Timeout: opts.Timeout, State: TimedOut}
	start := time.Now()

loop:
	for i := 1; i <= req.Retries; i++ {
		out.Attempts++
		value, err := retryTransient(ctx, probe, opts)
		switch {
		case err == nil:
			out.Value = value
			out.Observed = true
			out.LastErr = nil
			if value == req.Value {
				out.State = Succeeded
				break loop
			}
		case kubernetes.IsNotFound(err):
			out.LastErr = err
		case ctx.Err() != nil:
			break loop
		default:
			out.State = Failed
			out.Err = err
			break loop
		}
		if i == req.Retries {
			break
		}
		pause := time.Duration(i) * req.Backoff
		logger.V(1).Info("Field does not match yet", "attempt", i, "observed", out.Value, "expected", req.Value, "next", pause)
		select {
		case <-ctx.Done():
			break loop
		case <-time.After(pause):
		}
	}
	out.Elapsed = time.Since(start)

	finish(span, opts, out.State, out.Attempts, out.Elapsed, out.Error())
	return out
}

// RetriesFor returns the smallest number of reads whose linear backoff covers timeout.
func RetriesFor(timeout, backoff time.Duration) int {
	if backoff <= 0 || timeout <= 0 {
		return 1
	}
	n := 1
	for backoff*time.Duration(n*(n-1)/2) < timeout {
		n++
	}
	return n
}
