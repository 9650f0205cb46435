// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

// Package wait polls the eventually consistent cluster until a condition holds or a deadline passes.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abirdcfly/clickhouse-operator/internal/kubernetes"
	"github.com/Abirdcfly/clickhouse-operator/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	k8swait "k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	DefaultTimeout          = 5 * time.Minute
	DefaultInterval         = 5 * time.Second
	DefaultTransientRetries = 3
	DefaultTransientBackoff = time.Second
)

var tracer = otel.Tracer("github.com/Abirdcfly/clickhouse-operator/internal/wait")

// State is how a wait ended.
type State int

const (
	Succeeded State = iota
	TimedOut
	Failed
)

func (s State) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case TimedOut:
		return "timed_out"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is the result of a wait. Value holds the last value the probe returned: the converged
// value on success and the last observed one on timeout.
type Outcome[T any] struct {
	State       State
	Value       T
	Observed    bool
	Attempts    int
	Elapsed     time.Duration
	Description string
	Timeout     time.Duration
	// LastErr is the last error that did not end the wait, e.g. the resource not existing yet.
	LastErr error
	Err     error
}

// Error returns nil on success, a *TimedOutError on timeout and the failure cause otherwise.
func (o Outcome[T]) Error() error {
	switch o.State {
	case Succeeded:
		return nil
	case TimedOut:
		last := "<nothing observed>"
		if o.Observed {
			last = fmt.Sprintf("%v", o.Value)
		}
		return &TimedOutError{
			Description: o.Description,
			Timeout:     o.Timeout,
			Attempts:    o.Attempts,
			Last:        last,
			LastErr:     o.LastErr,
		}
	}
	if o.Err == nil {
		return fmt.Errorf("waiting for %s failed", o.Description)
	}
	return fmt.Errorf("waiting for %s: %w", o.Description, o.Err)
}

// TimedOutError is returned when the deadline passed before the condition held.
type TimedOutError struct {
	Description string
	Timeout     time.Duration
	Attempts    int
	Last        string
	LastErr     error
}

func (e *TimedOutError) Error() string {
	msg := fmt.Sprintf("timed out after %s (%d attempts) waiting for %s (last seen %q)", e.Timeout, e.Attempts, e.Description, e.Last)
	if e.LastErr != nil {
		msg += fmt.Sprintf(": last error: %v", e.LastErr)
	}
	return msg
}

func (e *TimedOutError) Unwrap() error {
	return e.LastErr
}

// IsTimedOut reports whether err is, or wraps, a TimedOutError.
func IsTimedOut(err error) bool {
	var timedOut *TimedOutError
	return errors.As(err, &timedOut)
}

// Options tune a wait. Zero values take the package defaults.
type Options struct {
	Description string
	// Operation labels the metrics of the wait; keep it free of resource names.
	Operation string
	Timeout     time.Duration
	Interval    time.Duration
	// TransientRetries is how many times a probe failing with a transient API error is retried
	// inside one tick before the wait fails. Negative disables the retries.
	TransientRetries int
	TransientBackoff time.Duration
	Recorder         *metrics.Recorder
}

func (o Options) withDefaults() Options {
	if o.Description == "" {
		o.Description = "condition"
	}
	if o.Operation == "" {
		o.Operation = "wait"
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.TransientRetries < 0 {
		o.TransientRetries = 0
	} else if o.TransientRetries == 0 {
		o.TransientRetries = DefaultTransientRetries
	}
	if o.TransientBackoff <= 0 {
		o.TransientBackoff = DefaultTransientBackoff
	}
	return o
}

// Probe reads the current value of whatever is being waited on.
type Probe[T any] func(ctx context.Context) (T, error)

// For polls probe every Interval until done returns true or Timeout passes.
//
// A probe failing with kubernetes.ErrNotFound counts as "not yet". A transient API error is retried
// within the tick up to TransientRetries times; if it persists the wait fails with it. Any other
// error fails the wait at once. A timed out wait returns no earlier than Timeout and no later than
// Timeout + Interval + TransientRetries*TransientBackoff.
func For[T any](ctx context.Context, probe Probe[T], done func(T) bool, opts Options) Outcome[T] {
	opts = opts.withDefaults()
	ctx, span := tracer.Start(ctx, "wait.For", traceAttributes(opts)...)
	defer span.End()
	logger := log.FromContext(ctx).WithValues("wait", opts.Description)

	out := Outcome[T]{Description: opts.Description, Timeout: opts.Timeout}
	start := time.Now()
	err := k8swait.PollUntilContextTimeout(ctx, opts.Interval, opts.Timeout, true, func(ctx context.Context) (bool, error) {
		out.Attempts++
		value, err := retryTransient(ctx, probe, opts)
		switch {
		case err == nil:
		case kubernetes.IsNotFound(err):
			out.LastErr = err
			return false, nil
		case ctx.Err() != nil:
			return false, nil
		default:
			return false, err
		}
		out.Value = value
		out.Observed = true
		out.LastErr = nil
		if done(value) {
			return true, nil
		}
		logger.V(1).Info("Condition not met yet", "attempt", out.Attempts, "observed", value)
		return false, nil
	})
	out.Elapsed = time.Since(start)

	switch {
	case err == nil:
		out.State = Succeeded
	case k8swait.Interrupted(err):
		out.State = TimedOut
	default:
		out.State = Failed
		out.Err = err
	}
	finish(span, opts, out.State, out.Attempts, out.Elapsed, out.Error())
	logger.V(1).Info("Wait finished", "outcome", out.State.String(), "attempts", out.Attempts, "elapsed", out.Elapsed)
	return out
}

// retryTransient runs probe, retrying transient API errors with a fixed backoff.
func retryTransient[T any](ctx context.Context, probe Probe[T], opts Options) (T, error) {
	logger := log.FromContext(ctx)
	for try := 0; ; try++ {
		value, err := probe(ctx)
		if err == nil || !kubernetes.IsTransient(err) {
			return value, err
		}
		if try >= opts.TransientRetries {
			return value, fmt.Errorf("still failing after %d retries: %w", opts.TransientRetries, err)
		}
		logger.V(1).Info("Retrying transient API error", "retry", try+1, "error", err.Error())
		select {
		case <-ctx.Done():
			return value, ctx.Err()
		case <-time.After(opts.TransientBackoff):
		}
	}
}

func traceAttributes(opts Options) []trace.SpanStartOption {
	return []trace.SpanStartOption{trace.WithAttributes(
		attribute.String("wait.operation", opts.Operation),
		attribute.String("wait.description", opts.Description),
		attribute.String("wait.timeout", opts.Timeout.String()),
	)}
}

func finish(span trace.Span, opts Options, state State, attempts int, elapsed time.Duration, err error) {
	span.SetAttributes(
		attribute.String("wait.outcome", state.String()),
		attribute.Int("wait.attempts", attempts),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	opts.Recorder.ObserveWait(opts.Operation, state.String(), attempts, elapsed)
}

// Sleep waits d unless ctx ends first. It is the fallback for side effects that expose no
// observable signal, such as a configuration reload inside the server.
func Sleep(ctx context.Context, d time.Duration, reason string) error {
	log.FromContext(ctx).Info("Sleeping", "duration", d, "reason", reason)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
