// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abirdcfly/clickhouse-operator/internal/check"
	"github.com/Abirdcfly/clickhouse-operator/internal/kubernetes"
	"github.com/Abirdcfly/clickhouse-operator/internal/wait"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Stage is one step of CreateAndCheck.
type Stage string

const (
	StagePrepare        Stage = "prepare"
	StageApplyTemplates Stage = "apply_templates"
	StageApply          Stage = "apply"
	StageConverge       Stage = "converge"
	StageVerify         Stage = "verify"
	StageDelete         Stage = "delete"
)

// State is where a run of CreateAndCheck is, or how it ended.
type State string

const (
	StatePending   State = "Pending"
	StateApplied   State = "Applied"
	StateConverged State = "Converged"
	StateVerified  State = "Verified"
	StateDeleted   State = "Deleted"

	StateTimedOutFailure State = "TimedOutFailure"
	StateCheckFailure    State = "CheckFailure"
	StateConflictFailure State = "ConflictFailure"
	// StateFailed covers everything else: unreadable fixtures, invalid specs and API errors.
	StateFailed State = "Failed"
)

// Failed reports whether the state is a failure state.
func (s State) Failed() bool {
	switch s {
	case StateTimedOutFailure, StateCheckFailure, StateConflictFailure, StateFailed:
		return true
	}
	return false
}

// StageError is the error CreateAndCheck returns. It names the stage that failed.
type StageError struct {
	Stage Stage
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.State, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// failureState classifies the cause of a failed stage.
func failureState(err error) State {
	var checkFailure *check.CheckFailure
	switch {
	case errors.As(err, &checkFailure):
		return StateCheckFailure
	case wait.IsTimedOut(err):
		return StateTimedOutFailure
	case kubernetes.IsConflict(err):
		return StateConflictFailure
	}
	return StateFailed
}

// Verdict is the record of one CreateAndCheck run.
type Verdict struct {
	RunID  string
	Target check.Target
	State  State
	// Status is the last status observed on the installation.
	Status    string
	Report    *check.Report
	Durations map[Stage]time.Duration
	Started   time.Time
}

// Passed reports whether the run verified the installation.
func (v *Verdict) Passed() bool {
	return v.State == StateVerified || v.State == StateDeleted
}

// run executes one stage in its own span and records how long it took. On success the
// verdict moves to next.
func (d *Driver) run(ctx context.Context, verdict *Verdict, stage Stage, next State, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "driver."+string(stage), trace.WithAttributes(
		attribute.String("driver.run_id", verdict.RunID),
		attribute.String("driver.stage", string(stage)),
		attribute.String("chi.namespace", verdict.Target.Namespace),
		attribute.String("chi.name", verdict.Target.Name),
	))
	defer span.End()
	logger := log.FromContext(ctx).WithValues("stage", stage)
	ctx = log.IntoContext(ctx, logger)

	logger.V(1).Info("Stage started")
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	verdict.Durations[stage] = elapsed

	if err != nil {
		state := failureState(err)
		verdict.State = state
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("driver.state", string(state)))
		d.recorder.ObserveStage(string(stage), string(state), elapsed)
		logger.Error(err, "Stage failed", "state", state, "elapsed", elapsed)
		return &StageError{Stage: stage, State: state, Err: err}
	}
	verdict.State = next
	span.SetAttributes(attribute.String("driver.state", string(next)))
	d.recorder.ObserveStage(string(stage), "succeeded", elapsed)
	logger.Info("Stage finished", "state", next, "elapsed", elapsed)
	return nil
}
