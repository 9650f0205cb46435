// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

// Package driver applies an installation, waits for the operator to converge it, verifies the
// result and cleans up.
package driver

import (
	"context"
	"fmt"
	"time"

	chiv1 "github.com/Abirdcfly/clickhouse-operator/api/v1"
	"github.com/Abirdcfly/clickhouse-operator/internal/check"
	"github.com/Abirdcfly/clickhouse-operator/internal/config"
	"github.com/Abirdcfly/clickhouse-operator/internal/kubernetes"
	"github.com/Abirdcfly/clickhouse-operator/internal/manifest"
	"github.com/Abirdcfly/clickhouse-operator/internal/metrics"
	"github.com/Abirdcfly/clickhouse-operator/internal/wait"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	chiKind    = "chi"
	statusPath = ".status.status"
)

var tracer = otel.Tracer("github.com/Abirdcfly/clickhouse-operator/internal/driver")

// Options bound the waits of the driver.
type Options struct {
	StatusTimeout    time.Duration
	StatusBackoff    time.Duration
	CheckTimeout     time.Duration
	PollInterval     time.Duration
	DeleteTimeout    time.Duration
	TransientRetries int
	TransientBackoff time.Duration
}

// OptionsFrom returns the driver options for the configured timeouts.
func OptionsFrom(cfg config.TimeoutsConfig) Options {
	return Options{
		StatusTimeout:    cfg.Status,
		StatusBackoff:    cfg.StatusBackoff,
		CheckTimeout:     cfg.Checks,
		PollInterval:     cfg.PollInterval,
		DeleteTimeout:    cfg.Delete,
		TransientRetries: cfg.TransientRetries,
		TransientBackoff: cfg.TransientBackoff,
	}
}

// Request is one installation to converge and verify.
type Request struct {
	// Manifest is the fixture path of the installation, relative to the fixtures root.
	Manifest string
	Spec     check.Spec
	// Timeout overrides the status timeout of the driver when set.
	Timeout     time.Duration
	DoNotDelete bool
}

// Driver runs installations through apply, convergence, verification and deletion.
type Driver struct {
	reader    *kubernetes.Reader
	lifecycle *kubernetes.Lifecycle
	evaluator *check.Evaluator
	resolver  manifest.Resolver
	namespace string
	opts      Options
	recorder  *metrics.Recorder
}

// New returns a Driver working in namespace with fixtures under resolver.
func New(c client.Client, namespace string, resolver manifest.Resolver, opts Options, recorder *metrics.Recorder) *Driver {
	reader := kubernetes.NewReader(c)
	return &Driver{
		reader:    reader,
		lifecycle: kubernetes.NewLifecycle(c, namespace),
		evaluator: check.NewEvaluator(reader, check.WithTemplateNamer(resolver), check.WithRecorder(recorder)),
		resolver:  resolver,
		namespace: namespace,
		opts:      opts,
		recorder:  recorder,
	}
}

func (d *Driver) Namespace() string {
	return d.namespace
}

func (d *Driver) Reader() *kubernetes.Reader {
	return d.reader
}

func (d *Driver) Lifecycle() *kubernetes.Lifecycle {
	return d.lifecycle
}

// CreateAndCheck applies the installation of req, waits until the operator reports the expected
// status, verifies every check of req.Spec and deletes the installation unless asked not to.
//
// The first failing stage ends the run and nothing is cleaned up. The error is then a
// *StageError and the verdict holds the failure state and, for failed checks, the last report.
func (d *Driver) CreateAndCheck(ctx context.Context, req Request) (*Verdict, error) {
	verdict := &Verdict{
		RunID:     uuid.NewString(),
		State:     StatePending,
		Durations: map[Stage]time.Duration{},
		Started:   time.Now(),
	}
	ctx, span := tracer.Start(ctx, "driver.CreateAndCheck")
	defer span.End()
	logger := log.FromContext(ctx).WithValues("runID", verdict.RunID, "manifest", req.Manifest)
	ctx = log.IntoContext(ctx, logger)

	var (
		spec      check.Spec
		installed *manifest.Manifest
	)
	err := d.run(ctx, verdict, StagePrepare, StatePending, func(ctx context.Context) error {
		spec = req.Spec.Clone()
		if err := spec.Validate(); err != nil {
			return err
		}
		m, err := d.resolver.Load(req.Manifest)
		if err != nil {
			return err
		}
		chi, err := m.Installation()
		if err != nil {
			return err
		}
		installed = m
		verdict.Target = check.Target{Namespace: chi.GetNamespace(), Name: chi.GetName()}
		if verdict.Target.Namespace == "" {
			verdict.Target.Namespace = d.namespace
		}
		return nil
	})
	if err != nil {
		return verdict, err
	}
	target := verdict.Target
	logger = logger.WithValues("chi", target.Name, "namespace", target.Namespace)
	ctx = log.IntoContext(ctx, logger)

	if templates := d.templateFixtures(spec); len(templates) > 0 {
		err = d.run(ctx, verdict, StageApplyTemplates, StatePending, func(ctx context.Context) error {
			for _, path := range templates {
				m, err := d.resolver.Load(path)
				if err != nil {
					return err
				}
				if err := d.lifecycle.Apply(ctx, m.Objects...); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return verdict, err
		}
	}

	err = d.run(ctx, verdict, StageApply, StateApplied, func(ctx context.Context) error {
		return d.lifecycle.Apply(ctx, installed.Objects...)
	})
	if err != nil {
		return verdict, err
	}

	err = d.run(ctx, verdict, StageConverge, StateConverged, func(ctx context.Context) error {
		timeout := d.opts.StatusTimeout
		if req.Timeout > 0 {
			timeout = req.Timeout
		}
		expected := spec.ConvergenceStatus()
		out := d.waitStatus(ctx, target, expected, timeout)
		verdict.Status = out.Value
		if out.State == wait.TimedOut && chiv1.IsTerminalStatus(out.Value) {
			logger.Info("Installation settled at an unexpected status", "status", out.Value, "expected", expected)
			return fmt.Errorf("installation settled at %s: %w", out.Value, out.Error())
		}
		return out.Error()
	})
	if err != nil {
		return verdict, err
	}

	err = d.run(ctx, verdict, StageVerify, StateVerified, func(ctx context.Context) error {
		out := wait.For(ctx, func(ctx context.Context) (*check.Report, error) {
			return d.evaluator.Evaluate(ctx, target, spec)
		}, func(report *check.Report) bool {
			return report.Passed()
		}, wait.Options{
			Description:      "checks of " + target.String(),
			Operation:        "verify",
			Timeout:          d.opts.CheckTimeout,
			Interval:         d.opts.PollInterval,
			TransientRetries: d.opts.TransientRetries,
			TransientBackoff: d.opts.TransientBackoff,
			Recorder:         d.recorder,
		})
		verdict.Report = out.Value
		if out.State == wait.TimedOut && out.Value != nil {
			logger.Info("Checks failed", "report", out.Value.Render())
			return out.Value.Err()
		}
		return out.Error()
	})
	if err != nil {
		return verdict, err
	}

	if bool(spec.DoNotDelete) || req.DoNotDelete {
		logger.Info("Keeping installation", "state", verdict.State)
		return verdict, nil
	}
	err = d.run(ctx, verdict, StageDelete, StateDeleted, func(ctx context.Context) error {
		return d.delete(ctx, target, false)
	})
	if err != nil {
		return verdict, err
	}
	return verdict, nil
}

// templateFixtures returns the apply_templates entries that are fixture files. Entries naming a
// template already in the cluster are only verified.
func (d *Driver) templateFixtures(spec check.Spec) []string {
	var paths []string
	for _, id := range spec.ApplyTemplates {
		if d.resolver.Exists(id) {
			paths = append(paths, id)
		}
	}
	return paths
}

func (d *Driver) waitStatus(ctx context.Context, target check.Target, status string, timeout time.Duration) wait.Outcome[string] {
	return wait.FieldEquals(ctx, d.reader, wait.FieldRequest{
		Kind:             chiKind,
		Name:             target.Name,
		Namespace:        target.Namespace,
		Path:             statusPath,
		Value:            status,
		Retries:          wait.RetriesFor(timeout, d.opts.StatusBackoff),
		Backoff:          d.opts.StatusBackoff,
		TransientRetries: d.opts.TransientRetries,
		TransientBackoff: d.opts.TransientBackoff,
		Recorder:         d.recorder,
	})
}

func (d *Driver) delete(ctx context.Context, target check.Target, retainVolumes bool) error {
	err := d.lifecycle.Delete(ctx, kubernetes.ResourceID{Kind: chiKind, Name: target.Name, Namespace: target.Namespace}, kubernetes.DeleteOptions{
		RetainVolumes: retainVolumes,
		Timeout:       d.opts.DeleteTimeout,
		Interval:      d.opts.PollInterval,
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", target, err)
	}
	return nil
}
