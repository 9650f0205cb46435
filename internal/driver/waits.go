// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	chiv1 "github.com/Abirdcfly/clickhouse-operator/api/v1"
	"github.com/Abirdcfly/clickhouse-operator/internal/check"
	"github.com/Abirdcfly/clickhouse-operator/internal/wait"
)

// WaitStatus waits until the installation chi reports status.
func (d *Driver) WaitStatus(ctx context.Context, chi, status string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = d.opts.StatusTimeout
	}
	return d.waitStatus(ctx, d.target(chi), status, timeout).Error()
}

// WaitObjects waits until the installation chi owns exactly counts objects per kind.
func (d *Driver) WaitObjects(ctx context.Context, chi string, counts map[string]int, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = d.opts.StatusTimeout
	}
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	out := wait.For(ctx, func(ctx context.Context) (objectCounts, error) {
		observed := objectCounts{}
		for _, kind := range kinds {
			n, err := d.reader.Count(ctx, kind, d.namespace, chiv1.Selector(chi))
			if err != nil {
				return nil, err
			}
			observed[kind] = n
		}
		return observed, nil
	}, func(observed objectCounts) bool {
		for kind, n := range counts {
			if observed[kind] != n {
				return false
			}
		}
		return true
	}, wait.Options{
		Description:      fmt.Sprintf("%s objects %s", d.target(chi), objectCounts(counts)),
		Operation:        "objects",
		Timeout:          timeout,
		Interval:         d.opts.PollInterval,
		TransientRetries: d.opts.TransientRetries,
		TransientBackoff: d.opts.TransientBackoff,
		Recorder:         d.recorder,
	})
	return out.Error()
}

// WaitField waits until path of the named resource reads value.
func (d *Driver) WaitField(ctx context.Context, kind, name, path, value string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = d.opts.StatusTimeout
	}
	out := wait.FieldEquals(ctx, d.reader, wait.FieldRequest{
		Kind:             kind,
		Name:             name,
		Namespace:        d.namespace,
		Path:             path,
		Value:            value,
		Retries:          wait.RetriesFor(timeout, d.opts.StatusBackoff),
		Backoff:          d.opts.StatusBackoff,
		TransientRetries: d.opts.TransientRetries,
		TransientBackoff: d.opts.TransientBackoff,
		Recorder:         d.recorder,
	})
	return out.Error()
}

// Delete deletes the installation chi and waits until it and its objects are gone.
func (d *Driver) Delete(ctx context.Context, chi string, retainVolumes bool) error {
	return d.delete(ctx, d.target(chi), retainVolumes)
}

// Evaluate checks the installation chi against spec once.
func (d *Driver) Evaluate(ctx context.Context, chi string, spec check.Spec) (*check.Report, error) {
	return d.evaluator.Evaluate(ctx, d.target(chi), spec)
}

// PodStartTime returns when the pod started.
func (d *Driver) PodStartTime(ctx context.Context, pod string) (time.Time, error) {
	value, err := d.reader.GetField(ctx, "pod", pod, d.namespace, ".status.startTime")
	if err != nil {
		return time.Time{}, err
	}
	started, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("pod %s start time %q: %w", pod, value, err)
	}
	return started, nil
}

func (d *Driver) target(chi string) check.Target {
	return check.Target{Namespace: d.namespace, Name: chi}
}

type objectCounts map[string]int

func (c objectCounts) String() string {
	kinds := make([]string, 0, len(c))
	for kind := range c {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", kind, c[kind]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
