// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Abirdcfly/clickhouse-operator/internal/metrics"
	"github.com/google/go-cmp/cmp"
	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const absent = "<absent>"

// TemplateNamer maps a template identifier as written in apply_templates to the name the
// operator records for it.
type TemplateNamer interface {
	TemplateName(id string) (string, error)
}

// TemplateNamerFunc adapts a function to TemplateNamer.
type TemplateNamerFunc func(id string) (string, error)

func (f TemplateNamerFunc) TemplateName(id string) (string, error) {
	return f(id)
}

var identityNamer = TemplateNamerFunc(func(id string) (string, error) { return id, nil })

// Evaluator compares the observed state of an installation with a Spec.
type Evaluator struct {
	reader   StateReader
	namer    TemplateNamer
	recorder *metrics.Recorder
}

type Option func(*Evaluator)

// WithTemplateNamer sets how apply_templates identifiers are turned into template names.
func WithTemplateNamer(namer TemplateNamer) Option {
	return func(e *Evaluator) { e.namer = namer }
}

func WithRecorder(recorder *metrics.Recorder) Option {
	return func(e *Evaluator) { e.recorder = recorder }
}

func NewEvaluator(reader StateReader, opts ...Option) *Evaluator {
	e := &Evaluator{reader: reader, namer: identityNamer}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate reads a fresh snapshot of target and evaluates every check of spec against it.
// All checks are evaluated even when some fail. An error means the snapshot could not be read.
func (e *Evaluator) Evaluate(ctx context.Context, target Target, spec Spec) (*Report, error) {
	checks := spec.Checks()
	observed, err := Observe(ctx, e.reader, target, checks)
	if err != nil {
		return nil, fmt.Errorf("observe %s: %w", target, err)
	}

	report := &Report{Target: target, ObservedAt: time.Now()}
	for _, c := range checks {
		result := e.evaluate(c, observed)
		e.recorder.ObserveCheck(result.Kind, result.Passed)
		report.Results = append(report.Results, result)
	}
	log.FromContext(ctx).V(1).Info("Evaluated checks", "target", target.String(), "passed", report.Passed(), "failed", report.FailedKinds())
	return report, nil
}

func (e *Evaluator) evaluate(c Check, observed *ObservedState) Result {
	switch c := c.(type) {
	case ObjectCountsCheck:
		return evaluateCounts(c, observed)
	case PodImageCheck:
		return evaluatePerPod(c.Kind(), c.Image, observed, func(p PodState) interface{} { return p.Image })
	case PodVolumesCheck:
		return evaluateVolumes(c, observed)
	case PodPortsCheck:
		want := normalizePorts(c.Ports)
		return evaluatePerPod(c.Kind(), want, observed, func(p PodState) interface{} { return normalizePorts(p.Ports) })
	case PodAntiAffinityCheck:
		return evaluatePerPod(c.Kind(), c.Rules, observed, func(p PodState) interface{} { return p.AntiAffinityRules })
	case TemplatesCheck:
		return e.evaluateTemplates(c, observed)
	case ServiceCheck:
		return evaluateService(c, observed)
	case StatusCheck:
		return evaluateStatus(c, observed)
	case ConfigMapsCheck:
		got := observed.Counts["configmap"]
		return compare(c.Kind(), c.Count, got)
	case ConfigMapKeysCheck:
		return evaluateConfigMapKeys(c, observed)
	}
	return Result{Kind: c.Kind(), Message: fmt.Sprintf("unsupported check %T", c)}
}

func compare(kind string, expected, observed interface{}) Result {
	r := Result{Kind: kind, Expected: expected, Observed: observed, Passed: cmp.Equal(expected, observed)}
	if !r.Passed {
		r.Diff = cmp.Diff(expected, observed, wholeValues)
	}
	return r
}

// Absent kinds count as zero; kinds not listed are not compared.
func evaluateCounts(c ObjectCountsCheck, observed *ObservedState) Result {
	got := make(map[string]int, len(c.Counts))
	for kind := range c.Counts {
		got[kind] = observed.Counts[kind]
	}
	r := compare(c.Kind(), c.Counts, got)
	if !r.Passed {
		var off []string
		for _, kind := range sets.List(sets.KeySet(c.Counts)) {
			if got[kind] != c.Counts[kind] {
				off = append(off, fmt.Sprintf("%s %d/%d", kind, got[kind], c.Counts[kind]))
			}
		}
		r.Message = "counts differ: " + strings.Join(off, ", ")
	}
	return r
}

// wholeValues keeps cmp from diffing strings character by character.
var wholeValues = cmp.Comparer(func(x, y string) bool { return x == y })

// evaluatePerPod holds when every pod has the expected value. The expected and observed sides
// are keyed by pod so that the diff points at the pods that differ.
func evaluatePerPod(kind string, want interface{}, observed *ObservedState, get func(PodState) interface{}) Result {
	if len(observed.Pods) == 0 {
		return Result{Kind: kind, Expected: want, Observed: absent, Message: "no pods found"}
	}
	got := map[string]interface{}{}
	expectedText := map[string]string{}
	gotText := map[string]string{}
	var bad []string
	for _, p := range observed.Pods {
		got[p.Name] = get(p)
		expectedText[p.Name] = fmt.Sprint(want)
		gotText[p.Name] = fmt.Sprint(got[p.Name])
		if !cmp.Equal(want, got[p.Name]) {
			bad = append(bad, p.Name)
		}
	}
	r := Result{Kind: kind, Expected: want, Observed: got, Passed: len(bad) == 0}
	if !r.Passed {
		r.Diff = cmp.Diff(expectedText, gotText, wholeValues)
		r.Message = fmt.Sprintf("%d of %d pods differ: %s", len(bad), len(observed.Pods), strings.Join(bad, ", "))
	}
	return r
}

// Volumes hold when every pod mounts at least the expected paths.
func evaluateVolumes(c PodVolumesCheck, observed *ObservedState) Result {
	if len(observed.Pods) == 0 {
		return Result{Kind: c.Kind(), Expected: c.MountPaths, Observed: absent, Message: "no pods found"}
	}
	want := sets.New(c.MountPaths...)
	missing := map[string][]string{}
	got := map[string][]string{}
	for _, p := range observed.Pods {
		mounts := sets.New(p.MountPaths...)
		got[p.Name] = sets.List(mounts)
		if diff := want.Difference(mounts); diff.Len() > 0 {
			missing[p.Name] = sets.List(diff)
		}
	}
	r := Result{Kind: c.Kind(), Expected: sets.List(want), Observed: got, Passed: len(missing) == 0}
	if !r.Passed {
		r.Diff = cmp.Diff(map[string][]string{}, missing, wholeValues)
		var parts []string
		for _, pod := range sets.List(sets.KeySet(missing)) {
			parts = append(parts, fmt.Sprintf("%s misses %s", pod, strings.Join(missing[pod], ", ")))
		}
		r.Message = strings.Join(parts, "; ")
	}
	return r
}

func (e *Evaluator) evaluateTemplates(c TemplatesCheck, observed *ObservedState) Result {
	want := make([]string, 0, len(c.Templates))
	for _, id := range c.Templates {
		name, err := e.namer.TemplateName(id)
		if err != nil {
			return Result{Kind: c.Kind(), Expected: c.Templates, Observed: observed.UsedTemplates, Message: fmt.Sprintf("resolve template %q: %v", id, err)}
		}
		want = append(want, name)
	}
	sort.Strings(want)
	if !observed.CHIFound {
		return Result{Kind: c.Kind(), Expected: want, Observed: absent, Message: "installation not found"}
	}
	missing := sets.List(sets.New(want...).Difference(sets.New(observed.UsedTemplates...)))
	r := Result{Kind: c.Kind(), Expected: want, Observed: observed.UsedTemplates, Passed: len(missing) == 0}
	if !r.Passed {
		r.Diff = cmp.Diff([]string{}, missing, wholeValues)
		r.Message = "templates not applied: " + strings.Join(missing, ", ")
	}
	return r
}

func evaluateService(c ServiceCheck, observed *ObservedState) Result {
	svc := observed.Services[c.Service.Name]
	if svc == nil {
		return Result{Kind: c.Kind(), Expected: c.Service, Observed: absent, Message: fmt.Sprintf("service %s not found", c.Service.Name)}
	}
	r := compare(c.Kind(), c.Service, ServiceRef{Name: svc.Name, Type: svc.Type})
	if !r.Passed {
		r.Message = fmt.Sprintf("service %s has type %s", svc.Name, svc.Type)
	}
	return r
}

func evaluateStatus(c StatusCheck, observed *ObservedState) Result {
	if !observed.CHIFound {
		return Result{Kind: c.Kind(), Expected: c.Status, Observed: absent, Message: "installation not found"}
	}
	return compare(c.Kind(), c.Status, observed.Status)
}

func evaluateConfigMapKeys(c ConfigMapKeysCheck, observed *ObservedState) Result {
	missing := map[string][]string{}
	for _, name := range sets.List(sets.KeySet(c.Keys)) {
		keys, found := observed.ConfigMapKeys[name]
		if !found || keys == nil {
			missing[name] = []string{absent}
			continue
		}
		if diff := sets.New(c.Keys[name]...).Difference(sets.New(keys...)); diff.Len() > 0 {
			missing[name] = sets.List(diff)
		}
	}
	r := Result{Kind: c.Kind(), Expected: c.Keys, Observed: observed.ConfigMapKeys, Passed: len(missing) == 0}
	if !r.Passed {
		r.Diff = cmp.Diff(map[string][]string{}, missing, wholeValues)
		r.Message = fmt.Sprintf("%d config maps miss generated files", len(missing))
	}
	return r
}

func normalizePorts(ports []int32) []int32 {
	out := sets.List(sets.New(ports...))
	if out == nil {
		out = []int32{}
	}
	return out
}
