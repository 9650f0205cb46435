// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	chiv1 "github.com/Abirdcfly/clickhouse-operator/api/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/yaml"
)

// Check kinds, named as they are written in expected state files.
const (
	KindObjectCounts    = "object_counts"
	KindPodCount        = "pod_count"
	KindPodImage        = "pod_image"
	KindPodVolumes      = "pod_volumes"
	KindPodPorts        = "pod_ports"
	KindPodAntiAffinity = "pod_podAntiAffinity"
	KindApplyTemplates  = "apply_templates"
	KindService         = "service"
	KindCHIStatus       = "chi_status"
	KindConfigMaps      = "configmaps"
	KindConfigMapKeys   = "configmap_keys"
)

// CountableKinds are the object kinds object_counts may name.
var CountableKinds = sets.New("statefulset", "pod", "service", "configmap", "pvc")

var serviceTypes = sets.New(
	string(corev1.ServiceTypeClusterIP),
	string(corev1.ServiceTypeNodePort),
	string(corev1.ServiceTypeLoadBalancer),
	string(corev1.ServiceTypeExternalName),
)

var statuses = sets.New(
	chiv1.StatusPending,
	chiv1.StatusInProgress,
	chiv1.StatusCompleted,
	chiv1.StatusAborted,
	chiv1.StatusFailed,
)

// Spec is the expected state of an installation. Every field that is set becomes one check.
type Spec struct {
	ObjectCounts    map[string]int      `json:"object_counts,omitempty"`
	PodCount        *int                `json:"pod_count,omitempty"`
	PodImage        string              `json:"pod_image,omitempty"`
	PodVolumes      []string            `json:"pod_volumes,omitempty"`
	PodPorts        []int32             `json:"pod_ports,omitempty"`
	PodAntiAffinity *int                `json:"pod_podAntiAffinity,omitempty"`
	ApplyTemplates  []string            `json:"apply_templates,omitempty"`
	Service         *ServiceRef         `json:"service,omitempty"`
	CHIStatus       string              `json:"chi_status,omitempty"`
	DoNotDelete     Flag                `json:"do_not_delete,omitempty"`
	ConfigMaps      *int                `json:"configmaps,omitempty"`
	ConfigMapKeys   map[string][]string `json:"configmap_keys,omitempty"`
}

// ServiceRef names a service and the type it must have. It is written either as
// [name, type] or as {name: ..., type: ...}.
type ServiceRef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *ServiceRef) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		var pair []string
		if err := json.Unmarshal(data, &pair); err != nil {
			return fmt.Errorf("service: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("service: expected [name, type], got %d elements", len(pair))
		}
		s.Name, s.Type = pair[0], pair[1]
		return nil
	}
	type plain ServiceRef
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	var p plain
	if err := decoder.Decode(&p); err != nil {
		return fmt.Errorf("service: %w", err)
	}
	*s = ServiceRef(p)
	return nil
}

// Flag is a boolean that also accepts 1 and 0.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		return fmt.Errorf("invalid flag value %s", data)
	}
	return nil
}

// Parse decodes an expected state document. Unknown keys are an error.
func Parse(data []byte) (Spec, error) {
	var spec Spec
	if err := yaml.UnmarshalStrict(data, &spec); err != nil {
		return Spec{}, fmt.Errorf("decode expected state: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Load reads and parses an expected state file.
func Load(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("read expected state: %w", err)
	}
	spec, err := Parse(data)
	if err != nil {
		return Spec{}, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// Validate rejects values no installation could ever match.
func (s Spec) Validate() error {
	var problems []string
	for kind, n := range s.ObjectCounts {
		if !CountableKinds.Has(kind) {
			problems = append(problems, fmt.Sprintf("%s: unknown kind %q, expected one of %v", KindObjectCounts, kind, sets.List(CountableKinds)))
		}
		if n < 0 {
			problems = append(problems, fmt.Sprintf("%s: negative count for %s", KindObjectCounts, kind))
		}
	}
	for kind, n := range map[string]*int{KindPodCount: s.PodCount, KindPodAntiAffinity: s.PodAntiAffinity, KindConfigMaps: s.ConfigMaps} {
		if n != nil && *n < 0 {
			problems = append(problems, fmt.Sprintf("%s: negative value %d", kind, *n))
		}
	}
	for _, port := range s.PodPorts {
		if port < 1 || port > 65535 {
			problems = append(problems, fmt.Sprintf("%s: invalid port %d", KindPodPorts, port))
		}
	}
	for _, path := range s.PodVolumes {
		if !strings.HasPrefix(path, "/") {
			problems = append(problems, fmt.Sprintf("%s: mount path %q is not absolute", KindPodVolumes, path))
		}
	}
	if s.Service != nil {
		if s.Service.Name == "" {
			problems = append(problems, fmt.Sprintf("%s: empty name", KindService))
		}
		if !serviceTypes.Has(s.Service.Type) {
			problems = append(problems, fmt.Sprintf("%s: unknown type %q", KindService, s.Service.Type))
		}
	}
	if s.CHIStatus != "" && !statuses.Has(s.CHIStatus) {
		problems = append(problems, fmt.Sprintf("%s: unknown status %q", KindCHIStatus, s.CHIStatus))
	}
	for _, id := range s.ApplyTemplates {
		if id == "" {
			problems = append(problems, fmt.Sprintf("%s: empty template", KindApplyTemplates))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid expected state: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ConvergenceStatus is the status the installation has to reach before its checks are evaluated.
func (s Spec) ConvergenceStatus() string {
	if s.CHIStatus != "" {
		return s.CHIStatus
	}
	return chiv1.StatusCompleted
}

// Clone returns a deep copy of the spec.
func (s Spec) Clone() Spec {
	out := s
	if s.ObjectCounts != nil {
		out.ObjectCounts = make(map[string]int, len(s.ObjectCounts))
		for k, v := range s.ObjectCounts {
			out.ObjectCounts[k] = v
		}
	}
	out.PodCount = cloneInt(s.PodCount)
	out.PodAntiAffinity = cloneInt(s.PodAntiAffinity)
	out.ConfigMaps = cloneInt(s.ConfigMaps)
	out.PodVolumes = cloneSlice(s.PodVolumes)
	out.PodPorts = cloneSlice(s.PodPorts)
	out.ApplyTemplates = cloneSlice(s.ApplyTemplates)
	if s.Service != nil {
		svc := *s.Service
		out.Service = &svc
	}
	if s.ConfigMapKeys != nil {
		out.ConfigMapKeys = make(map[string][]string, len(s.ConfigMapKeys))
		for k, v := range s.ConfigMapKeys {
			out.ConfigMapKeys[k] = cloneSlice(v)
		}
	}
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

// Checks returns one Check per kind set in the spec. pod_count n stands for n statefulsets,
// n pods and n+1 services (one per host plus the installation service). It is checked on its own
// even when object_counts is set too.
func (s Spec) Checks() []Check {
	var checks []Check
	if s.ObjectCounts != nil {
		checks = append(checks, ObjectCountsCheck{Key: KindObjectCounts, Counts: s.ObjectCounts})
	}
	if s.PodCount != nil {
		n := *s.PodCount
		checks = append(checks, ObjectCountsCheck{Key: KindPodCount, Counts: map[string]int{"statefulset": n, "pod": n, "service": n + 1}})
	}
	if s.PodImage != "" {
		checks = append(checks, PodImageCheck{Image: s.PodImage})
	}
	if s.PodVolumes != nil {
		checks = append(checks, PodVolumesCheck{MountPaths: s.PodVolumes})
	}
	if s.PodPorts != nil {
		checks = append(checks, PodPortsCheck{Ports: s.PodPorts})
	}
	if s.PodAntiAffinity != nil {
		checks = append(checks, PodAntiAffinityCheck{Rules: *s.PodAntiAffinity})
	}
	if s.ApplyTemplates != nil {
		checks = append(checks, TemplatesCheck{Templates: s.ApplyTemplates})
	}
	if s.Service != nil {
		checks = append(checks, ServiceCheck{Service: *s.Service})
	}
	if s.CHIStatus != "" {
		checks = append(checks, StatusCheck{Status: s.CHIStatus})
	}
	if s.ConfigMaps != nil {
		checks = append(checks, ConfigMapsCheck{Count: *s.ConfigMaps})
	}
	if s.ConfigMapKeys != nil {
		checks = append(checks, ConfigMapKeysCheck{Keys: s.ConfigMapKeys})
	}
	return checks
}

// Check is one expectation about an installation. The set of implementations is closed.
type Check interface {
	Kind() string
	isCheck()
}

type ObjectCountsCheck struct {
	// Key is the spec key the counts came from.
	Key    string
	Counts map[string]int
}

type PodImageCheck struct{ Image string }

type PodVolumesCheck struct{ MountPaths []string }

type PodPortsCheck struct{ Ports []int32 }

type PodAntiAffinityCheck struct{ Rules int }

type TemplatesCheck struct{ Templates []string }

type ServiceCheck struct{ Service ServiceRef }

type StatusCheck struct{ Status string }

type ConfigMapsCheck struct{ Count int }

type ConfigMapKeysCheck struct{ Keys map[string][]string }

func (c ObjectCountsCheck) Kind() string { return c.Key }
func (PodImageCheck) Kind() string { return KindPodImage }
func (PodVolumesCheck) Kind() string { return KindPodVolumes }
func (PodPortsCheck) Kind() string { return KindPodPorts }
func (PodAntiAffinityCheck) Kind() string { return KindPodAntiAffinity }
func (TemplatesCheck) Kind() string { return KindApplyTemplates }
func (ServiceCheck) Kind() string { return KindService }
func (StatusCheck) Kind() string { return KindCHIStatus }
func (ConfigMapsCheck) Kind() string { return KindConfigMaps }
func (ConfigMapKeysCheck) Kind() string { return KindConfigMapKeys }
func (ObjectCountsCheck) isCheck() {}
func (PodImageCheck) isCheck() {}
func (PodVolumesCheck) isCheck() {}
func (PodPortsCheck) isCheck() {}
func (PodAntiAffinityCheck) isCheck() {}
func (TemplatesCheck) isCheck() {}
func (ServiceCheck) isCheck() {}
func (StatusCheck) isCheck() {}
func (ConfigMapsCheck) isCheck() {}
func (ConfigMapKeysCheck) isCheck() {}
