// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"context"
	"fmt"
	"sort"

	chiv1 "github.com/Abirdcfly/clickhouse-operator/api/v1"
	"github.com/Abirdcfly/clickhouse-operator/internal/kubernetes"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/sets"
)

// StateReader is the read access the evaluator needs.
type StateReader interface {
	Get(ctx context.Context, kind, name, namespace string) (*unstructured.Unstructured, error)
	List(ctx context.Context, kind, namespace, selector string) ([]unstructured.Unstructured, error)
}

// Target is the installation checks are evaluated against.
type Target struct {
	Namespace string
	Name      string
}

func (t Target) String() string {
	return "chi " + t.Namespace + "/" + t.Name
}

// PodState is what the checks look at in one pod.
type PodState struct {
	Name              string
	Image             string
	MountPaths        []string
	Ports             []int32
	AntiAffinityRules int
}

// ServiceState is an observed service.
type ServiceState struct {
	Name string
	Type string
}

// ObservedState is a snapshot of the installation read for one evaluation. Only what the
// evaluated checks need is read.
type ObservedState struct {
	Counts map[string]int
	Pods   []PodState

	CHIFound      bool
	Status        string
	UsedTemplates []string

	// Services and ConfigMapKeys hold nil for objects that do not exist.
	Services      map[string]*ServiceState
	ConfigMapKeys map[string][]string
}

type needs struct {
	counts     sets.Set[string]
	pods       bool
	chi        bool
	services   sets.Set[string]
	configMaps sets.Set[string]
}

func needsOf(checks []Check) needs {
	n := needs{counts: sets.New[string](), services: sets.New[string](), configMaps: sets.New[string]()}
	for _, c := range checks {
		switch c := c.(type) {
		case ObjectCountsCheck:
			for kind := range c.Counts {
				n.counts.Insert(kind)
			}
		case PodImageCheck, PodVolumesCheck, PodPortsCheck, PodAntiAffinityCheck:
			n.pods = true
		case TemplatesCheck, StatusCheck:
			n.chi = true
		case ServiceCheck:
			n.services.Insert(c.Service.Name)
		case ConfigMapsCheck:
			n.counts.Insert("configmap")
		case ConfigMapKeysCheck:
			for name := range c.Keys {
				n.configMaps.Insert(name)
			}
		}
	}
	return n
}

// Observe reads a fresh snapshot of target for checks.
func Observe(ctx context.Context, reader StateReader, target Target, checks []Check) (*ObservedState, error) {
	n := needsOf(checks)
	selector := chiv1.Selector(target.Name)
	observed := &ObservedState{
		Counts:        map[string]int{},
		Services:      map[string]*ServiceState{},
		ConfigMapKeys: map[string][]string{},
	}

	for _, kind := range sets.List(n.counts) {
		items, err := reader.List(ctx, kind, target.Namespace, selector)
		if err != nil {
			return nil, err
		}
		observed.Counts[kind] = len(items)
	}

	if n.pods {
		items, err := reader.List(ctx, "pod", target.Namespace, selector)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			pod := &corev1.Pod{}
			if err := runtime.DefaultUnstructuredConverter.FromUnstructured(item.Object, pod); err != nil {
				return nil, fmt.Errorf("decode pod %s: %w", item.GetName(), err)
			}
			observed.Pods = append(observed.Pods, podState(pod))
		}
		sort.Slice(observed.Pods, func(i, j int) bool { return observed.Pods[i].Name < observed.Pods[j].Name })
	}

	if n.chi {
		obj, err := reader.Get(ctx, "chi", target.Name, target.Namespace)
		switch {
		case kubernetes.IsNotFound(err):
		case err != nil:
			return nil, err
		default:
			chi := &chiv1.ClickHouseInstallation{}
			if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.Object, chi); err != nil {
				return nil, fmt.Errorf("decode %s: %w", target, err)
			}
			observed.CHIFound = true
			observed.Status = chi.Status.Status
			observed.UsedTemplates = chi.Status.UsedTemplateNames()
		}
	}

	for _, name := range sets.List(n.services) {
		obj, err := reader.Get(ctx, "service", name, target.Namespace)
		switch {
		case kubernetes.IsNotFound(err):
			observed.Services[name] = nil
		case err != nil:
			return nil, err
		default:
			svcType, _, _ := unstructured.NestedString(obj.Object, "spec", "type")
			if svcType == "" {
				svcType = string(corev1.ServiceTypeClusterIP)
			}
			observed.Services[name] = &ServiceState{Name: name, Type: svcType}
		}
	}

	for _, name := range sets.List(n.configMaps) {
		obj, err := reader.Get(ctx, "configmap", name, target.Namespace)
		switch {
		case kubernetes.IsNotFound(err):
			observed.ConfigMapKeys[name] = nil
		case err != nil:
			return nil, err
		default:
			data, _, _ := unstructured.NestedMap(obj.Object, "data")
			keys := make([]string, 0, len(data))
			for k := range data {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			observed.ConfigMapKeys[name] = keys
		}
	}

	return observed, nil
}

func podState(pod *corev1.Pod) PodState {
	state := PodState{Name: pod.Name, AntiAffinityRules: kubernetes.AntiAffinityRules(pod)}
	if c := kubernetes.PrimaryContainer(pod); c != nil {
		state.Image = c.Image
		state.MountPaths = kubernetes.MountPaths(c)
		state.Ports = kubernetes.ContainerPorts(c)
	}
	return state
}
