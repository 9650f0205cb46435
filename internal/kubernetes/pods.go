// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
)

// ClickHouse container names used by the operator across versions.
var clickHouseContainerNames = []string{"clickhouse", "clickhouse-pod"}

// PodRunningReady checks if the provided pod is running and has a condition of PodReady.
// Returns true if these conditions are met, or an error detailing the specific unmet condition.
func PodRunningReady(p *corev1.Pod) (bool, error) {
	if p == nil {
		return false, fmt.Errorf("provided pod is nil")
	}

	if p.Status.Phase != corev1.PodRunning {
		return false, fmt.Errorf("expected pod '%s' on node '%s' to be '%v', but it was '%v'",
			p.Name, p.Spec.NodeName, corev1.PodRunning, p.Status.Phase)
	}

	_, condition := GetPodCondition(&p.Status, corev1.PodReady)
	if condition == nil || condition.Status != corev1.ConditionTrue {
		return false, fmt.Errorf("pod '%s' on node '%s' does not have condition '%v=%v'; current conditions: %v",
			p.Name, p.Spec.NodeName, corev1.PodReady, corev1.ConditionTrue, p.Status.Conditions)
	}

	return true, nil
}

// GetPodCondition returns the index and the reference to the pod condition of the specified type.
// Returns -1 and nil if the condition is not found or if the status is nil.
func GetPodCondition(status *corev1.PodStatus, conditionType corev1.PodConditionType) (int, *corev1.PodCondition) {
	if status == nil {
		return -1, nil
	}
	for i := range status.Conditions {
		if status.Conditions[i].Type == conditionType {
			return i, &status.Conditions[i]
		}
	}
	return -1, nil
}

// PrimaryContainer returns the ClickHouse server container of the pod, falling back to the first container.
func PrimaryContainer(p *corev1.Pod) *corev1.Container {
	if p == nil || len(p.Spec.Containers) == 0 {
		return nil
	}
	for _, name := range clickHouseContainerNames {
		for i := range p.Spec.Containers {
			if p.Spec.Containers[i].Name == name {
				return &p.Spec.Containers[i]
			}
		}
	}
	return &p.Spec.Containers[0]
}

// MountPaths returns the mount paths of container c.
func MountPaths(c *corev1.Container) []string {
	if c == nil {
		return nil
	}
	paths := make([]string, 0, len(c.VolumeMounts))
	for _, m := range c.VolumeMounts {
		paths = append(paths, m.MountPath)
	}
	return paths
}

// ContainerPorts returns the container ports declared by c.
func ContainerPorts(c *corev1.Container) []int32 {
	if c == nil {
		return nil
	}
	ports := make([]int32, 0, len(c.Ports))
	for _, p := range c.Ports {
		ports = append(ports, p.ContainerPort)
	}
	return ports
}

// AntiAffinityRules counts the pod anti-affinity terms of the pod, required and preferred.
func AntiAffinityRules(p *corev1.Pod) int {
	if p == nil || p.Spec.Affinity == nil || p.Spec.Affinity.PodAntiAffinity == nil {
		return 0
	}
	anti := p.Spec.Affinity.PodAntiAffinity
	return len(anti.RequiredDuringSchedulingIgnoredDuringExecution) + len(anti.PreferredDuringSchedulingIgnoredDuringExecution)
}
