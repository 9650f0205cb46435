// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package kubernetes_test

import (
	"testing"

	"github.com/Abirdcfly/clickhouse-operator/internal/kubernetes"
	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
)

func TestPrimaryContainer(t *testing.T) {
	tests := map[string]struct {
		containers []corev1.Container
		expected   string
	}{
		"no containers":           {},
		"clickhouse is not first": {containers: []corev1.Container{{Name: "clickhouse-log"}, {Name: "clickhouse"}}, expected: "clickhouse"},
		"legacy container name":   {containers: []corev1.Container{{Name: "sidecar"}, {Name: "clickhouse-pod"}}, expected: "clickhouse-pod"},
		"falls back to first":     {containers: []corev1.Container{{Name: "server"}, {Name: "sidecar"}}, expected: "server"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := kubernetes.PrimaryContainer(&corev1.Pod{Spec: corev1.PodSpec{Containers: tc.containers}})
			if tc.expected == "" {
				assert.Nil(t, c)
				return
			}
			assert.Equal(t, tc.expected, c.Name)
		})
	}
}

func TestPodRunningReady(t *testing.T) {
	ready := &corev1.Pod{Status: corev1.PodStatus{
		Phase:      corev1.PodRunning,
		Conditions: []corev1.PodCondition{{Type: corev1.PodReady, Status: corev1.ConditionTrue}},
	}}
	ok, err := kubernetes.PodRunningReady(ready)
	assert.True(t, ok)
	assert.NoError(t, err)

	notReady := ready.DeepCopy()
	notReady.Status.Conditions[0].Status = corev1.ConditionFalse
	ok, err = kubernetes.PodRunningReady(notReady)
	assert.False(t, ok)
	assert.Error(t, err)

	pending := &corev1.Pod{Status: corev1.PodStatus{Phase: corev1.PodPending}}
	ok, err = kubernetes.PodRunningReady(pending)
	assert.False(t, ok)
	assert.Error(t, err)

	ok, err = kubernetes.PodRunningReady(nil)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestContainerAccessors(t *testing.T) {
	c := &corev1.Container{
		Ports:        []corev1.ContainerPort{{ContainerPort: 8123}, {ContainerPort: 9000}},
		VolumeMounts: []corev1.VolumeMount{{MountPath: "/var/lib/clickhouse"}, {MountPath: "/var/log/clickhouse-server"}},
	}
	assert.Equal(t, []int32{8123, 9000}, kubernetes.ContainerPorts(c))
	assert.Equal(t, []string{"/var/lib/clickhouse", "/var/log/clickhouse-server"}, kubernetes.MountPaths(c))
	assert.Nil(t, kubernetes.ContainerPorts(nil))

	pod := &corev1.Pod{Spec: corev1.PodSpec{Affinity: &corev1.Affinity{PodAntiAffinity: &corev1.PodAntiAffinity{
		RequiredDuringSchedulingIgnoredDuringExecution:  []corev1.PodAffinityTerm{{TopologyKey: "kubernetes.io/hostname"}},
		PreferredDuringSchedulingIgnoredDuringExecution: []corev1.WeightedPodAffinityTerm{{Weight: 1}},
	}}}}
	assert.Equal(t, 2, kubernetes.AntiAffinityRules(pod))
	assert.Equal(t, 0, kubernetes.AntiAffinityRules(&corev1.Pod{}))
}
