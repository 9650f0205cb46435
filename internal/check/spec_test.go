// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package check_test

import (
	"testing"

	"github.com/Abirdcfly/clickhouse-operator/internal/check"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullSpec = `
pod_count: 1
service: [chi-test-002-tpl-default-0-0, ClusterIP]
apply_templates:
  - templates/tpl-log-volume.yaml
pod_image: clickhouse/clickhouse-server:23.8
pod_volumes:
  - /var/lib/clickhouse
  - /var/log/clickhouse-server
pod_podAntiAffinity: 1
pod_ports: [8123, 9000, 9009]
chi_status: Completed
do_not_delete: 1
configmaps: 3
configmap_keys:
  chi-test-002-tpl-common-usersd: [chop-generated-users.xml]
`

func TestParse(t *testing.T) {
	spec, err := check.Parse([]byte(fullSpec))
	require.NoError(t, err)

	assert.Equal(t, 1, *spec.PodCount)
	assert.Equal(t, &check.ServiceRef{Name: "chi-test-002-tpl-default-0-0", Type: "ClusterIP"}, spec.Service)
	assert.Equal(t, []string{"templates/tpl-log-volume.yaml"}, spec.ApplyTemplates)
	assert.Equal(t, "clickhouse/clickhouse-server:23.8", spec.PodImage)
	assert.Equal(t, []string{"/var/lib/clickhouse", "/var/log/clickhouse-server"}, spec.PodVolumes)
	assert.Equal(t, 1, *spec.PodAntiAffinity)
	assert.Equal(t, []int32{8123, 9000, 9009}, spec.PodPorts)
	assert.Equal(t, "Completed", spec.CHIStatus)
	assert.True(t, bool(spec.DoNotDelete))
	assert.Equal(t, 3, *spec.ConfigMaps)
	assert.Equal(t, []string{"chop-generated-users.xml"}, spec.ConfigMapKeys["chi-test-002-tpl-common-usersd"])

	kinds := []string{}
	for _, c := range spec.Checks() {
		kinds = append(kinds, c.Kind())
	}
	assert.Equal(t, []string{
		check.KindPodCount, check.KindPodImage, check.KindPodVolumes, check.KindPodPorts,
		check.KindPodAntiAffinity, check.KindApplyTemplates, check.KindService,
		check.KindCHIStatus, check.KindConfigMaps, check.KindConfigMapKeys,
	}, kinds)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":             "pod_images: clickhouse/clickhouse-server:23.8",
		"unknown object kind":     "object_counts: {deployment: 1}",
		"negative count":          "object_counts: {pod: -1}",
		"unknown status":          "chi_status: Done",
		"unknown service type":    "service: [clickhouse-simple, Headless]",
		"service without type":    "service: [clickhouse-simple]",
		"service unknown field":   "service: {name: clickhouse-simple, type: ClusterIP, port: 8123}",
		"port out of range":       "pod_ports: [70000]",
		"relative mount path":     "pod_volumes: [var/lib/clickhouse]",
		"invalid do_not_delete":   "do_not_delete: maybe",
		"negative anti-affinity":  "pod_podAntiAffinity: -2",
		"wrongly typed pod count": "pod_count: two",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := check.Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseServiceObjectForm(t *testing.T) {
	spec, err := check.Parse([]byte("service: {name: clickhouse-simple, type: LoadBalancer}\ndo_not_delete: false"))
	require.NoError(t, err)
	assert.Equal(t, &check.ServiceRef{Name: "clickhouse-simple", Type: "LoadBalancer"}, spec.Service)
	assert.False(t, bool(spec.DoNotDelete))
}

func TestPodCountExpansion(t *testing.T) {
	spec, err := check.Parse([]byte("pod_count: 2"))
	require.NoError(t, err)
	checks := spec.Checks()
	require.Len(t, checks, 1)
	counts, ok := checks[0].(check.ObjectCountsCheck)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"statefulset": 2, "pod": 2, "service": 3}, counts.Counts)

	spec, err = check.Parse([]byte("object_counts: {statefulset: 1}\npod_count: 3"))
	require.NoError(t, err)
	checks = spec.Checks()
	require.Len(t, checks, 2)
	assert.Equal(t, check.KindObjectCounts, checks[0].Kind())
	assert.Equal(t, map[string]int{"statefulset": 1}, checks[0].(check.ObjectCountsCheck).Counts)
	assert.Equal(t, check.KindPodCount, checks[1].Kind())
	assert.Equal(t, map[string]int{"statefulset": 3, "pod": 3, "service": 4}, checks[1].(check.ObjectCountsCheck).Counts)
}

func TestCloneIsDeep(t *testing.T) {
	spec, err := check.Parse([]byte(fullSpec))
	require.NoError(t, err)

	clone := spec.Clone()
	*clone.PodCount = 5
	clone.PodVolumes[0] = "/data"
	clone.Service.Type = "NodePort"
	clone.ConfigMapKeys["chi-test-002-tpl-common-usersd"][0] = "other.xml"

	assert.Equal(t, 1, *spec.PodCount)
	assert.Equal(t, "/var/lib/clickhouse", spec.PodVolumes[0])
	assert.Equal(t, "ClusterIP", spec.Service.Type)
	assert.Equal(t, "chop-generated-users.xml", spec.ConfigMapKeys["chi-test-002-tpl-common-usersd"][0])
}

func TestConvergenceStatus(t *testing.T) {
	assert.Equal(t, "Completed", check.Spec{}.ConvergenceStatus())
	assert.Equal(t, "InProgress", check.Spec{CHIStatus: "InProgress"}.ConvergenceStatus())
}

func TestEmptySpecHasNoChecks(t *testing.T) {
	spec, err := check.Parse([]byte("{}"))
	require.NoError(t, err)
	assert.Empty(t, spec.Checks())
}
