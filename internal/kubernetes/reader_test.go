// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package kubernetes_test

import (
	"context"
	"errors"
	"testing"

	chiv1 "github.com/Abirdcfly/clickhouse-operator/api/v1"
	"github.com/Abirdcfly/clickhouse-operator/internal/kubernetes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
)

func chiPod(name, chi string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "test",
			Labels:    map[string]string{chiv1.LabelCHI: chi},
		},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{{Name: "clickhouse", Image: "clickhouse/clickhouse-server:23.8"}},
		},
		Status: corev1.PodStatus{
			Phase: corev1.PodPending,
			ContainerStatuses: []corev1.ContainerStatus{{
				Name:  "clickhouse",
				State: corev1.ContainerState{Waiting: &corev1.ContainerStateWaiting{Reason: "ErrImagePull"}},
			}},
		},
	}
}

func newFakeClient(objs ...client.Object) client.Client {
	return fake.NewClientBuilder().WithScheme(kubernetes.NewScheme()).WithObjects(objs...).Build()
}

func TestReaderGet(t *testing.T) {
	reader := kubernetes.NewReader(newFakeClient(chiPod("chi-a-default-0-0-0", "a")))

	obj, err := reader.Get(context.TODO(), "pod", "chi-a-default-0-0-0", "test")
	require.NoError(t, err)
	assert.Equal(t, "chi-a-default-0-0-0", obj.GetName())
	assert.Equal(t, "Pod", obj.GetKind())

	_, err = reader.Get(context.TODO(), "pod", "missing", "test")
	assert.True(t, kubernetes.IsNotFound(err))
	assert.False(t, kubernetes.IsTransient(err))

	_, err = reader.Get(context.TODO(), "widget", "x", "test")
	assert.Error(t, err)
}

func TestReaderGetField(t *testing.T) {
	reader := kubernetes.NewReader(newFakeClient(chiPod("chi-a-default-0-0-0", "a")))

	tests := map[string]struct {
		path     string
		expected string
		notFound bool
	}{
		"phase":                 {path: ".status.phase", expected: "Pending"},
		"without leading dot":   {path: "status.phase", expected: "Pending"},
		"waiting reason":        {path: ".status.containerStatuses[0].state.waiting.reason", expected: "ErrImagePull"},
		"first container image": {path: ".spec.containers[0].image", expected: "clickhouse/clickhouse-server:23.8"},
		"missing field":         {path: ".status.startTime", notFound: true},
		"index beyond the end":  {path: ".status.containerStatuses[3].name", notFound: true},
		"missing nested parent": {path: ".status.containerStatuses[0].state.running.startedAt", notFound: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			value, err := reader.GetField(context.TODO(), "pod", "chi-a-default-0-0-0", "test", tc.path)
			if tc.notFound {
				assert.True(t, kubernetes.IsNotFound(err), "expected not found, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, value)
		})
	}
}

func TestReaderCount(t *testing.T) {
	reader := kubernetes.NewReader(newFakeClient(
		chiPod("chi-a-default-0-0-0", "a"),
		chiPod("chi-a-default-1-0-0", "a"),
		chiPod("chi-b-default-0-0-0", "b"),
	))

	n, err := reader.Count(context.TODO(), "pods", "test", chiv1.Selector("a"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = reader.Count(context.TODO(), "po", "test", "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = reader.Count(context.TODO(), "statefulset", "test", chiv1.Selector("a"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = reader.Count(context.TODO(), "pod", "other", chiv1.Selector("a"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = reader.Count(context.TODO(), "pod", "test", "a in (")
	assert.Error(t, err)
}

func TestReaderClassifiesAPIErrors(t *testing.T) {
	podsResource := schema.GroupResource{Resource: "pods"}
	tests := map[string]struct {
		err       error
		transient bool
		notFound  bool
	}{
		"server timeout":      {err: apierrors.NewServerTimeout(podsResource, "get", 1), transient: true},
		"too many requests":   {err: apierrors.NewTooManyRequests("slow down", 1), transient: true},
		"internal error":      {err: apierrors.NewInternalError(errors.New("etcd leader changed")), transient: true},
		"service unavailable": {err: apierrors.NewServiceUnavailable("apiserver restarting"), transient: true},
		"not found":           {err: apierrors.NewNotFound(podsResource, "x"), notFound: true},
		"forbidden":           {err: apierrors.NewForbidden(podsResource, "x", errors.New("rbac"))},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := fake.NewClientBuilder().WithScheme(kubernetes.NewScheme()).WithInterceptorFuncs(interceptor.Funcs{
				Get: func(ctx context.Context, c client.WithWatch, key client.ObjectKey, obj client.Object, opts ...client.GetOption) error {
					return tc.err
				},
				List: func(ctx context.Context, c client.WithWatch, list client.ObjectList, opts ...client.ListOption) error {
					return tc.err
				},
			}).Build()
			reader := kubernetes.NewReader(c)

			_, err := reader.GetField(context.TODO(), "pod", "x", "test", ".status.phase")
			require.Error(t, err)
			assert.Equal(t, tc.transient, kubernetes.IsTransient(err))
			assert.Equal(t, tc.notFound, kubernetes.IsNotFound(err))

			_, err = reader.Count(context.TODO(), "pod", "test", "")
			require.Error(t, err)
			assert.Equal(t, tc.transient, kubernetes.IsTransient(err))
		})
	}
}

func TestFieldRendersScalars(t *testing.T) {
	doc := map[string]interface{}{
		"spec": map[string]interface{}{
			"replicas": int64(3),
			"paused":   true,
			"name":     "clickhouse",
		},
	}

	value, err := kubernetes.Field(doc, ".spec.replicas")
	require.NoError(t, err)
	assert.Equal(t, "3", value)

	value, err = kubernetes.Field(doc, "{.spec.paused}")
	require.NoError(t, err)
	assert.Equal(t, "true", value)

	value, err = kubernetes.Field(doc, ".spec.name")
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", value)

	_, err = kubernetes.Field(doc, ".spec[")
	assert.Error(t, err)
	assert.False(t, kubernetes.IsNotFound(err))
}

func TestResolveKind(t *testing.T) {
	for _, alias := range []string{"sts", "statefulset", "StatefulSets"} {
		k, err := kubernetes.ResolveKind(alias)
		require.NoError(t, err)
		assert.Equal(t, "statefulset", k.Name)
		assert.True(t, k.Namespaced)
	}

	k, err := kubernetes.ResolveKind("pv")
	require.NoError(t, err)
	assert.False(t, k.Namespaced)

	k, err = kubernetes.ResolveKind("chi")
	require.NoError(t, err)
	assert.Equal(t, chiv1.ClickHouseInstallationGVK, k.GVK)
	assert.Equal(t, "ClickHouseInstallationList", k.ListGVK().Kind)
}
