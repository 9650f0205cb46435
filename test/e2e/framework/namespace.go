// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package framework

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"

	chiv1 "github.com/Abirdcfly/clickhouse-operator/api/v1"
)

const (
	defaultNamespaceWait = 100 * time.Second
	defaultNamespacePoll = 1 * time.Second
)

// EnsureNamespace creates the namespace unless it exists and waits for it to be ready.
func EnsureNamespace(ctx context.Context, c client.Client, name string) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	if err := c.Create(ctx, ns); err != nil && !apierrors.IsAlreadyExists(err) {
		return err
	}

	err := wait.PollUntilContextTimeout(ctx, defaultNamespacePoll, defaultNamespaceWait, true, func(ctx context.Context) (bool, error) {
		var tmp corev1.Namespace
		if err := c.Get(ctx, client.ObjectKey{Name: name}, &tmp); err != nil {
			return false, nil
		}
		return tmp.Status.Phase != corev1.NamespaceTerminating, nil
	})
	if err != nil {
		return fmt.Errorf("failed to wait for namespace %s to be ready: %w", name, err)
	}
	return nil
}

// DeleteNamespace removes every installation left in the namespace, including the ones stuck
// on operator finalizers, then deletes the namespace itself.
func DeleteNamespace(ctx context.Context, c client.Client, name string) error {
	var list chiv1.ClickHouseInstallationList
	if err := c.List(ctx, &list, client.InNamespace(name)); err != nil {
		return err
	}

	for i := range list.Items {
		key := list.Items[i].NamespacedName()

		err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
			chi := &chiv1.ClickHouseInstallation{}
			if err := c.Get(ctx, key, chi); err != nil {
				return err
			}
			chi.Finalizers = nil
			return c.Update(ctx, chi)
		})
		if err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("removing finalizers from %s: %w", key, err)
		}

		if err := c.Delete(ctx, &chiv1.ClickHouseInstallation{
			ObjectMeta: metav1.ObjectMeta{Name: key.Name, Namespace: key.Namespace},
		}); err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("deleting installation %s: %w", key, err)
		}
	}

	if err := c.Delete(ctx, &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("deleting namespace %s: %w", name, err)
	}

	err := wait.PollUntilContextTimeout(ctx, defaultNamespacePoll, defaultNamespaceWait, true, func(ctx context.Context) (bool, error) {
		err := c.Get(ctx, types.NamespacedName{Name: name}, &corev1.Namespace{})
		return apierrors.IsNotFound(err), nil
	})
	if err != nil {
		return fmt.Errorf("namespace %s should be gone: %w", name, err)
	}
	return nil
}
