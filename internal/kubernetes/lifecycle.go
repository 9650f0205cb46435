// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"context"
	"errors"
	"fmt"
	"time"

	chiv1 "github.com/Abirdcfly/clickhouse-operator/api/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	defaultDeleteTimeout = 10 * time.Minute
	defaultDeletePoll    = 2 * time.Second
	maxConsecutiveErrors = 10
	statefulSetKind      = "StatefulSet"
)

// ResourceID names one resource.
type ResourceID struct {
	Kind      string
	Name      string
	Namespace string
}

func (id ResourceID) String() string {
	return fmt.Sprintf("%s %s/%s", id.Kind, id.Namespace, id.Name)
}

// DeleteOptions tune Delete.
type DeleteOptions struct {
	// RetainVolumes keeps the persistent volume claims of an installation alive after it is gone.
	RetainVolumes bool
	Timeout       time.Duration
	Interval      time.Duration
}

// Lifecycle creates, updates and deletes resources. It is the only part of the harness that writes.
type Lifecycle struct {
	client    client.Client
	reader    *Reader
	namespace string
}

// NewLifecycle returns a Lifecycle that places namespaced objects without a namespace in namespace.
func NewLifecycle(c client.Client, namespace string) *Lifecycle {
	return &Lifecycle{client: c, reader: NewReader(c), namespace: namespace}
}

// Apply creates every object, or updates it when it already exists. Applying the same objects
// twice leaves the cluster as applying them once.
func (l *Lifecycle) Apply(ctx context.Context, objs ...*unstructured.Unstructured) error {
	for _, obj := range objs {
		if err := l.apply(ctx, obj); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lifecycle) apply(ctx context.Context, obj *unstructured.Unstructured) error {
	logger := log.FromContext(ctx)
	desired := obj.DeepCopy()
	kind := KindForGVK(desired.GroupVersionKind())
	if kind.Namespaced && desired.GetNamespace() == "" {
		desired.SetNamespace(l.namespace)
	}
	if !kind.Namespaced {
		desired.SetNamespace("")
	}
	id := ResourceID{Kind: kind.Name, Name: desired.GetName(), Namespace: desired.GetNamespace()}

	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		existing := &unstructured.Unstructured{}
		existing.SetGroupVersionKind(desired.GroupVersionKind())
		err := l.client.Get(ctx, client.ObjectKeyFromObject(desired), existing)
		if apierrors.IsNotFound(err) {
			logger.Info("Creating resource", "resource", id.String())
			create := desired.DeepCopy()
			create.SetResourceVersion("")
			if err := l.client.Create(ctx, create); err != nil {
				if apierrors.IsAlreadyExists(err) {
					return &ResourceConflictError{Resource: id.String(), Reason: "created concurrently", Err: err}
				}
				return err
			}
			return nil
		}
		if err != nil {
			return err
		}
		if existing.GetDeletionTimestamp() != nil {
			return &ResourceConflictError{Resource: id.String(), Reason: "resource is being deleted"}
		}
		if sameContent(existing, desired) {
			logger.V(1).Info("Resource already up to date", "resource", id.String())
			return nil
		}

		update := desired.DeepCopy()
		update.SetResourceVersion(existing.GetResourceVersion())
		if status, ok := existing.Object["status"]; ok {
			update.Object["status"] = status
		}
		logger.Info("Updating resource", "resource", id.String())
		return l.client.Update(ctx, update)
	})
	if err == nil {
		return nil
	}
	var conflict *ResourceConflictError
	if errors.As(err, &conflict) {
		return conflict
	}
	if apierrors.IsConflict(err) {
		return &ResourceConflictError{Resource: id.String(), Reason: "optimistic concurrency retries exhausted", Err: err}
	}
	return Classify("apply "+id.String(), err)
}

// sameContent compares everything the harness sets: the top level fields other than status,
// plus labels and annotations.
func sameContent(existing, desired *unstructured.Unstructured) bool {
	for key, want := range desired.Object {
		switch key {
		case "apiVersion", "kind", "metadata", "status":
			continue
		}
		if !equality.Semantic.DeepEqual(existing.Object[key], want) {
			return false
		}
	}
	return equality.Semantic.DeepEqual(existing.GetLabels(), desired.GetLabels()) &&
		equality.Semantic.DeepEqual(existing.GetAnnotations(), desired.GetAnnotations())
}

// Delete removes the resource and waits until it is gone. For an installation it also waits for
// its statefulsets, pods and services, and deals with its volume claims as opts ask.
// Deleting a resource that does not exist is not an error.
func (l *Lifecycle) Delete(ctx context.Context, id ResourceID, opts DeleteOptions) error {
	logger := log.FromContext(ctx).WithValues("resource", id.String())
	if opts.Timeout == 0 {
		opts.Timeout = defaultDeleteTimeout
	}
	if opts.Interval == 0 {
		opts.Interval = defaultDeletePoll
	}
	k, err := ResolveKind(id.Kind)
	if err != nil {
		return err
	}
	if id.Namespace == "" && k.Namespaced {
		id.Namespace = l.namespace
	}
	isCHI := k.GVK == chiv1.ClickHouseInstallationGVK
	selector := chiv1.Selector(id.Name)

	if _, err := l.reader.Get(ctx, id.Kind, id.Name, id.Namespace); err != nil {
		if IsNotFound(err) {
			logger.Info("Resource already deleted")
			return nil
		}
		return err
	}

	pvcsBefore := 0
	if isCHI {
		if pvcsBefore, err = l.reader.Count(ctx, "pvc", id.Namespace, selector); err != nil {
			return err
		}
		if opts.RetainVolumes {
			if err := l.releaseVolumeClaims(ctx, id); err != nil {
				return err
			}
		}
	}

	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(k.GVK)
	obj.SetName(id.Name)
	obj.SetNamespace(id.Namespace)
	logger.Info("Deleting resource")
	if err := l.client.Delete(ctx, obj, client.PropagationPolicy(metav1.DeletePropagationBackground)); err != nil && !apierrors.IsNotFound(err) {
		return Classify("delete "+id.String(), err)
	}

	if err := l.waitGone(ctx, id, isCHI, opts); err != nil {
		return fmt.Errorf("waiting for %s to be deleted: %w", id, err)
	}
	if !isCHI {
		return nil
	}

	if opts.RetainVolumes {
		pvcsAfter, err := l.reader.Count(ctx, "pvc", id.Namespace, selector)
		if err != nil {
			return err
		}
		if pvcsAfter != pvcsBefore {
			return fmt.Errorf("%s: volume claims not retained: %d before delete, %d after", id, pvcsBefore, pvcsAfter)
		}
		logger.Info("Volume claims retained", "pvc", pvcsAfter)
		return nil
	}

	logger.Info("Deleting volume claims", "pvc", pvcsBefore)
	pvc := &corev1.PersistentVolumeClaim{}
	if err := l.client.DeleteAllOf(ctx, pvc, client.InNamespace(id.Namespace), client.MatchingLabels{chiv1.LabelCHI: id.Name}); err != nil {
		return Classify("delete volume claims of "+id.String(), err)
	}
	err = l.poll(ctx, opts, func(ctx context.Context) (bool, error) {
		n, err := l.reader.Count(ctx, "pvc", id.Namespace, selector)
		return n == 0, err
	})
	if err != nil {
		return fmt.Errorf("waiting for volume claims of %s to be deleted: %w", id, err)
	}
	return nil
}

// releaseVolumeClaims drops the owner references that would let the garbage collector take the claims
// together with the installation.
func (l *Lifecycle) releaseVolumeClaims(ctx context.Context, id ResourceID) error {
	claims := &corev1.PersistentVolumeClaimList{}
	if err := l.client.List(ctx, claims, client.InNamespace(id.Namespace), client.MatchingLabels{chiv1.LabelCHI: id.Name}); err != nil {
		return Classify("list volume claims of "+id.String(), err)
	}
	for i := range claims.Items {
		key := types.NamespacedName{Namespace: claims.Items[i].Namespace, Name: claims.Items[i].Name}
		err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
			pvc := &corev1.PersistentVolumeClaim{}
			if err := l.client.Get(ctx, key, pvc); err != nil {
				return err
			}
			refs := make([]metav1.OwnerReference, 0, len(pvc.OwnerReferences))
			for _, ref := range pvc.OwnerReferences {
				if ref.Kind == chiv1.ClickHouseInstallationGVK.Kind || ref.Kind == statefulSetKind {
					continue
				}
				refs = append(refs, ref)
			}
			if len(refs) == len(pvc.OwnerReferences) {
				return nil
			}
			pvc.OwnerReferences = refs
			return l.client.Update(ctx, pvc)
		})
		if err != nil {
			return fmt.Errorf("releasing volume claim %s: %w", key, err)
		}
	}
	return nil
}

func (l *Lifecycle) waitGone(ctx context.Context, id ResourceID, isCHI bool, opts DeleteOptions) error {
	selector := chiv1.Selector(id.Name)
	return l.poll(ctx, opts, func(ctx context.Context) (bool, error) {
		if _, err := l.reader.Get(ctx, id.Kind, id.Name, id.Namespace); err == nil {
			return false, nil
		} else if !IsNotFound(err) {
			return false, err
		}
		if !isCHI {
			return true, nil
		}
		for _, kind := range []string{"statefulset", "pod", "service"} {
			n, err := l.reader.Count(ctx, kind, id.Namespace, selector)
			if err != nil || n > 0 {
				return false, err
			}
		}
		return true, nil
	})
}

// poll runs condition until it holds, tolerating up to maxConsecutiveErrors failing reads in a row.
func (l *Lifecycle) poll(ctx context.Context, opts DeleteOptions, condition func(context.Context) (bool, error)) error {
	var consecutiveErrors int
	return wait.PollUntilContextTimeout(ctx, opts.Interval, opts.Timeout, true, func(ctx context.Context) (bool, error) {
		done, err := condition(ctx)
		if err != nil {
			consecutiveErrors++
			if consecutiveErrors > maxConsecutiveErrors {
				return false, fmt.Errorf("persistent error (after %d attempts): %w", consecutiveErrors, err)
			}
			return false, nil
		}
		consecutiveErrors = 0
		return done, nil
	})
}

// VolumeCounts returns the number of persistent volume claims in namespace and of persistent volumes in the cluster.
func (l *Lifecycle) VolumeCounts(ctx context.Context, namespace string) (int, int, error) {
	if namespace == "" {
		namespace = l.namespace
	}
	pvc, err := l.reader.Count(ctx, "pvc", namespace, "")
	if err != nil {
		return 0, 0, err
	}
	pv, err := l.reader.Count(ctx, "pv", "", "")
	if err != nil {
		return 0, 0, err
	}
	return pvc, pv, nil
}
