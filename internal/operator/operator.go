// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

// Package operator controls the clickhouse-operator deployment under test.
package operator

import (
	"context"
	"fmt"
	"time"

	"github.com/Abirdcfly/clickhouse-operator/internal/kubernetes"
	"github.com/Abirdcfly/clickhouse-operator/internal/wait"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	OperatorContainer        = "clickhouse-operator"
	MetricsExporterContainer = "metrics-exporter"

	defaultTimeout  = 5 * time.Minute
	defaultInterval = 2 * time.Second
)

// Images are the images of the operator deployment containers. An empty image is left as is.
type Images struct {
	Operator        string
	MetricsExporter string
}

// Controller changes and restarts the operator deployment.
type Controller struct {
	client      client.Client
	namespace   string
	deployment  string
	podSelector string
	timeout     time.Duration
	interval    time.Duration
}

// NewController returns a Controller for deployment in namespace whose pods match podSelector.
func NewController(c client.Client, namespace, deployment, podSelector string) *Controller {
	return &Controller{
		client:      c,
		namespace:   namespace,
		deployment:  deployment,
		podSelector: podSelector,
		timeout:     defaultTimeout,
		interval:    defaultInterval,
	}
}

// WithTimeout sets how long SetVersion and Restart wait for the operator to come back.
func (c *Controller) WithTimeout(timeout, interval time.Duration) *Controller {
	c.timeout = timeout
	c.interval = interval
	return c
}

// SetVersion sets the container images of the operator deployment, waits for the rollout and
// requires at least one running operator pod afterwards.
func (c *Controller) SetVersion(ctx context.Context, images Images) error {
	logger := log.FromContext(ctx).WithValues("deployment", c.namespace+"/"+c.deployment)
	key := types.NamespacedName{Namespace: c.namespace, Name: c.deployment}

	var generation int64
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		dep := &appsv1.Deployment{}
		if err := c.client.Get(ctx, key, dep); err != nil {
			return err
		}
		changed := false
		for i := range dep.Spec.Template.Spec.Containers {
			container := &dep.Spec.Template.Spec.Containers[i]
			image := ""
			switch container.Name {
			case OperatorContainer:
				image = images.Operator
			case MetricsExporterContainer:
				image = images.MetricsExporter
			}
			if image != "" && container.Image != image {
				container.Image = image
				changed = true
			}
		}
		generation = dep.Generation
		if !changed {
			return nil
		}
		logger.Info("Updating operator images", "operator", images.Operator, "metricsExporter", images.MetricsExporter)
		if err := c.client.Update(ctx, dep); err != nil {
			return err
		}
		generation = dep.Generation
		return nil
	})
	if err != nil {
		return kubernetes.Classify("update deployment "+key.String(), err)
	}

	out := wait.For(ctx, func(ctx context.Context) (*appsv1.Deployment, error) {
		dep := &appsv1.Deployment{}
		if err := c.client.Get(ctx, key, dep); err != nil {
			return nil, kubernetes.Classify("get deployment "+key.String(), err)
		}
		return dep, nil
	}, func(dep *appsv1.Deployment) bool {
		return rolledOut(dep, generation)
	}, wait.Options{
		Description:      "rollout of deployment " + key.String(),
		Operation:        "operator_rollout",
		Timeout:          c.timeout,
		Interval:         c.interval,
		TransientBackoff: c.interval,
	})
	if err := out.Error(); err != nil {
		return err
	}
	return c.waitRunningPod(ctx, nil)
}

// Restart deletes the operator pods and waits until a new one is running.
func (c *Controller) Restart(ctx context.Context) error {
	pods, err := c.pods(ctx)
	if err != nil {
		return err
	}
	old := map[types.UID]bool{}
	for i := range pods {
		pod := &pods[i]
		old[pod.UID] = true
		log.FromContext(ctx).Info("Deleting operator pod", "pod", pod.Name)
		if err := c.client.Delete(ctx, pod); err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("failed to delete operator pod %s: %w", pod.Name, err)
		}
	}
	return c.waitRunningPod(ctx, old)
}

// waitRunningPod waits for a running and ready operator pod not in exclude.
func (c *Controller) waitRunningPod(ctx context.Context, exclude map[types.UID]bool) error {
	out := wait.For(ctx, func(ctx context.Context) (string, error) {
		pods, err := c.pods(ctx)
		if err != nil {
			return "", err
		}
		for i := range pods {
			pod := &pods[i]
			if exclude[pod.UID] || pod.DeletionTimestamp != nil {
				continue
			}
			if ready, _ := kubernetes.PodRunningReady(pod); ready {
				return pod.Name, nil
			}
		}
		return "", nil
	}, func(name string) bool {
		return name != ""
	}, wait.Options{
		Description:      fmt.Sprintf("running operator pod %s in %s", c.podSelector, c.namespace),
		Operation:        "operator_pod",
		Timeout:          c.timeout,
		Interval:         c.interval,
		TransientBackoff: c.interval,
	})
	if err := out.Error(); err != nil {
		return err
	}
	log.FromContext(ctx).Info("Operator pod running", "pod", out.Value)
	return nil
}

func (c *Controller) pods(ctx context.Context) ([]corev1.Pod, error) {
	selector, err := labels.Parse(c.podSelector)
	if err != nil {
		return nil, fmt.Errorf("invalid operator pod selector %q: %w", c.podSelector, err)
	}
	list := &corev1.PodList{}
	if err := c.client.List(ctx, list, client.InNamespace(c.namespace), client.MatchingLabelsSelector{Selector: selector}); err != nil {
		return nil, kubernetes.Classify("list operator pods", err)
	}
	return list.Items, nil
}

// rolledOut mirrors the checks of kubectl rollout status.
func rolledOut(dep *appsv1.Deployment, generation int64) bool {
	if dep.Status.ObservedGeneration < generation {
		return false
	}
	replicas := int32(1)
	if dep.Spec.Replicas != nil {
		replicas = *dep.Spec.Replicas
	}
	return dep.Status.UpdatedReplicas >= replicas &&
		dep.Status.Replicas <= dep.Status.UpdatedReplicas &&
		dep.Status.AvailableReplicas >= replicas
}
