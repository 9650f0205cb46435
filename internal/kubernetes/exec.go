// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"bytes"
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	clientset "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
)

// PodExecutor runs commands inside pod containers.
type PodExecutor struct {
	config    *rest.Config
	clientset clientset.Interface
}

func NewPodExecutor(config *rest.Config) (*PodExecutor, error) {
	cs, err := clientset.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}
	return &PodExecutor{config: config, clientset: cs}, nil
}

// Exec runs command in container of the pod and returns stdout and stderr. An empty container
// selects the default container of the pod.
func (e *PodExecutor) Exec(ctx context.Context, namespace, pod, container string, command []string) (string, string, error) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}

	request := e.clientset.CoreV1().RESTClient().
		Post().
		Namespace(namespace).
		Resource("pods").
		Name(pod).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: container,
			Stdout:    true,
			Stderr:    true,
			TTY:       false,
			Command:   command,
		}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(e.config, "POST", request.URL())
	if err != nil {
		return "", "", fmt.Errorf("create executor: %w", err)
	}

	err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdout: buf,
		Stderr: errBuf,
	})
	if err != nil {
		return buf.String(), errBuf.String(), fmt.Errorf("exec in %s/%s: %w", namespace, pod, err)
	}
	return buf.String(), errBuf.String(), nil
}
