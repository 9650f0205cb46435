// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

// Package clickhouse runs SQL against the servers of an installation through clickhouse-client
// inside their pods.
package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	chiv1 "github.com/Abirdcfly/clickhouse-operator/api/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utilexec "k8s.io/client-go/util/exec"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	ContainerName = "clickhouse"
	clientBinary  = "clickhouse-client"
)

// Executor runs a command in a pod container.
type Executor interface {
	Exec(ctx context.Context, namespace, pod, container string, command []string) (string, string, error)
}

// PodLister lists the pods matching a label selector.
type PodLister interface {
	List(ctx context.Context, kind, namespace, selector string) ([]unstructured.Unstructured, error)
}

// QueryOptions select where and as whom a query runs. Zero values run the query against the
// server local to the chosen pod as the default user.
type QueryOptions struct {
	// Host is the host name (as in chiv1.HostName) whose pod runs the client. Empty picks the
	// first pod of the installation.
	Host     string
	Port     int
	User     string
	Password string
}

// QueryError is returned when clickhouse-client exits with an error.
type QueryError struct {
	Pod    string
	SQL    string
	Stderr string
	Err    error
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("query %q on %s failed: %v", e.SQL, e.Pod, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Client queries the servers of installations in one namespace.
type Client struct {
	executor  Executor
	pods      PodLister
	namespace string
}

func NewClient(executor Executor, pods PodLister, namespace string) *Client {
	return &Client{executor: executor, pods: pods, namespace: namespace}
}

// Query runs sql and returns its trimmed output.
func (c *Client) Query(ctx context.Context, chi, sql string, opts QueryOptions) (string, error) {
	pod, err := c.pod(ctx, chi, opts.Host)
	if err != nil {
		return "", err
	}
	stdout, stderr, err := c.executor.Exec(ctx, c.namespace, pod, ContainerName, command(sql, opts))
	if err != nil {
		return "", &QueryError{Pod: pod, SQL: sql, Stderr: stderr, Err: err}
	}
	return strings.TrimSpace(stdout), nil
}

// QueryWithError runs sql and returns its output, or the error text the server answered with when
// the query fails. It returns an error only when the query could not be run at all.
func (c *Client) QueryWithError(ctx context.Context, chi, sql string, opts QueryOptions) (string, error) {
	out, err := c.Query(ctx, chi, sql, opts)
	if err == nil {
		return out, nil
	}
	var queryErr *QueryError
	var exitErr utilexec.ExitError
	if errors.As(err, &queryErr) && errors.As(err, &exitErr) {
		log.FromContext(ctx).V(1).Info("Query failed", "pod", queryErr.Pod, "exitStatus", exitErr.ExitStatus())
		return strings.TrimSpace(queryErr.Stderr), nil
	}
	return "", err
}

// pod returns the pod to run the client in.
func (c *Client) pod(ctx context.Context, chi, host string) (string, error) {
	pods, err := c.pods.List(ctx, "pod", c.namespace, chiv1.Selector(chi))
	if err != nil {
		return "", fmt.Errorf("list pods of chi %s: %w", chi, err)
	}
	names := make([]string, 0, len(pods))
	for _, p := range pods {
		names = append(names, p.GetName())
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "", fmt.Errorf("chi %s/%s has no pods", c.namespace, chi)
	}
	if host == "" {
		return names[0], nil
	}
	for _, name := range names {
		if name == host || strings.TrimSuffix(name, "-0") == host {
			return name, nil
		}
	}
	return "", fmt.Errorf("chi %s/%s has no pod for host %s", c.namespace, chi, host)
}

func command(sql string, opts QueryOptions) []string {
	cmd := []string{clientBinary, "-mn"}
	if opts.Host != "" {
		cmd = append(cmd, "--host", opts.Host)
	}
	if opts.Port != 0 {
		cmd = append(cmd, "--port", strconv.Itoa(opts.Port))
	}
	if opts.User != "" {
		cmd = append(cmd, "--user", opts.User)
	}
	if opts.Password != "" {
		cmd = append(cmd, "--password", opts.Password)
	}
	return append(cmd, "--query", sql)
}
