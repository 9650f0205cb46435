// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package framework

import (
	"context"
	"fmt"

	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/Abirdcfly/clickhouse-operator/internal/check"
	"github.com/Abirdcfly/clickhouse-operator/internal/clickhouse"
	"github.com/Abirdcfly/clickhouse-operator/internal/config"
	"github.com/Abirdcfly/clickhouse-operator/internal/driver"
	"github.com/Abirdcfly/clickhouse-operator/internal/kubernetes"
	"github.com/Abirdcfly/clickhouse-operator/internal/manifest"
	"github.com/Abirdcfly/clickhouse-operator/internal/metrics"
	"github.com/Abirdcfly/clickhouse-operator/internal/operator"
)

// Harness bundles what scenarios drive the cluster with.
type Harness struct {
	Config     config.Config
	Client     client.Client
	Driver     *driver.Driver
	ClickHouse *clickhouse.Client
	Operator   *operator.Controller
	Fixtures   manifest.Resolver
}

// NewHarness connects to the cluster of restConfig.
func NewHarness(restConfig *rest.Config, cfg config.Config) (*Harness, error) {
	c, err := client.New(restConfig, client.Options{Scheme: kubernetes.NewScheme()})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	executor, err := kubernetes.NewPodExecutor(restConfig)
	if err != nil {
		return nil, err
	}
	fixtures := manifest.Resolver{Root: cfg.FixturesDir}
	d := driver.New(c, cfg.Namespace, fixtures, driver.OptionsFrom(cfg.Timeouts), metrics.Default())
	return &Harness{
		Config:     cfg,
		Client:     c,
		Driver:     d,
		ClickHouse: clickhouse.NewClient(executor, d.Reader(), cfg.Namespace),
		Operator:   operator.NewController(c, cfg.Operator.Namespace, cfg.Operator.Deployment, cfg.Operator.PodSelector),
		Fixtures:   fixtures,
	}, nil
}

// CreateAndCheck runs the fixture at path through the driver.
func (h *Harness) CreateAndCheck(ctx context.Context, path string, spec check.Spec) (*driver.Verdict, error) {
	return h.Driver.CreateAndCheck(ctx, driver.Request{Manifest: path, Spec: spec})
}

// CHIName returns the name of the installation defined by the fixture at path.
func (h *Harness) CHIName(path string) (string, error) {
	m, err := h.Fixtures.Load(path)
	if err != nil {
		return "", err
	}
	return m.Name()
}

// DeleteInstallation deletes the installation and waits until it is gone. The installation of a
// failed scenario is left in place. It reports whether the installation was deleted.
func (h *Harness) DeleteInstallation(ctx context.Context, chi string, failed bool) (bool, error) {
	if failed {
		log.FromContext(ctx).Info("Keeping installation of failed scenario", "chi", chi, "namespace", h.Config.Namespace)
		return false, nil
	}
	if err := h.Driver.Delete(ctx, chi, false); err != nil {
		return false, err
	}
	return true, nil
}

// TearDown deletes the test namespace and whatever is left in it once every scenario passed,
// unless the configuration keeps it. It reports whether the namespace was deleted.
func (h *Harness) TearDown(ctx context.Context, failedSpecs int) (bool, error) {
	logger := log.FromContext(ctx).WithValues("namespace", h.Config.Namespace)
	if failedSpecs > 0 {
		logger.Info("Keeping namespace of failed scenarios", "failed", failedSpecs)
		return false, nil
	}
	if h.Config.KeepNamespace {
		logger.Info("Keeping namespace")
		return false, nil
	}
	if err := DeleteNamespace(ctx, h.Client, h.Config.Namespace); err != nil {
		return false, err
	}
	return true, nil
}

// SetOperatorVersion points the operator deployment at the images of version.
func (h *Harness) SetOperatorVersion(ctx context.Context, version string) error {
	return h.Operator.SetVersion(ctx, operator.Images{
		Operator:        h.Config.OperatorImage(version),
		MetricsExporter: h.Config.MetricsExporterImage(version),
	})
}

// Query runs sql as the configured user unless opts names another one.
func (h *Harness) Query(ctx context.Context, chi, sql string, opts clickhouse.QueryOptions) (string, error) {
	if opts.User == "" {
		opts.User = h.Config.ClickHouse.User
		opts.Password = h.Config.ClickHouse.Password
	}
	return h.ClickHouse.Query(ctx, chi, sql, opts)
}

// QueryWithError is Query returning the server error text instead of failing.
func (h *Harness) QueryWithError(ctx context.Context, chi, sql string, opts clickhouse.QueryOptions) (string, error) {
	if opts.User == "" {
		opts.User = h.Config.ClickHouse.User
		opts.Password = h.Config.ClickHouse.Password
	}
	return h.ClickHouse.QueryWithError(ctx, chi, sql, opts)
}
