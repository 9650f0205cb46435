// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	_ "k8s.io/client-go/plugin/pkg/client/auth"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/Abirdcfly/clickhouse-operator/internal/check"
	"github.com/Abirdcfly/clickhouse-operator/internal/config"
	"github.com/Abirdcfly/clickhouse-operator/internal/driver"
	"github.com/Abirdcfly/clickhouse-operator/internal/kubernetes"
	"github.com/Abirdcfly/clickhouse-operator/internal/manifest"
	"github.com/Abirdcfly/clickhouse-operator/internal/metrics"
)

const (
	USER_AGENT_NAME    = "chop-check"
	USER_AGENT_VERSION = "0.1.0"
)

var setupLog = ctrl.Log.WithName("setup")

func main() {
	var configFile string
	var envFile string
	var expectFile string
	var namespace string
	var timeout time.Duration
	var doNotDelete bool

	flag.StringVar(&configFile, "config", "", "Path to the harness configuration file.")
	flag.StringVar(&envFile, "env-file", "./.env", "Path to a dotenv file with configuration overrides.")
	flag.StringVar(&expectFile, "expect", "", "Path to the expected state of the installation.")
	flag.StringVar(&namespace, "namespace", "", "Namespace to create the installation in. Overrides the configuration.")
	flag.DurationVar(&timeout, "timeout", 0, "How long to wait for the installation status. Overrides the configuration.")
	flag.BoolVar(&doNotDelete, "do-not-delete", false, "Keep the installation after it has been verified.")
	opts := zap.Options{
		Development: true,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <manifest>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := config.LoadEnvFile(envFile); err != nil {
		setupLog.Error(err, "unable to load environment file")
		os.Exit(1)
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		setupLog.Error(err, "unable to load configuration")
		os.Exit(1)
	}
	if namespace != "" {
		cfg.Namespace = namespace
	}
	setupLog.V(1).Info(cfg.String())

	spec := check.Spec{}
	if expectFile != "" {
		if spec, err = check.Load(expectFile); err != nil {
			setupLog.Error(err, "unable to load expected state")
			os.Exit(1)
		}
	}

	restConfig := ctrl.GetConfigOrDie()
	restConfig.UserAgent = USER_AGENT_NAME + "/" + USER_AGENT_VERSION
	c, err := client.New(restConfig, client.Options{Scheme: kubernetes.NewScheme()})
	if err != nil {
		setupLog.Error(err, "unable to create client")
		os.Exit(1)
	}

	d := driver.New(c, cfg.Namespace, manifest.Resolver{Root: cfg.FixturesDir}, driver.OptionsFrom(cfg.Timeouts), metrics.Default())
	verdict, err := d.CreateAndCheck(ctrl.SetupSignalHandler(), driver.Request{
		Manifest:    flag.Arg(0),
		Spec:        spec,
		Timeout:     timeout,
		DoNotDelete: doNotDelete,
	})
	printVerdict(os.Stdout, verdict, err)
	if err != nil {
		os.Exit(1)
	}
}
