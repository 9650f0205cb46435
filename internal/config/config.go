// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

// Package config holds the settings scenarios and the convergence driver run with.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the configuration file.
const (
	EnvNamespace            = "CHOP_NAMESPACE"
	EnvOperatorNamespace    = "CHOP_OPERATOR_NAMESPACE"
	EnvOperatorVersion      = "CHOP_OPERATOR_VERSION"
	EnvOperatorImage        = "CHOP_OPERATOR_IMAGE"
	EnvMetricsExporterImage = "CHOP_METRICS_EXPORTER_IMAGE"
	EnvClickHouseImage      = "CHOP_CLICKHOUSE_IMAGE"
	EnvClickHouseTemplate   = "CHOP_CLICKHOUSE_TEMPLATE"
	EnvFixturesDir          = "CHOP_FIXTURES_DIR"
	EnvStatusTimeout        = "CHOP_STATUS_TIMEOUT"
	EnvKeepNamespace        = "CHOP_KEEP_NAMESPACE"
)

// OperatorConfig locates the operator under test.
type OperatorConfig struct {
	Namespace            string `yaml:"namespace"`
	Version              string `yaml:"version"`
	Deployment           string `yaml:"deployment"`
	PodSelector          string `yaml:"pod_selector"`
	Image                string `yaml:"image"`
	MetricsExporterImage string `yaml:"metrics_exporter_image"`
}

// ClickHouseConfig holds the defaults of the installations scenarios create.
type ClickHouseConfig struct {
	Image string `yaml:"image"`
	// Template is the installation template every scenario applies first.
	Template string `yaml:"template"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// TimeoutsConfig bounds every wait of the driver.
type TimeoutsConfig struct {
	Status           time.Duration `yaml:"status"`
	StatusBackoff    time.Duration `yaml:"status_backoff"`
	Checks           time.Duration `yaml:"checks"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	Delete           time.Duration `yaml:"delete"`
	TransientRetries int           `yaml:"transient_retries"`
	TransientBackoff time.Duration `yaml:"transient_backoff"`
}

// Config is the top-level configuration struct.
type Config struct {
	Namespace string `yaml:"namespace"`
	// KeepNamespace leaves the namespace in place after a suite in which every scenario passed.
	KeepNamespace bool             `yaml:"keep_namespace"`
	FixturesDir   string           `yaml:"fixtures_dir"`
	Operator      OperatorConfig   `yaml:"operator"`
	ClickHouse    ClickHouseConfig `yaml:"clickhouse"`
	Timeouts      TimeoutsConfig   `yaml:"timeouts"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Namespace:   "test",
		FixturesDir: ".",
		Operator: OperatorConfig{
			Namespace:            "kube-system",
			Version:              "0.23.0",
			Deployment:           "clickhouse-operator",
			PodSelector:          "app=clickhouse-operator",
			Image:                "altinity/clickhouse-operator",
			MetricsExporterImage: "altinity/metrics-exporter",
		},
		ClickHouse: ClickHouseConfig{
			Image:    "clickhouse/clickhouse-server:23.8",
			Template: "templates/tpl-clickhouse-stable.yaml",
			User:     "default",
		},
		Timeouts: TimeoutsConfig{
			Status:           600 * time.Second,
			StatusBackoff:    5 * time.Second,
			Checks:           120 * time.Second,
			PollInterval:     5 * time.Second,
			Delete:           600 * time.Second,
			TransientRetries: 3,
			TransientBackoff: time.Second,
		},
	}
}

// String returns a formatted string of the configuration.
func (c Config) String() string {
	return fmt.Sprintf(`Configuration properties:
Namespace: %s
FixturesDir: %s
Operator: %s/%s %s:%s
ClickHouseImage: %s
ClickHouseTemplate: %s
StatusTimeout: %s
ChecksTimeout: %s`,
		c.Namespace,
		c.FixturesDir,
		c.Operator.Namespace, c.Operator.Deployment, c.Operator.Image, c.Operator.Version,
		c.ClickHouse.Image,
		c.ClickHouse.Template,
		c.Timeouts.Status,
		c.Timeouts.Checks)
}

// OperatorImage returns the operator image reference for version.
func (c Config) OperatorImage(version string) string {
	return c.Operator.Image + ":" + version
}

// MetricsExporterImage returns the metrics exporter image reference for version.
func (c Config) MetricsExporterImage(version string) string {
	return c.Operator.MetricsExporterImage + ":" + version
}

// Load reads the YAML file at path over the defaults and applies the environment on top.
// An empty path only applies the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read configuration file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to unmarshal configuration file %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if missing := cfg.Validate(); len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configuration fields: %v", missing)
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a dotenv file into the environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strings := map[string]*string{
		EnvNamespace:            &c.Namespace,
		EnvOperatorNamespace:    &c.Operator.Namespace,
		EnvOperatorVersion:      &c.Operator.Version,
		EnvOperatorImage:        &c.Operator.Image,
		EnvMetricsExporterImage: &c.Operator.MetricsExporterImage,
		EnvClickHouseImage:      &c.ClickHouse.Image,
		EnvClickHouseTemplate:   &c.ClickHouse.Template,
		EnvFixturesDir:          &c.FixturesDir,
	}
	for env, field := range strings {
		if v, ok := lookup(env); ok && v != "" {
			*field = v
		}
	}
	if v, ok := lookup(EnvStatusTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvStatusTimeout, err)
		}
		c.Timeouts.Status = d
	}
	if v, ok := lookup(EnvKeepNamespace); ok && v != "" {
		keep, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvKeepNamespace, err)
		}
		c.KeepNamespace = keep
	}
	return nil
}

// Validate returns the required fields that are empty.
func (c Config) Validate() []string {
	var missing []string
	if c.Namespace == "" {
		missing = append(missing, "namespace")
	}
	if c.Operator.Namespace == "" {
		missing = append(missing, "operator.namespace")
	}
	if c.Operator.Deployment == "" {
		missing = append(missing, "operator.deployment")
	}
	if c.Timeouts.Status <= 0 {
		missing = append(missing, "timeouts.status")
	}
	if c.Timeouts.StatusBackoff <= 0 {
		missing = append(missing, "timeouts.status_backoff")
	}
	if c.Timeouts.Checks <= 0 {
		missing = append(missing, "timeouts.checks")
	}
	if c.Timeouts.PollInterval <= 0 {
		missing = append(missing, "timeouts.poll_interval")
	}
	return missing
}
