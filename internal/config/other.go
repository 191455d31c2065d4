package config

import "fmt"

type SentryConfig struct {
	Enabled     bool
	Dsn         RedactedString
	Environment string
	SampleRate  float64
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type MonitoringConfig struct {
	Sentry     SentryConfig
	Prometheus PrometheusConfig
}

func (c *MonitoringConfig) Validate() error {
	if c.Sentry.Enabled && c.Sentry.Dsn == "" {
		return fmt.Errorf("a sentry DSN is required when sentry is enabled")
	}
	if c.Sentry.SampleRate < 0 || c.Sentry.SampleRate > 1 {
		return fmt.Errorf("the sentry sample rate has to be between 0 and 1, the provided one is %f", c.Sentry.SampleRate)
	}
	if c.Prometheus.Enabled && (c.Prometheus.Port <= 0 || c.Prometheus.Port > 65535) {
		return fmt.Errorf("invalid prometheus port %d", c.Prometheus.Port)
	}
	return nil
}

type LoggingConfig struct {
	DebugMode bool
	// File enables writing the logs to a rotated file in addition to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func (c *LoggingConfig) Validate() error {
	if c.File != "" && c.MaxSizeMB <= 0 {
		return fmt.Errorf("the maximum log file size has to be positive, the provided one is %d", c.MaxSizeMB)
	}
	return nil
}

type KeepFreshConfig struct {
	Enabled         bool
	IntervalSeconds int
}

func (c *KeepFreshConfig) Validate() error {
	if c.Enabled && c.IntervalSeconds <= 0 {
		return fmt.Errorf("the keep fresh interval has to be positive, the provided one is %d", c.IntervalSeconds)
	}
	return nil
}
