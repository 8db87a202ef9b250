// Package main provides the blazewatch CLI.
package main

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/blazewatch/internal/alerting"
	"github.com/good-yellow-bee/blazewatch/internal/api"
	"github.com/good-yellow-bee/blazewatch/internal/api/alerts"
	"github.com/good-yellow-bee/blazewatch/internal/behavior"
	"github.com/good-yellow-bee/blazewatch/internal/errtrack"
	"github.com/good-yellow-bee/blazewatch/internal/models"
	"github.com/good-yellow-bee/blazewatch/internal/monitor"
	"github.com/good-yellow-bee/blazewatch/internal/notifier"
	"github.com/good-yellow-bee/blazewatch/internal/performance"
)

// Config represents the blazewatch configuration.
type Config struct {
	Server      ServerConfig       `yaml:"server"`
	Performance performance.Config `yaml:"performance"`
	Errors      ErrorsConfig       `yaml:"errors"`
	Behavior    behavior.Config    `yaml:"behavior"`
	Alerts      AlertsConfig       `yaml:"alerts"`
	Verbose     bool               `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP settings.
type ServerConfig struct {
	HTTPAddress       string        `yaml:"http_address"`        // API listen address (default: :8080)
	MetricsAddress    string        `yaml:"metrics_address"`     // Prometheus listen address, empty disables
	IngestRate        float64       `yaml:"ingest_rate"`         // per-IP ingestion requests per second, negative disables
	IngestBurst       int           `yaml:"ingest_burst"`        // per-IP ingestion burst
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`      // request body limit
	StreamMaxDuration time.Duration `yaml:"stream_max_duration"` // notification stream lifetime
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`  // notification stream keepalive
}

// ErrorsConfig contains error tracking and reporting settings.
type ErrorsConfig struct {
	errtrack.Config `yaml:",inline"`

	ReportURL     string        `yaml:"report_url"`     // error collector, empty logs reports
	ReportTimeout time.Duration `yaml:"report_timeout"` // default 10s
}

// AlertsConfig contains alert rule and delivery settings.
type AlertsConfig struct {
	EnableNotifications bool                        `yaml:"enable_notifications"`
	NotificationMethods []models.NotificationMethod `yaml:"notification_methods"`
	WebhookURL          string                      `yaml:"webhook_url"`
	WebhookTimeout      time.Duration               `yaml:"webhook_timeout"`
	// SilentHours null disables the silent window.
	SilentHours *models.SilentHours      `yaml:"silent_hours"`
	RateLimit   notifier.RateLimitConfig `yaml:"rate_limit"`
	// RulesFile replaces the default rules when set.
	RulesFile  string `yaml:"rules_file"`
	WatchRules bool   `yaml:"watch_rules"`
	// DefaultRules installs the stock rules when no rules file is set.
	DefaultRules bool `yaml:"default_rules"`
}

// LoadConfig loads configuration from a YAML file. Values absent from the
// file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	alertDefaults := alerting.DefaultConfig()
	cfg := &Config{
		Performance: performance.DefaultConfig(),
		Errors:      ErrorsConfig{Config: errtrack.DefaultConfig()},
		Behavior:    behavior.DefaultConfig(),
		Alerts: AlertsConfig{
			EnableNotifications: alertDefaults.EnableNotifications,
			NotificationMethods: alertDefaults.NotificationMethods,
			SilentHours:         alertDefaults.SilentHours,
			RateLimit:           notifier.DefaultRateLimitConfig(),
			DefaultRules:        true,
		},
	}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Server.IngestRate == 0 {
		c.Server.IngestRate = 20
	}
	if c.Server.IngestBurst == 0 {
		c.Server.IngestBurst = 40
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
	if c.Server.StreamMaxDuration == 0 {
		c.Server.StreamMaxDuration = 30 * time.Minute
	}
	if c.Server.HeartbeatInterval == 0 {
		c.Server.HeartbeatInterval = 15 * time.Second
	}
	if c.Errors.ReportTimeout == 0 {
		c.Errors.ReportTimeout = 10 * time.Second
	}
	if c.Alerts.WebhookTimeout == 0 {
		c.Alerts.WebhookTimeout = 30 * time.Second
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPAddress == "" {
		return fmt.Errorf("server.http_address is required")
	}
	if c.Server.MetricsAddress != "" && c.Server.MetricsAddress == c.Server.HTTPAddress {
		return fmt.Errorf("server.metrics_address must differ from server.http_address")
	}
	if c.Server.IngestBurst < 0 {
		return fmt.Errorf("server.ingest_burst must not be negative")
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must not be negative")
	}

	if c.Performance.Interval <= 0 {
		return fmt.Errorf("performance.interval must be positive")
	}
	t := c.Performance.Thresholds
	for _, v := range []float64{t.FCP, t.LCP, t.FID, t.CLS, t.TTFB} {
		if v < 0 {
			return fmt.Errorf("performance.thresholds must not be negative")
		}
	}

	if c.Errors.MaxErrors <= 0 {
		return fmt.Errorf("errors.max_errors must be positive")
	}
	if c.Errors.ReportURL != "" {
		u, err := url.Parse(c.Errors.ReportURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("errors.report_url must be an http or https URL")
		}
	}

	if c.Behavior.SessionTimeout < 0 {
		return fmt.Errorf("behavior.session_timeout must not be negative")
	}

	if err := alerts.ValidateMethods(c.Alerts.NotificationMethods); err != nil {
		return fmt.Errorf("alerts.notification_methods: %w", err)
	}
	if err := alerts.ValidateSilentHours(c.Alerts.SilentHours); err != nil {
		return fmt.Errorf("alerts.silent_hours: %w", err)
	}
	if err := alerts.ValidateWebhookURL(c.Alerts.WebhookURL); err != nil {
		return fmt.Errorf("alerts.webhook_url: %w", err)
	}
	if c.Alerts.RateLimit.Enabled {
		if c.Alerts.RateLimit.MaxPerWindow <= 0 {
			return fmt.Errorf("alerts.rate_limit.max_per_window must be positive")
		}
		if c.Alerts.RateLimit.Window <= 0 {
			return fmt.Errorf("alerts.rate_limit.window must be positive")
		}
	}
	if c.Alerts.WatchRules && c.Alerts.RulesFile == "" {
		return fmt.Errorf("alerts.rules_file is required when alerts.watch_rules is enabled")
	}
	return nil
}

// monitorConfig builds the monitor configuration.
func (c *Config) monitorConfig() monitor.Config {
	return monitor.Config{
		Performance: c.Performance,
		Errors:      c.Errors.Config,
		Behavior:    c.Behavior,
		Alerts: models.AlertConfig{
			EnableNotifications: c.Alerts.EnableNotifications,
			NotificationMethods: c.Alerts.NotificationMethods,
			WebhookURL:          c.Alerts.WebhookURL,
			SilentHours:         c.Alerts.SilentHours,
		},
		RateLimit:      c.Alerts.RateLimit,
		ReportURL:      c.Errors.ReportURL,
		ReportTimeout:  c.Errors.ReportTimeout,
		WebhookTimeout: c.Alerts.WebhookTimeout,
		DefaultRules:   c.Alerts.DefaultRules && c.Alerts.RulesFile == "",
	}
}

// apiConfig builds the HTTP API configuration.
func (c *Config) apiConfig() *api.Config {
	return &api.Config{
		Address:             c.Server.HTTPAddress,
		IngestRatePerSecond: c.Server.IngestRate,
		IngestBurst:         c.Server.IngestBurst,
		MaxBodyBytes:        c.Server.MaxBodyBytes,
		StreamMaxDuration:   c.Server.StreamMaxDuration,
		HeartbeatInterval:   c.Server.HeartbeatInterval,
		Verbose:             c.Verbose,
	}
}
