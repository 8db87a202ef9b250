// Package monitor composes the metric, error, behavior and alert stores into
// one explicitly constructed observability context.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/good-yellow-bee/blazewatch/internal/alerting"
	"github.com/good-yellow-bee/blazewatch/internal/behavior"
	"github.com/good-yellow-bee/blazewatch/internal/errtrack"
	"github.com/good-yellow-bee/blazewatch/internal/models"
	"github.com/good-yellow-bee/blazewatch/internal/notifier"
	"github.com/good-yellow-bee/blazewatch/internal/performance"
	"github.com/good-yellow-bee/blazewatch/internal/reporter"
)

// Config configures every component owned by a Monitor.
type Config struct {
	Performance performance.Config
	Errors      errtrack.Config
	Behavior    behavior.Config
	Alerts      models.AlertConfig

	// RateLimit bounds notification dispatch.
	RateLimit notifier.RateLimitConfig
	// ReportURL is the error collector. Empty logs reports instead.
	ReportURL     string
	ReportTimeout time.Duration
	// WebhookTimeout bounds a webhook POST.
	WebhookTimeout time.Duration
	// JanitorInterval is how often idle sessions are checked. Defaults to 1m.
	JanitorInterval time.Duration
	// DefaultRules installs the stock alert rules.
	DefaultRules bool
}

// DefaultConfig returns the stock configuration of every component.
func DefaultConfig() Config {
	return Config{
		Performance:     performance.DefaultConfig(),
		Errors:          errtrack.DefaultConfig(),
		Behavior:        behavior.DefaultConfig(),
		Alerts:          alerting.DefaultConfig(),
		RateLimit:       notifier.DefaultRateLimitConfig(),
		ReportTimeout:   10 * time.Second,
		WebhookTimeout:  30 * time.Second,
		JanitorInterval: time.Minute,
		DefaultRules:    true,
	}
}

// Options configures a Monitor.
type Options struct {
	Config Config
	// Reporter overrides the sink built from Config.ReportURL.
	Reporter errtrack.Reporter
	// Logger receives console notifications. Defaults to log.Default().
	Logger *log.Logger
	// Now overrides the clock of every store (tests).
	Now func() time.Time
}

// Monitor owns the stores and the notification pipeline.
type Monitor struct {
	Performance *performance.Store
	Errors      *errtrack.Store
	Behavior    *behavior.Store
	Alerts      *alerting.Engine
	Dispatcher  *notifier.Dispatcher
	// Browser presents notifications to subscribed browser clients.
	Browser *notifier.Hub

	janitorInterval time.Duration
	now             func() time.Time
}

// New builds a Monitor from opts.
func New(opts Options) (*Monitor, error) {
	cfg := opts.Config

	rep := opts.Reporter
	if rep == nil {
		r, err := reporter.New(cfg.ReportURL, cfg.ReportTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create reporter: %w", err)
		}
		rep = r
	}

	m := &Monitor{
		Performance: performance.NewStore(&performance.Options{Config: cfg.Performance, Now: opts.Now}),
		Errors:      errtrack.NewStore(&errtrack.Options{Config: cfg.Errors, Reporter: rep, Now: opts.Now}),
		Behavior:    behavior.NewStore(&behavior.Options{Config: cfg.Behavior, Now: opts.Now}),
		Dispatcher:  notifier.NewDispatcherWithRateLimit(cfg.RateLimit),
		Browser:     notifier.NewHub(0),

		janitorInterval: cfg.JanitorInterval,
		now:             opts.Now,
	}
	if m.janitorInterval <= 0 {
		m.janitorInterval = time.Minute
	}
	if m.now == nil {
		m.now = time.Now
	}

	m.Alerts = alerting.NewEngine(&alerting.Options{
		Config:      cfg.Alerts,
		Dispatcher:  m.Dispatcher,
		Performance: m.Performance,
		Errors:      m.Errors,
		Behavior:    m.Behavior,
		Now:         opts.Now,
	})

	m.Dispatcher.Register(notifier.NewConsoleNotifier(opts.Logger))
	m.Dispatcher.Register(notifier.NewBrowserNotifier(m.Browser))
	m.Dispatcher.Register(notifier.NewWebhookNotifier(notifier.WebhookConfig{
		URL:     m.Alerts.WebhookURL,
		Timeout: cfg.WebhookTimeout,
	}))

	m.Performance.SetAlertHook(m.onPerformanceAlert)
	if cfg.Performance.AutoStart {
		m.Performance.StartMonitoring()
	}
	if cfg.DefaultRules {
		m.Alerts.InitializeDefaultRules()
	}

	return m, nil
}

// onPerformanceAlert turns a store threshold alert into a notification.
func (m *Monitor) onPerformanceAlert(a models.PerformanceAlert) {
	m.Alerts.TriggerNotification(alerting.NotificationInput{
		Title:     fmt.Sprintf("%s threshold exceeded", strings.ToUpper(string(a.Metric))),
		Message:   fmt.Sprintf("%s %g exceeds threshold %g on %s", a.Metric, a.Value, a.Threshold, a.Page),
		Type:      models.AlertTypePerformance,
		Severity:  a.Severity,
		Timestamp: a.Timestamp,
		Data:      a,
	})
}

// IngestPerformanceSample stores a sample and evaluates the performance
// rules against it.
func (m *Monitor) IngestPerformanceSample(s models.PerformanceSample) error {
	if err := validateSample(s); err != nil {
		return err
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = m.now()
	}
	m.Performance.AddSample(s)
	m.Alerts.EvaluatePerformance(s)
	return nil
}

// IngestError stores an error event and evaluates the error rules against
// it. Events of a disabled category are accepted and dropped.
func (m *Monitor) IngestError(e models.ErrorEvent) error {
	if err := normalizeError(&e); err != nil {
		return err
	}
	if !m.Errors.Enabled(e.Type) {
		return nil
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = m.now()
	}
	stored := m.Errors.AddError(e)
	m.Alerts.EvaluateError(stored)
	return nil
}

// IngestBehaviorEvent tracks an interaction and evaluates the behavior rules
// against it in the context of its session.
func (m *Monitor) IngestBehaviorEvent(in behavior.EventInput) error {
	if err := validateEvent(in); err != nil {
		return err
	}
	ev, ok := m.Behavior.TrackEvent(in)
	if !ok {
		return nil
	}
	session, _ := m.Behavior.CurrentSession()
	m.Alerts.EvaluateBehavior(alerting.BehaviorInput{
		Event:   ev,
		Session: session,
		Stats:   m.Behavior.Stats(),
	})
	return nil
}

// IsValidationError reports whether err is an ingestion shape violation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Run ends idle sessions periodically until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Behavior.EndIdleSession()
		}
	}
}

// Close waits for in-flight reports and webhook posts and closes the
// notifiers.
func (m *Monitor) Close() error {
	m.Errors.Wait()
	return m.Dispatcher.Close()
}
