// Package performance keeps the bounded history of page-load timing samples,
// derives averages and a score from it, and raises threshold alerts.
package performance

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/blazewatch/internal/metrics"
	"github.com/good-yellow-bee/blazewatch/internal/models"
)

const (
	// MaxSamples is the number of samples retained, oldest dropped first.
	MaxSamples = 100
	// MaxAlerts is the number of alerts retained, newest first.
	MaxAlerts = 50
	// latestWindow is the number of samples returned by LatestMetrics.
	latestWindow = 20
)

// Config controls monitoring and alerting.
type Config struct {
	AutoStart    bool              `json:"auto_start" yaml:"auto_start"`
	Interval     time.Duration     `json:"interval" yaml:"interval"`
	EnableAlerts bool              `json:"enable_alerts" yaml:"enable_alerts"`
	Thresholds   models.Thresholds `json:"thresholds" yaml:"thresholds"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		AutoStart:    true,
		Interval:     5 * time.Second,
		EnableAlerts: true,
		Thresholds:   models.DefaultThresholds(),
	}
}

// ConfigUpdate is a partial Config. Nil fields are left unchanged.
type ConfigUpdate struct {
	AutoStart    *bool              `json:"auto_start,omitempty"`
	Interval     *time.Duration     `json:"interval,omitempty"`
	EnableAlerts *bool              `json:"enable_alerts,omitempty"`
	Thresholds   *models.Thresholds `json:"thresholds,omitempty"`
}

// ThresholdsUpdate is a partial Thresholds. Nil fields are left unchanged.
type ThresholdsUpdate struct {
	FCP  *float64 `json:"fcp,omitempty"`
	LCP  *float64 `json:"lcp,omitempty"`
	FID  *float64 `json:"fid,omitempty"`
	CLS  *float64 `json:"cls,omitempty"`
	TTFB *float64 `json:"ttfb,omitempty"`
}

// AlertHook receives alerts raised by AddSample, after the store is updated.
type AlertHook func(models.PerformanceAlert)

// Options configures a Store.
type Options struct {
	Config Config
	// OnAlert is called for every new threshold alert. Optional.
	OnAlert AlertHook
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Store is the performance metric store.
type Store struct {
	mu sync.RWMutex

	samples    []models.PerformanceSample
	current    *models.PerformanceSample
	alerts     []models.PerformanceAlert
	monitoring bool
	config     Config

	onAlert AlertHook
	now     func() time.Time
}

// NewStore creates a performance store. A nil opts uses DefaultConfig.
func NewStore(opts *Options) *Store {
	if opts == nil {
		opts = &Options{Config: DefaultConfig()}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		samples: make([]models.PerformanceSample, 0, MaxSamples),
		config:  opts.Config,
		onAlert: opts.OnAlert,
		now:     now,
	}
}

// SetAlertHook replaces the alert hook.
func (s *Store) SetAlertHook(hook AlertHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAlert = hook
}

// StartMonitoring marks monitoring as running.
func (s *Store) StartMonitoring() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitoring = true
	log.Printf("performance monitoring started")
}

// StopMonitoring marks monitoring as stopped. Stored data is kept.
func (s *Store) StopMonitoring() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitoring = false
	log.Printf("performance monitoring stopped")
}

// IsMonitoring reports whether monitoring is running.
func (s *Store) IsMonitoring() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.monitoring
}

// AddSample appends a sample, makes it current and, when alerts are enabled,
// checks it against the thresholds.
func (s *Store) AddSample(sample models.PerformanceSample) {
	s.mu.Lock()

	s.samples = append(s.samples, sample)
	if len(s.samples) > MaxSamples {
		s.samples = append(s.samples[:0:0], s.samples[len(s.samples)-MaxSamples:]...)
	}
	current := sample
	s.current = &current

	var raised []models.PerformanceAlert
	if s.config.EnableAlerts {
		raised = s.checkThresholdsLocked(sample)
	}
	hook := s.onAlert
	score := s.scoreLocked()
	s.mu.Unlock()

	metrics.SamplesTotal.Inc()
	metrics.PerformanceScore.Set(float64(score))
	for _, a := range raised {
		metrics.PerformanceAlertsTotal.WithLabelValues(string(a.Metric), string(a.Severity)).Inc()
		if hook != nil {
			hook(a)
		}
	}
}

// checkThresholdsLocked evaluates every metric independently and prepends
// the new alerts. Must be called with lock held.
func (s *Store) checkThresholdsLocked(sample models.PerformanceSample) []models.PerformanceAlert {
	thresholds := s.config.Thresholds
	now := s.now()

	var raised []models.PerformanceAlert
	for _, m := range models.Metrics {
		value := sample.Value(m)
		threshold := thresholds.Value(m)
		if value <= threshold {
			continue
		}
		severity := models.SeverityMedium
		if value > threshold*1.5 {
			severity = models.SeverityHigh
		}
		raised = append(raised, models.PerformanceAlert{
			ID:        uuid.New().String(),
			Metric:    m,
			Value:     value,
			Threshold: threshold,
			Timestamp: now,
			Page:      sample.Page,
			Severity:  severity,
		})
	}
	if len(raised) == 0 {
		return nil
	}

	alerts := make([]models.PerformanceAlert, 0, len(raised)+len(s.alerts))
	alerts = append(alerts, raised...)
	alerts = append(alerts, s.alerts...)
	if len(alerts) > MaxAlerts {
		alerts = alerts[:MaxAlerts]
	}
	s.alerts = alerts
	return raised
}

// Samples returns the retained samples, oldest first.
func (s *Store) Samples() []models.PerformanceSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PerformanceSample, len(s.samples))
	copy(out, s.samples)
	return out
}

// LatestMetrics returns up to the 20 most recent samples, oldest first.
func (s *Store) LatestMetrics() []models.PerformanceSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if len(s.samples) > latestWindow {
		start = len(s.samples) - latestWindow
	}
	out := make([]models.PerformanceSample, len(s.samples)-start)
	copy(out, s.samples[start:])
	return out
}

// Current returns the most recent sample, if any.
func (s *Store) Current() (models.PerformanceSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.PerformanceSample{}, false
	}
	return *s.current, true
}

// Alerts returns the retained alerts, newest first.
func (s *Store) Alerts() []models.PerformanceAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PerformanceAlert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// AverageMetrics returns the mean of all retained samples. Timings are
// rounded to whole milliseconds and CLS to two decimals. ok is false when
// there are no samples.
func (s *Store) AverageMetrics() (avg models.MetricAverages, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.samples) == 0 {
		return models.MetricAverages{}, false
	}

	var sum models.MetricAverages
	for _, m := range s.samples {
		sum.FCP += m.FCP
		sum.LCP += m.LCP
		sum.FID += m.FID
		sum.CLS += m.CLS
		sum.TTFB += m.TTFB
	}

	n := float64(len(s.samples))
	return models.MetricAverages{
		FCP:  roundHalfUp(sum.FCP / n),
		LCP:  roundHalfUp(sum.LCP / n),
		FID:  roundHalfUp(sum.FID / n),
		CLS:  roundHalfUp(sum.CLS/n*100) / 100,
		TTFB: roundHalfUp(sum.TTFB / n),
	}, true
}

// roundHalfUp rounds halves toward positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// PerformanceScore scores the current sample from 100 down, floored at 0.
// Without a current sample the score is 0.
func (s *Store) PerformanceScore() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scoreLocked()
}

// penalty describes the deduction for one metric.
type penalty struct {
	metric     models.Metric
	severeMult float64
	severe     int
	mild       int
}

var penalties = []penalty{
	{models.MetricFCP, 1.5, 20, 10},
	{models.MetricLCP, 1.5, 20, 10},
	{models.MetricFID, 2, 15, 8},
	{models.MetricCLS, 2, 15, 8},
	{models.MetricTTFB, 1.5, 10, 5},
}

// scoreLocked must be called with lock held.
func (s *Store) scoreLocked() int {
	if s.current == nil {
		return 0
	}

	score := 100
	for _, p := range penalties {
		value := s.current.Value(p.metric)
		threshold := s.config.Thresholds.Value(p.metric)
		switch {
		case value > threshold*p.severeMult:
			score -= p.severe
		case value > threshold:
			score -= p.mild
		}
	}
	if score < 0 {
		return 0
	}
	return score
}

// ClearMetrics drops all samples and the current sample.
func (s *Store) ClearMetrics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = s.samples[:0]
	s.current = nil
}

// ClearAlerts drops all alerts.
func (s *Store) ClearAlerts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = nil
}

// Config returns the current configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// UpdateConfig merges the set fields of u into the configuration.
func (s *Store) UpdateConfig(u ConfigUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.AutoStart != nil {
		s.config.AutoStart = *u.AutoStart
	}
	if u.Interval != nil {
		s.config.Interval = *u.Interval
	}
	if u.EnableAlerts != nil {
		s.config.EnableAlerts = *u.EnableAlerts
	}
	if u.Thresholds != nil {
		s.config.Thresholds = *u.Thresholds
	}
}

// UpdateThresholds merges the set fields of u into the thresholds.
func (s *Store) UpdateThresholds(u ThresholdsUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &s.config.Thresholds
	if u.FCP != nil {
		t.FCP = *u.FCP
	}
	if u.LCP != nil {
		t.LCP = *u.LCP
	}
	if u.FID != nil {
		t.FID = *u.FID
	}
	if u.CLS != nil {
		t.CLS = *u.CLS
	}
	if u.TTFB != nil {
		t.TTFB = *u.TTFB
	}
}
