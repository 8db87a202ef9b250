// Package models contains the core data structures for blazewatch.
package models

import "time"

// Metric names a performance timing channel.
type Metric string

const (
	MetricFCP  Metric = "fcp"
	MetricLCP  Metric = "lcp"
	MetricFID  Metric = "fid"
	MetricCLS  Metric = "cls"
	MetricTTFB Metric = "ttfb"
)

// Metrics lists every metric channel in check order.
var Metrics = []Metric{MetricFCP, MetricLCP, MetricFID, MetricCLS, MetricTTFB}

// PerformanceSample is one set of page-load timings reported by a client.
// Timings are milliseconds except CLS, which is unitless.
type PerformanceSample struct {
	FCP       float64   `json:"fcp"`
	LCP       float64   `json:"lcp"`
	FID       float64   `json:"fid"`
	CLS       float64   `json:"cls"`
	TTFB      float64   `json:"ttfb"`
	Timestamp time.Time `json:"timestamp"`
	Page      string    `json:"page"`
}

// Value returns the sample value for a metric channel.
func (s PerformanceSample) Value(m Metric) float64 {
	switch m {
	case MetricFCP:
		return s.FCP
	case MetricLCP:
		return s.LCP
	case MetricFID:
		return s.FID
	case MetricCLS:
		return s.CLS
	case MetricTTFB:
		return s.TTFB
	default:
		return 0
	}
}

// Thresholds holds the alerting limit for each metric channel.
type Thresholds struct {
	FCP  float64 `json:"fcp" yaml:"fcp"`
	LCP  float64 `json:"lcp" yaml:"lcp"`
	FID  float64 `json:"fid" yaml:"fid"`
	CLS  float64 `json:"cls" yaml:"cls"`
	TTFB float64 `json:"ttfb" yaml:"ttfb"`
}

// Value returns the threshold for a metric channel.
func (t Thresholds) Value(m Metric) float64 {
	return PerformanceSample{FCP: t.FCP, LCP: t.LCP, FID: t.FID, CLS: t.CLS, TTFB: t.TTFB}.Value(m)
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FCP:  2000,
		LCP:  2500,
		FID:  100,
		CLS:  0.1,
		TTFB: 800,
	}
}

// PerformanceAlert is raised when a sample exceeds a threshold.
type PerformanceAlert struct {
	ID        string    `json:"id"`
	Metric    Metric    `json:"metric"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
	Page      string    `json:"page"`
	Severity  Severity  `json:"severity"`
}

// MetricAverages is the mean of every retained sample.
type MetricAverages struct {
	FCP  float64 `json:"fcp"`
	LCP  float64 `json:"lcp"`
	FID  float64 `json:"fid"`
	CLS  float64 `json:"cls"`
	TTFB float64 `json:"ttfb"`
}
