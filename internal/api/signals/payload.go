package signals

import (
	"github.com/good-yellow-bee/blazewatch/internal/behavior"
	"github.com/good-yellow-bee/blazewatch/internal/errtrack"
	"github.com/good-yellow-bee/blazewatch/internal/models"
	"github.com/good-yellow-bee/blazewatch/internal/performance"
)

// PerformancePayload is a sample as reported by browser instrumentation.
type PerformancePayload struct {
	FCP       float64 `json:"fcp"`
	LCP       float64 `json:"lcp"`
	FID       float64 `json:"fid"`
	CLS       float64 `json:"cls"`
	TTFB      float64 `json:"ttfb"`
	Timestamp int64   `json:"timestamp"` // epoch ms
	Page      string  `json:"page"`
}

func (p PerformancePayload) sample() models.PerformanceSample {
	return models.PerformanceSample{
		FCP:       p.FCP,
		LCP:       p.LCP,
		FID:       p.FID,
		CLS:       p.CLS,
		TTFB:      p.TTFB,
		Timestamp: fromEpochMs(p.Timestamp),
		Page:      p.Page,
	}
}

// ErrorPayload is a captured error as reported by browser instrumentation.
type ErrorPayload struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Stack     string `json:"stack,omitempty"`
	Filename  string `json:"filename,omitempty"`
	Line      int    `json:"lineno,omitempty"`
	Col       int    `json:"colno,omitempty"`
	Timestamp int64  `json:"timestamp"` // epoch ms
	URL       string `json:"url"`
	UserAgent string `json:"user_agent"`
	UserID    string `json:"user_id,omitempty"`
	Severity  string `json:"severity,omitempty"`
}

func (p ErrorPayload) event() models.ErrorEvent {
	return models.ErrorEvent{
		ID:        p.ID,
		Type:      models.ErrorType(p.Type),
		Message:   p.Message,
		Stack:     p.Stack,
		Filename:  p.Filename,
		Line:      p.Line,
		Col:       p.Col,
		Timestamp: fromEpochMs(p.Timestamp),
		URL:       p.URL,
		UserAgent: p.UserAgent,
		UserID:    p.UserID,
		Severity:  models.Severity(p.Severity),
	}
}

// EventPayload is an interaction as reported by browser instrumentation.
type EventPayload struct {
	Type        string        `json:"type"`
	Element     string        `json:"element"`
	Selector    string        `json:"selector,omitempty"`
	Coordinates *models.Point `json:"coordinates,omitempty"`
	Value       string        `json:"value,omitempty"`
	Page        string        `json:"page"`
	UserID      string        `json:"user_id,omitempty"`
}

func (p EventPayload) input() behavior.EventInput {
	return behavior.EventInput{
		Type:        models.EventType(p.Type),
		Element:     p.Element,
		Selector:    p.Selector,
		Coordinates: p.Coordinates,
		Value:       p.Value,
		Page:        p.Page,
		UserID:      p.UserID,
	}
}

// FilterPayload is a partial error filter. Times are epoch ms.
type FilterPayload struct {
	Type      *string `json:"type,omitempty"`
	Severity  *string `json:"severity,omitempty"`
	Page      *string `json:"page,omitempty"`
	StartTime *int64  `json:"start_time,omitempty"`
	EndTime   *int64  `json:"end_time,omitempty"`
}

func (p FilterPayload) update() errtrack.FilterUpdate {
	u := errtrack.FilterUpdate{
		Page:      p.Page,
		StartTime: optionalEpochMs(p.StartTime),
		EndTime:   optionalEpochMs(p.EndTime),
	}
	if p.Type != nil {
		t := models.ErrorType(*p.Type)
		u.Type = &t
	}
	if p.Severity != nil {
		s := models.Severity(*p.Severity)
		u.Severity = &s
	}
	return u
}

// PerformanceConfigPayload is a partial performance configuration.
type PerformanceConfigPayload struct {
	AutoStart    *bool                         `json:"auto_start,omitempty"`
	IntervalMs   *int64                        `json:"interval_ms,omitempty"`
	EnableAlerts *bool                         `json:"enable_alerts,omitempty"`
	Thresholds   *performance.ThresholdsUpdate `json:"thresholds,omitempty"`
	// Monitoring starts or stops monitoring.
	Monitoring *bool `json:"monitoring,omitempty"`
}

// PerformanceConfigView is the performance configuration as served.
type PerformanceConfigView struct {
	AutoStart    bool              `json:"auto_start"`
	IntervalMs   int64             `json:"interval_ms"`
	EnableAlerts bool              `json:"enable_alerts"`
	Thresholds   models.Thresholds `json:"thresholds"`
	Monitoring   bool              `json:"monitoring"`
}

// BehaviorConfigPayload is a partial behavior configuration.
type BehaviorConfigPayload struct {
	TrackClicks      *bool  `json:"track_clicks,omitempty"`
	TrackScrolls     *bool  `json:"track_scrolls,omitempty"`
	TrackInputs      *bool  `json:"track_inputs,omitempty"`
	TrackHovers      *bool  `json:"track_hovers,omitempty"`
	TrackNavigation  *bool  `json:"track_navigation,omitempty"`
	HeatmapEnabled   *bool  `json:"heatmap_enabled,omitempty"`
	SessionTimeoutMs *int64 `json:"session_timeout_ms,omitempty"`
}

func (p BehaviorConfigPayload) update() behavior.ConfigUpdate {
	return behavior.ConfigUpdate{
		TrackClicks:     p.TrackClicks,
		TrackScrolls:    p.TrackScrolls,
		TrackInputs:     p.TrackInputs,
		TrackHovers:     p.TrackHovers,
		TrackNavigation: p.TrackNavigation,
		HeatmapEnabled:  p.HeatmapEnabled,
		SessionTimeout:  optionalMs(p.SessionTimeoutMs),
	}
}

// BehaviorConfigView is the behavior configuration as served.
type BehaviorConfigView struct {
	TrackClicks      bool  `json:"track_clicks"`
	TrackScrolls     bool  `json:"track_scrolls"`
	TrackInputs      bool  `json:"track_inputs"`
	TrackHovers      bool  `json:"track_hovers"`
	TrackNavigation  bool  `json:"track_navigation"`
	HeatmapEnabled   bool  `json:"heatmap_enabled"`
	SessionTimeoutMs int64 `json:"session_timeout_ms"`
}

// PerformanceView is the performance dashboard snapshot.
type PerformanceView struct {
	Current    *models.PerformanceSample  `json:"current"`
	Average    *models.MetricAverages     `json:"average"`
	Score      int                        `json:"score"`
	Alerts     []models.PerformanceAlert  `json:"alerts"`
	Latest     []models.PerformanceSample `json:"latest"`
	Monitoring bool                       `json:"monitoring"`
}

// BehaviorStatsView is BehaviorStats with the session duration in ms.
type BehaviorStatsView struct {
	TotalEvents       int            `json:"total_events"`
	ByType            map[string]int `json:"by_type"`
	ByPage            map[string]int `json:"by_page"`
	PageViews         map[string]int `json:"page_views"`
	SessionDurationMs int64          `json:"session_duration_ms"`
	UniqueElements    int            `json:"unique_elements"`
	Sessions          int            `json:"sessions"`
}

// HeatmapView carries both heatmap strategies.
type HeatmapView struct {
	Live []models.HeatmapPoint `json:"live"`
	Grid []models.HeatmapPoint `json:"grid"`
}
