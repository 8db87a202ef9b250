// Package signals serves ingestion and read endpoints for performance
// samples, error events and user behavior.
package signals

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/blazewatch/internal/api/response"
	"github.com/good-yellow-bee/blazewatch/internal/errtrack"
	"github.com/good-yellow-bee/blazewatch/internal/models"
	"github.com/good-yellow-bee/blazewatch/internal/monitor"
	"github.com/good-yellow-bee/blazewatch/internal/performance"
)

// Handler handles signal endpoints.
type Handler struct {
	monitor      *monitor.Monitor
	maxBodyBytes int64
}

// NewHandler creates a new signals handler.
func NewHandler(mon *monitor.Monitor, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = response.DefaultMaxBodyBytes
	}
	return &Handler{monitor: mon, maxBodyBytes: maxBodyBytes}
}

// ingested writes 202 on success and 400 on a shape violation.
func ingested(w http.ResponseWriter, err error) {
	var ve *monitor.ValidationError
	switch {
	case err == nil:
		response.Accepted(w)
	case errors.As(err, &ve):
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, ve.Error())
	default:
		response.Fail(w, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	}
}

// IngestPerformance handles POST /api/v1/performance.
func (h *Handler) IngestPerformance(w http.ResponseWriter, r *http.Request) {
	var p PerformancePayload
	if !response.Decode(w, r, h.maxBodyBytes, &p) {
		return
	}
	ingested(w, h.monitor.IngestPerformanceSample(p.sample()))
}

// IngestError handles POST /api/v1/errors.
func (h *Handler) IngestError(w http.ResponseWriter, r *http.Request) {
	var p ErrorPayload
	if !response.Decode(w, r, h.maxBodyBytes, &p) {
		return
	}
	ingested(w, h.monitor.IngestError(p.event()))
}

// IngestEvent handles POST /api/v1/events.
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var p EventPayload
	if !response.Decode(w, r, h.maxBodyBytes, &p) {
		return
	}
	ingested(w, h.monitor.IngestBehaviorEvent(p.input()))
}

// Performance handles GET /api/v1/performance.
func (h *Handler) Performance(w http.ResponseWriter, r *http.Request) {
	store := h.monitor.Performance
	view := PerformanceView{
		Score:      store.PerformanceScore(),
		Alerts:     store.Alerts(),
		Latest:     store.LatestMetrics(),
		Monitoring: store.IsMonitoring(),
	}
	if current, ok := store.Current(); ok {
		view.Current = &current
	}
	if avg, ok := store.AverageMetrics(); ok {
		view.Average = &avg
	}
	response.OK(w, view)
}

// Errors handles GET /api/v1/errors. The current filter applies.
func (h *Handler) Errors(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.monitor.Errors.FilteredErrors())
}

// ErrorStats handles GET /api/v1/errors/stats.
func (h *Handler) ErrorStats(w http.ResponseWriter, r *http.Request) {
	stats := h.monitor.Errors.Stats()
	response.OK(w, map[string]any{
		"stats":    stats,
		"rate":     h.monitor.Errors.ErrorRate(),
		"critical": h.monitor.Errors.CriticalCount(),
		"filter":   h.monitor.Errors.Filter(),
	})
}

// SetErrorFilter handles PUT /api/v1/errors/filter.
func (h *Handler) SetErrorFilter(w http.ResponseWriter, r *http.Request) {
	var p FilterPayload
	if !response.Decode(w, r, h.maxBodyBytes, &p) {
		return
	}
	if p.Type != nil && *p.Type != "" && !models.ErrorType(*p.Type).IsValid() {
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, "unknown error type")
		return
	}
	if p.Severity != nil && *p.Severity != "" && !models.Severity(*p.Severity).IsValid() {
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, "unknown severity")
		return
	}
	h.monitor.Errors.SetFilter(p.update())
	response.OK(w, h.monitor.Errors.Filter())
}

// ClearErrorFilter handles DELETE /api/v1/errors/filter.
func (h *Handler) ClearErrorFilter(w http.ResponseWriter, r *http.Request) {
	h.monitor.Errors.ClearFilter()
	response.NoContent(w)
}

// RemoveError handles DELETE /api/v1/errors/{id}. Unknown ids are a no-op.
func (h *Handler) RemoveError(w http.ResponseWriter, r *http.Request) {
	h.monitor.Errors.RemoveError(chi.URLParam(r, "id"))
	response.NoContent(w)
}

// Sessions handles GET /api/v1/sessions.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.monitor.Behavior.Sessions())
}

// StartSession handles POST /api/v1/sessions. The body is optional.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var p struct {
		UserID string `json:"user_id"`
	}
	if r.ContentLength != 0 && !response.Decode(w, r, h.maxBodyBytes, &p) {
		return
	}
	response.Created(w, h.monitor.Behavior.StartSession(p.UserID))
}

// EndSession handles DELETE /api/v1/sessions/current.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	h.monitor.Behavior.EndSession()
	response.NoContent(w)
}

// BehaviorStats handles GET /api/v1/behavior/stats.
func (h *Handler) BehaviorStats(w http.ResponseWriter, r *http.Request) {
	store := h.monitor.Behavior
	stats := store.Stats()
	response.OK(w, BehaviorStatsView{
		TotalEvents:       stats.TotalEvents,
		ByType:            stats.ByType,
		ByPage:            stats.ByPage,
		PageViews:         store.PageViews(),
		SessionDurationMs: stats.SessionDuration.Milliseconds(),
		UniqueElements:    stats.UniqueElements,
		Sessions:          store.SessionCount(),
	})
}

// Heatmap handles GET /api/v1/behavior/heatmap.
func (h *Handler) Heatmap(w http.ResponseWriter, r *http.Request) {
	response.OK(w, HeatmapView{
		Live: h.monitor.Behavior.HeatmapData(),
		Grid: h.monitor.Behavior.GenerateHeatmap(),
	})
}

// PopularElements handles GET /api/v1/behavior/popular.
func (h *Handler) PopularElements(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.monitor.Behavior.PopularElements())
}

// UpdatePerformanceConfig handles PATCH /api/v1/config/performance.
func (h *Handler) UpdatePerformanceConfig(w http.ResponseWriter, r *http.Request) {
	var p PerformanceConfigPayload
	if !response.Decode(w, r, h.maxBodyBytes, &p) {
		return
	}
	if p.IntervalMs != nil && *p.IntervalMs <= 0 {
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, "interval_ms must be positive")
		return
	}

	store := h.monitor.Performance
	store.UpdateConfig(performance.ConfigUpdate{
		AutoStart:    p.AutoStart,
		Interval:     optionalMs(p.IntervalMs),
		EnableAlerts: p.EnableAlerts,
	})
	if p.Thresholds != nil {
		store.UpdateThresholds(*p.Thresholds)
	}
	if p.Monitoring != nil {
		if *p.Monitoring {
			store.StartMonitoring()
		} else {
			store.StopMonitoring()
		}
	}

	cfg := store.Config()
	response.OK(w, PerformanceConfigView{
		AutoStart:    cfg.AutoStart,
		IntervalMs:   cfg.Interval.Milliseconds(),
		EnableAlerts: cfg.EnableAlerts,
		Thresholds:   cfg.Thresholds,
		Monitoring:   store.IsMonitoring(),
	})
}

// UpdateErrorConfig handles PATCH /api/v1/config/errors.
func (h *Handler) UpdateErrorConfig(w http.ResponseWriter, r *http.Request) {
	var u errtrack.ConfigUpdate
	if !response.Decode(w, r, h.maxBodyBytes, &u) {
		return
	}
	if u.MaxErrors != nil && *u.MaxErrors <= 0 {
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, "max_errors must be positive")
		return
	}
	h.monitor.Errors.UpdateConfig(u)
	response.OK(w, h.monitor.Errors.Config())
}

// UpdateBehaviorConfig handles PATCH /api/v1/config/behavior.
func (h *Handler) UpdateBehaviorConfig(w http.ResponseWriter, r *http.Request) {
	var p BehaviorConfigPayload
	if !response.Decode(w, r, h.maxBodyBytes, &p) {
		return
	}
	if p.SessionTimeoutMs != nil && *p.SessionTimeoutMs < 0 {
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, "session_timeout_ms must not be negative")
		return
	}
	h.monitor.Behavior.UpdateConfig(p.update())

	cfg := h.monitor.Behavior.Config()
	response.OK(w, BehaviorConfigView{
		TrackClicks:      cfg.TrackClicks,
		TrackScrolls:     cfg.TrackScrolls,
		TrackInputs:      cfg.TrackInputs,
		TrackHovers:      cfg.TrackHovers,
		TrackNavigation:  cfg.TrackNavigation,
		HeatmapEnabled:   cfg.HeatmapEnabled,
		SessionTimeoutMs: cfg.SessionTimeout.Milliseconds(),
	})
}
