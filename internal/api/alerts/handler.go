// Package alerts serves alert rules, notification history, delivery
// configuration and the live notification stream.
package alerts

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/blazewatch/internal/alerting"
	"github.com/good-yellow-bee/blazewatch/internal/api/response"
	"github.com/good-yellow-bee/blazewatch/internal/models"
	"github.com/good-yellow-bee/blazewatch/internal/notifier"
)

// Response types
type RuleResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Type        string  `json:"type"`
	Condition   string  `json:"condition"`
	Threshold   float64 `json:"threshold"`
	Severity    string  `json:"severity"`
	Cooldown    string  `json:"cooldown"`
	Enabled     bool    `json:"enabled"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`

	// CooldownRemaining is how long the rule stays silenced after its last
	// notification.
	CooldownRemaining string `json:"cooldown_remaining"`
}

// Options configures a Handler.
type Options struct {
	MaxBodyBytes      int64
	StreamMaxDuration time.Duration
	HeartbeatInterval time.Duration
}

// Handler handles alert endpoints.
type Handler struct {
	engine     *alerting.Engine
	dispatcher *notifier.Dispatcher
	hub        *notifier.Hub
	opts       Options
}

// NewHandler creates an alerts handler. hub may be nil, which disables the
// notification stream. dispatcher may be nil, in which case the delivery
// status reports no registered methods.
func NewHandler(engine *alerting.Engine, dispatcher *notifier.Dispatcher, hub *notifier.Hub, opts Options) *Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = response.DefaultMaxBodyBytes
	}
	if opts.StreamMaxDuration <= 0 {
		opts.StreamMaxDuration = 30 * time.Minute
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 15 * time.Second
	}
	return &Handler{engine: engine, dispatcher: dispatcher, hub: hub, opts: opts}
}

// Request types
type CreateRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Condition   string  `json:"condition"`
	Threshold   float64 `json:"threshold"`
	Severity    string  `json:"severity"`
	Cooldown    string  `json:"cooldown"`
	Enabled     *bool   `json:"enabled"`
}

type UpdateRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Type        *string  `json:"type,omitempty"`
	Condition   *string  `json:"condition,omitempty"`
	Threshold   *float64 `json:"threshold,omitempty"`
	Severity    *string  `json:"severity,omitempty"`
	Cooldown    *string  `json:"cooldown,omitempty"`
	Enabled     *bool    `json:"enabled,omitempty"`
}

// ListRules returns all rules. ?active=true limits the list to enabled rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules := h.engine.Rules()
	if r.URL.Query().Get("active") == "true" {
		rules = h.engine.ActiveRules()
	}

	resp := make([]*RuleResponse, len(rules))
	for i, rule := range rules {
		resp[i] = h.ruleToResponse(rule)
	}
	response.OK(w, resp)
}

// CreateRule adds a rule. Rules are enabled unless the request says
// otherwise.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !response.Decode(w, r, h.opts.MaxBodyBytes, &req) {
		return
	}

	if err := ValidateName(req.Name); err != nil {
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
		return
	}
	alertType, err := ValidateType(req.Type)
	if err != nil {
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
		return
	}
	severity, err := ValidateSeverity(req.Severity)
	if err != nil {
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
		return
	}
	if err := ValidateCondition(req.Condition); err != nil {
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
		return
	}
	cooldown, err := ValidateCooldown(req.Cooldown)
	if err != nil {
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	rule, err := h.engine.AddRule(models.AlertRule{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Type:        alertType,
		Condition:   req.Condition,
		Threshold:   req.Threshold,
		Enabled:     enabled,
		Severity:    severity,
		Cooldown:    cooldown,
	})
	if err != nil {
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
		return
	}

	response.Created(w, h.ruleToResponse(rule))
}

// UpdateRule merges the supplied fields into a rule.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.Fail(w, http.StatusBadRequest, response.CodeBadRequest, "rule id required")
		return
	}

	var req UpdateRequest
	if !response.Decode(w, r, h.opts.MaxBodyBytes, &req) {
		return
	}

	var u alerting.RuleUpdate
	if req.Name != nil {
		if err := ValidateName(*req.Name); err != nil {
			response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
			return
		}
		name := strings.TrimSpace(*req.Name)
		u.Name = &name
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		u.Description = &desc
	}
	if req.Type != nil {
		alertType, err := ValidateType(*req.Type)
		if err != nil {
			response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
			return
		}
		u.Type = &alertType
	}
	if req.Condition != nil {
		if err := ValidateCondition(*req.Condition); err != nil {
			response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
			return
		}
		u.Condition = req.Condition
	}
	if req.Severity != nil {
		severity, err := ValidateSeverity(*req.Severity)
		if err != nil {
			response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
			return
		}
		u.Severity = &severity
	}
	if req.Cooldown != nil {
		cooldown, err := ValidateCooldown(*req.Cooldown)
		if err != nil {
			response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
			return
		}
		u.Cooldown = &cooldown
	}
	u.Threshold = req.Threshold
	u.Enabled = req.Enabled

	rule, err := h.engine.UpdateRule(id, u)
	if errors.Is(err, alerting.ErrRuleNotFound) {
		response.Fail(w, http.StatusNotFound, response.CodeNotFound, "rule not found")
		return
	}
	if err != nil {
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
		return
	}

	log.Printf("alert rule updated: %s (%s)", rule.Name, rule.ID)
	response.OK(w, h.ruleToResponse(rule))
}

// DeleteRule removes a rule.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.engine.DeleteRule(id) {
		response.Fail(w, http.StatusNotFound, response.CodeNotFound, "rule not found")
		return
	}
	response.NoContent(w)
}

// ListNotifications returns the notification history, newest first.
// ?unacknowledged=true limits it to unacknowledged notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("unacknowledged") == "true" {
		response.OK(w, h.engine.UnacknowledgedNotifications())
		return
	}
	response.OK(w, h.engine.Notifications())
}

// ClearNotifications empties the history.
func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearNotifications()
	response.NoContent(w)
}

// AcknowledgeAll acknowledges every notification.
func (h *Handler) AcknowledgeAll(w http.ResponseWriter, r *http.Request) {
	h.engine.AcknowledgeAllNotifications()
	response.NoContent(w)
}

// Acknowledge acknowledges one notification. Unknown ids are a no-op.
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	h.engine.AcknowledgeNotification(chi.URLParam(r, "id"))
	response.NoContent(w)
}

// SystemStats returns the cross-store health snapshot.
func (h *Handler) SystemStats(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.engine.SystemStats())
}

// Config returns the delivery configuration.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.engine.Config())
}

// UpdateConfig merges the supplied fields into the delivery configuration.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var u alerting.ConfigUpdate
	if !response.Decode(w, r, h.opts.MaxBodyBytes, &u) {
		return
	}

	if err := ValidateMethods(u.NotificationMethods); err != nil {
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
		return
	}
	if err := ValidateSilentHours(u.SilentHours); err != nil {
		response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
		return
	}
	if u.WebhookURL != nil {
		if err := ValidateWebhookURL(*u.WebhookURL); err != nil {
			response.Fail(w, http.StatusBadRequest, response.CodeValidationFailed, err.Error())
			return
		}
	}

	h.engine.UpdateConfig(u)
	response.OK(w, h.engine.Config())
}

func (h *Handler) ruleToResponse(r models.AlertRule) *RuleResponse {
	return &RuleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Type:        string(r.Type),
		Condition:   r.Condition,
		Threshold:   r.Threshold,
		Severity:    string(r.Severity),
		Cooldown:    r.Cooldown.String(),
		Enabled:     r.Enabled,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),

		CooldownRemaining: h.engine.CooldownRemaining(r.ID).String(),
	}
}
