package alerting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/blazewatch/internal/metrics"
	"github.com/good-yellow-bee/blazewatch/internal/models"
	"github.com/good-yellow-bee/blazewatch/internal/notifier"
)

// MaxNotifications is the number of notifications retained, newest first.
const MaxNotifications = 100

// Dispatcher delivers a recorded notification over the listed methods.
type Dispatcher interface {
	Dispatch(ctx context.Context, methods []models.NotificationMethod, n *models.AlertNotification) error
}

// PerformanceSummary is the read-only view of the performance store.
type PerformanceSummary interface {
	AverageMetrics() (models.MetricAverages, bool)
}

// ErrorSummary is the read-only view of the error store.
type ErrorSummary interface {
	Count() int
	ErrorRate() int
	CriticalCount() int
}

// BehaviorSummary is the read-only view of the behavior store.
type BehaviorSummary interface {
	EventCount() int
	Sessions() []models.UserSession
}

// DefaultConfig returns the stock alert configuration: notifications on,
// browser and console delivery, silent between 22:00 and 08:00.
func DefaultConfig() models.AlertConfig {
	return models.AlertConfig{
		EnableNotifications: true,
		NotificationMethods: []models.NotificationMethod{models.MethodBrowser, models.MethodConsole},
		SilentHours:         &models.SilentHours{Start: "22:00", End: "08:00"},
	}
}

// ConfigUpdate is a partial AlertConfig. Nil fields are left unchanged.
type ConfigUpdate struct {
	EnableNotifications *bool                       `json:"enable_notifications,omitempty"`
	NotificationMethods []models.NotificationMethod `json:"notification_methods,omitempty"`
	WebhookURL          *string                     `json:"webhook_url,omitempty"`
	SilentHours         *models.SilentHours         `json:"silent_hours,omitempty"`

	// ClearSilentHours removes the silent window.
	ClearSilentHours bool `json:"clear_silent_hours,omitempty"`
}

// NotificationInput is a notification before the engine assigns its id.
type NotificationInput struct {
	RuleID    string
	Title     string
	Message   string
	Type      models.AlertType
	Severity  models.Severity
	Timestamp time.Time // zero means now
	Data      any
}

// Options configures an Engine.
type Options struct {
	Config     models.AlertConfig
	Dispatcher Dispatcher

	Performance PerformanceSummary
	Errors      ErrorSummary
	Behavior    BehaviorSummary

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Engine is the alert store: rules, notification history and delivery
// configuration.
type Engine struct {
	mu sync.RWMutex

	rules         []*compiledRule
	notifications []models.AlertNotification
	config        models.AlertConfig

	dispatcher Dispatcher
	perf       PerformanceSummary
	errs       ErrorSummary
	behavior   BehaviorSummary
	cooldown   *CooldownManager
	now        func() time.Time
}

// NewEngine creates an alert engine. A nil opts uses DefaultConfig and no
// dispatcher or summaries.
func NewEngine(opts *Options) *Engine {
	if opts == nil {
		opts = &Options{Config: DefaultConfig()}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		config:     copyConfig(opts.Config),
		dispatcher: opts.Dispatcher,
		perf:       opts.Performance,
		errs:       opts.Errors,
		behavior:   opts.Behavior,
		cooldown:   NewCooldownManager(),
		now:        now,
	}
}

// AddRule validates and appends a rule, assigning its id and timestamps.
func (e *Engine) AddRule(rule models.AlertRule) (models.AlertRule, error) {
	now := e.now()
	rule.ID = uuid.New().String()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	cr, err := compileRule(rule)
	if err != nil {
		return models.AlertRule{}, err
	}

	e.mu.Lock()
	e.rules = append(e.rules, cr)
	e.mu.Unlock()

	log.Printf("alert rule added: %s (%s)", cr.rule.Name, cr.rule.ID)
	return cr.rule, nil
}

// UpdateRule merges u into the rule with the given id and refreshes
// UpdatedAt. The rule is left unchanged when the merged rule is invalid.
func (e *Engine) UpdateRule(id string, u RuleUpdate) (models.AlertRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, cr := range e.rules {
		if cr.rule.ID != id {
			continue
		}
		merged := cr.rule
		u.apply(&merged)
		merged.UpdatedAt = e.now()

		next, err := compileRule(merged)
		if err != nil {
			return models.AlertRule{}, err
		}
		e.rules[i] = next
		return next.rule, nil
	}
	return models.AlertRule{}, ErrRuleNotFound
}

// DeleteRule removes the rule with the given id. It reports whether a rule
// was removed.
func (e *Engine) DeleteRule(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, cr := range e.rules {
		if cr.rule.ID == id {
			e.rules = append(e.rules[:i:i], e.rules[i+1:]...)
			e.cooldown.Clear(id)
			return true
		}
	}
	return false
}

// Rule returns the rule with the given id.
func (e *Engine) Rule(id string) (models.AlertRule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, cr := range e.rules {
		if cr.rule.ID == id {
			return cr.rule, true
		}
	}
	return models.AlertRule{}, false
}

// Rules returns all rules in insertion order.
func (e *Engine) Rules() []models.AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]models.AlertRule, len(e.rules))
	for i, cr := range e.rules {
		out[i] = cr.rule
	}
	return out
}

// ActiveRules returns the enabled rules.
func (e *Engine) ActiveRules() []models.AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []models.AlertRule
	for _, cr := range e.rules {
		if cr.rule.Enabled {
			out = append(out, cr.rule)
		}
	}
	return out
}

// ruleNamespace scopes the ids derived from rule names.
var ruleNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/good-yellow-bee/blazewatch/rules"))

// StableRuleID derives an id from a rule name. Loading the same rules file
// twice yields the same ids, so notifications keep pointing at their rule.
func StableRuleID(name string) string {
	return uuid.NewSHA1(ruleNamespace, []byte(name)).String()
}

// ReplaceRules swaps the whole rule set. Rules without an id get
// StableRuleID of their name, and a rule that survives a replacement keeps
// its creation time. Nothing changes if any rule is invalid or two rules
// share an id.
func (e *Engine) ReplaceRules(rules []models.AlertRule) error {
	now := e.now()

	e.mu.RLock()
	created := make(map[string]time.Time, len(e.rules))
	for _, cr := range e.rules {
		created[cr.rule.ID] = cr.rule.CreatedAt
	}
	e.mu.RUnlock()

	seen := make(map[string]bool, len(rules))
	compiled := make([]*compiledRule, 0, len(rules))
	for i, r := range rules {
		if r.ID == "" {
			r.ID = StableRuleID(r.Name)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate rule id %q at index %d (rule %q)", r.ID, i, r.Name)
		}
		seen[r.ID] = true
		if r.CreatedAt.IsZero() {
			r.CreatedAt = created[r.ID]
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		r.UpdatedAt = now

		cr, err := compileRule(r)
		if err != nil {
			return fmt.Errorf("invalid rule at index %d: %w", i, err)
		}
		compiled = append(compiled, cr)
	}

	e.mu.Lock()
	e.rules = compiled
	e.cooldown.ClearAll()
	e.mu.Unlock()
	return nil
}

// InitializeDefaultRules appends DefaultRules.
func (e *Engine) InitializeDefaultRules() {
	for _, r := range DefaultRules() {
		if _, err := e.AddRule(r); err != nil {
			log.Printf("default rule %q rejected: %v", r.Name, err)
		}
	}
}

// TriggerNotification records a notification and dispatches it over the
// configured methods. Nothing is recorded while notifications are disabled
// or during silent hours. It reports whether the notification was recorded.
func (e *Engine) TriggerNotification(in NotificationInput) (models.AlertNotification, bool) {
	e.mu.Lock()

	if !e.config.EnableNotifications {
		e.mu.Unlock()
		metrics.NotificationsTotal.WithLabelValues("disabled").Inc()
		return models.AlertNotification{}, false
	}
	now := e.now()
	if inSilentHours(e.config.SilentHours, now) {
		e.mu.Unlock()
		metrics.NotificationsTotal.WithLabelValues("silenced").Inc()
		return models.AlertNotification{}, false
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = now
	}
	n := models.AlertNotification{
		ID:        uuid.New().String(),
		RuleID:    in.RuleID,
		Title:     in.Title,
		Message:   in.Message,
		Type:      in.Type,
		Severity:  in.Severity,
		Timestamp: ts,
		Data:      in.Data,
	}

	list := make([]models.AlertNotification, 0, len(e.notifications)+1)
	list = append(list, n)
	list = append(list, e.notifications...)
	if len(list) > MaxNotifications {
		list = list[:MaxNotifications]
	}
	e.notifications = list

	methods := append([]models.NotificationMethod(nil), e.config.NotificationMethods...)
	e.mu.Unlock()

	metrics.NotificationsTotal.WithLabelValues("triggered").Inc()
	e.dispatch(methods, n)
	return n, true
}

// dispatch hands n to the dispatcher. Failures are logged.
func (e *Engine) dispatch(methods []models.NotificationMethod, n models.AlertNotification) {
	if e.dispatcher == nil || len(methods) == 0 {
		return
	}
	err := e.dispatcher.Dispatch(context.Background(), methods, &n)
	switch {
	case err == nil:
	case errors.Is(err, notifier.ErrRateLimited):
		metrics.NotificationsTotal.WithLabelValues("rate_limited").Inc()
		log.Printf("notification %s not delivered: rate limited", n.ID)
	default:
		log.Printf("notification %s delivery failed: %v", n.ID, err)
	}
}

// Notifications returns the notification history, newest first.
func (e *Engine) Notifications() []models.AlertNotification {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.AlertNotification, len(e.notifications))
	copy(out, e.notifications)
	return out
}

// UnacknowledgedNotifications returns the notifications not yet
// acknowledged, newest first.
func (e *Engine) UnacknowledgedNotifications() []models.AlertNotification {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []models.AlertNotification
	for _, n := range e.notifications {
		if !n.Acknowledged {
			out = append(out, n)
		}
	}
	return out
}

// AcknowledgeNotification marks one notification acknowledged. It reports
// whether the id was found.
func (e *Engine) AcknowledgeNotification(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.notifications {
		if e.notifications[i].ID == id {
			e.notifications[i].Acknowledged = true
			return true
		}
	}
	return false
}

// AcknowledgeAllNotifications marks every notification acknowledged.
func (e *Engine) AcknowledgeAllNotifications() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.notifications {
		e.notifications[i].Acknowledged = true
	}
}

// ClearNotifications drops the notification history.
func (e *Engine) ClearNotifications() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifications = nil
}

// Config returns the current configuration.
func (e *Engine) Config() models.AlertConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return copyConfig(e.config)
}

// UpdateConfig merges the set fields of u into the configuration.
func (e *Engine) UpdateConfig(u ConfigUpdate) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if u.EnableNotifications != nil {
		e.config.EnableNotifications = *u.EnableNotifications
	}
	if u.NotificationMethods != nil {
		e.config.NotificationMethods = append([]models.NotificationMethod(nil), u.NotificationMethods...)
	}
	if u.WebhookURL != nil {
		e.config.WebhookURL = *u.WebhookURL
	}
	if u.SilentHours != nil {
		sh := *u.SilentHours
		e.config.SilentHours = &sh
	}
	if u.ClearSilentHours {
		e.config.SilentHours = nil
	}
}

// WebhookURL returns the configured webhook destination.
func (e *Engine) WebhookURL() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.config.WebhookURL
}

// InSilentHours reports whether now falls inside the configured silent
// window.
func (e *Engine) InSilentHours() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return inSilentHours(e.config.SilentHours, e.now())
}

// inSilentHours compares "HH:MM" strings. A window with start before end is
// same-day and inclusive at both ends. Any other window crosses midnight.
func inSilentHours(sh *models.SilentHours, now time.Time) bool {
	if sh == nil {
		return false
	}
	current := now.Format("15:04")
	if sh.Start < sh.End {
		return current >= sh.Start && current <= sh.End
	}
	return current >= sh.Start || current <= sh.End
}

// SystemStats joins the store summaries into one snapshot.
func (e *Engine) SystemStats() models.SystemStats {
	var stats models.SystemStats

	if e.perf != nil {
		if avg, ok := e.perf.AverageMetrics(); ok {
			stats.Performance = models.PerformanceOverview{
				AvgFCP:  avg.FCP,
				AvgLCP:  avg.LCP,
				AvgFID:  avg.FID,
				AvgCLS:  avg.CLS,
				AvgTTFB: avg.TTFB,
			}
		}
	}

	if e.errs != nil {
		stats.Errors = models.ErrorOverview{
			Total:    e.errs.Count(),
			Rate:     e.errs.ErrorRate(),
			Critical: e.errs.CriticalCount(),
		}
	}

	if e.behavior != nil {
		sessions := e.behavior.Sessions()
		now := e.now()
		var totalMs float64
		for _, s := range sessions {
			totalMs += float64(s.Duration(now).Milliseconds())
		}
		n := len(sessions)
		if n < 1 {
			n = 1
		}
		stats.Behavior = models.BehaviorOverview{
			TotalEvents:        e.behavior.EventCount(),
			ActiveUsers:        len(sessions),
			AvgSessionDuration: int64(math.Floor(totalMs/float64(n)/1000 + 0.5)),
		}
	}

	return stats
}

func copyConfig(c models.AlertConfig) models.AlertConfig {
	out := c
	out.NotificationMethods = append([]models.NotificationMethod(nil), c.NotificationMethods...)
	if c.SilentHours != nil {
		sh := *c.SilentHours
		out.SilentHours = &sh
	}
	return out
}

// CooldownRemaining returns how long the rule stays silenced by its
// cooldown. Zero means it may fire.
func (e *Engine) CooldownRemaining(ruleID string) time.Duration {
	return e.cooldown.Remaining(ruleID, e.now())
}

// CooldownManager tracks per-rule cooldowns to prevent repeat notifications.
type CooldownManager struct {
	mu        sync.RWMutex
	cooldowns map[string]time.Time
}

// NewCooldownManager creates a new cooldown manager.
func NewCooldownManager() *CooldownManager {
	return &CooldownManager{
		cooldowns: make(map[string]time.Time),
	}
}

// TryAcquire arms a cooldown of d for ruleID unless one is still active, and
// reports whether the caller may notify. The check and the arming happen
// under one lock. A non-positive d arms nothing.
func (cm *CooldownManager) TryAcquire(ruleID string, d time.Duration, now time.Time) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if expiresAt, ok := cm.cooldowns[ruleID]; ok && now.Before(expiresAt) {
		return false
	}
	if d > 0 {
		cm.cooldowns[ruleID] = now.Add(d)
	}
	return true
}

// Clear removes the cooldown for a rule.
func (cm *CooldownManager) Clear(ruleID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	delete(cm.cooldowns, ruleID)
}

// ClearAll removes all cooldowns.
func (cm *CooldownManager) ClearAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.cooldowns = make(map[string]time.Time)
}

// Remaining returns the remaining cooldown for a rule.
func (cm *CooldownManager) Remaining(ruleID string, now time.Time) time.Duration {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	expiresAt, ok := cm.cooldowns[ruleID]
	if !ok {
		return 0
	}
	remaining := expiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
