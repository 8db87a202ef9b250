package alerting

import (
	"fmt"
	"log"

	"github.com/good-yellow-bee/blazewatch/internal/metrics"
	"github.com/good-yellow-bee/blazewatch/internal/models"
)

// EvaluatePerformance runs the enabled performance rules against a sample
// and triggers a notification per match.
func (e *Engine) EvaluatePerformance(s models.PerformanceSample) []models.AlertNotification {
	return e.evaluate(models.AlertTypePerformance, PerformanceEnv(s), s)
}

// EvaluateError runs the enabled error rules against an event.
func (e *Engine) EvaluateError(ev models.ErrorEvent) []models.AlertNotification {
	return e.evaluate(models.AlertTypeError, ErrorEnv(ev), ev)
}

// EvaluateBehavior runs the enabled behavior rules against an event in the
// context of its session.
func (e *Engine) EvaluateBehavior(in BehaviorInput) []models.AlertNotification {
	return e.evaluate(models.AlertTypeBehavior, BehaviorEnv(in), in.Event)
}

func (e *Engine) evaluate(t models.AlertType, env map[string]any, data any) []models.AlertNotification {
	e.mu.RLock()
	var rules []*compiledRule
	for _, cr := range e.rules {
		if cr.rule.Enabled && cr.rule.Type == t {
			rules = append(rules, cr)
		}
	}
	e.mu.RUnlock()

	var triggered []models.AlertNotification
	for _, cr := range rules {
		rule := cr.rule
		env["threshold"] = rule.Threshold

		matched, err := cr.matcher.Match(env)
		if err != nil {
			log.Printf("rule %q evaluation failed: %v", rule.Name, err)
			continue
		}
		if !matched {
			continue
		}

		if !e.cooldown.TryAcquire(rule.ID, rule.Cooldown, e.now()) {
			metrics.NotificationsTotal.WithLabelValues("cooldown").Inc()
			continue
		}

		n, ok := e.TriggerNotification(NotificationInput{
			RuleID:   rule.ID,
			Title:    rule.Name,
			Message:  ruleMessage(rule),
			Type:     rule.Type,
			Severity: rule.Severity,
			Data:     data,
		})
		if !ok {
			// Nothing was recorded, so the rule must stay free to fire.
			if rule.Cooldown > 0 {
				e.cooldown.Clear(rule.ID)
			}
			continue
		}
		triggered = append(triggered, n)
	}
	return triggered
}

func ruleMessage(r models.AlertRule) string {
	if r.Description != "" {
		return fmt.Sprintf("%s (%s)", r.Description, r.Condition)
	}
	return fmt.Sprintf("Condition matched: %s", r.Condition)
}
