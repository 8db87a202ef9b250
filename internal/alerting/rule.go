// Package alerting owns alert rules and the notification history. It gates
// notifications on the global enable flag and silent hours, evaluates rule
// conditions written in expr-lang and composes the cross-store system
// snapshot.
package alerting

import (
	"errors"
	"fmt"
	"time"

	"github.com/good-yellow-bee/blazewatch/internal/models"
)

// ErrRuleNotFound is returned when a rule id is unknown.
var ErrRuleNotFound = errors.New("rule not found")

// RuleUpdate is a partial AlertRule. Nil fields are left unchanged.
type RuleUpdate struct {
	Name        *string           `json:"name,omitempty"`
	Type        *models.AlertType `json:"type,omitempty"`
	Condition   *string           `json:"condition,omitempty"`
	Threshold   *float64          `json:"threshold,omitempty"`
	Enabled     *bool             `json:"enabled,omitempty"`
	Severity    *models.Severity  `json:"severity,omitempty"`
	Description *string           `json:"description,omitempty"`
	Cooldown    *time.Duration    `json:"cooldown,omitempty"`
}

// apply merges the set fields of u into r.
func (u RuleUpdate) apply(r *models.AlertRule) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Type != nil {
		r.Type = *u.Type
	}
	if u.Condition != nil {
		r.Condition = *u.Condition
	}
	if u.Threshold != nil {
		r.Threshold = *u.Threshold
	}
	if u.Enabled != nil {
		r.Enabled = *u.Enabled
	}
	if u.Severity != nil {
		r.Severity = *u.Severity
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.Cooldown != nil {
		r.Cooldown = *u.Cooldown
	}
}

// compiledRule pairs a rule with its compiled condition.
type compiledRule struct {
	rule    models.AlertRule
	matcher *ExprMatcher
}

// compileRule validates r, defaulting its severity, and compiles its
// condition.
func compileRule(r models.AlertRule) (*compiledRule, error) {
	if models.ParseAlertType(string(r.Type)) == "" {
		return nil, fmt.Errorf("invalid rule type %q for rule %q", r.Type, r.Name)
	}
	if r.Condition == "" {
		return nil, fmt.Errorf("condition is required for rule %q", r.Name)
	}
	if r.Severity == "" {
		r.Severity = models.SeverityMedium
	}
	if !r.Severity.IsValid() {
		return nil, fmt.Errorf("invalid severity %q for rule %q", r.Severity, r.Name)
	}
	if r.Cooldown < 0 {
		return nil, fmt.Errorf("negative cooldown for rule %q", r.Name)
	}

	matcher, err := NewExprMatcher(r.Type, r.Condition)
	if err != nil {
		return nil, fmt.Errorf("invalid condition %q for rule %q: %w", r.Condition, r.Name, err)
	}
	return &compiledRule{rule: r, matcher: matcher}, nil
}

// ValidateRule reports whether r would be accepted by AddRule.
func ValidateRule(r models.AlertRule) error {
	_, err := compileRule(r)
	return err
}

// DefaultRules returns the stock rule set: slow FCP, slow LCP, critical
// JavaScript errors and a disabled short-session rule.
func DefaultRules() []models.AlertRule {
	return []models.AlertRule{
		{
			Name:        "FCP performance alert",
			Type:        models.AlertTypePerformance,
			Condition:   "fcp > 3000",
			Threshold:   3000,
			Enabled:     true,
			Severity:    models.SeverityMedium,
			Description: "First Contentful Paint above 3s",
		},
		{
			Name:        "LCP performance alert",
			Type:        models.AlertTypePerformance,
			Condition:   "lcp > 4000",
			Threshold:   4000,
			Enabled:     true,
			Severity:    models.SeverityHigh,
			Description: "Largest Contentful Paint above 4s",
		},
		{
			Name:        "JavaScript error alert",
			Type:        models.AlertTypeError,
			Condition:   `type == "javascript" && severity == "critical"`,
			Threshold:   1,
			Enabled:     true,
			Severity:    models.SeverityCritical,
			Description: "Critical JavaScript error",
		},
		{
			Name:        "Short session alert",
			Type:        models.AlertTypeBehavior,
			Condition:   "sessionDuration < 10000",
			Threshold:   10000,
			Enabled:     false,
			Severity:    models.SeverityLow,
			Description: "User session shorter than 10s",
		},
	}
}
