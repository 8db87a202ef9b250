package alerting

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/good-yellow-bee/blazewatch/internal/errtrack"
	"github.com/good-yellow-bee/blazewatch/internal/models"
)

// ExprMatcher compiles and evaluates a rule condition against the
// environment of one signal class.
type ExprMatcher struct {
	expression string
	ruleType   models.AlertType
	program    *vm.Program
}

// NewExprMatcher compiles expression for rules of type ruleType.
func NewExprMatcher(ruleType models.AlertType, expression string) (*ExprMatcher, error) {
	sample, err := sampleEnv(ruleType)
	if err != nil {
		return nil, err
	}

	// expr-lang has built-in operators: contains, startsWith, endsWith
	// Syntax: message contains "timeout"
	program, err := expr.Compile(expression,
		expr.Env(sample),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}

	return &ExprMatcher{
		expression: expression,
		ruleType:   ruleType,
		program:    program,
	}, nil
}

// Match evaluates the expression against env.
func (m *ExprMatcher) Match(env map[string]any) (bool, error) {
	result, err := expr.Run(m.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate %s condition %q: %w", m.ruleType, m.expression, err)
	}

	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expression did not return bool: got %T", result)
	}
	return matched, nil
}

// sampleEnv returns a zero-valued environment used to type-check
// expressions of a rule type.
func sampleEnv(t models.AlertType) (map[string]any, error) {
	switch t {
	case models.AlertTypePerformance:
		return PerformanceEnv(models.PerformanceSample{}), nil
	case models.AlertTypeError:
		return ErrorEnv(models.ErrorEvent{}), nil
	case models.AlertTypeBehavior:
		return BehaviorEnv(BehaviorInput{}), nil
	default:
		return nil, fmt.Errorf("unknown rule type %q", t)
	}
}

// PerformanceEnv exposes fcp, lcp, fid, cls, ttfb, page and threshold.
func PerformanceEnv(s models.PerformanceSample) map[string]any {
	return map[string]any{
		"fcp":       s.FCP,
		"lcp":       s.LCP,
		"fid":       s.FID,
		"cls":       s.CLS,
		"ttfb":      s.TTFB,
		"page":      s.Page,
		"threshold": 0.0,
	}
}

// ErrorEnv exposes type, message, severity, url, page, filename, line, col
// and threshold.
func ErrorEnv(e models.ErrorEvent) map[string]any {
	return map[string]any{
		"type":      string(e.Type),
		"message":   e.Message,
		"severity":  string(e.Severity),
		"url":       e.URL,
		"page":      errtrack.PageFromURL(e.URL),
		"filename":  e.Filename,
		"line":      e.Line,
		"col":       e.Col,
		"threshold": 0.0,
	}
}

// BehaviorInput is the context a behavior rule is evaluated in.
type BehaviorInput struct {
	Event   models.UserEvent
	Session models.UserSession
	Stats   models.BehaviorStats
}

// BehaviorEnv exposes type, element, page, value, sessionDuration (ms),
// totalEvents, uniqueElements, interactions, pageViews and threshold.
func BehaviorEnv(in BehaviorInput) map[string]any {
	return map[string]any{
		"type":            string(in.Event.Type),
		"element":         in.Event.Element,
		"page":            in.Event.Page,
		"value":           in.Event.Value,
		"sessionDuration": float64(in.Stats.SessionDuration.Milliseconds()),
		"totalEvents":     in.Stats.TotalEvents,
		"uniqueElements":  in.Stats.UniqueElements,
		"interactions":    in.Session.Interactions,
		"pageViews":       in.Session.PageViews,
		"threshold":       0.0,
	}
}
