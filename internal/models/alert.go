package models

import "time"

// AlertType is the signal class an alert rule watches.
type AlertType string

const (
	AlertTypePerformance AlertType = "performance"
	AlertTypeError       AlertType = "error"
	AlertTypeBehavior    AlertType = "behavior"
)

// ParseAlertType converts a string to AlertType. Unknown values return "".
func ParseAlertType(s string) AlertType {
	switch s {
	case "performance":
		return AlertTypePerformance
	case "error":
		return AlertTypeError
	case "behavior":
		return AlertTypeBehavior
	default:
		return ""
	}
}

// Severity represents alert severity level.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ParseSeverity converts a string to Severity.
func ParseSeverity(s string) Severity {
	switch s {
	case "low":
		return SeverityLow
	case "medium":
		return SeverityMedium
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// AlertRule is a user-defined alert condition.
type AlertRule struct {
	ID          string        `json:"id" yaml:"id,omitempty"`
	Name        string        `json:"name" yaml:"name"`
	Type        AlertType     `json:"type" yaml:"type"`
	Condition   string        `json:"condition" yaml:"condition"` // expr-lang expression
	Threshold   float64       `json:"threshold" yaml:"threshold"`
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	Severity    Severity      `json:"severity" yaml:"severity"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Cooldown    time.Duration `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
	CreatedAt   time.Time     `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time     `json:"updated_at" yaml:"-"`
}

// NotificationMethod names a delivery channel.
type NotificationMethod string

const (
	MethodBrowser NotificationMethod = "browser"
	MethodConsole NotificationMethod = "console"
	MethodWebhook NotificationMethod = "webhook"
)

// AlertNotification is a dispatched alert. Acknowledged only moves from
// false to true.
type AlertNotification struct {
	ID           string    `json:"id"`
	RuleID       string    `json:"rule_id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Type         AlertType `json:"type"`
	Severity     Severity  `json:"severity"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
	Data         any       `json:"data,omitempty"`
}

// SilentHours is a daily "HH:MM" window during which dispatch is suppressed.
type SilentHours struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// AlertConfig controls notification delivery.
type AlertConfig struct {
	EnableNotifications bool                 `json:"enable_notifications"`
	NotificationMethods []NotificationMethod `json:"notification_methods"`
	WebhookURL          string               `json:"webhook_url,omitempty"`
	SilentHours         *SilentHours         `json:"silent_hours,omitempty"`
}

// SystemStats is a read-only health snapshot across all stores.
type SystemStats struct {
	Performance PerformanceOverview `json:"performance"`
	Errors      ErrorOverview       `json:"errors"`
	Behavior    BehaviorOverview    `json:"behavior"`
}

// PerformanceOverview holds average timings.
type PerformanceOverview struct {
	AvgFCP  float64 `json:"avg_fcp"`
	AvgLCP  float64 `json:"avg_lcp"`
	AvgFID  float64 `json:"avg_fid"`
	AvgCLS  float64 `json:"avg_cls"`
	AvgTTFB float64 `json:"avg_ttfb"`
}

// ErrorOverview holds error counts.
type ErrorOverview struct {
	Total    int `json:"total"`
	Rate     int `json:"rate"`
	Critical int `json:"critical"`
}

// BehaviorOverview holds interaction counts.
type BehaviorOverview struct {
	TotalEvents int `json:"total_events"`
	ActiveUsers int `json:"active_users"`
	// AvgSessionDuration is in whole seconds.
	AvgSessionDuration int64 `json:"avg_session_duration"`
}
