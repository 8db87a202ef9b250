package models

import "time"

// ErrorType classifies where an error event came from.
type ErrorType string

const (
	ErrorTypeJavaScript ErrorType = "javascript"
	ErrorTypePromise    ErrorType = "promise"
	ErrorTypeResource   ErrorType = "resource"
	ErrorTypeNetwork    ErrorType = "network"
)

// IsValid reports whether t is a known error type.
func (t ErrorType) IsValid() bool {
	switch t {
	case ErrorTypeJavaScript, ErrorTypePromise, ErrorTypeResource, ErrorTypeNetwork:
		return true
	}
	return false
}

// ErrorEvent is a captured client-side error.
type ErrorEvent struct {
	ID        string    `json:"id"`
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Stack     string    `json:"stack,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Line      int       `json:"lineno,omitempty"`
	Col       int       `json:"colno,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
	UserAgent string    `json:"user_agent"`
	UserID    string    `json:"user_id,omitempty"`
	Severity  Severity  `json:"severity"`
}

// ErrorFilter narrows the error view. Zero-valued fields impose no
// constraint. The time range applies only when both bounds are set.
type ErrorFilter struct {
	Type      ErrorType `json:"type,omitempty"`
	Severity  Severity  `json:"severity,omitempty"`
	Page      string    `json:"page,omitempty"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// IsEmpty reports whether the filter has no predicates.
func (f ErrorFilter) IsEmpty() bool {
	return f == ErrorFilter{}
}

// ErrorStats summarizes the filtered error view.
type ErrorStats struct {
	Total        int            `json:"total"`
	ByType       map[string]int `json:"by_type"`
	ByPage       map[string]int `json:"by_page"`
	ByTime       map[string]int `json:"by_time"`
	RecentErrors []ErrorEvent   `json:"recent_errors"`
}
