package monitor

import (
	"fmt"
	"math"

	"github.com/good-yellow-bee/blazewatch/internal/behavior"
	"github.com/good-yellow-bee/blazewatch/internal/metrics"
	"github.com/good-yellow-bee/blazewatch/internal/models"
)

// ValidationError reports an ingestion payload that lacks the minimal shape.
type ValidationError struct {
	Kind   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s %s", e.Kind, e.Field, e.Reason)
}

func reject(kind, field, reason string) *ValidationError {
	metrics.IngestRejectedTotal.WithLabelValues(kind, field).Inc()
	return &ValidationError{Kind: kind, Field: field, Reason: reason}
}

func validateSample(s models.PerformanceSample) error {
	if s.Page == "" {
		return reject("performance", "page", "is required")
	}
	for _, m := range models.Metrics {
		v := s.Value(m)
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return reject("performance", string(m), "must be a non-negative number")
		}
	}
	return nil
}

// normalizeError validates e and fills in the default severity.
func normalizeError(e *models.ErrorEvent) error {
	if !e.Type.IsValid() {
		return reject("error", "type", fmt.Sprintf("%q is not a known error type", e.Type))
	}
	if e.Message == "" {
		return reject("error", "message", "is required")
	}
	if e.Severity == "" {
		e.Severity = models.SeverityMedium
	}
	if !e.Severity.IsValid() {
		return reject("error", "severity", fmt.Sprintf("%q is not a known severity", e.Severity))
	}
	return nil
}

func validateEvent(in behavior.EventInput) error {
	if in.Type == "" {
		return reject("behavior", "type", "is required")
	}
	if in.Element == "" {
		return reject("behavior", "element", "is required")
	}
	return nil
}
