// Package reporter forwards captured error events to external sinks.
package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/blazewatch/internal/models"
)

// Reporter forwards one error event.
type Reporter interface {
	Report(ctx context.Context, event models.ErrorEvent) error
}

// LogReporter writes each event as a log line.
type LogReporter struct {
	logger *log.Logger
}

// NewLogReporter creates a log reporter. A nil logger uses log.Default().
func NewLogReporter(logger *log.Logger) *LogReporter {
	if logger == nil {
		logger = log.Default()
	}
	return &LogReporter{logger: logger}
}

// Report logs the event.
func (r *LogReporter) Report(ctx context.Context, event models.ErrorEvent) error {
	r.logger.Printf("error reported [%s/%s] %s at %s", event.Type, event.Severity, event.Message, event.URL)
	return nil
}

// HTTPConfig configures an HTTPReporter.
type HTTPConfig struct {
	URL string
	// Timeout bounds a single POST. Defaults to 10s.
	Timeout time.Duration
}

// HTTPReporter POSTs each event as JSON to a collector.
type HTTPReporter struct {
	url        string
	httpClient *http.Client
}

// NewHTTPReporter creates an HTTP reporter.
func NewHTTPReporter(config HTTPConfig) (*HTTPReporter, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("report URL is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &HTTPReporter{
		url: config.URL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Report sends the event. A non-2xx response is an error.
func (r *HTTPReporter) Report(ctx context.Context, event models.ErrorEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("collector returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// New returns an HTTPReporter when url is set and a LogReporter otherwise.
func New(url string, timeout time.Duration) (Reporter, error) {
	if url == "" {
		return NewLogReporter(nil), nil
	}
	return NewHTTPReporter(HTTPConfig{URL: url, Timeout: timeout})
}
