// Package errtrack keeps the bounded history of client error events, applies
// read-side filters and derives statistics from them.
package errtrack

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/blazewatch/internal/metrics"
	"github.com/good-yellow-bee/blazewatch/internal/models"
)

const (
	// DefaultMaxErrors is the default history capacity.
	DefaultMaxErrors = 200
	// RateWindow is the trailing window counted by ErrorRate.
	RateWindow = time.Hour
	// recentLimit is the number of entries in ErrorStats.RecentErrors.
	recentLimit = 10
	// reportTimeout bounds a single report call.
	reportTimeout = 10 * time.Second
)

// Reporter forwards error events to an external sink.
type Reporter interface {
	Report(ctx context.Context, event models.ErrorEvent) error
}

// Config controls error tracking.
type Config struct {
	EnableJSError       bool `json:"enable_js_error" yaml:"enable_js_error"`
	EnablePromiseError  bool `json:"enable_promise_error" yaml:"enable_promise_error"`
	EnableResourceError bool `json:"enable_resource_error" yaml:"enable_resource_error"`
	EnableNetworkError  bool `json:"enable_network_error" yaml:"enable_network_error"`
	MaxErrors           int  `json:"max_errors" yaml:"max_errors"`
	AutoReport          bool `json:"auto_report" yaml:"auto_report"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		EnableJSError:       true,
		EnablePromiseError:  true,
		EnableResourceError: true,
		EnableNetworkError:  true,
		MaxErrors:           DefaultMaxErrors,
		AutoReport:          true,
	}
}

// ConfigUpdate is a partial Config. Nil fields are left unchanged.
type ConfigUpdate struct {
	EnableJSError       *bool `json:"enable_js_error,omitempty"`
	EnablePromiseError  *bool `json:"enable_promise_error,omitempty"`
	EnableResourceError *bool `json:"enable_resource_error,omitempty"`
	EnableNetworkError  *bool `json:"enable_network_error,omitempty"`
	MaxErrors           *int  `json:"max_errors,omitempty"`
	AutoReport          *bool `json:"auto_report,omitempty"`
}

// FilterUpdate is a partial ErrorFilter. Nil fields are left unchanged.
type FilterUpdate struct {
	Type      *models.ErrorType `json:"type,omitempty"`
	Severity  *models.Severity  `json:"severity,omitempty"`
	Page      *string           `json:"page,omitempty"`
	StartTime *time.Time        `json:"start_time,omitempty"`
	EndTime   *time.Time        `json:"end_time,omitempty"`
}

// Options configures a Store.
type Options struct {
	Config Config
	// Reporter receives events when AutoReport is set. Optional.
	Reporter Reporter
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Store is the error event store.
type Store struct {
	mu sync.RWMutex

	errors []models.ErrorEvent
	filter models.ErrorFilter
	config Config

	reporter Reporter
	reports  sync.WaitGroup
	now      func() time.Time
}

// NewStore creates an error store. A nil opts uses DefaultConfig.
func NewStore(opts *Options) *Store {
	if opts == nil {
		opts = &Options{Config: DefaultConfig()}
	}
	if opts.Config.MaxErrors <= 0 {
		opts.Config.MaxErrors = DefaultMaxErrors
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		config:   opts.Config,
		reporter: opts.Reporter,
		now:      now,
	}
}

// AddError stores an event newest-first, assigning an ID when missing, and
// forwards it to the reporter when AutoReport is set. The returned event
// carries the assigned ID.
func (s *Store) AddError(event models.ErrorEvent) models.ErrorEvent {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	s.mu.Lock()
	errs := make([]models.ErrorEvent, 0, len(s.errors)+1)
	errs = append(errs, event)
	errs = append(errs, s.errors...)
	if len(errs) > s.config.MaxErrors {
		errs = errs[:s.config.MaxErrors]
	}
	s.errors = errs
	autoReport := s.config.AutoReport
	s.mu.Unlock()

	metrics.ErrorsTotal.WithLabelValues(string(event.Type), string(event.Severity)).Inc()
	log.Printf("error captured: [%s/%s] %s", event.Type, event.Severity, truncate(event.Message, 200))

	if autoReport && s.reporter != nil {
		s.reports.Add(1)
		go s.report(event)
	}
	return event
}

// report runs one best-effort report. Failures and panics are logged.
func (s *Store) report(event models.ErrorEvent) {
	defer s.reports.Done()
	defer func() {
		if r := recover(); r != nil {
			metrics.ReportFailures.Inc()
			log.Printf("error report panicked for %s: %v", event.ID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	if err := s.reporter.Report(ctx, event); err != nil {
		metrics.ReportFailures.Inc()
		log.Printf("error report failed for %s: %v", event.ID, err)
	}
}

// Wait blocks until all in-flight reports have finished.
func (s *Store) Wait() {
	s.reports.Wait()
}

// Errors returns every stored event, newest first.
func (s *Store) Errors() []models.ErrorEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ErrorEvent, len(s.errors))
	copy(out, s.errors)
	return out
}

// Count returns the number of stored events.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.errors)
}

// FilteredErrors returns the events matching the current filter, newest first.
func (s *Store) FilteredErrors() []models.ErrorEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filteredLocked()
}

// filteredLocked must be called with lock held.
func (s *Store) filteredLocked() []models.ErrorEvent {
	f := s.filter
	if f.IsEmpty() {
		out := make([]models.ErrorEvent, len(s.errors))
		copy(out, s.errors)
		return out
	}
	out := make([]models.ErrorEvent, 0, len(s.errors))
	for _, e := range s.errors {
		if matchesFilter(f, e) {
			out = append(out, e)
		}
	}
	return out
}

// matchesFilter applies every present predicate of f.
func matchesFilter(f models.ErrorFilter, e models.ErrorEvent) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if f.Page != "" && !strings.Contains(PageFromURL(e.URL), f.Page) {
		return false
	}
	if !f.StartTime.IsZero() && !f.EndTime.IsZero() {
		if e.Timestamp.Before(f.StartTime) || e.Timestamp.After(f.EndTime) {
			return false
		}
	}
	return true
}

// Stats summarizes the filtered view.
func (s *Store) Stats() models.ErrorStats {
	s.mu.RLock()
	filtered := s.filteredLocked()
	s.mu.RUnlock()

	stats := models.ErrorStats{
		Total:  len(filtered),
		ByType: make(map[string]int),
		ByPage: make(map[string]int),
		ByTime: make(map[string]int),
	}
	for _, e := range filtered {
		stats.ByType[string(e.Type)]++
		stats.ByPage[PageFromURL(e.URL)]++
		stats.ByTime[fmt.Sprintf("%d:00", e.Timestamp.Local().Hour())]++
	}

	n := len(filtered)
	if n > recentLimit {
		n = recentLimit
	}
	stats.RecentErrors = filtered[:n:n]
	return stats
}

// CriticalErrors returns every stored critical event, ignoring the filter.
func (s *Store) CriticalErrors() []models.ErrorEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ErrorEvent
	for _, e := range s.errors {
		if e.Severity == models.SeverityCritical {
			out = append(out, e)
		}
	}
	return out
}

// CriticalCount returns the number of stored critical events.
func (s *Store) CriticalCount() int {
	return len(s.CriticalErrors())
}

// ErrorRate counts stored events from the trailing hour, ignoring the filter.
func (s *Store) ErrorRate() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-RateWindow)
	count := 0
	for _, e := range s.errors {
		if !e.Timestamp.Before(cutoff) {
			count++
		}
	}
	return count
}

// RemoveError removes the first event with the given ID, if any.
func (s *Store) RemoveError(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.errors {
		if e.ID == id {
			s.errors = append(s.errors[:i:i], s.errors[i+1:]...)
			return
		}
	}
}

// ClearErrors drops every stored event.
func (s *Store) ClearErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = nil
}

// Filter returns the current filter.
func (s *Store) Filter() models.ErrorFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SetFilter merges the set fields of u into the filter.
func (s *Store) SetFilter(u FilterUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Type != nil {
		s.filter.Type = *u.Type
	}
	if u.Severity != nil {
		s.filter.Severity = *u.Severity
	}
	if u.Page != nil {
		s.filter.Page = *u.Page
	}
	if u.StartTime != nil {
		s.filter.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		s.filter.EndTime = *u.EndTime
	}
}

// ClearFilter resets the filter to match everything.
func (s *Store) ClearFilter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = models.ErrorFilter{}
}

// Config returns the current configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// UpdateConfig merges the set fields of u into the configuration. A smaller
// MaxErrors takes effect on the next AddError.
func (s *Store) UpdateConfig(u ConfigUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.EnableJSError != nil {
		s.config.EnableJSError = *u.EnableJSError
	}
	if u.EnablePromiseError != nil {
		s.config.EnablePromiseError = *u.EnablePromiseError
	}
	if u.EnableResourceError != nil {
		s.config.EnableResourceError = *u.EnableResourceError
	}
	if u.EnableNetworkError != nil {
		s.config.EnableNetworkError = *u.EnableNetworkError
	}
	if u.MaxErrors != nil && *u.MaxErrors > 0 {
		s.config.MaxErrors = *u.MaxErrors
	}
	if u.AutoReport != nil {
		s.config.AutoReport = *u.AutoReport
	}
}

// Enabled reports whether events of type t are being tracked.
func (s *Store) Enabled(t models.ErrorType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch t {
	case models.ErrorTypeJavaScript:
		return s.config.EnableJSError
	case models.ErrorTypePromise:
		return s.config.EnablePromiseError
	case models.ErrorTypeResource:
		return s.config.EnableResourceError
	case models.ErrorTypeNetwork:
		return s.config.EnableNetworkError
	default:
		return true
	}
}

// PageFromURL returns the path of an absolute URL, or raw unchanged when it
// does not parse as one.
func PageFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return raw
	}
	if u.Opaque != "" {
		return u.Opaque
	}
	if u.Path == "" && u.Host != "" {
		return "/"
	}
	return u.Path
}

// truncate shortens s to at most max bytes, ending in "...". The cut backs
// off to a rune boundary so the result stays valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
