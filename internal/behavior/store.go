// Package behavior tracks user interaction events, owns the session
// lifecycle and maintains heatmap aggregates.
//
// Two heatmap views exist side by side. HeatmapData is a live accumulator that
// merges each new coordinate into any existing point closer than
// MergeDistance on both axes. GenerateHeatmap rebuckets the stored click
// events onto a fixed GridSize grid. They answer different questions and are
// not kept in sync.
package behavior

import (
	"log"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/blazewatch/internal/metrics"
	"github.com/good-yellow-bee/blazewatch/internal/models"
)

const (
	// MaxEvents is the number of events retained, oldest dropped first.
	MaxEvents = 1000
	// MergeDistance is the live heatmap merge window on each axis.
	MergeDistance = 20
	// GridSize is the cell size used by GenerateHeatmap.
	GridSize = 50
	// popularLimit is the number of entries returned by PopularElements.
	popularLimit = 10
)

// Config controls which interactions are tracked.
type Config struct {
	TrackClicks     bool          `json:"track_clicks" yaml:"track_clicks"`
	TrackScrolls    bool          `json:"track_scrolls" yaml:"track_scrolls"`
	TrackInputs     bool          `json:"track_inputs" yaml:"track_inputs"`
	TrackHovers     bool          `json:"track_hovers" yaml:"track_hovers"`
	TrackNavigation bool          `json:"track_navigation" yaml:"track_navigation"`
	HeatmapEnabled  bool          `json:"heatmap_enabled" yaml:"heatmap_enabled"`
	SessionTimeout  time.Duration `json:"session_timeout" yaml:"session_timeout"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		TrackClicks:     true,
		TrackScrolls:    true,
		TrackInputs:     true,
		TrackHovers:     false,
		TrackNavigation: true,
		HeatmapEnabled:  true,
		SessionTimeout:  30 * time.Minute,
	}
}

// ConfigUpdate is a partial Config. Nil fields are left unchanged.
type ConfigUpdate struct {
	TrackClicks     *bool          `json:"track_clicks,omitempty"`
	TrackScrolls    *bool          `json:"track_scrolls,omitempty"`
	TrackInputs     *bool          `json:"track_inputs,omitempty"`
	TrackHovers     *bool          `json:"track_hovers,omitempty"`
	TrackNavigation *bool          `json:"track_navigation,omitempty"`
	HeatmapEnabled  *bool          `json:"heatmap_enabled,omitempty"`
	SessionTimeout  *time.Duration `json:"session_timeout,omitempty"`
}

// EventInput is an event as reported by instrumentation, before the store
// assigns its ID, timestamp and session.
type EventInput struct {
	Type        models.EventType `json:"type"`
	Element     string           `json:"element"`
	Selector    string           `json:"selector,omitempty"`
	Coordinates *models.Point    `json:"coordinates,omitempty"`
	Value       string           `json:"value,omitempty"`
	Page        string           `json:"page"`
	UserID      string           `json:"user_id,omitempty"`
}

// Options configures a Store.
type Options struct {
	Config Config
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Store is the behavior event store.
type Store struct {
	mu sync.RWMutex

	events   []models.UserEvent
	sessions []*models.UserSession
	current  *models.UserSession
	heatmap  []models.HeatmapPoint
	config   Config

	now func() time.Time
}

// NewStore creates a behavior store. A nil opts uses DefaultConfig.
func NewStore(opts *Options) *Store {
	if opts == nil {
		opts = &Options{Config: DefaultConfig()}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		events: make([]models.UserEvent, 0, 64),
		config: opts.Config,
		now:    now,
	}
}

// TrackEvent records an interaction when its type is enabled. The event is
// attached to the current session, starting one if needed. It returns the
// stored event and whether it was tracked.
func (s *Store) TrackEvent(in EventInput) (models.UserEvent, bool) {
	s.mu.Lock()

	if !s.shouldTrackLocked(in.Type) {
		s.mu.Unlock()
		return models.UserEvent{}, false
	}

	session, started := s.ensureSessionLocked()
	now := s.now()

	var coords *models.Point
	if in.Coordinates != nil {
		c := *in.Coordinates
		coords = &c
	}

	event := models.UserEvent{
		ID:          uuid.New().String(),
		Type:        in.Type,
		Element:     in.Element,
		Selector:    in.Selector,
		Timestamp:   now,
		Coordinates: coords,
		Value:       in.Value,
		Page:        in.Page,
		SessionID:   session.ID,
		UserID:      in.UserID,
	}

	s.events = append(s.events, event)

	session.EventIDs = append(session.EventIDs, event.ID)
	if len(session.EventIDs) > MaxEvents {
		session.EventIDs = append(session.EventIDs[:0:0], session.EventIDs[len(session.EventIDs)-MaxEvents:]...)
	}
	if event.Type == models.EventNavigation {
		session.PageViews++
	} else {
		session.Interactions++
	}
	session.LastActivity = now

	if s.config.HeatmapEnabled && coords != nil {
		s.mergeHeatmapLocked(*coords)
	}

	if len(s.events) > MaxEvents {
		s.events = append(s.events[:0:0], s.events[len(s.events)-MaxEvents:]...)
	}
	s.mu.Unlock()

	if started {
		metrics.SessionsStarted.Inc()
	}
	metrics.EventsTotal.WithLabelValues(string(event.Type)).Inc()
	return event, true
}

// TrackClick records a click at coordinates.
func (s *Store) TrackClick(element string, at models.Point, selector, page string) (models.UserEvent, bool) {
	return s.TrackEvent(EventInput{
		Type:        models.EventClick,
		Element:     element,
		Selector:    selector,
		Coordinates: &at,
		Page:        page,
	})
}

// TrackScroll records a scroll position.
func (s *Store) TrackScroll(scrollY float64, page string) (models.UserEvent, bool) {
	return s.TrackEvent(EventInput{
		Type:    models.EventScroll,
		Element: "window",
		Value:   strconv.FormatFloat(scrollY, 'f', -1, 64),
		Page:    page,
	})
}

// TrackInput records an input value.
func (s *Store) TrackInput(element, value, selector, page string) (models.UserEvent, bool) {
	return s.TrackEvent(EventInput{
		Type:     models.EventInput,
		Element:  element,
		Selector: selector,
		Value:    value,
		Page:     page,
	})
}

// TrackNavigation records a page transition. The event page is the
// destination.
func (s *Store) TrackNavigation(from, to string) (models.UserEvent, bool) {
	return s.TrackEvent(EventInput{
		Type:    models.EventNavigation,
		Element: "page",
		Value:   from + " -> " + to,
		Page:    to,
	})
}

// shouldTrackLocked must be called with lock held.
func (s *Store) shouldTrackLocked(t models.EventType) bool {
	switch t {
	case models.EventClick:
		return s.config.TrackClicks
	case models.EventScroll:
		return s.config.TrackScrolls
	case models.EventInput:
		return s.config.TrackInputs
	case models.EventHover:
		return s.config.TrackHovers
	case models.EventNavigation:
		return s.config.TrackNavigation
	default:
		return true
	}
}

// mergeHeatmapLocked folds a coordinate into the live accumulator.
// Must be called with lock held.
func (s *Store) mergeHeatmapLocked(p models.Point) {
	for i := range s.heatmap {
		pt := &s.heatmap[i]
		if math.Abs(pt.X-p.X) < MergeDistance && math.Abs(pt.Y-p.Y) < MergeDistance {
			pt.Value++
			pt.Count++
			return
		}
	}
	s.heatmap = append(s.heatmap, models.HeatmapPoint{X: p.X, Y: p.Y, Value: 1, Count: 1})
}

// EnsureSession returns the current session, starting one when none is
// current.
func (s *Store) EnsureSession() models.UserSession {
	s.mu.Lock()
	session, started := s.ensureSessionLocked()
	out := copySession(session)
	s.mu.Unlock()

	if started {
		metrics.SessionsStarted.Inc()
	}
	return out
}

// ensureSessionLocked must be called with lock held.
func (s *Store) ensureSessionLocked() (*models.UserSession, bool) {
	if s.current != nil {
		return s.current, false
	}
	return s.startSessionLocked(""), true
}

// StartSession always starts a new session and makes it current. A session
// that was current is left open in the history.
func (s *Store) StartSession(userID string) models.UserSession {
	s.mu.Lock()
	session := s.startSessionLocked(userID)
	out := copySession(session)
	s.mu.Unlock()

	metrics.SessionsStarted.Inc()
	return out
}

// startSessionLocked must be called with lock held.
func (s *Store) startSessionLocked(userID string) *models.UserSession {
	now := s.now()
	session := &models.UserSession{
		ID:           uuid.New().String(),
		StartTime:    now,
		PageViews:    1,
		EventIDs:     []string{},
		UserID:       userID,
		LastActivity: now,
	}
	s.sessions = append(s.sessions, session)
	s.current = session
	log.Printf("session started: %s", session.ID)
	return session
}

// EndSession stamps the current session's end time. No-op without one.
func (s *Store) EndSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endSessionLocked(s.now())
}

// endSessionLocked must be called with lock held.
func (s *Store) endSessionLocked(at time.Time) {
	if s.current == nil {
		return
	}
	s.current.EndTime = &at
	log.Printf("session ended: %s", s.current.ID)
	s.current = nil
}

// EndIdleSession ends the current session when it has seen no activity for
// longer than the configured session timeout. It reports whether a session
// was ended.
func (s *Store) EndIdleSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.config.SessionTimeout <= 0 {
		return false
	}
	now := s.now()
	if now.Sub(s.current.LastActivity) <= s.config.SessionTimeout {
		return false
	}
	s.endSessionLocked(now)
	return true
}

// CurrentSession returns the current session, if any.
func (s *Store) CurrentSession() (models.UserSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.UserSession{}, false
	}
	return copySession(s.current), true
}

// Sessions returns every session, oldest first.
func (s *Store) Sessions() []models.UserSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.UserSession, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = copySession(sess)
	}
	return out
}

// SessionCount returns the number of sessions.
func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Events returns the retained events, oldest first.
func (s *Store) Events() []models.UserEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.UserEvent, len(s.events))
	copy(out, s.events)
	return out
}

// EventCount returns the number of retained events.
func (s *Store) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// HeatmapData returns the live heatmap accumulator.
func (s *Store) HeatmapData() []models.HeatmapPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.HeatmapPoint, len(s.heatmap))
	copy(out, s.heatmap)
	return out
}

// Stats summarizes the retained events and the current session.
func (s *Store) Stats() models.BehaviorStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.BehaviorStats{
		TotalEvents: len(s.events),
		ByType:      make(map[string]int),
		ByPage:      make(map[string]int),
	}
	elements := make(map[string]struct{})
	for _, e := range s.events {
		stats.ByType[string(e.Type)]++
		stats.ByPage[e.Page]++
		elements[e.Element] = struct{}{}
	}
	stats.UniqueElements = len(elements)
	if s.current != nil {
		stats.SessionDuration = s.current.Duration(s.now())
	}
	return stats
}

// PopularElements returns the ten most clicked elements, most clicked first.
// Ties keep first-seen order.
func (s *Store) PopularElements() []models.ElementCount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[string]int)
	var counts []models.ElementCount
	for _, e := range s.events {
		if e.Type != models.EventClick {
			continue
		}
		i, ok := index[e.Element]
		if !ok {
			i = len(counts)
			index[e.Element] = i
			counts = append(counts, models.ElementCount{Element: e.Element})
		}
		counts[i].Count++
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > popularLimit {
		counts = counts[:popularLimit]
	}
	return counts
}

// PageViews counts navigation events by destination page.
func (s *Store) PageViews() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make(map[string]int)
	for _, e := range s.events {
		if e.Type == models.EventNavigation {
			views[e.Page]++
		}
	}
	return views
}

// GenerateHeatmap buckets every stored click with coordinates onto a
// GridSize grid. Cells appear in the order they were first hit.
func (s *Store) GenerateHeatmap() []models.HeatmapPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type cell struct{ x, y float64 }
	index := make(map[cell]int)
	var points []models.HeatmapPoint

	for _, e := range s.events {
		if e.Type != models.EventClick || e.Coordinates == nil {
			continue
		}
		c := cell{
			x: math.Floor(e.Coordinates.X/GridSize) * GridSize,
			y: math.Floor(e.Coordinates.Y/GridSize) * GridSize,
		}
		i, ok := index[c]
		if !ok {
			i = len(points)
			index[c] = i
			points = append(points, models.HeatmapPoint{X: c.x, Y: c.y})
		}
		points[i].Count++
		points[i].Value = points[i].Count
	}
	return points
}

// ClearEvents drops every event and the live heatmap. Sessions are kept.
func (s *Store) ClearEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
	s.heatmap = nil
}

// ClearSessions drops every session and the current one. Events are kept.
func (s *Store) ClearSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = nil
	s.current = nil
}

// Config returns the current configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// UpdateConfig merges the set fields of u into the configuration.
func (s *Store) UpdateConfig(u ConfigUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.TrackClicks != nil {
		s.config.TrackClicks = *u.TrackClicks
	}
	if u.TrackScrolls != nil {
		s.config.TrackScrolls = *u.TrackScrolls
	}
	if u.TrackInputs != nil {
		s.config.TrackInputs = *u.TrackInputs
	}
	if u.TrackHovers != nil {
		s.config.TrackHovers = *u.TrackHovers
	}
	if u.TrackNavigation != nil {
		s.config.TrackNavigation = *u.TrackNavigation
	}
	if u.HeatmapEnabled != nil {
		s.config.HeatmapEnabled = *u.HeatmapEnabled
	}
	if u.SessionTimeout != nil {
		s.config.SessionTimeout = *u.SessionTimeout
	}
}

// copySession returns a deep copy safe to hand out.
func copySession(s *models.UserSession) models.UserSession {
	out := *s
	out.EventIDs = append([]string(nil), s.EventIDs...)
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	return out
}
