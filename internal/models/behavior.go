package models

import "time"

// EventType is the kind of user interaction.
type EventType string

const (
	EventClick      EventType = "click"
	EventScroll     EventType = "scroll"
	EventInput      EventType = "input"
	EventNavigation EventType = "navigation"
	EventHover      EventType = "hover"
	EventFocus      EventType = "focus"
)

// Point is a viewport coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UserEvent is one tracked interaction, always attributed to a session.
type UserEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Element     string    `json:"element"`
	Selector    string    `json:"selector,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Coordinates *Point    `json:"coordinates,omitempty"`
	Value       string    `json:"value,omitempty"`
	Page        string    `json:"page"`
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id,omitempty"`
}

// UserSession is one continuous visit.
type UserSession struct {
	ID           string     `json:"id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	PageViews    int        `json:"page_views"`
	Interactions int        `json:"interactions"`
	EventIDs     []string   `json:"event_ids"`
	UserID       string     `json:"user_id,omitempty"`

	// LastActivity is when the session last received an event.
	LastActivity time.Time `json:"last_activity"`
}

// Duration returns the session length, measured up to now while it is open.
func (s UserSession) Duration(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	return end.Sub(s.StartTime)
}

// HeatmapPoint is an accumulator bucket for interaction density.
type HeatmapPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value int     `json:"value"`
	Count int     `json:"count"`
}

// BehaviorStats summarizes the retained events.
type BehaviorStats struct {
	TotalEvents     int            `json:"total_events"`
	ByType          map[string]int `json:"by_type"`
	ByPage          map[string]int `json:"by_page"`
	SessionDuration time.Duration  `json:"session_duration"`
	UniqueElements  int            `json:"unique_elements"`
}

// ElementCount is a click tally for one element.
type ElementCount struct {
	Element string `json:"element"`
	Count   int    `json:"count"`
}
