package behavior

import (
	"testing"
	"time"

	"github.com/good-yellow-bee/blazewatch/internal/models"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(cfg Config) (*Store, *clock) {
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(&Options{Config: cfg, Now: c.now}), c
}

func click(element string, x, y float64) EventInput {
	return EventInput{Type: models.EventClick, Element: element, Coordinates: &models.Point{X: x, Y: y}, Page: "/"}
}

func TestTrackEventStartsSession(t *testing.T) {
	store, _ := newTestStore(DefaultConfig())

	if _, ok := store.CurrentSession(); ok {
		t.Fatal("expected no session before first event")
	}

	ev, ok := store.TrackEvent(click("#buy", 10, 10))
	if !ok {
		t.Fatal("click should be tracked")
	}

	session, ok := store.CurrentSession()
	if !ok {
		t.Fatal("expected a current session")
	}
	if ev.SessionID != session.ID {
		t.Errorf("session id = %q, want %q", ev.SessionID, session.ID)
	}
	if ev.ID == "" {
		t.Error("expected generated event id")
	}
	if session.PageViews != 1 || session.Interactions != 1 {
		t.Errorf("page views = %d, interactions = %d, want 1 and 1", session.PageViews, session.Interactions)
	}
	if len(session.EventIDs) != 1 || session.EventIDs[0] != ev.ID {
		t.Errorf("event ids = %v, want [%s]", session.EventIDs, ev.ID)
	}
	if store.SessionCount() != 1 {
		t.Errorf("sessions = %d, want 1", store.SessionCount())
	}
}

func TestTrackEventGating(t *testing.T) {
	tests := []struct {
		name    string
		typ     models.EventType
		tracked bool
	}{
		{"click", models.EventClick, true},
		{"scroll", models.EventScroll, true},
		{"input", models.EventInput, true},
		{"navigation", models.EventNavigation, true},
		{"hover disabled by default", models.EventHover, false},
		{"focus always tracked", models.EventFocus, true},
		{"unknown type tracked", models.EventType("drag"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(DefaultConfig())
			_, ok := store.TrackEvent(EventInput{Type: tt.typ, Element: "el", Page: "/"})
			if ok != tt.tracked {
				t.Errorf("tracked = %v, want %v", ok, tt.tracked)
			}
			want := 0
			if tt.tracked {
				want = 1
			}
			if store.EventCount() != want {
				t.Errorf("events = %d, want %d", store.EventCount(), want)
			}
		})
	}
}

func TestDisabledEventDoesNotStartSession(t *testing.T) {
	store, _ := newTestStore(DefaultConfig())
	store.TrackEvent(EventInput{Type: models.EventHover, Element: "el"})
	if store.SessionCount() != 0 {
		t.Error("rejected event must not start a session")
	}
}

func TestEventHistoryFIFO(t *testing.T) {
	store, c := newTestStore(DefaultConfig())

	var first models.UserEvent
	for i := 0; i < MaxEvents+1; i++ {
		ev, _ := store.TrackEvent(EventInput{Type: models.EventInput, Element: "field", Page: "/"})
		if i == 0 {
			first = ev
		}
		c.advance(time.Millisecond)
	}

	events := store.Events()
	if len(events) != MaxEvents {
		t.Fatalf("events = %d, want %d", len(events), MaxEvents)
	}
	for _, ev := range events {
		if ev.ID == first.ID {
			t.Fatal("oldest event should have been evicted")
		}
	}

	session, _ := store.CurrentSession()
	if len(session.EventIDs) != MaxEvents {
		t.Errorf("session event ids = %d, want %d", len(session.EventIDs), MaxEvents)
	}
	if session.Interactions != MaxEvents+1 {
		t.Errorf("interactions = %d, want %d", session.Interactions, MaxEvents+1)
	}
}

func TestLiveHeatmapMerge(t *testing.T) {
	store, _ := newTestStore(DefaultConfig())

	store.TrackEvent(click("a", 100, 100))
	store.TrackEvent(click("a", 119, 81))  // within 20 on both axes
	store.TrackEvent(click("a", 120, 100)) // exactly 20 away: new point
	store.TrackEvent(EventInput{Type: models.EventInput, Element: "no coords", Page: "/"})

	points := store.HeatmapData()
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}
	if points[0].X != 100 || points[0].Value != 2 || points[0].Count != 2 {
		t.Errorf("first point = %+v, want merged twice at x=100", points[0])
	}
	if points[1].X != 120 || points[1].Value != 1 {
		t.Errorf("second point = %+v, want fresh point at x=120", points[1])
	}
}

func TestLiveHeatmapDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeatmapEnabled = false
	store, _ := newTestStore(cfg)

	store.TrackEvent(click("a", 1, 1))
	if len(store.HeatmapData()) != 0 {
		t.Error("heatmap should stay empty when disabled")
	}
}

func TestGenerateHeatmap(t *testing.T) {
	store, _ := newTestStore(DefaultConfig())

	store.TrackEvent(click("a", 120, 30))
	store.TrackEvent(click("a", 149, 49))
	store.TrackEvent(click("a", 10, 10))
	store.TrackEvent(click("a", 100, 0))
	store.TrackEvent(EventInput{Type: models.EventScroll, Element: "window", Coordinates: &models.Point{X: 10, Y: 10}})

	got := store.GenerateHeatmap()
	want := []models.HeatmapPoint{
		{X: 100, Y: 0, Value: 3, Count: 3},
		{X: 0, Y: 0, Value: 1, Count: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("cells = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPopularElements(t *testing.T) {
	store, _ := newTestStore(DefaultConfig())

	for _, el := range []string{"b", "a", "b", "c", "a", "d"} {
		store.TrackEvent(click(el, 0, 0))
	}
	store.TrackEvent(EventInput{Type: models.EventInput, Element: "d", Page: "/"})
	store.TrackEvent(EventInput{Type: models.EventInput, Element: "d", Page: "/"})

	got := store.PopularElements()
	want := []models.ElementCount{
		{Element: "b", Count: 2},
		{Element: "a", Count: 2},
		{Element: "c", Count: 1},
		{Element: "d", Count: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("popular = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("popular[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPopularElementsLimit(t *testing.T) {
	store, _ := newTestStore(DefaultConfig())
	for i := 0; i < 15; i++ {
		store.TrackEvent(click(string(rune('a'+i)), 0, 0))
	}
	if got := len(store.PopularElements()); got != 10 {
		t.Errorf("popular = %d, want 10", got)
	}
}

func TestNavigationAndPageViews(t *testing.T) {
	store, _ := newTestStore(DefaultConfig())

	ev, _ := store.TrackNavigation("/", "/cart")
	if ev.Value != "/ -> /cart" || ev.Page != "/cart" || ev.Element != "page" {
		t.Errorf("navigation event = %+v", ev)
	}
	store.TrackNavigation("/cart", "/checkout")
	store.TrackNavigation("/checkout", "/cart")
	store.TrackClick("btn", models.Point{X: 1, Y: 1}, "#btn", "/cart")

	views := store.PageViews()
	if views["/cart"] != 2 || views["/checkout"] != 1 || len(views) != 2 {
		t.Errorf("page views = %v", views)
	}

	session, _ := store.CurrentSession()
	if session.PageViews != 4 {
		t.Errorf("session page views = %d, want 4", session.PageViews)
	}
	if session.Interactions != 1 {
		t.Errorf("session interactions = %d, want 1", session.Interactions)
	}
}

func TestTrackScrollValue(t *testing.T) {
	store, _ := newTestStore(DefaultConfig())
	ev, _ := store.TrackScroll(1250.5, "/")
	if ev.Element != "window" || ev.Value != "1250.5" {
		t.Errorf("scroll event = %+v", ev)
	}
}

func TestStartSessionOrphansCurrent(t *testing.T) {
	store, _ := newTestStore(DefaultConfig())

	first := store.StartSession("u1")
	second := store.StartSession("u2")

	sessions := store.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if sessions[0].ID != first.ID || sessions[0].EndTime != nil {
		t.Error("first session should remain open in history")
	}
	current, _ := store.CurrentSession()
	if current.ID != second.ID || current.UserID != "u2" {
		t.Errorf("current = %+v, want second session", current)
	}
}

func TestEndSession(t *testing.T) {
	store, c := newTestStore(DefaultConfig())

	store.EndSession()
	if store.SessionCount() != 0 {
		t.Fatal("EndSession without a session must be a no-op")
	}

	store.StartSession("")
	c.advance(90 * time.Second)
	store.EndSession()

	if _, ok := store.CurrentSession(); ok {
		t.Error("current session should be cleared")
	}
	s := store.Sessions()[0]
	if s.EndTime == nil || s.Duration(c.now()) != 90*time.Second {
		t.Errorf("session = %+v, want 90s closed session", s)
	}

	store.TrackEvent(click("a", 0, 0))
	if store.SessionCount() != 2 {
		t.Error("event after EndSession should start a new session")
	}
}

func TestEndIdleSession(t *testing.T) {
	store, c := newTestStore(DefaultConfig())
	store.TrackEvent(click("a", 0, 0))

	c.advance(30 * time.Minute)
	if store.EndIdleSession() {
		t.Fatal("session at exactly the timeout is not idle")
	}

	c.advance(time.Second)
	if !store.EndIdleSession() {
		t.Fatal("expected idle session to end")
	}
	if _, ok := store.CurrentSession(); ok {
		t.Error("current session should be cleared")
	}
	if store.EndIdleSession() {
		t.Error("no session left to end")
	}
}

func TestStats(t *testing.T) {
	store, c := newTestStore(DefaultConfig())

	store.TrackClick("a", models.Point{}, "", "/home")
	store.TrackClick("b", models.Point{}, "", "/home")
	store.TrackInput("a", "x", "", "/cart")
	c.advance(5 * time.Second)

	stats := store.Stats()
	if stats.TotalEvents != 3 {
		t.Errorf("total = %d, want 3", stats.TotalEvents)
	}
	if stats.ByType["click"] != 2 || stats.ByType["input"] != 1 {
		t.Errorf("by type = %v", stats.ByType)
	}
	if stats.ByPage["/home"] != 2 || stats.ByPage["/cart"] != 1 {
		t.Errorf("by page = %v", stats.ByPage)
	}
	if stats.UniqueElements != 2 {
		t.Errorf("unique elements = %d, want 2", stats.UniqueElements)
	}
	if stats.SessionDuration != 5*time.Second {
		t.Errorf("session duration = %v, want 5s", stats.SessionDuration)
	}
}

func TestClearOperations(t *testing.T) {
	store, _ := newTestStore(DefaultConfig())
	store.TrackEvent(click("a", 5, 5))

	store.ClearEvents()
	if store.EventCount() != 0 || len(store.HeatmapData()) != 0 {
		t.Error("ClearEvents should drop events and live heatmap")
	}
	if store.SessionCount() != 1 {
		t.Error("ClearEvents should keep sessions")
	}

	store.ClearSessions()
	if store.SessionCount() != 0 {
		t.Error("sessions not cleared")
	}
	if _, ok := store.CurrentSession(); ok {
		t.Error("current session not cleared")
	}
}

func TestUpdateConfigMerges(t *testing.T) {
	store, _ := newTestStore(DefaultConfig())
	on := true
	timeout := time.Minute

	store.UpdateConfig(ConfigUpdate{TrackHovers: &on, SessionTimeout: &timeout})

	cfg := store.Config()
	if !cfg.TrackHovers || cfg.SessionTimeout != time.Minute {
		t.Errorf("config = %+v, want hovers on and 1m timeout", cfg)
	}
	if !cfg.TrackClicks || !cfg.HeatmapEnabled {
		t.Error("unset fields should be untouched")
	}
	if _, ok := store.TrackEvent(EventInput{Type: models.EventHover, Element: "x"}); !ok {
		t.Error("hover should now be tracked")
	}
}

func TestReturnedSessionIsACopy(t *testing.T) {
	store, _ := newTestStore(DefaultConfig())
	store.TrackEvent(click("a", 0, 0))

	s, _ := store.CurrentSession()
	s.EventIDs[0] = "tampered"

	again, _ := store.CurrentSession()
	if again.EventIDs[0] == "tampered" {
		t.Error("CurrentSession leaked internal state")
	}
}
