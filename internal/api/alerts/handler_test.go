package alerts

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/blazewatch/internal/alerting"
	"github.com/good-yellow-bee/blazewatch/internal/models"
	"github.com/good-yellow-bee/blazewatch/internal/notifier"
)

func newTestHandler(t *testing.T, opts Options) (http.Handler, *alerting.Engine, *notifier.Hub) {
	t.Helper()
	hub := notifier.NewHub(4)
	d := notifier.NewDispatcher()
	d.Register(notifier.NewBrowserNotifier(hub))

	cfg := alerting.DefaultConfig()
	cfg.SilentHours = nil
	engine := alerting.NewEngine(&alerting.Options{Config: cfg, Dispatcher: d})

	h := NewHandler(engine, d, hub, opts)
	r := chi.NewRouter()
	r.Get("/rules", h.ListRules)
	r.Post("/rules", h.CreateRule)
	r.Put("/rules/{id}", h.UpdateRule)
	r.Delete("/rules/{id}", h.DeleteRule)
	r.Get("/notifications", h.ListNotifications)
	r.Delete("/notifications", h.ClearNotifications)
	r.Post("/notifications/ack", h.AcknowledgeAll)
	r.Post("/notifications/{id}/ack", h.Acknowledge)
	r.Get("/notifications/stream", h.Stream)
	r.Get("/notifications/delivery", h.Delivery)
	r.Get("/stats", h.SystemStats)
	r.Get("/config", h.Config)
	r.Patch("/config", h.UpdateConfig)
	return r, engine, hub
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	resp := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if err := json.Unmarshal(resp.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestCreateRule(t *testing.T) {
	r, engine, _ := newTestHandler(t, Options{})

	rec := do(t, r, http.MethodPost, "/rules", `{"name":" Slow TTFB ","type":"performance","condition":"ttfb > threshold","threshold":800,"cooldown":"5m"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var rule RuleResponse
	decodeData(t, rec, &rule)
	if rule.ID == "" || rule.Name != "Slow TTFB" {
		t.Errorf("rule = %+v", rule)
	}
	if !rule.Enabled {
		t.Error("rule should default to enabled")
	}
	if rule.Severity != "medium" || rule.Cooldown != "5m0s" {
		t.Errorf("severity = %q cooldown = %q", rule.Severity, rule.Cooldown)
	}
	if len(engine.Rules()) != 1 {
		t.Errorf("engine rules = %d, want 1", len(engine.Rules()))
	}
}

func TestCreateRule_Validation(t *testing.T) {
	r, engine, _ := newTestHandler(t, Options{})

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing name", `{"type":"error","condition":"true"}`, "name is required"},
		{"long name", `{"name":"` + strings.Repeat("n", 101) + `","type":"error","condition":"true"}`, "100 characters"},
		{"bad type", `{"name":"x","type":"pattern","condition":"true"}`, "type must be"},
		{"bad severity", `{"name":"x","type":"error","condition":"true","severity":"urgent"}`, "severity must be"},
		{"missing condition", `{"name":"x","type":"error"}`, "condition is required"},
		{"bad cooldown", `{"name":"x","type":"error","condition":"true","cooldown":"soon"}`, "invalid cooldown"},
		{"uncompilable condition", `{"name":"x","type":"error","condition":"message >"}`, "invalid condition"},
		{"unknown variable", `{"name":"x","type":"error","condition":"lcp > 1"}`, "invalid condition"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPost, "/rules", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantMsg) {
				t.Errorf("body %q missing %q", rec.Body.String(), tt.wantMsg)
			}
		})
	}

	if len(engine.Rules()) != 0 {
		t.Errorf("no rule should be added, got %d", len(engine.Rules()))
	}
}

func TestUpdateAndDeleteRule(t *testing.T) {
	r, engine, _ := newTestHandler(t, Options{})
	rule, err := engine.AddRule(models.AlertRule{
		Name:      "Errors",
		Type:      models.AlertTypeError,
		Condition: `type == "network"`,
		Enabled:   true,
	})
	if err != nil {
		t.Fatalf("AddRule: %v", err)
	}

	rec := do(t, r, http.MethodPut, "/rules/"+rule.ID, `{"enabled":false,"severity":"high"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	var updated RuleResponse
	decodeData(t, rec, &updated)
	if updated.Enabled || updated.Severity != "high" || updated.Name != "Errors" {
		t.Errorf("updated = %+v", updated)
	}

	var active []RuleResponse
	decodeData(t, do(t, r, http.MethodGet, "/rules?active=true", ""), &active)
	if len(active) != 0 {
		t.Errorf("active rules = %d, want 0", len(active))
	}

	if rec := do(t, r, http.MethodPut, "/rules/"+rule.ID, `{"condition":"lcp > 1"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad condition status = %d, want 400", rec.Code)
	}
	if got, _ := engine.Rule(rule.ID); got.Condition != `type == "network"` {
		t.Errorf("condition changed to %q", got.Condition)
	}

	if rec := do(t, r, http.MethodPut, "/rules/missing", `{"enabled":true}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown update status = %d, want 404", rec.Code)
	}

	if rec := do(t, r, http.MethodDelete, "/rules/"+rule.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(t, r, http.MethodDelete, "/rules/"+rule.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestNotifications(t *testing.T) {
	r, engine, _ := newTestHandler(t, Options{})

	first, _ := engine.TriggerNotification(alerting.NotificationInput{Title: "one", Type: models.AlertTypeError})
	engine.TriggerNotification(alerting.NotificationInput{Title: "two", Type: models.AlertTypeError})

	var list []models.AlertNotification
	decodeData(t, do(t, r, http.MethodGet, "/notifications", ""), &list)
	if len(list) != 2 || list[0].Title != "two" {
		t.Fatalf("list = %+v", list)
	}

	if rec := do(t, r, http.MethodPost, "/notifications/"+first.ID+"/ack", ""); rec.Code != http.StatusNoContent {
		t.Errorf("ack status = %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, "/notifications/missing/ack", ""); rec.Code != http.StatusNoContent {
		t.Errorf("ack unknown status = %d", rec.Code)
	}

	var unacked []models.AlertNotification
	decodeData(t, do(t, r, http.MethodGet, "/notifications?unacknowledged=true", ""), &unacked)
	if len(unacked) != 1 || unacked[0].Title != "two" {
		t.Errorf("unacknowledged = %+v", unacked)
	}

	do(t, r, http.MethodPost, "/notifications/ack", "")
	if got := len(engine.UnacknowledgedNotifications()); got != 0 {
		t.Errorf("unacknowledged after ack all = %d", got)
	}

	if rec := do(t, r, http.MethodDelete, "/notifications", ""); rec.Code != http.StatusNoContent {
		t.Errorf("clear status = %d", rec.Code)
	}
	if got := len(engine.Notifications()); got != 0 {
		t.Errorf("notifications after clear = %d", got)
	}
}

func TestUpdateConfig(t *testing.T) {
	r, engine, _ := newTestHandler(t, Options{})

	rec := do(t, r, http.MethodPatch, "/config", `{"notification_methods":["console","webhook"],"webhook_url":"https://hooks.test/x","silent_hours":{"start":"23:00","end":"06:30"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	cfg := engine.Config()
	if len(cfg.NotificationMethods) != 2 || cfg.WebhookURL != "https://hooks.test/x" {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.SilentHours == nil || cfg.SilentHours.Start != "23:00" {
		t.Errorf("silent hours = %+v", cfg.SilentHours)
	}

	tests := []struct {
		name string
		body string
	}{
		{"unknown method", `{"notification_methods":["email"]}`},
		{"bad silent hours", `{"silent_hours":{"start":"9:00","end":"17:00"}}`},
		{"out of range hour", `{"silent_hours":{"start":"25:00","end":"17:00"}}`},
		{"bad webhook", `{"webhook_url":"ftp://hooks.test"}`},
		{"malformed", `{"enable_notifications":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, r, http.MethodPatch, "/config", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}

	do(t, r, http.MethodPatch, "/config", `{"clear_silent_hours":true}`)
	var view models.AlertConfig
	decodeData(t, do(t, r, http.MethodGet, "/config", ""), &view)
	if view.SilentHours != nil {
		t.Errorf("silent hours should be cleared: %+v", view.SilentHours)
	}
}

func TestSystemStats(t *testing.T) {
	r, _, _ := newTestHandler(t, Options{})

	var stats models.SystemStats
	decodeData(t, do(t, r, http.MethodGet, "/stats", ""), &stats)
	if stats != (models.SystemStats{}) {
		t.Errorf("stats without stores = %+v, want zero", stats)
	}
}

// readEvent returns the data of the next SSE event with the given name.
func readEvent(t *testing.T, br *bufio.Reader, name string) string {
	t.Helper()
	var event string
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("waiting for %q event: %v", name, err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && event == name:
			return strings.TrimPrefix(line, "data: ")
		}
	}
}

func openStream(t *testing.T, h http.Handler, query string) *bufio.Reader {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/notifications/stream"+query, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stream status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	return bufio.NewReader(resp.Body)
}

func TestStream_DeliversNotifications(t *testing.T) {
	r, engine, hub := newTestHandler(t, Options{HeartbeatInterval: time.Hour})
	br := openStream(t, r, "?permission=granted")

	if data := readEvent(t, br, "ready"); !strings.Contains(data, "granted") {
		t.Errorf("ready data = %q", data)
	}
	if hub.Permission() != notifier.PermissionGranted {
		t.Errorf("hub permission = %q", hub.Permission())
	}

	engine.TriggerNotification(alerting.NotificationInput{
		Title:   "LCP threshold exceeded",
		Message: "lcp 5000 > 2500",
		Type:    models.AlertTypePerformance,
	})

	var toast notifier.Toast
	if err := json.Unmarshal([]byte(readEvent(t, br, "notification")), &toast); err != nil {
		t.Fatalf("decode toast: %v", err)
	}
	if toast.Title != "LCP threshold exceeded" || toast.Body != "lcp 5000 > 2500" {
		t.Errorf("toast = %+v", toast)
	}
}

func TestStream_HeartbeatAndTimeout(t *testing.T) {
	r, _, _ := newTestHandler(t, Options{
		HeartbeatInterval: 10 * time.Millisecond,
		StreamMaxDuration: 200 * time.Millisecond,
	})
	br := openStream(t, r, "?permission=denied")

	if data := readEvent(t, br, "ready"); !strings.Contains(data, "denied") {
		t.Errorf("ready data = %q", data)
	}
	readEvent(t, br, "heartbeat")
	if data := readEvent(t, br, "close"); !strings.Contains(data, "timeout") {
		t.Errorf("close data = %q", data)
	}
}

// nextEvent returns the name of the next event on the stream.
func nextEvent(t *testing.T, br *bufio.Reader) string {
	t.Helper()
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		if name, ok := strings.CutPrefix(strings.TrimRight(line, "\n"), "event: "); ok {
			return name
		}
	}
}

func TestStream_NoPermissionSkipsNotifications(t *testing.T) {
	r, engine, hub := newTestHandler(t, Options{HeartbeatInterval: 50 * time.Millisecond})
	br := openStream(t, r, "")

	if data := readEvent(t, br, "ready"); !strings.Contains(data, `"default"`) {
		t.Errorf("ready data = %q", data)
	}
	if hub.Permission() != notifier.PermissionDefault {
		t.Errorf("hub permission = %q, want default", hub.Permission())
	}

	engine.TriggerNotification(alerting.NotificationInput{
		Title:   "Critical error",
		Message: "TypeError",
		Type:    models.AlertTypeError,
	})

	if got := nextEvent(t, br); got != "heartbeat" {
		t.Errorf("next event = %q, want heartbeat", got)
	}
	if n := len(engine.Notifications()); n != 1 {
		t.Errorf("notifications = %d, want 1 recorded", n)
	}
}

func TestStream_BadPermission(t *testing.T) {
	r, _, _ := newTestHandler(t, Options{})
	if rec := do(t, r, http.MethodGet, "/notifications/stream?permission=maybe", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListRules_CooldownRemaining(t *testing.T) {
	r, engine, _ := newTestHandler(t, Options{})

	rec := do(t, r, http.MethodPost, "/rules", `{"name":"Any error","type":"error","condition":"true","cooldown":"5m"}`)
	var created RuleResponse
	decodeData(t, rec, &created)
	if created.CooldownRemaining != "0s" {
		t.Errorf("cooldown_remaining before firing = %q, want 0s", created.CooldownRemaining)
	}

	if got := engine.EvaluateError(models.ErrorEvent{Type: models.ErrorTypeJavaScript, Message: "boom"}); len(got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got))
	}

	var rules []RuleResponse
	decodeData(t, do(t, r, http.MethodGet, "/rules", ""), &rules)
	if len(rules) != 1 {
		t.Fatalf("rules = %d, want 1", len(rules))
	}
	remaining, err := time.ParseDuration(rules[0].CooldownRemaining)
	if err != nil {
		t.Fatalf("parse cooldown_remaining %q: %v", rules[0].CooldownRemaining, err)
	}
	if remaining <= 4*time.Minute || remaining > 5*time.Minute {
		t.Errorf("cooldown_remaining = %v, want just under 5m", remaining)
	}
}

func TestDelivery(t *testing.T) {
	r, _, hub := newTestHandler(t, Options{})

	do(t, r, http.MethodPatch, "/config", `{"notification_methods":["browser","webhook"]}`)
	_, unsubscribe := hub.Subscribe(notifier.PermissionGranted)
	defer unsubscribe()

	rec := do(t, r, http.MethodGet, "/notifications/delivery", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var status DeliveryStatus
	decodeData(t, rec, &status)

	if status.Silent {
		t.Error("silent = true without silent hours")
	}
	want := []MethodStatus{
		{Method: models.MethodBrowser, Registered: true},
		{Method: models.MethodWebhook, Registered: false},
	}
	if len(status.Methods) != len(want) {
		t.Fatalf("methods = %+v, want %+v", status.Methods, want)
	}
	for i := range want {
		if status.Methods[i] != want[i] {
			t.Errorf("methods[%d] = %+v, want %+v", i, status.Methods[i], want[i])
		}
	}
	if !status.RateLimit.Enabled || status.RateLimit.Window != "1m0s" {
		t.Errorf("rate_limit = %+v", status.RateLimit)
	}
	if status.Stream == nil || status.Stream.Subscribers != 1 || status.Stream.Permission != "granted" {
		t.Errorf("stream = %+v", status.Stream)
	}
}

func TestDelivery_SilentHours(t *testing.T) {
	r, _, _ := newTestHandler(t, Options{})

	// start == end covers the whole day
	do(t, r, http.MethodPatch, "/config", `{"silent_hours":{"start":"00:00","end":"00:00"}}`)

	var status DeliveryStatus
	decodeData(t, do(t, r, http.MethodGet, "/notifications/delivery", ""), &status)
	if !status.Silent {
		t.Error("silent = false inside silent hours")
	}
}
