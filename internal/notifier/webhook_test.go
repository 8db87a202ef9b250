package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/good-yellow-bee/blazewatch/internal/models"
)

func TestWebhookNotifierName(t *testing.T) {
	w := NewWebhookNotifier(WebhookConfig{})
	if got := w.Name(); got != models.MethodWebhook {
		t.Errorf("Name() = %q, want %q", got, models.MethodWebhook)
	}
}

func TestWebhookNotifierSend(t *testing.T) {
	var (
		mu       sync.Mutex
		received models.AlertNotification
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST method, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("failed to unmarshal payload: %v", err)
		}
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	w := NewWebhookNotifier(WebhookConfig{URL: StaticURL(server.URL)})
	n := testNotification()

	if err := w.Send(context.Background(), n); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	w.Close()

	mu.Lock()
	defer mu.Unlock()
	if received.ID != n.ID || received.Title != n.Title || received.Severity != n.Severity {
		t.Errorf("received = %+v, want %+v", received, *n)
	}
	if !received.Timestamp.Equal(n.Timestamp) {
		t.Errorf("timestamp = %v, want %v", received.Timestamp, n.Timestamp)
	}
}

func TestWebhookNotifierSkipsWithoutURL(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	url := ""
	w := NewWebhookNotifier(WebhookConfig{URL: func() string { return url }})

	if err := w.Send(context.Background(), testNotification()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	w.Close()
	if hits.Load() != 0 {
		t.Fatal("no request expected without a URL")
	}

	url = server.URL
	if err := w.Send(context.Background(), testNotification()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	w.Close()
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1 after URL is set", hits.Load())
	}
}

func TestWebhookNotifierFailuresAreSwallowed(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		}},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			w := NewWebhookNotifier(WebhookConfig{URL: StaticURL(server.URL)})
			if err := w.Send(context.Background(), testNotification()); err != nil {
				t.Errorf("Send returned %v, want nil for fire-and-forget delivery", err)
			}
			w.Close()
		})
	}
}

func TestWebhookNotifierSurvivesCanceledContext(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWebhookNotifier(WebhookConfig{URL: StaticURL(server.URL)})
	if err := w.Send(ctx, testNotification()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	cancel()
	w.Close()

	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
}

func TestWebhookNotifierSingleAttempt(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"service unavailable", http.StatusServiceUnavailable},
		{"bad gateway", http.StatusBadGateway},
		{"bad request", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			w := NewWebhookNotifier(WebhookConfig{URL: StaticURL(server.URL), Timeout: time.Second})
			if err := w.Send(context.Background(), testNotification()); err != nil {
				t.Fatalf("Send: %v", err)
			}
			w.Close()

			if got := hits.Load(); got != 1 {
				t.Errorf("POST attempts = %d, want 1", got)
			}
		})
	}
}

func TestWebhookNotifierUnreachableSingleAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	w := NewWebhookNotifier(WebhookConfig{URL: StaticURL(url), Timeout: time.Second})
	start := time.Now()
	if err := w.Send(context.Background(), testNotification()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	w.Close()

	if elapsed := time.Since(start); elapsed > 900*time.Millisecond {
		t.Errorf("delivery took %v, want a single fast attempt", elapsed)
	}
}
